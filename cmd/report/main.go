// Command report fits the configured season and writes one team's static HTML report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redzone-analytics/playcall/internal/app"
	"github.com/redzone-analytics/playcall/internal/config"
	"github.com/redzone-analytics/playcall/internal/logic"
	"github.com/redzone-analytics/playcall/internal/views"
)

func main() {
	team := flag.String("team", "", "team abbreviation, e.g. KC")
	out := flag.String("out", "", "output file (default <TEAM>-goal-to-go-<SEASON>.html)")
	flag.Parse()
	if *team == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := app.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("Failed to open play store", "error", err)
	}
	defer backends.Close()

	session, err := app.Build(ctx, app.OptionsFromConfig(cfg, backends, logger))
	if err != nil {
		sugar.Fatalw("Failed to build prediction session", "error", err)
	}

	code := strings.ToUpper(*team)
	report, err := logic.NewPredictionService(logic.ServiceConfig{Session: session, Logger: logger}).Report(ctx, code)
	if err != nil {
		sugar.Fatalw("Failed to build report", "team", code, "error", err)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("%s-goal-to-go-%d.html", code, report.Season)
	}
	f, err := os.Create(path)
	if err != nil {
		sugar.Fatalw("Failed to create report file", "path", path, "error", err)
	}
	defer f.Close()

	data := views.ReportData{
		Report:    report,
		Histogram: views.RenderHistogram(fmt.Sprintf("%s, down 2 and 6", code), report.Featured),
	}
	if err := views.Report(data).Render(ctx, f); err != nil {
		sugar.Fatalw("Failed to render report", "error", err)
	}
	sugar.Infow("Report written", "team", code, "path", path)
}
