package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redzone-analytics/playcall/internal/app"
	"github.com/redzone-analytics/playcall/internal/config"
	"github.com/redzone-analytics/playcall/internal/handlers"
	"github.com/redzone-analytics/playcall/internal/logic"
)

func main() {
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

	// Fitting blocks until the posterior is ready; the listener only opens afterwards.
	start := time.Now()
	session, err := app.Build(ctx, app.OptionsFromConfig(cfg, backends, logger))
	if err != nil {
		sugar.Fatalw("Failed to build prediction session", "error", err)
	}
	sugar.Infow("Prediction session ready",
		"season", session.Season,
		"fit_id", session.Fit.ID,
		"draws", session.Fit.NumDraws(),
		"duration", time.Since(start),
	)

	serviceCfg := logic.ServiceConfig{Session: session, Logger: logger}
	if backends.Cache != nil {
		serviceCfg.Cache = backends.Cache
	}
	h := handlers.New(handlers.Config{
		Prediction: logic.NewPredictionService(serviceCfg),
		Checks:     backends.Checks(),
		Season:     cfg.Season,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h.Router(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sugar.Infow("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Server forced to shutdown", "error", err)
	}
	sugar.Info("Server stopped")
}
