// Command seeder writes a synthetic play-by-play season in the provider's CSV layout, for
// running the server without network access (PBP_FILE=<out>).
package main

import (
	"bufio"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/pbp"
)

func main() {
	season := flag.Int("season", 2023, "season to generate")
	weeks := flag.Int("weeks", 18, "regular-season weeks")
	plays := flag.Int("plays", 65, "offensive plays per team per game")
	seed := flag.Uint64("seed", 1, "random seed")
	out := flag.String("out", "pbp_synthetic.csv", "output CSV path")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	records := pbp.Synthesize(pbp.SyntheticOptions{
		Season:       *season,
		Weeks:        *weeks,
		PlaysPerTeam: *plays,
		Seed:         *seed,
	})

	f, err := os.Create(*out)
	if err != nil {
		sugar.Fatalw("Failed to create output", "path", *out, "error", err)
	}
	w := bufio.NewWriter(f)
	if err := pbp.WriteCSV(w, records); err != nil {
		sugar.Fatalw("Failed to write season", "error", err)
	}
	if err := w.Flush(); err != nil {
		sugar.Fatalw("Failed to flush output", "error", err)
	}
	if err := f.Close(); err != nil {
		sugar.Fatalw("Failed to close output", "error", err)
	}
	sugar.Infow("Synthetic season written", "season", *season, "plays", len(records), "path", *out)
}
