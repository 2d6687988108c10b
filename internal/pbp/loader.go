package pbp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/models"
	"github.com/redzone-analytics/playcall/internal/store"
	"github.com/redzone-analytics/playcall/internal/worker"
)

var (
	seasonLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcall_season_loads_total",
		Help: "Season loads by origin",
	}, []string{"origin"})

	sourceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "playcall_source_fetch_duration_seconds",
		Help:    "Time to fetch and parse a season from its source",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

// LoaderConfig configures a Loader. Store is optional; without it every load reads the
// source directly.
type LoaderConfig struct {
	Store      store.PlayStore
	HTTPClient *http.Client
	Pool       worker.PoolConfig
	Logger     *zap.Logger
}

// Loader fetches a season once and serves it from the play store afterwards.
type Loader struct {
	config LoaderConfig
	logger *zap.SugaredLogger
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Loader{config: cfg, logger: cfg.Logger.Sugar()}
}

// Load returns every play of season, reading the store when it holds a complete copy and
// src otherwise. A fresh download is written back through the worker pool; the season is
// only marked cached when every batch was persisted.
func (l *Loader) Load(ctx context.Context, season int, src string) ([]models.PlayRecord, error) {
	if st := l.config.Store; st != nil {
		cached, err := st.HasSeason(ctx, season)
		if err != nil {
			l.logger.Warnw("Play store lookup failed, reading source", "season", season, "error", err)
		} else if cached {
			plays, err := st.LoadSeason(ctx, season)
			if err == nil && len(plays) > 0 {
				seasonLoads.WithLabelValues("store").Inc()
				l.logger.Infow("Season loaded from play store", "season", season, "plays", len(plays))
				return plays, nil
			}
			l.logger.Warnw("Cached season unreadable, reading source", "season", season, "error", err)
		}
	}

	start := time.Now()
	plays, err := l.fetch(ctx, season, src)
	if err != nil {
		return nil, err
	}
	sourceDuration.Observe(time.Since(start).Seconds())
	seasonLoads.WithLabelValues("source").Inc()
	l.logger.Infow("Season loaded from source",
		"season", season,
		"source", src,
		"plays", len(plays),
		"duration", time.Since(start),
	)

	if l.config.Store != nil {
		if err := l.persist(ctx, season, plays); err != nil {
			l.logger.Warnw("Failed to cache season", "season", season, "error", err)
		}
	}
	return plays, nil
}

func (l *Loader) fetch(ctx context.Context, season int, src string) ([]models.PlayRecord, error) {
	rc, err := Open(ctx, src, l.config.HTTPClient)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	all, err := ParseCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src, err)
	}

	plays := all[:0]
	for _, p := range all {
		if p.Season == season {
			plays = append(plays, p)
		}
	}
	if len(plays) == 0 {
		return nil, fmt.Errorf("%w %d in %s", ErrEmptySeason, season, src)
	}
	return plays, nil
}

func (l *Loader) persist(ctx context.Context, season int, plays []models.PlayRecord) error {
	st := l.config.Store
	if err := st.DeleteSeason(ctx, season); err != nil {
		return err
	}

	cfg := l.config.Pool
	cfg.Writer = st
	cfg.Logger = l.config.Logger
	pool := worker.NewPool(cfg)
	pool.Start(ctx)

	for _, p := range plays {
		if err := pool.Enqueue(ctx, p); err != nil {
			pool.Stop()
			return fmt.Errorf("enqueue play: %w", err)
		}
	}
	pool.Stop()

	if failed := pool.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d plays failed to persist", failed, len(plays))
	}
	return st.MarkSeason(ctx, season, len(plays))
}
