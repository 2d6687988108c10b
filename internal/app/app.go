// Package app assembles a prediction session from configuration: it loads the season,
// derives the modelling table and fits (or reuses) the posterior.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/bayes"
	"github.com/redzone-analytics/playcall/internal/config"
	"github.com/redzone-analytics/playcall/internal/features"
	"github.com/redzone-analytics/playcall/internal/handlers"
	"github.com/redzone-analytics/playcall/internal/logic"
	"github.com/redzone-analytics/playcall/internal/models"
	"github.com/redzone-analytics/playcall/internal/pbp"
	"github.com/redzone-analytics/playcall/internal/store"
	"github.com/redzone-analytics/playcall/internal/worker"
)

// FitRepository is the subset of the fit store the bootstrap needs.
type FitRepository interface {
	Latest(ctx context.Context, meta bayes.Meta, spec bayes.Spec) (*bayes.Fit, error)
	Save(ctx context.Context, fit *bayes.Fit) error
}

// Backends holds the storage the session is built from. Only Plays is required.
type Backends struct {
	Plays store.PlayStore
	Fits  *store.FitStore
	Cache *store.SummaryCache

	pg    *pgxpool.Pool
	redis *redis.Client
}

// OpenBackends connects every configured store. Optional stores that fail to connect are
// logged and skipped; only the play store is fatal.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	log := logger.Sugar()

	plays, err := store.OpenPlayStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := plays.Migrate(ctx); err != nil {
		plays.Close()
		return nil, err
	}
	b := &Backends{Plays: plays}

	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Warnw("Fit store unavailable, fitting locally", "error", err)
			if pool != nil {
				pool.Close()
			}
		} else {
			fits := store.NewFitStore(pool, logger)
			if err := fits.Migrate(ctx); err != nil {
				log.Warnw("Fit store migration failed, fitting locally", "error", err)
				pool.Close()
			} else {
				b.pg, b.Fits = pool, fits
				log.Infow("Connected to PostgreSQL fit store")
			}
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warnw("Invalid REDIS_URL, summary cache disabled", "error", err)
		} else {
			client := redis.NewClient(opts)
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warnw("Redis unavailable, summary cache disabled", "error", err)
				client.Close()
			} else {
				b.redis = client
				b.Cache = store.NewSummaryCache(client, cfg.CacheTTL)
				log.Infow("Connected to Redis summary cache")
			}
		}
	}
	return b, nil
}

// Checks lists the connected backends for the readiness check.
func (b *Backends) Checks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"play_store": b.Plays}
	if b.Fits != nil {
		checks["fit_store"] = b.Fits
	}
	if b.Cache != nil {
		checks["summary_cache"] = b.Cache
	}
	return checks
}

func (b *Backends) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
	if b.pg != nil {
		b.pg.Close()
	}
	if b.Plays != nil {
		b.Plays.Close()
	}
}

// SpecFromConfig is the hierarchical model spec the configuration asks for.
func SpecFromConfig(cfg *config.Config) bayes.Spec {
	spec := bayes.DefaultSpec()
	spec.Iterations = cfg.SamplerIterations
	spec.Warmup = cfg.SamplerWarmup
	spec.Chains = cfg.SamplerChains
	spec.Seed = cfg.SamplerSeed
	return spec
}

// Options drives Build.
type Options struct {
	Season     int
	WeekCutoff int
	Source     string
	Spec       bayes.Spec
	// Pooled also fits the complete-pooling league baseline.
	Pooled     bool
	Plays      store.PlayStore
	Fits       FitRepository
	Pool       worker.PoolConfig
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// OptionsFromConfig maps configuration and connected backends onto build options.
func OptionsFromConfig(cfg *config.Config, b *Backends, logger *zap.Logger) Options {
	opts := Options{
		Season:     cfg.Season,
		WeekCutoff: cfg.WeekCutoff,
		Source:     cfg.PBPSource(),
		Spec:       SpecFromConfig(cfg),
		Pooled:     cfg.PooledBaseline,
		Pool: worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
		},
		Logger: logger,
	}
	if b != nil {
		opts.Plays = b.Plays
		if b.Fits != nil {
			opts.Fits = b.Fits
		}
	}
	return opts
}

// Build loads the season and produces the immutable session every request reads.
func Build(ctx context.Context, opts Options) (*logic.Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Sugar()

	loader := pbp.NewLoader(pbp.LoaderConfig{
		Store:      opts.Plays,
		HTTPClient: opts.HTTPClient,
		Pool:       opts.Pool,
		Logger:     opts.Logger,
	})
	plays, err := loader.Load(ctx, opts.Season, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("load season %d: %w", opts.Season, err)
	}

	agg := features.RushingEfficiency(plays, opts.WeekCutoff)
	ranking := features.Rank(agg)
	rows := features.BuildTable(plays, agg)
	log.Infow("Modelling table built",
		"season", opts.Season,
		"week_cutoff", opts.WeekCutoff,
		"plays", len(plays),
		"goal_to_go_rows", len(rows),
		"dropped", len(plays)-len(rows),
		"teams", len(ranking),
	)

	meta := bayes.Meta{
		Season:      opts.Season,
		WeekCutoff:  opts.WeekCutoff,
		Fingerprint: features.Fingerprint(rows),
	}
	fit, err := fitOrReuse(ctx, opts.Fits, rows, opts.Spec, meta, opts.Logger)
	if err != nil {
		return nil, err
	}

	session := &logic.Session{
		Season:     opts.Season,
		WeekCutoff: opts.WeekCutoff,
		Fit:        fit,
		Ranking:    ranking,
	}

	if opts.Pooled {
		spec := opts.Spec
		spec.Pooled = true
		league, err := fitOrReuse(ctx, opts.Fits, rows, spec, meta, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("league baseline: %w", err)
		}
		session.League = league
	}
	return session, nil
}

// fitOrReuse returns the stored fit for this configuration when one exists, and samples
// and stores a new one otherwise. Fit store failures only cost a local fit.
func fitOrReuse(ctx context.Context, fits FitRepository, rows []models.ModelRow, spec bayes.Spec, meta bayes.Meta, logger *zap.Logger) (*bayes.Fit, error) {
	log := logger.Sugar()

	if fits != nil {
		fit, err := fits.Latest(ctx, meta, spec)
		switch {
		case err == nil:
			log.Infow("Reusing stored fit", "fit_id", fit.ID, "key", store.FitKey(meta, spec))
			return fit, nil
		case errors.Is(err, store.ErrFitNotFound):
		default:
			log.Warnw("Fit store lookup failed, fitting locally", "error", err)
		}
	}

	fit, err := bayes.Sample(ctx, rows, spec, meta, logger)
	if err != nil {
		return nil, err
	}

	if fits != nil {
		if err := fits.Save(ctx, fit); err != nil {
			log.Warnw("Failed to store fit", "fit_id", fit.ID, "error", err)
		}
	}
	return fit, nil
}

// NewLogger returns a development logger for ENV=development and a production one
// otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
