package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/bayes"
)

// FitStore shares fitted posteriors between processes through PostgreSQL. Fits are keyed
// by everything that determines their draws, so a stored fit is only reused for an
// identical configuration.
type FitStore struct {
	db     PgPool
	logger *zap.SugaredLogger
}

func NewFitStore(db PgPool, logger *zap.Logger) *FitStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitStore{db: db, logger: logger.Sugar()}
}

// FitKey identifies the training data and sampler settings of a fit. The data
// fingerprint changes whenever the modelling table does, so a refreshed season never
// reuses a posterior fitted on older plays.
func FitKey(meta bayes.Meta, spec bayes.Spec) string {
	kind := "hierarchical"
	if spec.Pooled {
		kind = "pooled"
	}
	fp := meta.Fingerprint
	if fp == "" {
		fp = "nodata"
	}
	return fmt.Sprintf("%d/w%d/%s/%s/i%d/w%d/c%d/s%d",
		meta.Season, meta.WeekCutoff, fp, kind, spec.Iterations, spec.Warmup, spec.Chains, spec.Seed)
}

func (s *FitStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS model_fits (
			id          UUID PRIMARY KEY,
			fit_key     TEXT        NOT NULL,
			season      INTEGER     NOT NULL,
			week_cutoff INTEGER     NOT NULL,
			pooled      BOOLEAN     NOT NULL,
			payload     JSONB       NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS model_fits_key_idx ON model_fits (fit_key, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("postgres migrate fits: %w", err)
	}
	return nil
}

// Save stores fit. Saving the same fit twice is a no-op.
func (s *FitStore) Save(ctx context.Context, fit *bayes.Fit) error {
	payload, err := json.Marshal(fit)
	if err != nil {
		return fmt.Errorf("encode fit: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO model_fits (id, fit_key, season, week_cutoff, pooled, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		fit.ID, FitKey(fit.Meta(), fit.Spec), fit.Season, fit.WeekCutoff,
		fit.Spec.Pooled, payload, fit.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres save fit %s: %w", fit.ID, err)
	}
	s.logger.Infow("Fit stored", "fit_id", fit.ID, "bytes", len(payload))
	return nil
}

// Latest returns the newest fit for the configuration, or ErrFitNotFound.
func (s *FitStore) Latest(ctx context.Context, meta bayes.Meta, spec bayes.Spec) (*bayes.Fit, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `
		SELECT payload FROM model_fits
		WHERE fit_key = $1
		ORDER BY created_at DESC
		LIMIT 1`, FitKey(meta, spec)).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres load fit: %w", err)
	}

	var fit bayes.Fit
	if err := json.Unmarshal(payload, &fit); err != nil {
		return nil, fmt.Errorf("decode fit: %w", err)
	}
	return &fit, nil
}

func (s *FitStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
