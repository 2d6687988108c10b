// Package store persists play-by-play rows, fitted posteriors and rendered summaries.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/config"
	"github.com/redzone-analytics/playcall/internal/models"
)

var (
	ErrCacheMiss   = errors.New("store: cache miss")
	ErrFitNotFound = errors.New("store: no stored fit")
)

// PlayStore caches a season of play-by-play rows so restarts skip the download.
// A season only counts as cached once MarkSeason has been called for it.
type PlayStore interface {
	Migrate(ctx context.Context) error
	HasSeason(ctx context.Context, season int) (bool, error)
	LoadSeason(ctx context.Context, season int) ([]models.PlayRecord, error)
	WritePlays(ctx context.Context, plays []models.PlayRecord) error
	DeleteSeason(ctx context.Context, season int) error
	MarkSeason(ctx context.Context, season, plays int) error
	Ping(ctx context.Context) error
	Close() error
}

// OpenPlayStore builds the play store selected by cfg.PlayStore.
func OpenPlayStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (PlayStore, error) {
	switch cfg.PlayStore {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, logger)
	case "clickhouse":
		opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ClickHouse DSN: %w", err)
		}
		conn, err := clickhouse.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
		}
		return NewClickHouseStore(conn, logger), nil
	default:
		return nil, fmt.Errorf("unsupported play store %q", cfg.PlayStore)
	}
}
