package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/redzone-analytics/playcall/internal/models"
)

// SQLiteStore is the default local play store.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" works for tests.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// SQLite serialises writers; a single connection avoids "database is locked" between
	// pool workers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, logger: logger.Sugar()}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plays (
			season       INTEGER NOT NULL,
			game_id      TEXT    NOT NULL,
			play_id      INTEGER NOT NULL,
			posteam      TEXT    NOT NULL DEFAULT '',
			defteam      TEXT    NOT NULL DEFAULT '',
			week         INTEGER NOT NULL,
			down         INTEGER,
			yardline_100 INTEGER,
			goal_to_go   INTEGER NOT NULL DEFAULT 0,
			play_type    TEXT,
			epa          REAL,
			PRIMARY KEY (season, game_id, play_id)
		)`,
		`CREATE TABLE IF NOT EXISTS seasons (
			season    INTEGER PRIMARY KEY,
			plays     INTEGER NOT NULL,
			loaded_at TEXT    NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) HasSeason(ctx context.Context, season int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seasons WHERE season = ?`, season).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite season lookup: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) LoadSeason(ctx context.Context, season int) ([]models.PlayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT season, game_id, play_id, posteam, defteam, week,
		       down, yardline_100, goal_to_go, play_type, epa
		FROM plays
		WHERE season = ?
		ORDER BY game_id, play_id`, season)
	if err != nil {
		return nil, fmt.Errorf("sqlite load season %d: %w", season, err)
	}
	defer rows.Close()

	var plays []models.PlayRecord
	for rows.Next() {
		var (
			p        models.PlayRecord
			down     sql.NullInt64
			yards    sql.NullInt64
			goal     int
			playType sql.NullString
			epa      sql.NullFloat64
		)
		if err := rows.Scan(&p.Season, &p.GameID, &p.PlayID, &p.PosTeam, &p.DefTeam, &p.Week,
			&down, &yards, &goal, &playType, &epa); err != nil {
			return nil, fmt.Errorf("sqlite scan play: %w", err)
		}
		if down.Valid {
			p.Down = models.IntPtr(int(down.Int64))
		}
		if yards.Valid {
			p.YardsToGoal = models.IntPtr(int(yards.Int64))
		}
		p.GoalToGo = goal == 1
		if playType.Valid {
			p.PlayType = models.StringPtr(playType.String)
		}
		if epa.Valid {
			p.EPA = models.FloatPtr(epa.Float64)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// WritePlays upserts a batch inside one transaction.
func (s *SQLiteStore) WritePlays(ctx context.Context, plays []models.PlayRecord) error {
	if len(plays) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO plays (
			season, game_id, play_id, posteam, defteam, week,
			down, yardline_100, goal_to_go, play_type, epa
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range plays {
		goal := 0
		if p.GoalToGo {
			goal = 1
		}
		if _, err := stmt.ExecContext(ctx,
			p.Season, p.GameID, p.PlayID, p.PosTeam, p.DefTeam, p.Week,
			nullInt(p.Down), nullInt(p.YardsToGoal), goal, nullString(p.PlayType), nullFloat(p.EPA),
		); err != nil {
			return fmt.Errorf("sqlite insert play %s/%d: %w", p.GameID, p.PlayID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteSeason(ctx context.Context, season int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM seasons WHERE season = ?`, season); err != nil {
		return fmt.Errorf("sqlite delete season marker: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plays WHERE season = ?`, season); err != nil {
		return fmt.Errorf("sqlite delete season plays: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkSeason(ctx context.Context, season, plays int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO seasons (season, plays, loaded_at) VALUES (?, ?, ?)`,
		season, plays, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite mark season: %w", err)
	}
	s.logger.Infow("Season cached", "season", season, "plays", plays)
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
