package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/models"
)

// ClickHouseStore keeps plays in a ReplacingMergeTree so re-running a load is idempotent.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *zap.SugaredLogger
}

func NewClickHouseStore(conn driver.Conn, logger *zap.Logger) *ClickHouseStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHouseStore{conn: conn, logger: logger.Sugar()}
}

func (s *ClickHouseStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plays (
			season       UInt16,
			game_id      String,
			play_id      UInt32,
			posteam      LowCardinality(String),
			defteam      LowCardinality(String),
			week         UInt8,
			down         Nullable(UInt8),
			yardline_100 Nullable(UInt8),
			goal_to_go   UInt8,
			play_type    Nullable(String),
			epa          Nullable(Float64)
		) ENGINE = ReplacingMergeTree
		ORDER BY (season, game_id, play_id)`,
		`CREATE TABLE IF NOT EXISTS seasons (
			season    UInt16,
			plays     UInt32,
			loaded_at DateTime
		) ENGINE = ReplacingMergeTree(loaded_at)
		ORDER BY season`,
	}
	for _, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse migrate: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseStore) HasSeason(ctx context.Context, season int) (bool, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM seasons FINAL WHERE season = ?`, uint16(season)).Scan(&n); err != nil {
		return false, fmt.Errorf("clickhouse season lookup: %w", err)
	}
	return n > 0, nil
}

func (s *ClickHouseStore) LoadSeason(ctx context.Context, season int) ([]models.PlayRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT season, game_id, play_id, posteam, defteam, week,
		       down, yardline_100, goal_to_go, play_type, epa
		FROM plays FINAL
		WHERE season = ?
		ORDER BY game_id, play_id`, uint16(season))
	if err != nil {
		return nil, fmt.Errorf("clickhouse load season %d: %w", season, err)
	}
	defer rows.Close()

	var plays []models.PlayRecord
	for rows.Next() {
		var (
			seasonCol uint16
			gameID    string
			playID    uint32
			posteam   string
			defteam   string
			week      uint8
			down      *uint8
			yards     *uint8
			goal      uint8
			playType  *string
			epa       *float64
		)
		if err := rows.Scan(&seasonCol, &gameID, &playID, &posteam, &defteam, &week,
			&down, &yards, &goal, &playType, &epa); err != nil {
			return nil, fmt.Errorf("clickhouse scan play: %w", err)
		}
		plays = append(plays, models.PlayRecord{
			Season:      int(seasonCol),
			GameID:      gameID,
			PlayID:      int(playID),
			PosTeam:     posteam,
			DefTeam:     defteam,
			Week:        int(week),
			Down:        fromUint8(down),
			YardsToGoal: fromUint8(yards),
			GoalToGo:    goal == 1,
			PlayType:    playType,
			EPA:         epa,
		})
	}
	return plays, rows.Err()
}

// WritePlays sends the batch with a single ClickHouse batch insert.
func (s *ClickHouseStore) WritePlays(ctx context.Context, plays []models.PlayRecord) error {
	if len(plays) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO plays (
			season, game_id, play_id, posteam, defteam, week,
			down, yardline_100, goal_to_go, play_type, epa
		)
	`)
	if err != nil {
		return fmt.Errorf("clickhouse prepare batch: %w", err)
	}

	for _, p := range plays {
		var goal uint8
		if p.GoalToGo {
			goal = 1
		}
		if err := batch.Append(
			uint16(p.Season),
			p.GameID,
			uint32(p.PlayID),
			p.PosTeam,
			p.DefTeam,
			uint8(p.Week),
			toUint8(p.Down),
			toUint8(p.YardsToGoal),
			goal,
			p.PlayType,
			p.EPA,
		); err != nil {
			if abortErr := batch.Abort(); abortErr != nil {
				s.logger.Warnw("Failed to abort batch", "error", abortErr)
			}
			return fmt.Errorf("clickhouse append play %s/%d: %w", p.GameID, p.PlayID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) DeleteSeason(ctx context.Context, season int) error {
	if err := s.conn.Exec(ctx, `ALTER TABLE seasons DELETE WHERE season = ?`, uint16(season)); err != nil {
		return fmt.Errorf("clickhouse delete season marker: %w", err)
	}
	if err := s.conn.Exec(ctx, `ALTER TABLE plays DELETE WHERE season = ?`, uint16(season)); err != nil {
		return fmt.Errorf("clickhouse delete season plays: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) MarkSeason(ctx context.Context, season, plays int) error {
	err := s.conn.Exec(ctx, `INSERT INTO seasons (season, plays, loaded_at) VALUES (?, ?, ?)`,
		uint16(season), uint32(plays), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clickhouse mark season: %w", err)
	}
	s.logger.Infow("Season cached", "season", season, "plays", plays)
	return nil
}

func (s *ClickHouseStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

func toUint8(v *int) *uint8 {
	if v == nil {
		return nil
	}
	u := uint8(*v)
	return &u
}

func fromUint8(v *uint8) *int {
	if v == nil {
		return nil
	}
	return models.IntPtr(int(*v))
}
