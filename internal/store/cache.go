package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redzone-analytics/playcall/internal/models"
)

const summaryKeyPrefix = "playcall:summary:"

// SummaryCache memoises prediction summaries per fit pair and scenario. Entries can never
// go stale because both fit IDs are part of the key; the TTL only bounds memory.
type SummaryCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewSummaryCache(client RedisClient, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

// SummaryKey is the Redis key of a cached summary. leagueID is the league baseline fit
// and may be empty when the summary carries no baseline.
func SummaryKey(fitID, leagueID string, sc models.Scenario) string {
	if leagueID == "" {
		leagueID = "none"
	}
	return fmt.Sprintf("%s%s:%s:%s:%d:%d", summaryKeyPrefix, fitID, leagueID, sc.Team, sc.Down, sc.Distance)
}

// Get returns the cached summary or ErrCacheMiss.
func (c *SummaryCache) Get(ctx context.Context, fitID, leagueID string, sc models.Scenario) (*models.PredictionSummary, error) {
	raw, err := c.client.Get(ctx, SummaryKey(fitID, leagueID, sc)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get summary: %w", err)
	}

	var summary models.PredictionSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	return &summary, nil
}

func (c *SummaryCache) Set(ctx context.Context, fitID, leagueID string, sc models.Scenario, summary *models.PredictionSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, SummaryKey(fitID, leagueID, sc), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}
	return nil
}

func (c *SummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
