package logic

import (
	"context"

	"github.com/redzone-analytics/playcall/internal/models"
)

// PredictionService answers play-call questions against one fitted session.
type PredictionService interface {
	Predict(ctx context.Context, sc models.Scenario) (*models.PredictionSummary, error)
	Teams(ctx context.Context) (*models.TeamRanking, error)
	Report(ctx context.Context, team string) (*models.TeamReport, error)
	Model(ctx context.Context) (*models.ModelSummary, error)
}

// SummaryCache memoises prediction summaries. Implementations return store.ErrCacheMiss
// when nothing is cached.
type SummaryCache interface {
	Get(ctx context.Context, fitID, leagueID string, sc models.Scenario) (*models.PredictionSummary, error)
	Set(ctx context.Context, fitID, leagueID string, sc models.Scenario, summary *models.PredictionSummary) error
}
