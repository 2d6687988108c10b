package handlers

import (
	"context"
	"errors"

	"github.com/redzone-analytics/playcall/internal/models"
)

// MockPredictionService implements logic.PredictionService for testing
type MockPredictionService struct {
	PredictFunc func(ctx context.Context, sc models.Scenario) (*models.PredictionSummary, error)
	TeamsFunc   func(ctx context.Context) (*models.TeamRanking, error)
	ReportFunc  func(ctx context.Context, team string) (*models.TeamReport, error)
	ModelFunc   func(ctx context.Context) (*models.ModelSummary, error)
}

func (m *MockPredictionService) Predict(ctx context.Context, sc models.Scenario) (*models.PredictionSummary, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, sc)
	}
	return mockSummary(sc), nil
}

func (m *MockPredictionService) Teams(ctx context.Context) (*models.TeamRanking, error) {
	if m.TeamsFunc != nil {
		return m.TeamsFunc(ctx)
	}
	teams := []models.TeamEfficiency{
		{Team: "KC", RushEPA: 15, Rank: 1},
		{Team: "NYJ", RushEPA: -22, Rank: 2},
	}
	return &models.TeamRanking{Teams: teams, Top: teams[:1], Bottom: teams[1:]}, nil
}

func (m *MockPredictionService) Report(ctx context.Context, team string) (*models.TeamReport, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, team)
	}
	report := &models.TeamReport{
		Team:     models.TeamEfficiency{Team: team, Rank: 1, RushEPA: 15},
		Season:   2023,
		FitID:    "fit-1",
		Featured: mockSummary(models.Scenario{Team: team, Down: 2, Distance: 6}),
	}
	for down := 1; down <= 3; down++ {
		for dist := 1; dist <= 15; dist++ {
			report.Rows = append(report.Rows, models.ScenarioRow{Down: down, Distance: dist})
		}
	}
	return report, nil
}

func (m *MockPredictionService) Model(ctx context.Context) (*models.ModelSummary, error) {
	if m.ModelFunc != nil {
		return m.ModelFunc(ctx)
	}
	return &models.ModelSummary{FitID: "fit-1", Coefficients: []models.Coefficient{{Name: "distance", Median: 0.4}}}, nil
}

func mockSummary(sc models.Scenario) *models.PredictionSummary {
	return &models.PredictionSummary{
		Scenario:  sc,
		FitID:     "fit-1",
		Draws:     100,
		Pass:      models.Stat{Median: 60, Lower: 50, Upper: 70},
		Run:       models.Stat{Median: 40, Lower: 30, Upper: 50},
		Histogram: []models.HistogramBin{{Lower: 50, Upper: 60, Count: 40}, {Lower: 60, Upper: 70, Count: 60}},
	}
}

type MockPinger struct {
	Err error
}

func (m MockPinger) Ping(ctx context.Context) error { return m.Err }

var errBackend = errors.New("backend down")
