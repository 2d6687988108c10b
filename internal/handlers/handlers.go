package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/logic"
)

// Pinger is a dependency whose health the readiness check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Prediction logic.PredictionService
	// Checks are optional backends keyed by name (play store, fit store, cache).
	Checks map[string]Pinger
	Season int
	Logger *zap.Logger
}

type Handler struct {
	prediction logic.PredictionService
	checks     map[string]Pinger
	season     int
	logger     *zap.SugaredLogger
	validator  *validator.Validate
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		prediction: cfg.Prediction,
		checks:     cfg.Checks,
		season:     cfg.Season,
		logger:     cfg.Logger.Sugar(),
		validator:  validator.New(),
	}
}
