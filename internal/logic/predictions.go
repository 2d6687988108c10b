package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/redzone-analytics/playcall/internal/bayes"
	"github.com/redzone-analytics/playcall/internal/features"
	"github.com/redzone-analytics/playcall/internal/models"
	"github.com/redzone-analytics/playcall/internal/stats"
	"github.com/redzone-analytics/playcall/internal/store"
)

// Report layout: every down below fourth, every goal-to-go distance the UI offers, and a
// featured histogram at second and six.
const (
	MinDistance      = 1
	MaxDistance      = 15
	featuredDown     = 2
	featuredDistance = 6
	histogramBins    = 30
	rankingSize      = 3
)

var (
	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcall_predictions_total",
		Help: "Prediction requests by outcome",
	}, []string{"outcome"})

	summaryCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcall_summary_cache_requests_total",
		Help: "Summary cache lookups by result",
	}, []string{"result"})
)

// Session is everything one fit produced. It is built once at startup and never mutated,
// so it is shared by all requests without locking.
type Session struct {
	Season     int
	WeekCutoff int
	Fit        *bayes.Fit
	// League is the complete-pooling baseline. Nil when disabled.
	League  *bayes.Fit
	Ranking []models.TeamEfficiency
}

// ServiceConfig configures the prediction service. Cache is optional.
type ServiceConfig struct {
	Session *Session
	Cache   SummaryCache
	Mass    float64
	Logger  *zap.Logger
}

type predictionService struct {
	session *Session
	cache   SummaryCache
	mass    float64
	logger  *zap.SugaredLogger
	byTeam  map[string]models.TeamEfficiency
}

func NewPredictionService(cfg ServiceConfig) PredictionService {
	if cfg.Mass <= 0 || cfg.Mass >= 1 {
		cfg.Mass = stats.DefaultMass
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	byTeam := make(map[string]models.TeamEfficiency, len(cfg.Session.Ranking))
	for _, te := range cfg.Session.Ranking {
		byTeam[te.Team] = te
	}
	return &predictionService{
		session: cfg.Session,
		cache:   cfg.Cache,
		mass:    cfg.Mass,
		logger:  cfg.Logger.Sugar(),
		byTeam:  byTeam,
	}
}

func (s *predictionService) Predict(ctx context.Context, sc models.Scenario) (*models.PredictionSummary, error) {
	fit := s.session.Fit
	var leagueID string
	if s.session.League != nil {
		leagueID = s.session.League.ID
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, fit.ID, leagueID, sc)
		switch {
		case err == nil:
			summaryCacheRequests.WithLabelValues("hit").Inc()
			predictionsServed.WithLabelValues("cached").Inc()
			return cached, nil
		case errors.Is(err, store.ErrCacheMiss):
			summaryCacheRequests.WithLabelValues("miss").Inc()
		default:
			summaryCacheRequests.WithLabelValues("error").Inc()
			s.logger.Warnw("Summary cache read failed", "error", err, "team", sc.Team)
		}
	}

	summary, err := s.summarize(sc)
	if err != nil {
		predictionsServed.WithLabelValues("error").Inc()
		return nil, err
	}
	predictionsServed.WithLabelValues("computed").Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, fit.ID, leagueID, sc, summary); err != nil {
			s.logger.Warnw("Summary cache write failed", "error", err, "team", sc.Team)
		}
	}
	return summary, nil
}

func (s *predictionService) summarize(sc models.Scenario) (*models.PredictionSummary, error) {
	fit := s.session.Fit
	probs, err := fit.Predict(sc)
	if err != nil {
		return nil, err
	}
	pass, run, err := stats.PassRun(probs, s.mass)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", sc.Team, err)
	}

	summary := &models.PredictionSummary{
		Scenario:    sc,
		FitID:       fit.ID,
		Draws:       len(probs),
		Mass:        s.mass,
		Pass:        pass,
		Run:         run,
		Histogram:   stats.Histogram(stats.Percent(probs), histogramBins),
		RushEPA:     fit.Efficiency[sc.Team],
		GeneratedAt: time.Now().UTC(),
	}

	if league := s.session.League; league != nil {
		lp, err := league.Predict(sc)
		if err != nil {
			return nil, fmt.Errorf("league baseline: %w", err)
		}
		ls, err := stats.Summarize(stats.Percent(lp), s.mass)
		if err != nil {
			return nil, fmt.Errorf("league baseline: %w", err)
		}
		summary.LeaguePass = &models.Stat{Median: ls.Median, MAD: ls.MAD, Lower: ls.Lower, Upper: ls.Upper}
	}
	return summary, nil
}

// Teams lists the teams the fit can predict for, in rushing-efficiency order, with the
// league's top and bottom three.
func (s *predictionService) Teams(ctx context.Context) (*models.TeamRanking, error) {
	selectable := make([]models.TeamEfficiency, 0, len(s.session.Ranking))
	for _, te := range s.session.Ranking {
		if s.session.Fit.HasTeam(te.Team) {
			selectable = append(selectable, te)
		}
	}
	ranking := features.TopBottom(s.session.Ranking, rankingSize)
	ranking.Teams = selectable
	return &ranking, nil
}

// Report builds the per-team report: every down and distance, plus the featured
// scenario's full summary.
func (s *predictionService) Report(ctx context.Context, team string) (*models.TeamReport, error) {
	fit := s.session.Fit
	if !fit.HasTeam(team) {
		return nil, fmt.Errorf("%w: %q", bayes.ErrUnknownTeam, team)
	}

	report := &models.TeamReport{
		Team:        s.byTeam[team],
		Season:      s.session.Season,
		FitID:       fit.ID,
		GeneratedAt: time.Now().UTC(),
	}
	if report.Team.Team == "" {
		report.Team = models.TeamEfficiency{Team: team, RushEPA: fit.Efficiency[team], WeekCutoff: s.session.WeekCutoff}
	}

	for down := 1; down <= 3; down++ {
		for dist := MinDistance; dist <= MaxDistance; dist++ {
			probs, err := fit.Predict(models.Scenario{Team: team, Down: down, Distance: dist})
			if err != nil {
				return nil, err
			}
			pass, run, err := stats.PassRun(probs, s.mass)
			if err != nil {
				return nil, fmt.Errorf("report %s %d&%d: %w", team, down, dist, err)
			}
			report.Rows = append(report.Rows, models.ScenarioRow{Down: down, Distance: dist, Pass: pass, Run: run})
		}
	}

	featured, err := s.Predict(ctx, models.Scenario{Team: team, Down: featuredDown, Distance: featuredDistance})
	if err != nil {
		return nil, err
	}
	report.Featured = featured
	return report, nil
}

// Model summarises the fixed effects and the intercept scale of the fit.
func (s *predictionService) Model(ctx context.Context) (*models.ModelSummary, error) {
	fit := s.session.Fit
	out := &models.ModelSummary{
		FitID:      fit.ID,
		Season:     fit.Season,
		WeekCutoff: fit.WeekCutoff,
		Pooled:     fit.Spec.Pooled,
		Rows:       fit.Rows,
		Teams:      len(fit.Efficiency),
		Draws:      fit.NumDraws(),
		Acceptance: fit.Diag.Acceptance,
		CreatedAt:  fit.CreatedAt,
	}

	for _, name := range fit.Names {
		c, err := coefficient(name, fit.Column(name), fit.Diag.RHat[name], s.mass)
		if err != nil {
			return nil, err
		}
		out.Coefficients = append(out.Coefficients, c)
	}
	if len(fit.Sigma) > 0 {
		c, err := coefficient("sigma", fit.Sigma, fit.Diag.RHat["sigma"], s.mass)
		if err != nil {
			return nil, err
		}
		out.Coefficients = append(out.Coefficients, c)
	}
	return out, nil
}

func coefficient(name string, draws []float64, rhat, mass float64) (models.Coefficient, error) {
	sum, err := stats.Summarize(draws, mass)
	if err != nil {
		return models.Coefficient{}, fmt.Errorf("coefficient %s: %w", name, err)
	}
	return models.Coefficient{
		Name:   name,
		Median: sum.Median,
		Lower:  sum.Lower,
		Upper:  sum.Upper,
		RHat:   rhat,
	}, nil
}
