package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/redzone-analytics/playcall/internal/models"
	"github.com/redzone-analytics/playcall/internal/views"
)

// parseScenario reads team, down and distance from the query string.
func (h *Handler) parseScenario(r *http.Request) (models.Scenario, error) {
	q := r.URL.Query()
	sc := models.Scenario{Team: strings.ToUpper(strings.TrimSpace(q.Get("team")))}

	var err error
	if sc.Down, err = queryInt(q.Get("down"), "down"); err != nil {
		return sc, err
	}
	if sc.Distance, err = queryInt(q.Get("distance"), "distance"); err != nil {
		return sc, err
	}
	return sc, h.validator.Struct(sc)
}

func queryInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// GetPrediction returns the posterior pass/run forecast for a scenario
// @Summary Get Play-Call Prediction
// @Tags Predictions
// @Produce json
// @Param team query string true "Team abbreviation"
// @Param down query int true "Down (1-3)"
// @Param distance query int true "Yards to go (1-15)"
// @Success 200 {object} models.PredictionSummary
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Unknown Team"
// @Router /api/v1/predict [get]
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	sc, err := h.parseScenario(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.prediction.Predict(r.Context(), sc)
	if err != nil {
		h.serviceError(w, err, "Failed to predict")
		return
	}
	h.jsonResponse(w, http.StatusOK, summary)
}

// GetPredictionHistogram renders the posterior pass probability as SVG
// @Summary Get Prediction Histogram
// @Tags Predictions
// @Produce image/svg+xml
// @Param team query string true "Team abbreviation"
// @Param down query int true "Down (1-3)"
// @Param distance query int true "Yards to go (1-15)"
// @Success 200 {string} string "SVG"
// @Router /api/v1/predict/histogram.svg [get]
func (h *Handler) GetPredictionHistogram(w http.ResponseWriter, r *http.Request) {
	sc, err := h.parseScenario(r)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.prediction.Predict(r.Context(), sc)
	if err != nil {
		h.serviceError(w, err, "Failed to predict")
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write([]byte(views.HistogramSVG(scenarioTitle(sc), summary.Histogram, summary.Pass, summary.LeaguePass)))
}

// GetTeams lists selectable teams with the rushing-efficiency extremes
// @Summary Get Teams
// @Tags Teams
// @Produce json
// @Success 200 {object} models.TeamRanking
// @Router /api/v1/teams [get]
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.prediction.Teams(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to list teams")
		return
	}
	h.jsonResponse(w, http.StatusOK, ranking)
}

// GetModel summarises the fitted model
// @Summary Get Model Summary
// @Tags Model
// @Produce json
// @Success 200 {object} models.ModelSummary
// @Router /api/v1/model [get]
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	summary, err := h.prediction.Model(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to summarise model")
		return
	}
	h.jsonResponse(w, http.StatusOK, summary)
}

func scenarioTitle(sc models.Scenario) string {
	return fmt.Sprintf("%s, down %d and %d", sc.Team, sc.Down, sc.Distance)
}
