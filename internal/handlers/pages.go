package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/redzone-analytics/playcall/internal/bayes"
	"github.com/redzone-analytics/playcall/internal/logic"
	"github.com/redzone-analytics/playcall/internal/models"
	"github.com/redzone-analytics/playcall/internal/views"
)

// Dashboard selection before the user picks anything.
const (
	defaultDown     = 2
	defaultDistance = 6
)

// Dashboard serves the interactive page. Invalid selections are shown inline rather than
// failing the page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.prediction.Teams(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to list teams", "error", err)
		http.Error(w, "Failed to load teams", http.StatusInternalServerError)
		return
	}

	data := views.DashboardData{
		Season:      h.season,
		Ranking:     ranking,
		MaxDistance: logic.MaxDistance,
		Selected:    h.selection(r, ranking),
	}

	if err := h.validator.Struct(data.Selected); err != nil {
		data.Error = fmt.Sprintf("Invalid selection: %v", err)
	} else if summary, err := h.prediction.Predict(r.Context(), data.Selected); err != nil {
		if !errors.Is(err, bayes.ErrUnknownTeam) {
			h.logger.Errorw("Dashboard prediction failed", "error", err, "team", data.Selected.Team)
		}
		data.Error = err.Error()
	} else {
		data.Summary = summary
		data.Histogram = views.RenderHistogram(scenarioTitle(data.Selected), summary)
	}

	templ.Handler(views.Dashboard(data)).ServeHTTP(w, r)
}

// selection merges the query string over the defaults. Unparseable numbers fall back to
// the default.
func (h *Handler) selection(r *http.Request, ranking *models.TeamRanking) models.Scenario {
	sc := models.Scenario{Down: defaultDown, Distance: defaultDistance}
	if len(ranking.Teams) > 0 {
		sc.Team = ranking.Teams[0].Team
	}

	q := r.URL.Query()
	if team := strings.ToUpper(strings.TrimSpace(q.Get("team"))); team != "" {
		sc.Team = team
	}
	if v, err := queryInt(q.Get("down"), "down"); err == nil && v != 0 {
		sc.Down = v
	}
	if v, err := queryInt(q.Get("distance"), "distance"); err == nil && v != 0 {
		sc.Distance = v
	}
	return sc
}

// DownloadReport serves the static per-team report as an HTML attachment
// @Summary Download Team Report
// @Tags Reports
// @Produce html
// @Param team path string true "Team abbreviation"
// @Success 200 {string} string "HTML report"
// @Failure 404 {object} map[string]string "Unknown Team"
// @Router /report/{team} [get]
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	team := strings.ToUpper(chi.URLParam(r, "team"))
	if team == "" {
		h.errorResponse(w, http.StatusBadRequest, "team is required")
		return
	}

	report, err := h.prediction.Report(r.Context(), team)
	if err != nil {
		h.serviceError(w, err, "Failed to build report")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-goal-to-go-%d.html"`, team, report.Season))
	templ.Handler(views.Report(views.ReportData{
		Report:    report,
		Histogram: views.RenderHistogram(fmt.Sprintf("%s, down %d and %d", team, defaultDown, defaultDistance), report.Featured),
	})).ServeHTTP(w, r)
}
