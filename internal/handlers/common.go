package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/redzone-analytics/playcall/internal/bayes"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint. The fit is loaded before the server starts, so readiness only
// depends on the optional backends.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]bool, len(h.checks))
	allHealthy := true
	for name, p := range h.checks {
		ok := p.Ping(ctx) == nil
		checks[name] = ok
		if !ok {
			allHealthy = false
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
		"season": h.season,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError maps a prediction error onto a response.
func (h *Handler) serviceError(w http.ResponseWriter, err error, msg string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, bayes.ErrUnknownTeam):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bayes.ErrInvalidScenario), errors.As(err, &verrs):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw(msg, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, msg)
	}
}
