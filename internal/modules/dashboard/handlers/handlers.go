// Package handlers provides HTTP handlers for the KPI dashboard.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/simplainvest/wealthboard/internal/modules/charts"
	"github.com/simplainvest/wealthboard/internal/modules/dashboard"
)

// Handler handles dashboard HTTP requests
type Handler struct {
	service        *dashboard.Service
	refreshLimit   *rate.Limiter
	refreshTimeout time.Duration
	log            zerolog.Logger
}

// NewHandler creates a dashboard handler. Manual refreshes are allowed at
// most once per refreshInterval.
func NewHandler(service *dashboard.Service, refreshInterval, refreshTimeout time.Duration, log zerolog.Logger) *Handler {
	limit := rate.Inf
	if refreshInterval > 0 {
		limit = rate.Every(refreshInterval)
	}
	return &Handler{
		service:        service,
		refreshLimit:   rate.NewLimiter(limit, 1),
		refreshTimeout: refreshTimeout,
		log:            log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleGetDashboard handles GET /api/dashboard
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Dashboard()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleGetKPIs handles GET /api/dashboard/kpis
func (h *Handler) HandleGetKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.service.KPIs()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"kpis": kpis,
	})
}

// HandleGetChart handles GET /api/dashboard/charts/{chart}
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request, chart string) {
	view, err := h.service.Chart(chart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HandleGetRange handles GET /api/dashboard/charts/{chart}/range
func (h *Handler) HandleGetRange(w http.ResponseWriter, r *http.Request, chart string) {
	rng, err := h.service.Range(chart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rng)
}

// HandleSetRange handles PUT /api/dashboard/charts/{chart}/range
func (h *Handler) HandleSetRange(w http.ResponseWriter, r *http.Request, chart string) {
	var request struct {
		Start *int `json:"start"`
		End   *int `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.Start == nil || request.End == nil {
		h.writeError(w, http.StatusBadRequest, "Both start and end are required")
		return
	}

	rng, err := h.service.SetRange(chart, *request.Start, *request.End)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rng)
}

// HandleResetRange handles DELETE /api/dashboard/charts/{chart}/range
func (h *Handler) HandleResetRange(w http.ResponseWriter, r *http.Request, chart string) {
	rng, err := h.service.ResetRange(chart)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rng)
}

// HandleMoveStart handles POST /api/dashboard/charts/{chart}/range/start
func (h *Handler) HandleMoveStart(w http.ResponseWriter, r *http.Request, chart string) {
	h.handleMove(w, r, chart, h.service.MoveRangeStart)
}

// HandleMoveEnd handles POST /api/dashboard/charts/{chart}/range/end
func (h *Handler) HandleMoveEnd(w http.ResponseWriter, r *http.Request, chart string) {
	h.handleMove(w, r, chart, h.service.MoveRangeEnd)
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, chart string, move func(string, int) (charts.Range, error)) {
	var request struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if request.Index == nil {
		h.writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	rng, err := move(chart, *request.Index)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rng)
}

// HandleRefresh handles POST /api/dashboard/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.refreshLimit.Allow() {
		w.Header().Set("Retry-After", "30")
		h.writeError(w, http.StatusTooManyRequests, "Refresh requested too often")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.refreshTimeout)
	defer cancel()

	start := time.Now()
	snap, err := h.service.RefreshAll(ctx)
	if errors.Is(err, dashboard.ErrSuperseded) {
		h.writeError(w, http.StatusConflict, "Refresh superseded by a newer request")
		return
	}
	if err != nil && snap == nil {
		h.log.Error().Err(err).Msg("Manual refresh failed")
		h.writeError(w, http.StatusServiceUnavailable, "Refresh failed: "+err.Error())
		return
	}

	h.log.Info().
		Str("snapshot_id", snap.ID).
		Dur("elapsed", time.Since(start)).
		Msg("Manual refresh completed")

	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, map[string]interface{}{
		"snapshot_id":  snap.ID,
		"refreshed_at": snap.RefreshedAt,
		"stale":        snap.Stale,
		"errors":       snap.Errors,
		"dropped":      snap.Dropped,
	})
}

// writeServiceError maps service errors to status codes. Degenerate and empty
// data answer 422 with a no-data marker so the client can draw its empty
// state.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case charts.IsNoData(err):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   err.Error(),
			"no_data": true,
		})
	case errors.Is(err, dashboard.ErrUnknownChart):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrNotRanged), errors.Is(err, charts.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Dashboard request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
