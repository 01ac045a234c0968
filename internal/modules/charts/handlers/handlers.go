// Package handlers exposes the chart geometry functions over HTTP for
// clients that bring their own data.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/simplainvest/wealthboard/internal/modules/charts"
)

// maxBodyBytes bounds request payloads
const maxBodyBytes = 1 << 20

// Handler handles stateless chart requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new chart handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "charts").Logger(),
	}
}

// HandleDonut handles POST /api/charts/donut
func (h *Handler) HandleDonut(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindDonut)
}

// HandlePie handles POST /api/charts/pie
func (h *Handler) HandlePie(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindPie)
}

// HandleGauge handles POST /api/charts/gauge
func (h *Handler) HandleGauge(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindGauge)
}

// HandleLine handles POST /api/charts/line
func (h *Handler) HandleLine(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindLine)
}

// HandleFunnel handles POST /api/charts/funnel
func (h *Handler) HandleFunnel(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindFunnel)
}

// HandleBars handles POST /api/charts/bars
func (h *Handler) HandleBars(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, KindBars)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, kind string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := Render(kind, body)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeChartError(w http.ResponseWriter, err error) {
	switch {
	case charts.IsNoData(err):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   err.Error(),
			"no_data": true,
		})
	case errors.Is(err, ErrInvalidBody), errors.Is(err, charts.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnknownKind):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("Chart computation failed")
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
