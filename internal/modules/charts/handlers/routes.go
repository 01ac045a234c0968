package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all chart geometry routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Post("/donut", h.HandleDonut)
		r.Post("/pie", h.HandlePie)
		r.Post("/gauge", h.HandleGauge)
		r.Post("/line", h.HandleLine)
		r.Post("/funnel", h.HandleFunnel)
		r.Post("/bars", h.HandleBars)
	})
}
