package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.HandleGetDashboard)
		r.Get("/kpis", h.HandleGetKPIs)
		r.Post("/refresh", h.HandleRefresh)

		r.Route("/charts/{chart}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetChart(w, r, chi.URLParam(r, "chart"))
			})

			// Brush selection
			r.Get("/range", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRange(w, r, chi.URLParam(r, "chart"))
			})
			r.Put("/range", func(w http.ResponseWriter, r *http.Request) {
				h.HandleSetRange(w, r, chi.URLParam(r, "chart"))
			})
			r.Delete("/range", func(w http.ResponseWriter, r *http.Request) {
				h.HandleResetRange(w, r, chi.URLParam(r, "chart"))
			})
			r.Post("/range/start", func(w http.ResponseWriter, r *http.Request) {
				h.HandleMoveStart(w, r, chi.URLParam(r, "chart"))
			})
			r.Post("/range/end", func(w http.ResponseWriter, r *http.Request) {
				h.HandleMoveEnd(w, r, chi.URLParam(r, "chart"))
			})
		})
	})
}
