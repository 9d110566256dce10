package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trogers1052/trading-journal/internal/metrics"
)

// SetupRoutes configures all API routes. m and gatherer may be nil to run
// without instrumentation; shareLimiter may be nil to leave share links
// unthrottled.
func SetupRoutes(handler *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, shareLimiter *RateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(handler.logger))
	if m != nil {
		r.Use(Instrument(m))
	}

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Journal routes
	users := api.PathPrefix("/users/{userId}").Subrouter()
	users.HandleFunc("/trades", handler.ListTrades).Methods("GET")
	users.HandleFunc("/trades", handler.CreateTrade).Methods("POST")
	users.HandleFunc("/trades/{tradeId}", handler.GetTrade).Methods("GET")
	users.HandleFunc("/trades/{tradeId}", handler.UpdateTrade).Methods("PUT")
	users.HandleFunc("/trades/{tradeId}", handler.DeleteTrade).Methods("DELETE")
	users.HandleFunc("/trades/{tradeId}/analysis", handler.SaveReview).Methods("PATCH")
	users.HandleFunc("/review", handler.ListReview).Methods("GET")
	users.HandleFunc("/stats", handler.GetStats).Methods("GET")
	users.HandleFunc("/export.xlsx", handler.ExportWorkbook).Methods("GET")
	users.HandleFunc("/share", handler.CreateShareLink).Methods("POST")

	// Public share links
	share := api.PathPrefix("/share").Subrouter()
	if shareLimiter != nil {
		share.Use(shareLimiter.Handler)
	}
	share.HandleFunc("/{token}", handler.GetSharedView).Methods("GET")

	return r
}
