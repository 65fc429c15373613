package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
)

// SetupRoutes configures all API routes
func SetupRoutes(h *RESTHandler) *mux.Router {
	router := mux.NewRouter()

	router.Use(logging.CorrelationIDMiddleware(h.logger))
	router.Use(logging.LoggingMiddleware(h.logger))
	if h.monitoring != nil {
		router.Use(h.monitoring.Middleware)
	}
	if h.tracing != nil {
		router.Use(h.tracing.Middleware)
	}
	router.Use(CORSMiddleware)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	if h.timeout > 0 {
		v1.Use(withTimeout(h.timeout))
	}

	v1.HandleFunc("/compare", h.CompareHandler).Methods(http.MethodPost)
	v1.HandleFunc("/export", h.ExportHandler).Methods(http.MethodPost)
	v1.HandleFunc("/normalize", h.NormalizeHandler).Methods(http.MethodPost)

	v1.HandleFunc("/history", h.ListHistoryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/history/{id}", h.GetHistoryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/history/{id}", h.DeleteHistoryHandler).Methods(http.MethodDelete)
	v1.HandleFunc("/history/{id}/export", h.ExportHistoryHandler).Methods(http.MethodGet)

	v1.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// CORS preflight
	v1.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	if h.monitoring != nil {
		router.Handle(h.metricsPath, h.monitoring.MetricsHandler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/", h.RootHandler).Methods(http.MethodGet)

	return router
}
