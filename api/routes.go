package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/rentops/internal/config"
	"github.com/garnizeh/rentops/internal/metrics"
)

// Services bundles what the router dispatches to.
type Services struct {
	Jobs      JobService
	Dashboard DashboardService
	DB        Pinger
	Metrics   metrics.Sink
	// MetricsHandler is mounted at cfg.Metrics.Path when set.
	MetricsHandler http.Handler
}

func SetupRoutes(cfg *config.Config, version, buildTime string, svc Services) *mux.Router {
	r := mux.NewRouter()

	sink := svc.Metrics
	if sink == nil {
		sink = metrics.NewNoopSink()
	}

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(sink))
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	systemHandler := &SystemHandler{DB: svc.DB}
	jobsHandler := NewJobsHandler(svc.Jobs)
	dashboardHandler := NewDashboardHandler(svc.Dashboard)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	if svc.MetricsHandler != nil && cfg.Metrics.Path != "" {
		r.Handle(cfg.Metrics.Path, svc.MetricsHandler).Methods("GET")
	}

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Jobs endpoints
	apiV1.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	apiV1.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.GetJob).Methods("GET")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.UpdateJob).Methods("PUT")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}", jobsHandler.DeleteJob).Methods("DELETE")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}/status", jobsHandler.ChangeStatus).Methods("POST")
	apiV1.HandleFunc("/jobs/{id:[0-9]+}/payment", jobsHandler.ChangePayment).Methods("POST")

	// Dashboard endpoints
	apiV1.HandleFunc("/dashboard/revenue", dashboardHandler.Revenue).Methods("GET")
	apiV1.HandleFunc("/dashboard/trend", dashboardHandler.Trend).Methods("GET")

	return r
}
