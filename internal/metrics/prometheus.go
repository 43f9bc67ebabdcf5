package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	validationsTotal *prometheus.CounterVec

	dashboardTotal    *prometheus.CounterVec
	dashboardDuration *prometheus.HistogramVec
	cacheErrorsTotal  prometheus.Counter

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusSink creates the collectors and registers them on reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initBookingMetrics(reg)
	s.initDashboardMetrics(reg)
	s.initHTTPMetrics(reg)
	return s
}

func (s *PrometheusSink) initBookingMetrics(reg prometheus.Registerer) {
	s.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentops_booking_commands_total",
		Help: "Job Service commands by command and outcome.",
	}, []string{"command", "outcome"})
	s.commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentops_booking_command_duration_seconds",
		Help:    "Job Service command latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"command"})
	s.validationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentops_booking_validation_rejections_total",
		Help: "Booking commands rejected by the allocation validator, by reason.",
	}, []string{"reason"})

	s.register(reg, s.commandsTotal, "rentops_booking_commands_total")
	s.register(reg, s.commandDuration, "rentops_booking_command_duration_seconds")
	s.register(reg, s.validationsTotal, "rentops_booking_validation_rejections_total")
}

func (s *PrometheusSink) initDashboardMetrics(reg prometheus.Registerer) {
	s.dashboardTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentops_dashboard_queries_total",
		Help: "Dashboard aggregate queries by query and cache result.",
	}, []string{"query", "cache"})
	s.dashboardDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentops_dashboard_query_duration_seconds",
		Help:    "Dashboard aggregate latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"query"})
	s.cacheErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentops_dashboard_cache_errors_total",
		Help: "Dashboard cache operations that failed and fell back to storage.",
	})

	s.register(reg, s.dashboardTotal, "rentops_dashboard_queries_total")
	s.register(reg, s.dashboardDuration, "rentops_dashboard_query_duration_seconds")
	s.register(reg, s.cacheErrorsTotal, "rentops_dashboard_cache_errors_total")
}

func (s *PrometheusSink) initHTTPMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentops_http_requests_total",
		Help: "HTTP requests by method, route template and status class.",
	}, []string{"method", "route", "status_class"})
	s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentops_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	s.register(reg, s.requestsTotal, "rentops_http_requests_total")
	s.register(reg, s.requestDuration, "rentops_http_request_duration_seconds")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("metrics: failed to register collector", slog.String("name", name), slog.Any("err", err))
	}
}

func (s *PrometheusSink) CommandCompleted(command, outcome string, duration time.Duration) {
	s.commandsTotal.WithLabelValues(command, outcome).Inc()
	s.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (s *PrometheusSink) ValidationRejected(reason string) {
	s.validationsTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) DashboardQueried(query string, cacheHit bool, duration time.Duration) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	s.dashboardTotal.WithLabelValues(query, cache).Inc()
	s.dashboardDuration.WithLabelValues(query).Observe(duration.Seconds())
}

func (s *PrometheusSink) CacheError() {
	s.cacheErrorsTotal.Inc()
}

func (s *PrometheusSink) RequestCompleted(method, route string, status int, duration time.Duration) {
	s.requestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	s.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
