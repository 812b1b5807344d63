package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workshop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Orchestration metrics
	orchestrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_orchestrations_total",
			Help: "Total number of orchestration requests",
		},
		[]string{"mode", "status"},
	)

	orchestrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workshop_orchestration_duration_seconds",
			Help:    "Orchestration request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	turnsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_turns_produced_total",
			Help: "Total number of agent turns produced",
		},
		[]string{"agent"},
	)

	// Agent invocation metrics
	agentInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_agent_invocations_total",
			Help: "Total number of agent invocations",
		},
		[]string{"agent", "status"},
	)

	agentInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workshop_agent_invocation_duration_seconds",
			Help:    "Agent invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	// Session metrics
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshop_active_sessions",
			Help: "Number of sessions currently stored",
		},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workshop_sessions_expired_total",
			Help: "Total number of sessions removed by the expiry sweeper",
		},
	)

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			orchestrationsTotal,
			orchestrationDuration,
			turnsProduced,
			agentInvocationsTotal,
			agentInvocationDuration,
			activeSessions,
			sessionsExpired,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrchestration records the outcome of one orchestration request
func RecordOrchestration(mode, status string, duration time.Duration) {
	orchestrationsTotal.WithLabelValues(mode, status).Inc()
	orchestrationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordTurnProduced records one produced agent turn
func RecordTurnProduced(agent string) {
	turnsProduced.WithLabelValues(agent).Inc()
}

// RecordAgentInvocation records an agent invocation outcome
func RecordAgentInvocation(agent, status string) {
	agentInvocationsTotal.WithLabelValues(agent, status).Inc()
}

// RecordAgentInvocationDuration records agent invocation latency
func RecordAgentInvocationDuration(agent string, duration time.Duration) {
	agentInvocationDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// SetActiveSessions sets the stored sessions gauge
func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordSessionsExpired adds to the expired sessions counter
func RecordSessionsExpired(count int) {
	sessionsExpired.Add(float64(count))
}
