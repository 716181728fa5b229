// Package metrics defines the prometheus series both services register on
// promauto.NewX, exposed on /metrics through promhttp.Handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics — shared by both services.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudplatform_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Fraud engine metrics.
	FraudRuleTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_fraud_rule_triggered_total",
			Help: "Total number of times each fraud rule triggered",
		},
		[]string{"rule"},
	)

	FraudRuleDeadlineExceededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_fraud_rule_deadline_exceeded_total",
			Help: "Total number of rule executions that missed the fan-out deadline",
		},
		[]string{"rule"},
	)

	FraudScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fraudplatform_fraud_score",
			Help:    "Distribution of computed fraud scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	FraudDecisionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_fraud_decision_total",
			Help: "Total number of validation decisions by outcome",
		},
		[]string{"decision"},
	)

	// JWT / token subsystem metrics.
	JWTValidateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_jwt_validate_total",
			Help: "Total number of token validations by outcome",
		},
		[]string{"outcome"}, // accepted, blacklisted, blacklist_read_error, malformed_or_expired, fallback_durable, durable_error, rejected
	)

	AuthenticationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_authentication_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // success, invalid_credentials, account_inactive, account_locked
	)

	// Infrastructure metrics.
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudplatform_database_connections",
			Help: "Number of database connections",
		},
		[]string{"state"}, // open, idle, in_use
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudplatform_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudplatform_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	InternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraudplatform_internal_call_duration_seconds",
			Help:    "Duration of edge→scoring internal calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.15, 0.2, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"status_code"},
	)

	CircuitBreakerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fraudplatform_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"endpoint"},
	)

	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraudplatform_audit_events_total",
			Help: "Total number of audit events by action",
		},
		[]string{"action"},
	)

	AuditDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fraudplatform_audit_dropped_total",
			Help: "Total number of audit events dropped under backpressure",
		},
	)
)

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordFraudCheck records the outcome of one scoring run.
func RecordFraudCheck(decision string, score int) {
	FraudDecisionTotal.WithLabelValues(decision).Inc()
	FraudScoreHistogram.Observe(float64(score))
}

// RecordDatabaseQuery records database query metrics.
func RecordDatabaseQuery(operation, table string, duration float64) {
	DatabaseQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordRedisOperation records Redis operation metrics.
func RecordRedisOperation(operation string, duration float64) {
	RedisOperationDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
func UpdateCircuitBreakerState(breaker string, state float64) {
	CircuitBreakerStateGauge.WithLabelValues(breaker).Set(state)
}

// RecordAuthenticationAttempt records a login attempt outcome.
func RecordAuthenticationAttempt(result string) {
	AuthenticationAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a rate limit rejection.
func RecordRateLimitHit(endpoint string) {
	RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
}

// RecordAuditEvent records an emitted audit event.
func RecordAuditEvent(action string) {
	AuditEventsTotal.WithLabelValues(action).Inc()
}
