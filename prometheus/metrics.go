package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pintubaloda/Sitesellr-sub000/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Tenancy resolution metrics
	TenancyResolutionCounter prometheus.CounterVec

	// Authentication metrics
	AuthErrorsCounter   prometheus.CounterVec
	TokenIssuedCounter  prometheus.Counter
	TokenRevokedCounter prometheus.CounterVec

	// Capability metrics
	CapabilityDenialCounter prometheus.CounterVec

	// Inventory metrics
	ReservationCounter prometheus.CounterVec
	CheckoutCounter    prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TenancyResolutionCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_tenancy_resolution_total",
			Help: "Total number of tenancy resolutions by store resolution path",
		},
		[]string{"path"},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"error_type"},
	)

	TokenIssuedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tokens_issued_total",
			Help: "Total number of token pairs issued",
		},
	)

	TokenRevokedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_tokens_revoked_total",
			Help: "Total number of tokens revoked",
		},
		[]string{"token_type", "reason"},
	)

	CapabilityDenialCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_capability_denials_total",
			Help: "Total number of plan capability denials",
		},
		[]string{"check", "reason"},
	)

	ReservationCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_reservations_total",
			Help: "Total number of stock reservation calls",
		},
		[]string{"outcome"},
	)

	CheckoutCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_checkouts_total",
			Help: "Total number of checkout stock decrements",
		},
		[]string{"outcome"},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordTenancyResolution increments the counter for a store resolution path
func RecordTenancyResolution(path string) {
	TenancyResolutionCounter.WithLabelValues(path).Inc()
}

// RecordAuthError increments the counter for an authentication error type
func RecordAuthError(errorType string) {
	AuthErrorsCounter.WithLabelValues(errorType).Inc()
}

// RecordTokenRevoked increments the counter for revoked tokens
func RecordTokenRevoked(tokenType, reason string) {
	TokenRevokedCounter.WithLabelValues(tokenType, reason).Inc()
}

// RecordCapabilityDenial increments the counter for a capability denial
func RecordCapabilityDenial(check, reason string) {
	CapabilityDenialCounter.WithLabelValues(check, reason).Inc()
}
