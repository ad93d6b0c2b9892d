package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "milestone_notifier"

// NotifierMetrics holds all Prometheus metrics for the notifier service.
type NotifierMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	AttributesTotal *prometheus.CounterVec
	SendDuration    prometheus.Histogram
	LockFallbacks   prometheus.Counter
}

// NewNotifierMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewNotifierMetrics(reg prometheus.Registerer) *NotifierMetrics {
	factory := promauto.With(reg)
	return &NotifierMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total number of webhook requests by outcome.",
		}, []string{"outcome"}), // outcome: success, invalid_json, no_attributes, missing_phone, invalid_phone, send_failed, internal_error, too_large, rate_limited
		AttributesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "attributes_total",
			Help:      "Total number of tracked attributes processed by attribute and outcome.",
		}, []string{"attribute", "outcome"}),
		SendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "send_duration_seconds",
			Help:      "Latency of outbound message sends.",
			Buckets:   prometheus.DefBuckets,
		}),
		LockFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lock",
			Name:      "local_fallbacks_total",
			Help:      "Total number of key locks taken in-process because Redis was unavailable.",
		}),
	}
}
