package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cwop_relay"

// Metrics holds the Prometheus counters, histograms, and gauges for the relay.
type Metrics struct {
	FeedLines     prometheus.Counter
	FeedMatched   prometheus.Counter
	FeedConnected prometheus.Gauge

	// Delivery metrics.
	RelayAttempts        *prometheus.CounterVec // labels: server, outcome={accepted,rejected,error}
	RelayAttemptDuration prometheus.Histogram
	RelayDelivered       prometheus.Counter
	RelayExhausted       prometheus.Counter

	AuditLogErrors prometheus.Counter
	AuditPublished *prometheus.CounterVec // labels: result={ok,error}
}

// NewMetrics creates and registers all relay metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeedLines,
		m.FeedMatched,
		m.FeedConnected,
		m.RelayAttempts,
		m.RelayAttemptDuration,
		m.RelayDelivered,
		m.RelayExhausted,
		m.AuditLogErrors,
		m.AuditPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests. Offline tools
// that serve no /metrics endpoint use it too.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_lines_total",
			Help:      "Total lines read from the APRS feed.",
		}),
		FeedMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_matched_total",
			Help:      "Total feed lines matching the weather station filter.",
		}),
		FeedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connected",
			Help:      "1 while the feed connection is open, 0 otherwise.",
		}),
		RelayAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_attempts_total",
			Help:      "CWOP POST attempts by server and outcome.",
		}, []string{"server", "outcome"}),
		RelayAttemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_attempt_duration_seconds",
			Help:      "Duration of a single CWOP POST attempt.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RelayDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_delivered_total",
			Help:      "Reports accepted by a CWOP server.",
		}),
		RelayExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_exhausted_total",
			Help:      "Reports that no CWOP server accepted.",
		}),
		AuditLogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_log_errors_total",
			Help:      "Failed appends to the local audit log.",
		}),
		AuditPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_published_total",
			Help:      "Reports published to the Kafka audit topic by result.",
		}, []string{"result"}),
	}
}
