package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Shortcut resolution metrics
	ShortcutQueries       *prometheus.CounterVec
	WatchdogFires         prometheus.Counter
	AggregationsDelivered prometheus.Counter
	PipelinesActive       prometheus.Gauge
	BreakerTransitions    *prometheus.CounterVec

	// Profile metrics
	ProfileEvents   *prometheus.CounterVec
	ProfileReinits  prometheus.Counter
	ProfilesTracked prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolverd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resolverd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		ShortcutQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolverd_shortcut_queries_total",
				Help: "Shortcut query cycles by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		WatchdogFires: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resolverd_predictor_watchdog_fires_total",
				Help: "Predictor watchdog expirations",
			},
		),
		AggregationsDelivered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resolverd_aggregations_delivered_total",
				Help: "Settled aggregations delivered to observers",
			},
		),
		PipelinesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolverd_pipelines_active",
				Help: "Live resolution pipelines",
			},
		),
		BreakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolverd_predictor_breaker_transitions_total",
				Help: "Predictor circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),

		ProfileEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolverd_profile_events_total",
				Help: "Profile broadcast events folded, by type",
			},
			[]string{"type"},
		),
		ProfileReinits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resolverd_profile_reinitializations_total",
				Help: "Profile state rebuilds triggered by inconsistent folds",
			},
		),
		ProfilesTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolverd_profiles_tracked",
				Help: "Members of the tracked profile group",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolverd_ws_connections",
				Help: "Active WebSocket connections",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolverd_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()
	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordShortcutQuery records one query cycle step.
func (m *Metrics) RecordShortcutQuery(source, outcome string) {
	m.ShortcutQueries.WithLabelValues(source, outcome).Inc()
}

// IncWatchdogFires counts a predictor watchdog expiration.
func (m *Metrics) IncWatchdogFires() {
	m.WatchdogFires.Inc()
}

// IncAggregations counts a delivered aggregation.
func (m *Metrics) IncAggregations() {
	m.AggregationsDelivered.Inc()
}

// SetPipelinesActive sets the live pipeline count.
func (m *Metrics) SetPipelinesActive(count int) {
	m.PipelinesActive.Set(float64(count))
}

// RecordBreakerTransition records a predictor breaker state change.
func (m *Metrics) RecordBreakerTransition(from, to string) {
	m.BreakerTransitions.WithLabelValues(from, to).Inc()
}

// RecordProfileEvent counts one folded profile event.
func (m *Metrics) RecordProfileEvent(kind string) {
	m.ProfileEvents.WithLabelValues(kind).Inc()
}

// IncProfileReinits counts a recovery reinitialization.
func (m *Metrics) IncProfileReinits() {
	m.ProfileReinits.Inc()
}

// SetProfilesTracked sets the tracked member count.
func (m *Metrics) SetProfilesTracked(count int) {
	m.ProfilesTracked.Set(float64(count))
}

// IncWSConnections increments WebSocket connections.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
