package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for warden.
type Metrics struct {
	registry                 *prometheus.Registry
	rolloutTransitionsTotal  *prometheus.CounterVec
	recoveryPhaseDuration    prometheus.Histogram
	alertsTotal              *prometheus.CounterVec
	platformAPIErrorsTotal   prometheus.Counter
	lastSuccessfulRunGauge   *prometheus.GaugeVec
	servicesRecoveredTotal   *prometheus.CounterVec
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		rolloutTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rollout_transitions_total",
			Help: "Total rollout state transitions by environment and state.",
		}, []string{"environment", "state"}),
		recoveryPhaseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_recovery_phase_duration_seconds",
			Help:    "Duration of recovery phases in seconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_alerts_total",
			Help: "Total alerts emitted by severity.",
		}, []string{"severity"}),
		platformAPIErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_platform_api_errors_total",
			Help: "Total workload platform API errors after retries.",
		}),
		lastSuccessfulRunGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warden_last_successful_run_timestamp",
			Help: "Unix timestamp of the last successful run by kind.",
		}, []string{"kind"}),
		servicesRecoveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_services_recovered_total",
			Help: "Total service recovery outcomes by status.",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.rolloutTransitionsTotal,
		m.recoveryPhaseDuration,
		m.alertsTotal,
		m.platformAPIErrorsTotal,
		m.lastSuccessfulRunGauge,
		m.servicesRecoveredTotal,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncRolloutTransition counts a state machine transition.
func (m *Metrics) IncRolloutTransition(environment, state string) {
	if m == nil {
		return
	}
	m.rolloutTransitionsTotal.WithLabelValues(environment, state).Inc()
}

// ObserveRecoveryPhaseDuration records how long a recovery phase took.
func (m *Metrics) ObserveRecoveryPhaseDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.recoveryPhaseDuration.Observe(duration.Seconds())
}

// IncAlertsTotal counts an emitted alert.
func (m *Metrics) IncAlertsTotal(severity string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(severity).Inc()
}

// IncPlatformAPIErrors counts a failed platform API call.
func (m *Metrics) IncPlatformAPIErrors() {
	if m == nil {
		return
	}
	m.platformAPIErrorsTotal.Inc()
}

// SetLastSuccessfulRun records when a run of the given kind last succeeded.
func (m *Metrics) SetLastSuccessfulRun(kind string, t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulRunGauge.WithLabelValues(kind).Set(float64(t.Unix()))
}

// IncServicesRecovered counts a per-service recovery outcome.
func (m *Metrics) IncServicesRecovered(status string) {
	if m == nil {
		return
	}
	m.servicesRecoveredTotal.WithLabelValues(status).Inc()
}
