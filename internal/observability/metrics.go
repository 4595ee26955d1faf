package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/mumbai-flood-alert/internal/flood"
	"github.com/i474232898/mumbai-flood-alert/internal/weather"
)

const namespace = "flood_alert"

// Metrics holds the Prometheus collectors for the dashboard. A nil *Metrics is a no-op.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec   // labels: provider, outcome={success,config,network,...}
	FetchDuration *prometheus.HistogramVec // labels: provider
	LastRainfall  prometheus.Gauge
	RiskLevel     prometheus.Gauge // 0=LOW 1=MEDIUM 2=HIGH
	Assessments   *prometheus.CounterVec // labels: risk
	Alerts        *prometheus.CounterVec // labels: language, risk
	Sessions      prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_total",
			Help:      "Weather fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_fetch_duration_seconds",
			Help:      "Duration of a weather fetch including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		LastRainfall: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_hour_rainfall_mm",
			Help:      "Rainfall over the last hour from the most recent successful fetch.",
		}),
		RiskLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "risk_level",
			Help:      "Most recent flood risk level (0=LOW, 1=MEDIUM, 2=HIGH).",
		}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Risk classifications by resulting level.",
		}, []string{"risk"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_generated_total",
			Help:      "Localized alerts generated by language and risk level.",
		}, []string{"language", "risk"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions held in memory after the last purge.",
		}),
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.FetchTotal,
		m.FetchDuration,
		m.LastRainfall,
		m.RiskLevel,
		m.Assessments,
		m.Alerts,
		m.Sessions,
	)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// ObserveFetch implements weather.Recorder.
func (m *Metrics) ObserveFetch(provider, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(provider, outcome).Inc()
	m.FetchDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// ObserveReading implements weather.Recorder.
func (m *Metrics) ObserveReading(r weather.Reading) {
	if m == nil {
		return
	}
	m.LastRainfall.Set(r.RainfallMM)
}

// ObserveRisk records a classification result.
func (m *Metrics) ObserveRisk(risk flood.RiskLevel) {
	if m == nil {
		return
	}
	m.RiskLevel.Set(float64(risk))
	m.Assessments.WithLabelValues(risk.String()).Inc()
}

// ObserveAlert records a generated alert.
func (m *Metrics) ObserveAlert(lang flood.Language, risk flood.RiskLevel) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(lang.Code(), risk.String()).Inc()
}

// SetActiveSessions implements scheduler.SessionGauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}
