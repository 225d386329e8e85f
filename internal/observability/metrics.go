package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счетчики и гистограммы Prometheus для цикла анализа
type Metrics struct {
	AnalysesTotal      *prometheus.CounterVec // labels: outcome={ok,resolver_error,classifier_error,storage_error}
	DuplicatesDetected prometheus.Counter
	GeoResolutions     *prometheus.CounterVec // labels: source={explicit,text,unresolved}
	AnalysisDuration   prometheus.Histogram
	WebhookDeliveries  *prometheus.CounterVec // labels: result={ok,failed}
}

// NewMetrics создает и регистрирует метрики в реестре Prometheus по умолчанию
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AnalysesTotal,
		m.DuplicatesDetected,
		m.GeoResolutions,
		m.AnalysisDuration,
		m.WebhookDeliveries,
	)
	return m
}

// NewMetricsForTesting создает метрики без регистрации, чтобы тесты
// не падали на повторной регистрации в общем реестре
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analysis",
			Name:      "analyses_total",
			Help:      "Total analysis requests by outcome.",
		}, []string{"outcome"}),
		DuplicatesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analysis",
			Name:      "duplicates_detected_total",
			Help:      "Total incidents linked to an earlier incident.",
		}),
		GeoResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analysis",
			Name:      "geo_resolutions_total",
			Help:      "Location resolutions by source.",
		}, []string{"source"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_analysis",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete resolve-classify-correlate-append cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analysis",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by result.",
		}, []string{"result"}),
	}
}
