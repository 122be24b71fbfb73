package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leafdoctor"

// Metrics owns a private registry so tests can build as many instances as they need
type Metrics struct {
	registry          *prometheus.Registry
	predictions       *prometheus.CounterVec
	uploadRejections  *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Number of classified leaf images by predicted label.",
		}, []string{"label"}),
		uploadRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_rejections_total",
			Help:      "Number of rejected prediction uploads by reason.",
		}, []string{"reason"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in the model forward pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.uploadRejections,
		m.inferenceDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(label string, duration time.Duration) {
	m.predictions.WithLabelValues(label).Inc()
	m.inferenceDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveRejection(reason string) {
	m.uploadRejections.WithLabelValues(reason).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
