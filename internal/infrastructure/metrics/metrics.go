package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the relay.
type Metrics struct {
	Updates           prometheus.Counter
	Flushes           prometheus.Counter
	ModelCalls        *prometheus.CounterVec
	ModelLatency      prometheus.Histogram
	Transcriptions    *prometheus.CounterVec
	TranscribeLatency prometheus.Histogram
	RateLookups       *prometheus.CounterVec
	Errors            *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers instruments on reg. A nil reg uses a private registry.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		Updates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates accepted.",
		}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Consolidations drained from chat buffers.",
		}),
		ModelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls by result.",
		}, []string{"result"}),
		ModelLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 60},
		}),
		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Audio transcriptions by result.",
		}, []string{"result"}),
		TranscribeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Audio transcription latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		RateLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Rate lookups by kind (live, historical) and result.",
		}, []string{"kind", "result"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) RecordUpdate(chatID int64) {
	if m == nil {
		return
	}
	m.Updates.Inc()
}

func (m *Metrics) RecordFlush() {
	if m == nil {
		return
	}
	m.Flushes.Inc()
}

func (m *Metrics) RecordModelCall(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(resultLabel(err)).Inc()
	m.ModelLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordTranscription(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Transcriptions.WithLabelValues(resultLabel(err)).Inc()
	m.TranscribeLatency.Observe(d.Seconds())
}

func (m *Metrics) RecordRateLookup(kind, result string) {
	if m == nil {
		return
	}
	m.RateLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
