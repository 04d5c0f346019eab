// Package metrics exposes Prometheus collectors for dataset loads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bundledash"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Metrics struct {
	loads       *prometheus.CounterVec
	loadErrors  *prometheus.CounterVec
	records     prometheus.Gauge
	lastSuccess prometheus.Gauge
	duration    prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Dataset loads by result.",
		}, []string{"result"}),
		loadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failed dataset loads by error kind.",
		}, []string{"kind"}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Measurement records in the current dataset.",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful load.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent fetching and parsing the dataset.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// LoadSucceeded is a no-op on a nil receiver.
func (m *Metrics) LoadSucceeded(took time.Duration, records int) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(ResultSuccess).Inc()
	m.records.Set(float64(records))
	m.lastSuccess.SetToCurrentTime()
	m.duration.Observe(took.Seconds())
}

// LoadFailed counts a failed load; kind is the error class (fetch, network, parse).
func (m *Metrics) LoadFailed(took time.Duration, kind string) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(ResultFailure).Inc()
	m.loadErrors.WithLabelValues(kind).Inc()
	m.duration.Observe(took.Seconds())
}
