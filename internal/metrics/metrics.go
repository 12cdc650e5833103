// Package metrics records prometheus metrics for streaming conversions.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jcorbin/htmd"
)

const namespace = "htmd"

// Metrics holds conversion metrics, which are safe for concurrent use.
type Metrics struct {
	// Conversions counts finished conversions by status (ok, error, canceled).
	Conversions *prometheus.CounterVec

	InputBytes  prometheus.Counter
	OutputBytes prometheus.Counter
	Chunks      prometheus.Counter
	Forced      prometheus.Counter // chunks forced out by a buffer limit

	ChunkBytes prometheus.Histogram
	Duration   prometheus.Histogram

	Active prometheus.Gauge
}

// New creates conversion metrics registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Conversions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Finished conversions by status.",
		}, []string{"status"}),
		InputBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_bytes_total",
			Help:      "HTML bytes converted.",
		}),
		OutputBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_bytes_total",
			Help:      "Markdown bytes produced.",
		}),
		Chunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Markdown chunks streamed.",
		}),
		Forced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_flushes_total",
			Help:      "Chunks flushed early due to the maximum buffer size.",
		}),
		ChunkBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_bytes",
			Help:      "Size of streamed Markdown chunks.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time taken by streaming conversions.",
			Buckets:   prometheus.DefBuckets,
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversions",
			Help:      "Conversions in progress.",
		}),
	}
}

// Start counts a new active conversion, returning an observer that records
// its progress; pass it as htmd.StreamOptions.Observer.
func (m *Metrics) Start() htmd.Observer {
	m.Active.Inc()
	return observer{m}
}

type observer struct{ m *Metrics }

func (o observer) ObserveChunk(size int) {
	o.m.Chunks.Inc()
	o.m.ChunkBytes.Observe(float64(size))
}

func (o observer) ObserveDone(stats htmd.StreamStats, err error) {
	m := o.m
	m.Active.Dec()
	status := "ok"
	switch {
	case errors.Is(err, htmd.ErrStopped):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	m.Conversions.WithLabelValues(status).Inc()
	m.InputBytes.Add(float64(stats.InputBytes))
	m.OutputBytes.Add(float64(stats.OutputBytes))
	m.Forced.Add(float64(stats.Forced))
	m.Duration.Observe(stats.Duration.Seconds())
}
