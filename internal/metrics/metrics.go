// Package metrics exposes split counters on a private Prometheus registry.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contact_splitter"

type Metrics struct {
	registry        *prometheus.Registry
	runs            *prometheus.CounterVec
	rowsIn          prometheus.Counter
	rowsOut         prometheus.Counter
	chunks          prometheus.Counter
	durationSeconds prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Split runs by outcome (ok, invalid, error).",
		}, []string{"outcome"}),
		rowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_in_total",
			Help:      "Rows read from uploaded tables.",
		}),
		rowsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_out_total",
			Help:      "Rows written after filtering and deduplication.",
		}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Output files written.",
		}),
		durationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a split run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	register(m.registry, m.runs, m.rowsIn, m.rowsOut, m.chunks, m.durationSeconds)
	register(m.registry,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func register(reg prometheus.Registerer, cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

// ObserveRun records a finished run. Outcome is "ok", "invalid" or "error".
func (m *Metrics) ObserveRun(outcome string, rowsIn, rowsOut, chunks int, seconds float64) {
	m.runs.WithLabelValues(outcome).Inc()
	m.rowsIn.Add(float64(rowsIn))
	m.rowsOut.Add(float64(rowsOut))
	m.chunks.Add(float64(chunks))
	m.durationSeconds.Observe(seconds)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
