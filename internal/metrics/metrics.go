// Package metrics holds the Prometheus collectors of the data store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	mutations    *prometheus.CounterVec
	writes       *prometheus.CounterVec
	encodedBytes prometheus.Gauge
	backups      *prometheus.CounterVec
	reloads      prometheus.Counter
}

// New registers the collectors on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devspace",
			Name:      "mutations_total",
			Help:      "Document mutations by operation and collection.",
		}, []string{"op", "collection"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devspace",
			Name:      "persist_writes_total",
			Help:      "Writes of the document to its storage slot by result.",
		}, []string{"result"}),
		encodedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "devspace",
			Name:      "persist_encoded_bytes",
			Help:      "Size of the last persisted document.",
		}),
		backups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devspace",
			Name:      "backups_total",
			Help:      "Backup and restore operations by kind and result.",
		}, []string{"kind", "result"}),
		reloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: "devspace",
			Name:      "persist_reloads_total",
			Help:      "Reloads of the document after out-of-band changes.",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Mutation(op, collection string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, collection).Inc()
}

func (m *Metrics) Write(size int, err error) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.encodedBytes.Set(float64(size))
	}
}

// Backup records a backup or restore; kind is "backup" or "restore".
func (m *Metrics) Backup(kind string, err error) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) Reload() {
	if m == nil {
		return
	}
	m.reloads.Inc()
}

// Gatherer exposes the registry for tests and custom handlers.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
