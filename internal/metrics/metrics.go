// Package metrics exposes board counters on a dedicated Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the board updates.  A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	mutations    *prometheus.CounterVec
	alarms       *prometheus.CounterVec
	pushes       *prometheus.CounterVec
	inbound      prometheus.Counter
	occupiedBays prometheus.Gauge
	waiting      prometheus.Gauge
	viewers      prometheus.Gauge
}

// New registers the board collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic", Name: "mutations_total",
			Help: "Board mutations by operation and result (applied, noop, rejected).",
		}, []string{"op", "result"}),
		alarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic", Name: "alarms_total",
			Help: "Countdowns that reached zero, by treatment kind.",
		}, []string{"type"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic", Name: "remote_pushes_total",
			Help: "Whole-state pushes to the remote store by result (ok, error, suppressed).",
		}, []string{"result"}),
		inbound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic", Name: "remote_snapshots_applied_total",
			Help: "Remote snapshots that replaced the local state.",
		}),
		occupiedBays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic", Name: "occupied_bays",
			Help: "Bays with a patient assigned.",
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic", Name: "waiting_entries",
			Help: "Entries on the waiting list.",
		}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clinic", Name: "websocket_viewers",
			Help: "Connected websocket viewers.",
		}),
	}
	reg.MustRegister(
		m.mutations, m.alarms, m.pushes, m.inbound, m.occupiedBays, m.waiting, m.viewers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Mutation(op, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Alarm(kind string) {
	if m == nil {
		return
	}
	m.alarms.WithLabelValues(kind).Inc()
}

func (m *Metrics) Push(result string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(result).Inc()
}

func (m *Metrics) RemoteApplied() {
	if m == nil {
		return
	}
	m.inbound.Inc()
}

// Occupancy records the current bay and waiting list sizes.
func (m *Metrics) Occupancy(occupied, waiting int) {
	if m == nil {
		return
	}
	m.occupiedBays.Set(float64(occupied))
	m.waiting.Set(float64(waiting))
}

func (m *Metrics) Viewers(n int) {
	if m == nil {
		return
	}
	m.viewers.Set(float64(n))
}
