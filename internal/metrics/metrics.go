// Package metrics holds the Prometheus collectors of the monitoring core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tower"

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

type Metrics struct {
	FanOutWrites     *prometheus.CounterVec // kind, tier, result
	WorkerIterations *prometheus.CounterVec // result
	ActiveWorkers    prometheus.Gauge
	AlertsPublished  *prometheus.CounterVec // channel, result
	ReconcileRows    *prometheus.CounterVec // table, op

	registry *prometheus.Registry
}

// New builds the collectors on a private registry along with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		FanOutWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_writes_total",
			Help:      "Records written per storage tier.",
		}, []string{"kind", "tier", "result"}),
		WorkerIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_iterations_total",
			Help:      "Scheduler worker iterations by outcome.",
		}, []string{"result"}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Workers currently registered in the scheduler.",
		}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Alert messages published per channel.",
		}, []string{"channel", "result"}),
		ReconcileRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_rows_total",
			Help:      "Mirror rows created or updated by reconciliation.",
		}, []string{"table", "op"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.FanOutWrites,
		m.WorkerIterations,
		m.ActiveWorkers,
		m.AlertsPublished,
		m.ReconcileRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps a success flag to a result label.
func Result(ok bool) string {
	if ok {
		return ResultOK
	}
	return ResultError
}
