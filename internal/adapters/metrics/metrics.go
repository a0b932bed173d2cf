// Package metrics exposes schema operation and outbox counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application's metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	SchemaOperations *prometheus.CounterVec
	OutboxDispatch   *prometheus.CounterVec
}

// New creates a collector backed by a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the application metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		SchemaOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mongoschema",
				Name:      "schema_operations_total",
				Help:      "Schema operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OutboxDispatch: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mongoschema",
				Name:      "outbox_dispatch_total",
				Help:      "Outbox delivery attempts by result",
			},
			[]string{"result"},
		),
	}
}

func (c *Collector) ObserveOperation(operation, outcome string) {
	c.SchemaOperations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveDispatch(result string) {
	c.OutboxDispatch.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
