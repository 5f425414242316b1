// Package metrics exposes Prometheus collectors for delegator instances.
package metrics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "eventdelegator"

// Collector groups the delegator metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	Bindings        *prometheus.GaugeVec
	GlobalListeners *prometheus.GaugeVec
	Dispatches      *prometheus.CounterVec
	Mutations       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them with a fresh registry.
func New() *Collector {
	c := &Collector{
		Bindings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bindings",
			Help:      "Active (element, event name) handler bindings.",
		}, []string{"instance"}),
		GlobalListeners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_listeners",
			Help:      "Document-level capturing listeners currently installed.",
		}, []string{"instance"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Handler invocations routed to the dispatcher.",
		}, []string{"instance", "event"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Registry mutations by operation (add, update, remove).",
		}, []string{"instance", "op"}),
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(c.Bindings, c.GlobalListeners, c.Dispatches, c.Mutations)
	return c
}

// Registry returns the registry the collectors are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SetBindings records the number of active bindings of an instance.
func (c *Collector) SetBindings(instance string, n int) {
	if c != nil {
		c.Bindings.WithLabelValues(instance).Set(float64(n))
	}
}

// SetGlobalListeners records the number of installed document listeners.
func (c *Collector) SetGlobalListeners(instance string, n int) {
	if c != nil {
		c.GlobalListeners.WithLabelValues(instance).Set(float64(n))
	}
}

// IncDispatch counts one handler invocation for event.
func (c *Collector) IncDispatch(instance, event string) {
	if c != nil {
		c.Dispatches.WithLabelValues(instance, event).Inc()
	}
}

// IncMutation counts one registry mutation; op is add, update or remove.
func (c *Collector) IncMutation(instance, op string) {
	if c != nil {
		c.Mutations.WithLabelValues(instance, op).Inc()
	}
}

// WriteText writes every gathered metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "encode metric %s", mf.GetName())
		}
	}
	return nil
}
