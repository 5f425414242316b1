package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()
	c.SetBindings("1", 3)
	c.SetGlobalListeners("1", 2)
	c.IncDispatch("1", "click")
	c.IncDispatch("1", "click")
	c.IncMutation("1", "add")

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Bindings.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.GlobalListeners.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Dispatches.WithLabelValues("1", "click")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Mutations.WithLabelValues("1", "add")))

	var buf bytes.Buffer
	require.NoError(t, c.WriteText(&buf))
	assert.Contains(t, buf.String(), `eventdelegator_dispatches_total{event="click",instance="1"} 2`)
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SetBindings("1", 1)
		c.SetGlobalListeners("1", 1)
		c.IncDispatch("1", "click")
		c.IncMutation("1", "remove")
	})
}
