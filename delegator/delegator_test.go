package delegator

import (
	"bytes"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisuehlinger/eventdelegator/dom"
	"github.com/chrisuehlinger/eventdelegator/eventargs"
	"github.com/chrisuehlinger/eventdelegator/html"
	"github.com/chrisuehlinger/eventdelegator/log"
	"github.com/chrisuehlinger/eventdelegator/metrics"
)

// countingHost forwards to a real document and counts listener churn.
type countingHost struct {
	doc     *dom.Document
	added   map[string]int
	removed map[string]int
}

func newCountingHost(doc *dom.Document) *countingHost {
	return &countingHost{doc: doc, added: map[string]int{}, removed: map[string]int{}}
}

func (h *countingHost) AddEventListener(eventType string, l dom.EventListenerFunc, opts dom.ListenerOptions) dom.ListenerID {
	h.added[eventType]++
	return h.doc.AddEventListener(eventType, l, opts)
}

func (h *countingHost) RemoveEventListenerByID(eventType string, id dom.ListenerID) bool {
	h.removed[eventType]++
	return h.doc.RemoveEventListenerByID(eventType, id)
}

type call struct {
	ComponentID ComponentID
	HandlerID   HandlerID
	Args        eventargs.Args
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) dispatch(_ *dom.Event, componentID ComponentID, handlerID HandlerID, args eventargs.Args) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{componentID, handlerID, args})
}

func (r *recorder) handlerIDs() []HandlerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]HandlerID, 0, len(r.calls))
	for _, c := range r.calls {
		ids = append(ids, c.HandlerID)
	}
	return ids
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func quietLogger() *log.Log {
	color.Disable()
	l := log.NewLog("delegator")
	l.SetOutput(new(bytes.Buffer))
	return l
}

const page = `<html><body>
<div id="c"><div id="b"><div id="a"><span id="leaf">x</span></div></div></div>
<button id="btn">go</button>
</body></html>`

func setup(t *testing.T, opts ...Option) (*dom.Document, *countingHost, *recorder, *Delegator) {
	t.Helper()
	doc, err := html.Parse(page)
	require.NoError(t, err)
	host := newCountingHost(doc)
	rec := &recorder{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return doc, host, rec, New(host, rec.dispatch, opts...)
}

func byID(t *testing.T, doc *dom.Document, id string) *dom.Element {
	t.Helper()
	el := doc.GetElementById(id)
	require.NotNil(t, el, id)
	return el
}

func click(el *dom.Element) {
	el.AsNode().DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
}

// checkInvariants asserts the registry invariants against the internal indexes.
func checkInvariants(t *testing.T, d *Delegator, host *countingHost) {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()

	fromID := map[HandlerID]bool{}
	for id, b := range d.byID {
		require.Equal(t, id, b.HandlerID)
		fromID[id] = true
	}

	fromEvent := map[HandlerID]bool{}
	for name, ids := range d.byEvent {
		require.NotEmpty(t, ids, "empty event set for %q", name)
		for id := range ids {
			require.Equal(t, name, d.byID[id].EventName)
			fromEvent[id] = true
		}
	}

	fromElement := map[HandlerID]bool{}
	for el, table := range d.byElement {
		require.NotEmpty(t, table, "empty element table left behind")
		for name, id := range table {
			b := d.byID[id]
			require.NotNil(t, b)
			require.Same(t, el, b.Element)
			require.Equal(t, name, b.EventName)
			fromElement[id] = true
		}
	}

	require.Equal(t, fromID, fromEvent)
	require.Equal(t, fromID, fromElement)

	if !d.retainIdle {
		installed := map[string]bool{}
		for name := range d.listeners {
			installed[name] = true
		}
		used := map[string]bool{}
		for name := range d.byEvent {
			used[name] = true
		}
		require.Equal(t, used, installed)
		for name := range used {
			require.Equal(t, 1, host.added[name]-host.removed[name], name)
		}
	}
}

func TestSetListenerInstallsOneGlobalListener(t *testing.T) {
	doc, host, _, d := setup(t)

	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "click", 1, 11)
	d.SetListener(byID(t, doc, "btn"), "keydown", 2, 12)

	assert.Equal(t, 1, host.added["click"])
	assert.Equal(t, 1, host.added["keydown"])
	assert.Equal(t, 1, doc.AsNode().ListenerCount("click"))
	assert.Equal(t, []string{"click", "keydown"}, d.EventNames())
	assert.Equal(t, 3, d.Len())
	checkInvariants(t, d, host)
}

func TestRemoveLastBindingRemovesGlobalListener(t *testing.T) {
	doc, host, _, d := setup(t)

	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "click", 1, 11)

	d.RemoveListener(10)
	assert.Equal(t, 0, host.removed["click"])
	assert.True(t, doc.AsNode().HasEventListeners("click"))

	d.RemoveListener(11)
	assert.Equal(t, 1, host.removed["click"])
	assert.False(t, doc.AsNode().HasEventListeners("click"))
	assert.Empty(t, d.EventNames())
	checkInvariants(t, d, host)

	d.SetListener(byID(t, doc, "a"), "click", 1, 12)
	assert.Equal(t, 2, host.added["click"])
	checkInvariants(t, d, host)
}

func TestUpdatePreservesIdentity(t *testing.T) {
	doc, host, rec, d := setup(t)
	a := byID(t, doc, "a")

	d.SetListener(a, "click", 1, 10)
	before := d.byID[10]

	d.SetListener(a, "click", 1, 20)
	assert.Same(t, before, d.byID[20], "binding record should be reused")
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 1, host.added["click"])

	_, ok := d.Lookup(10)
	assert.False(t, ok)
	b, ok := d.Lookup(20)
	require.True(t, ok)
	assert.Equal(t, Binding{Element: a, EventName: "click", ComponentID: 1, HandlerID: 20}, b)

	// The stale id no longer removes anything.
	d.RemoveListener(10)
	assert.True(t, d.HasBinding(a, "click"))
	checkInvariants(t, d, host)

	click(a)
	assert.Equal(t, []HandlerID{20}, rec.handlerIDs())
}

func TestUpdateKeepsComponentID(t *testing.T) {
	logger := quietLogger()
	buf := new(bytes.Buffer)
	logger.SetOutput(buf)
	doc, host, rec, d := setup(t, WithLogger(logger))
	a := byID(t, doc, "a")

	d.SetListener(a, "click", 1, 10)
	d.SetListener(a, "click", 2, 11)

	b, ok := d.Lookup(11)
	require.True(t, ok)
	assert.Equal(t, ComponentID(1), b.ComponentID)
	assert.Contains(t, buf.String(), "keeps component 1, ignoring component 2")
	checkInvariants(t, d, host)

	click(a)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, ComponentID(1), rec.calls[0].ComponentID)
}

func TestAtMostOneBindingPerPair(t *testing.T) {
	doc, host, _, d := setup(t)
	a := byID(t, doc, "a")

	for id := HandlerID(1); id <= 5; id++ {
		d.SetListener(a, "click", 7, id)
	}
	d.SetListener(a, "keyup", 7, 6)

	assert.Equal(t, 2, d.Len())
	assert.Len(t, d.byElement[a], 2)
	assert.Equal(t, HandlerID(5), d.byElement[a]["click"])
	checkInvariants(t, d, host)
}

func TestRemoveListenerIdempotent(t *testing.T) {
	doc, host, _, d := setup(t)
	a := byID(t, doc, "a")

	d.RemoveListener(99)
	d.SetListener(a, "click", 1, 10)
	d.RemoveListener(10)
	d.RemoveListener(10)

	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 1, host.removed["click"])
	_, tableExists := d.byElement[a]
	assert.False(t, tableExists)
	checkInvariants(t, d, host)
}

func TestBubblingOrder(t *testing.T) {
	doc, _, rec, d := setup(t)

	d.SetListener(byID(t, doc, "c"), "click", 3, 30)
	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "click", 2, 20)

	click(byID(t, doc, "a"))
	assert.Equal(t, []HandlerID{10, 20, 30}, rec.handlerIDs())
	assert.Equal(t, ComponentID(1), rec.calls[0].ComponentID)
	assert.Equal(t, ComponentID(3), rec.calls[2].ComponentID)
}

func TestDispatchScenario(t *testing.T) {
	doc, host, rec, d := setup(t)
	a := byID(t, doc, "a")

	d.SetListener(a, "click", 1, 1)
	d.SetListener(doc.Body(), "click", 2, 2)

	click(byID(t, doc, "leaf"))
	assert.Equal(t, []HandlerID{1, 2}, rec.handlerIDs())

	d.RemoveListener(1)
	rec.reset()
	click(byID(t, doc, "leaf"))
	assert.Equal(t, []HandlerID{2}, rec.handlerIDs())

	_, tableExists := d.byElement[a]
	assert.False(t, tableExists)
	checkInvariants(t, d, host)
}

func TestArgsBuiltOncePerEvent(t *testing.T) {
	var serialized int
	doc, _, rec, d := setup(t, WithSerializer(func(evt *dom.Event) eventargs.Args {
		serialized++
		return eventargs.FromEvent(evt)
	}))

	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "click", 1, 11)
	d.SetListener(byID(t, doc, "c"), "click", 1, 12)

	byID(t, doc, "a").AsNode().DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true, ClientX: 4}))
	assert.Equal(t, 1, serialized)
	require.Len(t, rec.calls, 3)
	for _, c := range rec.calls {
		assert.Equal(t, rec.calls[0].Args, c.Args)
		assert.Equal(t, 4.0, c.Args.ClientX)
	}

	// No match: the serializer is never called.
	click(byID(t, doc, "btn"))
	assert.Equal(t, 1, serialized)
}

func TestNonBubblingEventsAreDelegated(t *testing.T) {
	doc, _, rec, d := setup(t)
	d.SetListener(byID(t, doc, "b"), "focus", 1, 10)

	byID(t, doc, "a").AsNode().DispatchEvent(dom.NewEvent("focus", dom.EventInit{}))
	assert.Equal(t, []HandlerID{10}, rec.handlerIDs())
	assert.Equal(t, eventargs.KindFocus, rec.calls[0].Args.Kind)
}

func TestNonElementTargetIgnored(t *testing.T) {
	doc, _, rec, d := setup(t)
	leaf := byID(t, doc, "leaf")
	d.SetListener(leaf, "click", 1, 10)
	d.SetListener(doc.Body(), "click", 1, 11)

	leaf.AsNode().FirstChild().DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	doc.AsNode().DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	assert.Empty(t, rec.handlerIDs())
}

func TestOtherEventNamesNotDispatched(t *testing.T) {
	doc, _, rec, d := setup(t)
	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "keydown", 1, 11)

	click(byID(t, doc, "a"))
	assert.Equal(t, []HandlerID{10}, rec.handlerIDs())
}

func TestDispatcherMayMutateRegistry(t *testing.T) {
	doc, err := html.Parse(page)
	require.NoError(t, err)
	host := newCountingHost(doc)

	var d *Delegator
	var got []HandlerID
	d = New(host, func(_ *dom.Event, _ ComponentID, id HandlerID, _ eventargs.Args) {
		got = append(got, id)
		if id == 10 {
			// Removing an ancestor's binding mid-walk skips it.
			d.RemoveListener(20)
			d.SetListener(byID(t, doc, "btn"), "click", 9, 90)
		}
	}, WithLogger(quietLogger()))

	d.SetListener(byID(t, doc, "a"), "click", 1, 10)
	d.SetListener(byID(t, doc, "b"), "click", 1, 20)
	d.SetListener(byID(t, doc, "c"), "click", 1, 30)

	click(byID(t, doc, "a"))
	assert.Equal(t, []HandlerID{10, 30}, got)
	checkInvariants(t, d, host)
}

func TestDetachedElementKeepsBindingUntilRemoved(t *testing.T) {
	doc, host, rec, d := setup(t)
	a := byID(t, doc, "a")
	leaf := byID(t, doc, "leaf")
	d.SetListener(a, "click", 1, 10)

	a.ParentElement().AsNode().RemoveChild(a.AsNode())
	assert.True(t, d.HasBinding(a, "click"))
	assert.Equal(t, 1, d.Len())

	click(leaf)
	assert.Empty(t, rec.calls)

	d.RemoveListener(10)
	assert.False(t, d.HasBinding(a, "click"))
	assert.Empty(t, d.byElement)
	checkInvariants(t, d, host)
}

func TestRetainIdleListeners(t *testing.T) {
	doc, host, _, d := setup(t, WithRetainIdleListeners(true))
	a := byID(t, doc, "a")

	d.SetListener(a, "click", 1, 10)
	d.RemoveListener(10)
	assert.Equal(t, 0, host.removed["click"])
	assert.Equal(t, []string{"click"}, d.EventNames())
	assert.Equal(t, 0, d.Len())

	d.SetListener(a, "click", 1, 11)
	assert.Equal(t, 1, host.added["click"])
	checkInvariants(t, d, host)
}

func TestIndependentInstances(t *testing.T) {
	doc, host, rec1, d1 := setup(t, WithInstanceID(1))
	rec2 := &recorder{}
	d2 := New(host, rec2.dispatch, WithInstanceID(2), WithLogger(quietLogger()))
	a := byID(t, doc, "a")

	d1.SetListener(a, "click", 1, 10)
	d2.SetListener(a, "click", 2, 10)
	assert.Equal(t, 2, host.added["click"])

	click(a)
	assert.Equal(t, []HandlerID{10}, rec1.handlerIDs())
	assert.Equal(t, []HandlerID{10}, rec2.handlerIDs())

	d1.RemoveListener(10)
	assert.False(t, d1.HasBinding(a, "click"))
	assert.True(t, d2.HasBinding(a, "click"))
}

func TestBindings(t *testing.T) {
	doc, _, _, d := setup(t)
	a, b := byID(t, doc, "a"), byID(t, doc, "b")
	d.SetListener(b, "click", 2, 20)
	d.SetListener(a, "click", 1, 10)

	assert.Equal(t, []Binding{
		{Element: a, EventName: "click", ComponentID: 1, HandlerID: 10},
		{Element: b, EventName: "click", ComponentID: 2, HandlerID: 20},
	}, d.Bindings())

	// Snapshots are copies.
	snap := d.Bindings()
	snap[0].HandlerID = 99
	_, ok := d.Lookup(10)
	assert.True(t, ok)
}

func TestClose(t *testing.T) {
	doc, host, rec, d := setup(t)
	a := byID(t, doc, "a")
	d.SetListener(a, "click", 1, 10)
	d.SetListener(a, "keyup", 1, 11)

	d.Close()
	assert.Equal(t, 1, host.removed["click"])
	assert.Equal(t, 1, host.removed["keyup"])
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.EventNames())

	d.SetListener(a, "click", 1, 12)
	d.RemoveListener(10)
	assert.Equal(t, 0, d.Len())
	click(a)
	assert.Empty(t, rec.handlerIDs())
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	doc, _, _, d := setup(t, WithMetrics(m), WithInstanceID(7))
	a := byID(t, doc, "a")

	d.SetListener(a, "click", 1, 10)
	d.SetListener(a, "click", 1, 11)
	d.SetListener(byID(t, doc, "b"), "click", 1, 12)
	click(a)
	d.RemoveListener(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bindings.WithLabelValues("7")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GlobalListeners.WithLabelValues("7")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("7", "click")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("7", "add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("7", "update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("7", "remove")))
}

func TestRandomOperationsKeepIndexesConsistent(t *testing.T) {
	doc, host, _, d := setup(t)
	elements := []*dom.Element{
		byID(t, doc, "a"), byID(t, doc, "b"), byID(t, doc, "c"),
		byID(t, doc, "leaf"), byID(t, doc, "btn"), doc.Body(),
	}
	names := []string{"click", "keydown", "input", "focus"}
	rng := rand.New(rand.NewSource(42))
	next := HandlerID(1)

	for i := 0; i < 2000; i++ {
		if rng.Intn(3) > 0 {
			el := elements[rng.Intn(len(elements))]
			name := names[rng.Intn(len(names))]
			d.SetListener(el, name, ComponentID(rng.Intn(4)), next)
			next++
		} else {
			d.RemoveListener(HandlerID(rng.Int63n(int64(next) + 1)))
		}
		checkInvariants(t, d, host)
	}
}

func TestConcurrentMutation(t *testing.T) {
	doc, host, _, d := setup(t)
	elements := []*dom.Element{byID(t, doc, "a"), byID(t, doc, "b"), byID(t, doc, "c")}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := HandlerID(w*1000 + i)
				d.SetListener(elements[i%len(elements)], "click", ComponentID(w), id)
				if i%2 == 0 {
					d.RemoveListener(id)
				}
			}
		}(w)
	}
	wg.Wait()
	checkInvariants(t, d, host)

	ids := make([]int, 0)
	for _, b := range d.Bindings() {
		ids = append(ids, int(b.HandlerID))
	}
	assert.True(t, sort.IntsAreSorted(ids))
	assert.LessOrEqual(t, d.Len(), len(elements))
}
