// Package delegator routes DOM events captured by one document-level listener
// per event name to the (component, handler) pairs bound on the target element
// and its ancestors.
//
// Bindings are indexed three ways: by handler id (the authoritative store), by
// event name and by element. All three are mutated together under one lock, so
// a handler id is either reachable from every index or from none.
//
// Handler ids are allocated by the caller and must be unique: binding an id
// that is still bound to a different (element, event name) pair is a contract
// violation and is not detected.
package delegator

import (
	"sort"
	"strconv"
	"sync"

	"github.com/chrisuehlinger/eventdelegator/dom"
	"github.com/chrisuehlinger/eventdelegator/eventargs"
	"github.com/chrisuehlinger/eventdelegator/log"
	"github.com/chrisuehlinger/eventdelegator/metrics"
)

// HandlerID identifies one handler registration. Allocated by the caller.
type HandlerID int64

// ComponentID identifies the component that owns a handler.
type ComponentID int64

// Binding is one active (element, event name) -> (component, handler) entry.
// The registry holds Element strongly: an element removed from the document
// stays reachable until its bindings are removed with RemoveListener or the
// Delegator is closed. A detached element never receives events, so its
// bindings are inert until then.
type Binding struct {
	Element     *dom.Element
	EventName   string
	ComponentID ComponentID
	HandlerID   HandlerID
}

// Dispatcher receives every matched binding. It is called synchronously,
// nearest ancestor first, with the same args value for every match of one event.
type Dispatcher func(evt *dom.Event, componentID ComponentID, handlerID HandlerID, args eventargs.Args)

// Serializer converts a raw event into its dispatch payload.
type Serializer func(evt *dom.Event) eventargs.Args

// ListenerHost is the platform's native listener registration capability.
// *dom.Document implements it.
type ListenerHost interface {
	AddEventListener(eventType string, listener dom.EventListenerFunc, opts dom.ListenerOptions) dom.ListenerID
	RemoveEventListenerByID(eventType string, id dom.ListenerID) bool
}

// elementTable is the per-element binding table: event name -> handler id.
type elementTable map[string]HandlerID

// Delegator is the event delegation registry.
type Delegator struct {
	host     ListenerHost
	dispatch Dispatcher

	serialize  Serializer
	instanceID uint64
	instance   string
	retainIdle bool
	logger     *log.Log
	metrics    *metrics.Collector

	mu        sync.Mutex
	byID      map[HandlerID]*Binding
	byEvent   map[string]map[HandlerID]struct{}
	byElement map[*dom.Element]elementTable
	listeners map[string]dom.ListenerID
	closed    bool
}

// Option configures a Delegator.
type Option func(*Delegator)

// WithSerializer replaces eventargs.FromEvent as the payload builder.
func WithSerializer(s Serializer) Option {
	return func(d *Delegator) {
		if s != nil {
			d.serialize = s
		}
	}
}

// WithInstanceID labels the instance in logs and metrics. Independent
// instances never share state regardless of their ids.
func WithInstanceID(id uint64) Option {
	return func(d *Delegator) {
		d.instanceID = id
	}
}

// WithRetainIdleListeners keeps a global listener installed after the last
// binding for its event name is removed. This trades one idle listener per
// event name ever used for less listener churn; it is off by default.
func WithRetainIdleListeners(retain bool) Option {
	return func(d *Delegator) {
		d.retainIdle = retain
	}
}

// WithLogger sets the logger. The default logs under the "delegator" namespace.
func WithLogger(l *log.Log) Option {
	return func(d *Delegator) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records registry activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Delegator) {
		d.metrics = c
	}
}

// New creates a Delegator that installs its global listeners on host and
// routes matched events to dispatch.
func New(host ListenerHost, dispatch Dispatcher, opts ...Option) *Delegator {
	d := &Delegator{
		host:      host,
		dispatch:  dispatch,
		serialize: eventargs.FromEvent,
		byID:      make(map[HandlerID]*Binding),
		byEvent:   make(map[string]map[HandlerID]struct{}),
		byElement: make(map[*dom.Element]elementTable),
		listeners: make(map[string]dom.ListenerID),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.NewLog("delegator")
	}
	d.instance = strconv.FormatUint(d.instanceID, 10)
	return d
}

// SetListener binds handlerID on el for eventName. If el already has a
// binding for eventName, that binding is kept and only its handler id is
// replaced; its component id does not change.
func (d *Delegator) SetListener(el *dom.Element, eventName string, componentID ComponentID, handlerID HandlerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.ensureGlobalListener(eventName)

	if oldID, ok := d.byElement[el][eventName]; ok {
		b := d.byID[oldID]
		if b.ComponentID != componentID {
			d.logger.Warning("handler %d on <%s> %q keeps component %d, ignoring component %d",
				handlerID, el.LocalName(), eventName, b.ComponentID, componentID)
		}
		d.rekey(b, handlerID)
		d.logger.Debug("swapped handler %d -> %d for %q", oldID, handlerID, eventName)
		d.metrics.IncMutation(d.instance, "update")
		return
	}

	d.index(&Binding{
		Element:     el,
		EventName:   eventName,
		ComponentID: componentID,
		HandlerID:   handlerID,
	})
	d.metrics.IncMutation(d.instance, "add")
	d.metrics.SetBindings(d.instance, len(d.byID))
}

// RemoveListener drops the binding for handlerID. Unknown ids are ignored.
func (d *Delegator) RemoveListener(handlerID HandlerID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.byID[handlerID]
	if !ok {
		return
	}
	if d.unindex(b) {
		d.releaseGlobalListener(b.EventName)
	}
	d.metrics.IncMutation(d.instance, "remove")
	d.metrics.SetBindings(d.instance, len(d.byID))
}

// index inserts b into all three indexes.
func (d *Delegator) index(b *Binding) {
	d.byID[b.HandlerID] = b

	ids, ok := d.byEvent[b.EventName]
	if !ok {
		ids = make(map[HandlerID]struct{})
		d.byEvent[b.EventName] = ids
	}
	ids[b.HandlerID] = struct{}{}

	table, ok := d.byElement[b.Element]
	if !ok {
		table = make(elementTable)
		d.byElement[b.Element] = table
	}
	table[b.EventName] = b.HandlerID
}

// unindex removes b from all three indexes, dropping empty event sets and
// element tables. Reports whether b's event name has no bindings left.
func (d *Delegator) unindex(b *Binding) bool {
	delete(d.byID, b.HandlerID)

	ids := d.byEvent[b.EventName]
	delete(ids, b.HandlerID)
	eventEmpty := len(ids) == 0
	if eventEmpty {
		delete(d.byEvent, b.EventName)
	}

	table := d.byElement[b.Element]
	delete(table, b.EventName)
	if len(table) == 0 {
		delete(d.byElement, b.Element)
	}
	return eventEmpty
}

// rekey moves b from its current handler id to newID in every index.
func (d *Delegator) rekey(b *Binding, newID HandlerID) {
	delete(d.byID, b.HandlerID)
	delete(d.byEvent[b.EventName], b.HandlerID)

	b.HandlerID = newID
	d.byID[newID] = b
	d.byEvent[b.EventName][newID] = struct{}{}
	d.byElement[b.Element][b.EventName] = newID
}

// ensureGlobalListener installs the capturing document listener for
// eventName unless one is already installed.
func (d *Delegator) ensureGlobalListener(eventName string) {
	if _, ok := d.listeners[eventName]; ok {
		return
	}
	d.listeners[eventName] = d.host.AddEventListener(eventName, d.onGlobalEvent, dom.ListenerOptions{Capture: true})
	d.logger.Debug("installed global listener for %q", eventName)
	d.metrics.SetGlobalListeners(d.instance, len(d.listeners))
}

// releaseGlobalListener uninstalls the listener for an event name whose last
// binding was removed, unless idle listeners are retained.
func (d *Delegator) releaseGlobalListener(eventName string) {
	if d.retainIdle {
		return
	}
	d.uninstall(eventName)
}

func (d *Delegator) uninstall(eventName string) {
	id, ok := d.listeners[eventName]
	if !ok {
		return
	}
	d.host.RemoveEventListenerByID(eventName, id)
	delete(d.listeners, eventName)
	d.logger.Debug("removed global listener for %q", eventName)
	d.metrics.SetGlobalListeners(d.instance, len(d.listeners))
}

// lookupHandler returns the binding of el for eventName, if any.
func (d *Delegator) lookupHandler(el *dom.Element, eventName string) (Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byElement[el][eventName]
	if !ok {
		return Binding{}, false
	}
	return *d.byID[id], true
}

// onGlobalEvent is the capturing document listener. It walks from the target
// up through its ancestors and dispatches every binding for the event type.
// The lock is not held while the dispatcher runs.
func (d *Delegator) onGlobalEvent(evt *dom.Event) {
	el := evt.TargetElement()
	if el == nil {
		return
	}

	var (
		args     eventargs.Args
		haveArgs bool
	)
	for ; el != nil; el = el.ParentElement() {
		b, ok := d.lookupHandler(el, evt.Type)
		if !ok {
			continue
		}
		if !haveArgs {
			args = d.serialize(evt)
			haveArgs = true
		}
		d.metrics.IncDispatch(d.instance, evt.Type)
		d.dispatch(evt, b.ComponentID, b.HandlerID, args)
	}
}

// Lookup returns a copy of the binding for handlerID.
func (d *Delegator) Lookup(handlerID HandlerID) (Binding, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.byID[handlerID]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// HasBinding reports whether el has a binding for eventName.
func (d *Delegator) HasBinding(el *dom.Element, eventName string) bool {
	_, ok := d.lookupHandler(el, eventName)
	return ok
}

// Bindings returns a snapshot of all bindings ordered by handler id.
func (d *Delegator) Bindings() []Binding {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Binding, 0, len(d.byID))
	for _, b := range d.byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HandlerID < out[j].HandlerID })
	return out
}

// EventNames returns the event names that have a global listener installed.
func (d *Delegator) EventNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.listeners))
	for name := range d.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of active bindings.
func (d *Delegator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

// Close uninstalls every global listener and forgets all bindings. Later
// calls to SetListener are ignored.
func (d *Delegator) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name := range d.listeners {
		d.uninstall(name)
	}
	d.byID = make(map[HandlerID]*Binding)
	d.byEvent = make(map[string]map[HandlerID]struct{})
	d.byElement = make(map[*dom.Element]elementTable)
	d.closed = true
	d.metrics.SetBindings(d.instance, 0)
}
