package dom

import (
	"sync"
)

// EventListenerFunc is a callback registered with AddEventListener.
type EventListenerFunc func(evt *Event)

// ListenerID identifies a registered listener for removal. Go function values
// cannot be compared, so listeners are removed by id rather than by callback.
type ListenerID uint64

// ListenerOptions represents addEventListener options.
type ListenerOptions struct {
	Capture bool
	Once    bool
	Passive bool
}

// eventListener represents a registered event listener.
type eventListener struct {
	id       ListenerID
	callback EventListenerFunc
	options  ListenerOptions
}

// EventTarget manages event listeners for a single node.
type EventTarget struct {
	listeners map[string][]eventListener
	nextID    ListenerID
	mu        sync.RWMutex
}

// NewEventTarget creates a new EventTarget.
func NewEventTarget() *EventTarget {
	return &EventTarget{
		listeners: make(map[string][]eventListener),
	}
}

// AddEventListener registers an event listener and returns its id.
// A nil callback is ignored and yields the zero id.
func (et *EventTarget) AddEventListener(eventType string, callback EventListenerFunc, opts ListenerOptions) ListenerID {
	if callback == nil {
		return 0
	}

	et.mu.Lock()
	defer et.mu.Unlock()

	et.nextID++
	et.listeners[eventType] = append(et.listeners[eventType], eventListener{
		id:       et.nextID,
		callback: callback,
		options:  opts,
	})
	return et.nextID
}

// RemoveEventListenerByID unregisters a listener. Returns false if no
// listener with that id is registered for eventType.
func (et *EventTarget) RemoveEventListenerByID(eventType string, id ListenerID) bool {
	et.mu.Lock()
	defer et.mu.Unlock()

	listeners := et.listeners[eventType]
	for i, l := range listeners {
		if l.id == id {
			if len(listeners) == 1 {
				delete(et.listeners, eventType)
			} else {
				et.listeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
			}
			return true
		}
	}
	return false
}

// HasEventListeners returns true if there are any listeners for the event type.
func (et *EventTarget) HasEventListeners(eventType string) bool {
	et.mu.RLock()
	defer et.mu.RUnlock()
	return len(et.listeners[eventType]) > 0
}

// ListenerCount returns the number of listeners for the event type.
func (et *EventTarget) ListenerCount(eventType string) int {
	et.mu.RLock()
	defer et.mu.RUnlock()
	return len(et.listeners[eventType])
}

func (et *EventTarget) isRegistered(eventType string, id ListenerID) bool {
	et.mu.RLock()
	defer et.mu.RUnlock()
	for _, l := range et.listeners[eventType] {
		if l.id == id {
			return true
		}
	}
	return false
}

// invoke runs the listeners matching phase. Listeners are snapshotted first
// and run with no lock held, so they may add or remove listeners; a listener
// removed during dispatch is not called.
func (et *EventTarget) invoke(evt *Event, phase EventPhase) {
	et.mu.RLock()
	listeners := make([]eventListener, len(et.listeners[evt.Type]))
	copy(listeners, et.listeners[evt.Type])
	et.mu.RUnlock()

	for _, l := range listeners {
		if phase == EventPhaseCapturing && !l.options.Capture {
			continue
		}
		if phase == EventPhaseBubbling && l.options.Capture {
			continue
		}
		if !et.isRegistered(evt.Type, l.id) {
			continue
		}
		if l.options.Once {
			et.RemoveEventListenerByID(evt.Type, l.id)
		}

		evt.inPassive = l.options.Passive
		l.callback(evt)
		evt.inPassive = false

		if evt.stopImmediate {
			return
		}
	}
}

// targetsMu guards lazy creation of per-node EventTargets.
var targetsMu sync.Mutex

func (n *Node) eventTarget(create bool) *EventTarget {
	targetsMu.Lock()
	defer targetsMu.Unlock()
	if n.events == nil && create {
		n.events = NewEventTarget()
	}
	return n.events
}

// AddEventListener registers a listener on this node.
func (n *Node) AddEventListener(eventType string, listener EventListenerFunc, opts ListenerOptions) ListenerID {
	return n.eventTarget(true).AddEventListener(eventType, listener, opts)
}

// RemoveEventListenerByID removes a listener registered on this node.
func (n *Node) RemoveEventListenerByID(eventType string, id ListenerID) bool {
	et := n.eventTarget(false)
	if et == nil {
		return false
	}
	return et.RemoveEventListenerByID(eventType, id)
}

// HasEventListeners returns true if this node has listeners for eventType.
func (n *Node) HasEventListeners(eventType string) bool {
	et := n.eventTarget(false)
	return et != nil && et.HasEventListeners(eventType)
}

// ListenerCount returns the number of listeners this node has for eventType.
func (n *Node) ListenerCount(eventType string) int {
	et := n.eventTarget(false)
	if et == nil {
		return 0
	}
	return et.ListenerCount(eventType)
}

// DispatchEvent dispatches evt with this node as target.
// Returns false if a listener canceled the event.
// For error-returning version, use DispatchEventWithError.
func (n *Node) DispatchEvent(evt *Event) bool {
	ok, _ := n.DispatchEventWithError(evt)
	return ok
}

// DispatchEventWithError dispatches evt along the propagation path: capture
// from the root down to the parent, at-target, then bubble back up when the
// event bubbles. Returns an InvalidStateError if evt is already being dispatched.
// https://dom.spec.whatwg.org/#concept-event-dispatch
func (n *Node) DispatchEventWithError(evt *Event) (bool, error) {
	if evt == nil {
		return false, ErrInvalidState("The event is null.")
	}
	if evt.dispatching {
		return false, ErrInvalidState("The event is already being dispatched.")
	}

	evt.dispatching = true
	evt.target = n
	evt.stopPropagation = false
	evt.stopImmediate = false

	path := []*Node{n}
	for p := n.parentNode; p != nil; p = p.parentNode {
		path = append(path, p)
	}

	for i := len(path) - 1; i > 0 && !evt.stopPropagation; i-- {
		path[i].invokeListeners(evt, EventPhaseCapturing)
	}
	if !evt.stopPropagation {
		n.invokeListeners(evt, EventPhaseAtTarget)
	}
	if evt.Bubbles {
		for i := 1; i < len(path) && !evt.stopPropagation; i++ {
			path[i].invokeListeners(evt, EventPhaseBubbling)
		}
	}

	evt.dispatching = false
	evt.phase = EventPhaseNone
	evt.currentTarget = nil
	return !evt.defaultPrevented, nil
}

func (n *Node) invokeListeners(evt *Event, phase EventPhase) {
	evt.phase = phase
	evt.currentTarget = n
	if et := n.eventTarget(false); et != nil {
		et.invoke(evt, phase)
	}
}
