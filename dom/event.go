package dom

import (
	"time"
)

// EventPhase represents the phase of event dispatch.
type EventPhase int

const (
	EventPhaseNone      EventPhase = 0
	EventPhaseCapturing EventPhase = 1
	EventPhaseAtTarget  EventPhase = 2
	EventPhaseBubbling  EventPhase = 3
)

// EventInit carries the constructor dictionary of an event. Mouse and
// keyboard members are only meaningful for those event families.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	Detail     any

	// MouseEventInit
	ScreenX, ScreenY float64
	ClientX, ClientY float64
	OffsetX, OffsetY float64
	Button           int
	Buttons          int

	// KeyboardEventInit
	Key      string
	Code     string
	Location int
	Repeat   bool

	// EventModifierInit
	AltKey   bool
	CtrlKey  bool
	ShiftKey bool
	MetaKey  bool
}

// Event represents a DOM event.
// https://dom.spec.whatwg.org/#interface-event
type Event struct {
	Type string
	EventInit

	TimeStamp float64

	target           *Node
	currentTarget    *Node
	phase            EventPhase
	dispatching      bool
	stopPropagation  bool
	stopImmediate    bool
	defaultPrevented bool
	inPassive        bool
}

// NewEvent creates a synthetic event of the given type.
func NewEvent(eventType string, init EventInit) *Event {
	return &Event{
		Type:      eventType,
		EventInit: init,
		TimeStamp: float64(time.Now().UnixNano()) / float64(time.Millisecond),
	}
}

// Target returns the node the event was dispatched to.
func (e *Event) Target() *Node {
	return e.target
}

// TargetElement returns the target as an Element, or nil when the target is
// not an element (text nodes, the document).
func (e *Event) TargetElement() *Element {
	if e.target == nil || e.target.nodeType != ElementNode {
		return nil
	}
	return (*Element)(e.target)
}

// CurrentTarget returns the node whose listeners are currently running.
func (e *Event) CurrentTarget() *Node {
	return e.currentTarget
}

// EventPhase returns the current dispatch phase.
func (e *Event) EventPhase() EventPhase {
	return e.phase
}

// StopPropagation prevents the event from reaching further nodes on the path.
func (e *Event) StopPropagation() {
	e.stopPropagation = true
}

// StopImmediatePropagation also skips the remaining listeners on the current node.
func (e *Event) StopImmediatePropagation() {
	e.stopPropagation = true
	e.stopImmediate = true
}

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool {
	return e.stopPropagation
}

// PreventDefault cancels the event if it is cancelable. It is ignored inside
// passive listeners.
func (e *Event) PreventDefault() {
	if e.Cancelable && !e.inPassive {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether PreventDefault took effect.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}
