// Package eventargs converts raw DOM events into the transport payload that
// is handed to component event handlers.
package eventargs

import (
	"strings"

	"github.com/chrisuehlinger/eventdelegator/dom"
)

// Kind names the payload family an event type maps to.
type Kind string

const (
	KindMouse    Kind = "mouse"
	KindKeyboard Kind = "keyboard"
	KindChange   Kind = "change"
	KindFocus    Kind = "focus"
	KindEvent    Kind = "event"
)

var kindsByType = map[string]Kind{
	"click":       KindMouse,
	"dblclick":    KindMouse,
	"mousedown":   KindMouse,
	"mouseup":     KindMouse,
	"mousemove":   KindMouse,
	"mouseover":   KindMouse,
	"mouseout":    KindMouse,
	"mouseenter":  KindMouse,
	"mouseleave":  KindMouse,
	"contextmenu": KindMouse,
	"keydown":     KindKeyboard,
	"keyup":       KindKeyboard,
	"keypress":    KindKeyboard,
	"change":      KindChange,
	"input":       KindChange,
	"focus":       KindFocus,
	"blur":        KindFocus,
	"focusin":     KindFocus,
	"focusout":    KindFocus,
}

// KindOf returns the payload family for an event type.
func KindOf(eventType string) Kind {
	if k, ok := kindsByType[strings.ToLower(eventType)]; ok {
		return k
	}
	return KindEvent
}

// Args is the serialized form of one event. Only the members of its Kind are
// populated; the rest are omitted on the wire.
type Args struct {
	Kind Kind   `json:"kind" msgpack:"kind"`
	Type string `json:"type" msgpack:"type"`

	// mouse
	Detail  int     `json:"detail,omitempty" msgpack:"detail,omitempty"`
	ScreenX float64 `json:"screenX,omitempty" msgpack:"screenX,omitempty"`
	ScreenY float64 `json:"screenY,omitempty" msgpack:"screenY,omitempty"`
	ClientX float64 `json:"clientX,omitempty" msgpack:"clientX,omitempty"`
	ClientY float64 `json:"clientY,omitempty" msgpack:"clientY,omitempty"`
	OffsetX float64 `json:"offsetX,omitempty" msgpack:"offsetX,omitempty"`
	OffsetY float64 `json:"offsetY,omitempty" msgpack:"offsetY,omitempty"`
	Button  int     `json:"button,omitempty" msgpack:"button,omitempty"`
	Buttons int     `json:"buttons,omitempty" msgpack:"buttons,omitempty"`

	// keyboard
	Key      string `json:"key,omitempty" msgpack:"key,omitempty"`
	Code     string `json:"code,omitempty" msgpack:"code,omitempty"`
	Location int    `json:"location,omitempty" msgpack:"location,omitempty"`
	Repeat   bool   `json:"repeat,omitempty" msgpack:"repeat,omitempty"`

	// mouse and keyboard
	CtrlKey  bool `json:"ctrlKey,omitempty" msgpack:"ctrlKey,omitempty"`
	ShiftKey bool `json:"shiftKey,omitempty" msgpack:"shiftKey,omitempty"`
	AltKey   bool `json:"altKey,omitempty" msgpack:"altKey,omitempty"`
	MetaKey  bool `json:"metaKey,omitempty" msgpack:"metaKey,omitempty"`

	// change: a string for text inputs, a bool for checkboxes and radios.
	Value any `json:"value,omitempty" msgpack:"value,omitempty"`
}

// FromEvent builds the payload for evt. It never fails: unknown event types
// produce a KindEvent payload carrying only the type.
func FromEvent(evt *dom.Event) Args {
	args := Args{Kind: KindOf(evt.Type), Type: evt.Type}

	switch args.Kind {
	case KindMouse:
		args.Detail = detailCount(evt.Detail)
		args.ScreenX, args.ScreenY = evt.ScreenX, evt.ScreenY
		args.ClientX, args.ClientY = evt.ClientX, evt.ClientY
		args.OffsetX, args.OffsetY = evt.OffsetX, evt.OffsetY
		args.Button, args.Buttons = evt.Button, evt.Buttons
		args.withModifiers(evt)
	case KindKeyboard:
		args.Key, args.Code = evt.Key, evt.Code
		args.Location, args.Repeat = evt.Location, evt.Repeat
		args.withModifiers(evt)
	case KindChange:
		args.Value = targetValue(evt.TargetElement())
	}
	return args
}

// detailCount reads a numeric click count; scripts hand over int64 or float64.
func detailCount(detail any) int {
	switch d := detail.(type) {
	case int:
		return d
	case int64:
		return int(d)
	case float64:
		return int(d)
	}
	return 0
}

func (a *Args) withModifiers(evt *dom.Event) {
	a.CtrlKey, a.ShiftKey = evt.CtrlKey, evt.ShiftKey
	a.AltKey, a.MetaKey = evt.AltKey, evt.MetaKey
}

// targetValue reads the current value of a form control.
func targetValue(el *dom.Element) any {
	if el == nil {
		return nil
	}
	if el.LocalName() == "input" {
		switch strings.ToLower(el.GetAttribute("type")) {
		case "checkbox", "radio":
			return el.HasAttribute("checked")
		}
	}
	if el.HasAttribute("value") {
		return el.GetAttribute("value")
	}
	if el.LocalName() == "textarea" {
		return el.TextContent()
	}
	return ""
}
