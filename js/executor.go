package js

import (
	"strings"

	"github.com/chrisuehlinger/eventdelegator/delegator"
	"github.com/chrisuehlinger/eventdelegator/dom"
	"github.com/chrisuehlinger/eventdelegator/eventargs"
)

// ScriptExecutor wires a document, its delegator and the page scripts into
// one runtime.
type ScriptExecutor struct {
	runtime         *Runtime
	domBinder       *DOMBinder
	delegatorBinder *DelegatorBinder
	delegator       *delegator.Delegator
	observer        delegator.Dispatcher
}

// NewScriptExecutor creates a new script executor.
func NewScriptExecutor(runtime *Runtime) *ScriptExecutor {
	domBinder := NewDOMBinder(runtime)
	return &ScriptExecutor{
		runtime:         runtime,
		domBinder:       domBinder,
		delegatorBinder: NewDelegatorBinder(runtime, domBinder),
	}
}

// SetupDocument binds doc as the global "document" and creates the delegator
// scripts see as the global "delegator". Matches are delivered to the handler
// registered with delegator.onDispatch.
func (se *ScriptExecutor) SetupDocument(doc *dom.Document, opts ...delegator.Option) *delegator.Delegator {
	if se.delegator != nil {
		se.delegator.Close()
	}
	se.domBinder.BindDocument(doc)
	se.delegator = delegator.New(doc, se.dispatch, opts...)
	se.delegatorBinder.Bind(se.delegator)
	return se.delegator
}

// Observe registers fn to see every match before it reaches the script
// handler.
func (se *ScriptExecutor) Observe(fn delegator.Dispatcher) {
	se.observer = fn
}

func (se *ScriptExecutor) dispatch(evt *dom.Event, componentID delegator.ComponentID, handlerID delegator.HandlerID, args eventargs.Args) {
	if se.observer != nil {
		se.observer(evt, componentID, handlerID, args)
	}
	se.delegatorBinder.Dispatch(evt, componentID, handlerID, args)
}

// Delegator returns the delegator created by SetupDocument.
func (se *ScriptExecutor) Delegator() *delegator.Delegator {
	return se.delegator
}

// ExecuteScripts runs every inline script element of doc in tree order.
// A failing script does not stop later ones.
func (se *ScriptExecutor) ExecuteScripts(doc *dom.Document) []error {
	var errs []error
	for _, script := range scriptElements(doc.AsNode()) {
		if err := se.executeScript(script); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func scriptElements(root *dom.Node) []*dom.Element {
	var scripts []*dom.Element
	for child := root.FirstChild(); child != nil; child = child.NextSibling() {
		if child.NodeType() != dom.ElementNode {
			continue
		}
		el := (*dom.Element)(child)
		if el.LocalName() == "script" {
			scripts = append(scripts, el)
			continue
		}
		scripts = append(scripts, scriptElements(child)...)
	}
	return scripts
}

// executeScript executes a single script element.
func (se *ScriptExecutor) executeScript(script *dom.Element) error {
	switch script.GetAttribute("type") {
	case "", "text/javascript", "application/javascript":
	default:
		return nil
	}

	// External scripts are not fetched.
	if script.HasAttribute("src") {
		return nil
	}

	code := strings.TrimSpace(script.TextContent())
	if code == "" {
		return nil
	}

	id := script.Id()
	if id == "" {
		id = "inline"
	}
	return se.runtime.ExecuteScript(code, id)
}

// DispatchEvent dispatches a new event of the given type at el and reports
// whether its default action was not prevented.
func (se *ScriptExecutor) DispatchEvent(el *dom.Element, eventType string, init dom.EventInit) bool {
	return el.AsNode().DispatchEvent(dom.NewEvent(eventType, init))
}

// Cleanup closes the delegator and clears caches and recorded errors.
func (se *ScriptExecutor) Cleanup() {
	if se.delegator != nil {
		se.delegator.Close()
		se.delegator = nil
	}
	se.domBinder.ClearCache()
	se.runtime.ClearErrors()
}
