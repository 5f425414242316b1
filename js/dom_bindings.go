package js

import (
	"github.com/dop251/goja"

	"github.com/chrisuehlinger/eventdelegator/dom"
)

// DOMBinder exposes a dom.Document to scripts. Each element is wrapped in a
// single JS object, so scripts can compare handles with ===.
type DOMBinder struct {
	runtime    *Runtime
	document   *dom.Document
	elementMap map[*dom.Element]*goja.Object
}

// NewDOMBinder creates a new DOM binder for the given runtime.
func NewDOMBinder(runtime *Runtime) *DOMBinder {
	return &DOMBinder{
		runtime:    runtime,
		elementMap: make(map[*dom.Element]*goja.Object),
	}
}

// BindDocument installs doc as the global "document".
func (b *DOMBinder) BindDocument(doc *dom.Document) *goja.Object {
	vm := b.runtime.vm
	b.document = doc
	jsDoc := vm.NewObject()
	jsDoc.Set("_goDoc", doc)

	jsDoc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Null()
		}
		return b.elementValue(doc.GetElementById(call.Arguments[0].String()))
	})
	jsDoc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.NewTypeError("createElement requires a tag name"))
		}
		el, err := doc.CreateElementWithError(call.Arguments[0].String())
		if err != nil {
			b.throwDOMError(err)
		}
		return b.BindElement(el)
	})
	jsDoc.DefineAccessorProperty("head", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.elementValue(doc.Head())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	jsDoc.DefineAccessorProperty("body", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.elementValue(doc.Body())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	jsDoc.DefineAccessorProperty("contentType", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(doc.ContentType())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	jsDoc.DefineAccessorProperty("URL", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(doc.URL())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	jsDoc.DefineAccessorProperty("documentElement", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.elementValue(doc.DocumentElement())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	vm.Set("document", jsDoc)
	return jsDoc
}

// BindElement returns the cached JS handle for el, creating it on first use.
func (b *DOMBinder) BindElement(el *dom.Element) *goja.Object {
	if obj, ok := b.elementMap[el]; ok {
		return obj
	}

	vm := b.runtime.vm
	obj := vm.NewObject()
	obj.Set("_goElement", el)
	b.elementMap[el] = obj

	getter := func(fn func() goja.Value) goja.Value {
		return vm.ToValue(func(goja.FunctionCall) goja.Value { return fn() })
	}
	obj.DefineAccessorProperty("id", getter(func() goja.Value {
		return vm.ToValue(el.Id())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("tagName", getter(func() goja.Value {
		return vm.ToValue(el.TagName())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("parentElement", getter(func() goja.Value {
		return b.elementValue(el.ParentElement())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("isConnected", getter(func() goja.Value {
		return vm.ToValue(el.AsNode().IsConnected())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	obj.DefineAccessorProperty("textContent", getter(func() goja.Value {
		return vm.ToValue(el.TextContent())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if !el.HasAttribute(name) {
			return goja.Null()
		}
		return vm.ToValue(el.GetAttribute(name))
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		if err := el.SetAttributeWithError(call.Argument(0).String(), call.Argument(1).String()); err != nil {
			b.throwDOMError(err)
		}
		return goja.Undefined()
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.getGoElement(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild requires an element"))
		}
		if _, err := el.AsNode().AppendChildWithError(child.AsNode()); err != nil {
			b.throwDOMError(err)
		}
		return call.Argument(0)
	})
	obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		if parent := el.AsNode().ParentNode(); parent != nil {
			parent.RemoveChild(el.AsNode())
		}
		return goja.Undefined()
	})
	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		evt := dom.NewEvent(call.Argument(0).String(), eventInitFromJS(vm, call.Argument(1)))
		ok, err := el.AsNode().DispatchEventWithError(evt)
		if err != nil {
			b.throwDOMError(err)
		}
		return vm.ToValue(ok)
	})

	return obj
}

func (b *DOMBinder) elementValue(el *dom.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	return b.BindElement(el)
}

// getGoElement extracts the Go *dom.Element from a JavaScript handle.
func (b *DOMBinder) getGoElement(v goja.Value) *dom.Element {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if ev := obj.Get("_goElement"); ev != nil {
		if el, ok := ev.Export().(*dom.Element); ok {
			return el
		}
	}
	return nil
}

// bindEvent creates the read-only view of an event handed to script handlers.
func (b *DOMBinder) bindEvent(evt *dom.Event) *goja.Object {
	vm := b.runtime.vm
	obj := vm.NewObject()
	obj.Set("type", evt.Type)
	obj.Set("target", b.elementValue(evt.TargetElement()))
	obj.Set("bubbles", evt.Bubbles)
	obj.Set("cancelable", evt.Cancelable)
	obj.Set("timeStamp", evt.TimeStamp)
	obj.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		evt.PreventDefault()
		return goja.Undefined()
	})
	obj.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		evt.StopPropagation()
		return goja.Undefined()
	})
	return obj
}

// throwDOMError raises err in the script. DOM errors become DOMException-like
// objects carrying name, message and the legacy code.
func (b *DOMBinder) throwDOMError(err error) {
	vm := b.runtime.vm
	domErr, ok := err.(*dom.DOMError)
	if !ok {
		panic(vm.NewGoError(err))
	}
	exc := vm.NewObject()
	exc.Set("name", domErr.Name)
	exc.Set("message", domErr.Message)
	exc.Set("code", domExceptionCode(domErr.Name))
	panic(vm.ToValue(exc))
}

// domExceptionCode returns the legacy exception code for a DOMException name.
func domExceptionCode(name string) int {
	switch name {
	case "HierarchyRequestError":
		return 3
	case "InvalidCharacterError":
		return 5
	case "NotFoundError":
		return 8
	case "InvalidStateError":
		return 11
	}
	return 0
}

// ClearCache clears the element handle cache.
func (b *DOMBinder) ClearCache() {
	b.elementMap = make(map[*dom.Element]*goja.Object)
}

// eventInitFromJS reads an EventInit dictionary. Missing members keep their
// zero value; a non-object argument yields the zero EventInit.
func eventInitFromJS(vm *goja.Runtime, v goja.Value) dom.EventInit {
	var init dom.EventInit
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return init
	}
	obj := v.ToObject(vm)

	boolean := func(name string, dst *bool) {
		if p := obj.Get(name); p != nil && !goja.IsUndefined(p) {
			*dst = p.ToBoolean()
		}
	}
	number := func(name string, dst *float64) {
		if p := obj.Get(name); p != nil && !goja.IsUndefined(p) {
			*dst = p.ToFloat()
		}
	}
	integer := func(name string, dst *int) {
		if p := obj.Get(name); p != nil && !goja.IsUndefined(p) {
			*dst = int(p.ToInteger())
		}
	}
	str := func(name string, dst *string) {
		if p := obj.Get(name); p != nil && !goja.IsUndefined(p) {
			*dst = p.String()
		}
	}

	boolean("bubbles", &init.Bubbles)
	boolean("cancelable", &init.Cancelable)
	number("screenX", &init.ScreenX)
	number("screenY", &init.ScreenY)
	number("clientX", &init.ClientX)
	number("clientY", &init.ClientY)
	number("offsetX", &init.OffsetX)
	number("offsetY", &init.OffsetY)
	integer("button", &init.Button)
	integer("buttons", &init.Buttons)
	str("key", &init.Key)
	str("code", &init.Code)
	integer("location", &init.Location)
	boolean("repeat", &init.Repeat)
	boolean("altKey", &init.AltKey)
	boolean("ctrlKey", &init.CtrlKey)
	boolean("shiftKey", &init.ShiftKey)
	boolean("metaKey", &init.MetaKey)
	if p := obj.Get("detail"); p != nil && !goja.IsUndefined(p) {
		init.Detail = p.Export()
	}
	return init
}
