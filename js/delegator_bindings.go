package js

import (
	"github.com/dop251/goja"

	"github.com/chrisuehlinger/eventdelegator/delegator"
	"github.com/chrisuehlinger/eventdelegator/dom"
	"github.com/chrisuehlinger/eventdelegator/eventargs"
)

// DelegatorBinder installs the global "delegator" object:
//
//	delegator.onDispatch(function (componentId, handlerId, args, event) { ... })
//	delegator.setListener(element, "click", componentId, handlerId)
//	delegator.removeListener(handlerId)
//
// Dispatch is the delegator.Dispatcher that forwards matches to the function
// registered with onDispatch.
type DelegatorBinder struct {
	runtime   *Runtime
	dom       *DOMBinder
	delegator *delegator.Delegator
	handler   goja.Callable
}

// NewDelegatorBinder creates a binder that resolves element handles through domBinder.
func NewDelegatorBinder(runtime *Runtime, domBinder *DOMBinder) *DelegatorBinder {
	return &DelegatorBinder{
		runtime: runtime,
		dom:     domBinder,
	}
}

// Bind exposes d to scripts as the global "delegator".
func (b *DelegatorBinder) Bind(d *delegator.Delegator) *goja.Object {
	vm := b.runtime.vm
	b.delegator = d
	obj := vm.NewObject()

	obj.Set("onDispatch", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("onDispatch requires a function"))
		}
		b.handler = fn
		return goja.Undefined()
	})

	obj.Set("setListener", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 4 {
			panic(vm.NewTypeError("setListener requires element, eventName, componentId and handlerId"))
		}
		el := b.dom.getGoElement(call.Arguments[0])
		if el == nil {
			panic(vm.NewTypeError("setListener requires an element"))
		}
		b.delegator.SetListener(el, call.Arguments[1].String(),
			delegator.ComponentID(call.Arguments[2].ToInteger()),
			delegator.HandlerID(call.Arguments[3].ToInteger()))
		return goja.Undefined()
	})

	obj.Set("removeListener", func(call goja.FunctionCall) goja.Value {
		b.delegator.RemoveListener(delegator.HandlerID(call.Argument(0).ToInteger()))
		return goja.Undefined()
	})

	obj.Set("eventNames", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(b.delegator.EventNames())
	})

	vm.Set("delegator", obj)
	return obj
}

// Dispatch forwards one match to the script handler. Matches arriving before
// a handler is registered are dropped; errors thrown by the handler are
// recorded on the runtime and do not stop the ancestor walk.
func (b *DelegatorBinder) Dispatch(evt *dom.Event, componentID delegator.ComponentID, handlerID delegator.HandlerID, args eventargs.Args) {
	if b.handler == nil {
		b.runtime.logger.Debug("no dispatch handler for %d/%d", componentID, handlerID)
		return
	}

	vm := b.runtime.vm
	payload, err := args.Map()
	if err != nil {
		b.runtime.recordError(err)
		return
	}
	_, _ = b.runtime.call(b.handler,
		vm.ToValue(int64(componentID)),
		vm.ToValue(int64(handlerID)),
		vm.ToValue(payload),
		b.dom.bindEvent(evt),
	)
}
