// Package js lets scripts drive the event delegator. It uses the goja
// JavaScript engine (pure Go ES5.1+ implementation).
package js

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/chrisuehlinger/eventdelegator/log"
)

// Runtime wraps a goja JavaScript runtime with a console and error collection.
// A Runtime is not safe for concurrent use; callbacks into script code must
// run on the goroutine that drives the runtime.
type Runtime struct {
	vm      *goja.Runtime
	console *goja.Object
	logger  *log.Log

	mu      sync.Mutex // serializes Execute and ExecuteScript
	errMu   sync.Mutex
	errors  []error
	onError func(error)
}

// NewRuntime creates a new JavaScript runtime. Console output goes to a
// logger in the "js" namespace.
func NewRuntime() *Runtime {
	r := &Runtime{
		vm:     goja.New(),
		logger: log.NewLog("js"),
	}
	r.setupConsole()
	return r
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Logger returns the logger console output is written to.
func (r *Runtime) Logger() *log.Log {
	return r.logger
}

// SetOnError sets a callback for JavaScript errors.
func (r *Runtime) SetOnError(handler func(error)) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.onError = handler
}

// Execute runs JavaScript code and returns the result.
func (r *Runtime) Execute(code string) (result goja.Value, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Recover from panics in the goja parser/runtime
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("script execution panic: %v", p)
			r.recordError(err)
		}
	}()

	result, err = r.vm.RunString(code)
	if err != nil {
		r.recordError(err)
	}
	return result, err
}

// ExecuteScript compiles and runs code attributed to src in error messages.
// Scripts run in sloppy mode unless they opt into strict mode.
func (r *Runtime) ExecuteScript(code, src string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("script compilation panic in %s: %v", src, p)
			r.recordError(err)
		}
	}()

	program, err := goja.Compile(src, code, false)
	if err != nil {
		r.recordError(err)
		return err
	}

	_, err = r.vm.RunProgram(program)
	if err != nil {
		r.recordError(err)
	}
	return err
}

// call invokes a script function from Go, recording any thrown error.
func (r *Runtime) call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	result, err := fn(goja.Undefined(), args...)
	if err != nil {
		r.recordError(err)
	}
	return result, err
}

func (r *Runtime) recordError(err error) {
	r.errMu.Lock()
	r.errors = append(r.errors, err)
	onError := r.onError
	r.errMu.Unlock()

	if onError != nil {
		onError(err)
	}
}

// Errors returns all errors that occurred during execution.
func (r *Runtime) Errors() []error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return append([]error{}, r.errors...)
}

// ClearErrors clears the error list.
func (r *Runtime) ClearErrors() {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	r.errors = r.errors[:0]
}

// setupConsole creates the console object with log, warn, error, etc.
func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()

	console.Set("log", func(call goja.FunctionCall) goja.Value {
		r.logger.Info("%s", formatArgs(call.Arguments))
		return goja.Undefined()
	})
	console.Set("info", func(call goja.FunctionCall) goja.Value {
		r.logger.Info("%s", formatArgs(call.Arguments))
		return goja.Undefined()
	})
	console.Set("warn", func(call goja.FunctionCall) goja.Value {
		r.logger.Warning("%s", formatArgs(call.Arguments))
		return goja.Undefined()
	})
	console.Set("error", func(call goja.FunctionCall) goja.Value {
		r.logger.Error("%s", formatArgs(call.Arguments))
		return goja.Undefined()
	})
	console.Set("debug", func(call goja.FunctionCall) goja.Value {
		r.logger.Debug("%s", formatArgs(call.Arguments))
		return goja.Undefined()
	})

	r.console = console
	r.vm.Set("console", console)
}

// formatArgs joins console arguments the way browsers print them.
func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		if obj, ok := arg.(*goja.Object); ok && obj.ClassName() != "Function" {
			if b, err := obj.MarshalJSON(); err == nil {
				parts[i] = string(b)
				continue
			}
		}
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
