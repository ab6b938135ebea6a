package jsruntime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
	"github.com/tansive/jsbridge/internal/common/apperrors"
)

const DefaultTimeout = 500 * time.Millisecond

// Options for controlling execution
type Options struct {
	Timeout time.Duration // max execution time; zero selects DefaultTimeout, negative disables it
}

func (o Options) timeout() time.Duration {
	if o.Timeout == 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// Compile parses src without running it.
func (c *Context) Compile(name, src string) (*goja.Program, apperrors.Error) {
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, ErrJSCompileError.Msg(err.Error()).Err(err)
	}
	return prg, nil
}

// Eval runs src as a script and returns its completion value.
func (c *Context) Eval(ctx context.Context, src string, opts Options) (goja.Value, apperrors.Error) {
	return c.EvalFile(ctx, "", src, opts)
}

// EvalFile is Eval with a file name used in stack traces.
func (c *Context) EvalFile(ctx context.Context, name, src string, opts Options) (goja.Value, apperrors.Error) {
	if c.vm == nil {
		return nil, ErrContextClosed
	}
	prg, cerr := c.Compile(name, src)
	if cerr != nil {
		return nil, cerr
	}
	var result goja.Value
	err := c.run(ctx, opts, func(vm *goja.Runtime) (err error) {
		result, err = vm.RunProgram(prg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Call invokes fn with args inside the context's execution budget.
func (c *Context) Call(ctx context.Context, fn goja.Callable, opts Options, args ...goja.Value) (goja.Value, apperrors.Error) {
	if c.vm == nil {
		return nil, ErrContextClosed
	}
	var result goja.Value
	err := c.run(ctx, opts, func(*goja.Runtime) (err error) {
		result, err = fn(goja.Undefined(), args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run executes f on the calling goroutine. A watcher interrupts the runtime when ctx is
// done or the timeout passes; it is joined before run returns so the interrupt flag can
// be cleared safely. A nested run, started by a host function re-entering the context,
// is also bounded by the enclosing run and leaves the runtime interrupted when the
// enclosing budget ran out while it was executing.
func (c *Context) run(ctx context.Context, opts Options, f func(*goja.Runtime) error) (rerr apperrors.Error) {
	vm := c.vm
	if d := opts.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	outer := c.runCtx
	if outer != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(outer, cancel)
		defer stop()
	}
	c.runCtx = ctx

	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			vm.Interrupt(ErrJSRuntimeTimeout)
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-watcherDone
		c.runCtx = outer
		vm.ClearInterrupt()
		// checked after clearing so a deadline passing in between is not lost
		if outer != nil && outer.Err() != nil {
			vm.Interrupt(ErrJSRuntimeTimeout)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				panic(fe)
			}
			rerr = ErrJSExecutionError.Err(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := f(vm); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) apperrors.Error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return ErrJSRuntimeTimeout.Err(err)
	}
	var jsErr *goja.Exception
	if errors.As(err, &jsErr) {
		return ErrJSRuntimeError.Msg(jsErr.Value().String()).Err(err)
	}
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return ErrJSCompileError.Msg(syntaxErr.Error()).Err(err)
	}
	return ErrJSExecutionError.Err(err)
}

// JSFunction is a validated function expression. Every run gets a fresh context built
// from the same heap configuration and console callback.
type JSFunction struct {
	code    string
	heap    HeapConfig
	console ConsoleFunc
}

// NewFunction creates a JSFunction from a JS function source string.
func NewFunction(cfg HeapConfig, console ConsoleFunc, jsCode string) (*JSFunction, apperrors.Error) {
	c, err := CreateHeap(cfg, console)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if _, err := c.compileFunction(jsCode); err != nil {
		return nil, err
	}
	return &JSFunction{
		code:    jsCode,
		heap:    cfg,
		console: console,
	}, nil
}

func (c *Context) compileFunction(jsCode string) (goja.Callable, apperrors.Error) {
	v, err := c.vm.RunString(fmt.Sprintf("(%s)", jsCode))
	if err != nil {
		return nil, ErrInvalidJSFunction.Err(err)
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, ErrInvalidJSFunction.Msg("script is not a function")
	}
	return fn, nil
}

// Run calls the function with JSON encoded arguments and returns its result as JSON.
func (j *JSFunction) Run(ctx context.Context, opts Options, args ...[]byte) ([]byte, apperrors.Error) {
	// New context per run to isolate memory
	c, err := CreateHeap(j.heap, j.console)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	fn, err := c.compileFunction(j.code)
	if err != nil {
		return nil, ErrJSExecutionError.Err(err)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, raw := range args {
		var obj any
		if err := jsoniter.Unmarshal(raw, &obj); err != nil {
			return nil, ErrJSExecutionError.Msg(fmt.Sprintf("invalid argument %d", i)).Err(err)
		}
		jsArgs[i] = c.vm.ToValue(obj)
	}

	result, err := c.Call(ctx, fn, opts, jsArgs...)
	if err != nil {
		return nil, err
	}

	var exported any
	if result != nil {
		exported = result.Export()
	}
	out, merr := jsoniter.Marshal(exported)
	if merr != nil {
		return nil, ErrJSExecutionError.Msg("failed to marshal result").Err(merr)
	}
	return out, nil
}
