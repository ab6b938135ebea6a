package jsruntime

import (
	"context"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/jsbridge/internal/common/apperrors"
	"github.com/tansive/jsbridge/internal/common/uuidv7utils"
)

// Context is one interpreter instance together with its heap, fatal handler and console.
// It is owned by a single host caller and is not safe for concurrent use. Host functions
// may re-enter the context they were called from.
type Context struct {
	id       uuid.UUID
	vm       *goja.Runtime
	heap     *heap
	fatalFn  FatalFunc
	console  *Console
	registry *require.Registry
	logger   zerolog.Logger

	intrinsics intrinsics
	// runCtx is the context of the innermost active run, nil when idle.
	runCtx context.Context
}

// intrinsics are built-ins captured before any script runs, so rebinding the
// globals from script does not affect the bridge.
type intrinsics struct {
	errorCtor      goja.Value
	rangeErrorCtor goja.Value
	toString       goja.Callable
}

func captureIntrinsics(vm *goja.Runtime) intrinsics {
	in := intrinsics{
		errorCtor:      vm.Get("Error"),
		rangeErrorCtor: vm.Get("RangeError"),
	}
	in.toString, _ = goja.AssertFunction(vm.Get("String"))
	return in
}

// display converts v with String(v) semantics. Symbols render as Symbol(desc).
func (in intrinsics) display(v goja.Value) string {
	if sym, ok := v.(*goja.Symbol); ok && in.toString != nil {
		if s, err := in.toString(goja.Undefined(), sym); err == nil {
			return s.String()
		}
	}
	return v.String()
}

// CreateContext creates a context with the default allocator. A nil console callback
// routes console output to the global logger.
func CreateContext(udata any, fatal FatalFunc, console ConsoleFunc) (*Context, apperrors.Error) {
	return CreateHeap(HeapConfig{UserData: udata, Fatal: fatal}, console)
}

// CreateHeap creates a context on the given heap configuration and installs the console
// bridge. It fails with ErrHeapCreation when the allocator cannot provide the heap.
func CreateHeap(cfg HeapConfig, console ConsoleFunc) (*Context, apperrors.Error) {
	h, err := newHeap(cfg)
	if err != nil {
		return nil, err
	}

	id := uuidv7utils.UUID7()
	vm := goja.New()
	c := &Context{
		id:         id,
		vm:         vm,
		heap:       h,
		fatalFn:    cfg.Fatal,
		logger:     log.With().Str("context_id", id.String()).Logger(),
		intrinsics: captureIntrinsics(vm),
	}
	if c.fatalFn == nil {
		c.fatalFn = defaultFatal
	}

	if console == nil {
		console = LoggerConsole(log.Logger)
	}
	if _, err := InstallConsole(c, console); err != nil {
		c.Close()
		return nil, err
	}

	c.logger.Debug().Msg("context created")
	return c, nil
}

func (c *Context) ID() string {
	return c.id.String()
}

// CreatedAt is the creation time recorded in the context ID.
func (c *Context) CreatedAt() time.Time {
	return uuidv7utils.Timestamp(c.id)
}

// Runtime exposes the underlying interpreter. It is nil once the context is closed.
func (c *Context) Runtime() *goja.Runtime {
	return c.vm
}

// Console returns the installed console bridge.
func (c *Context) Console() *Console {
	return c.console
}

// HeapUserData returns the user data supplied when the context was created.
func (c *Context) HeapUserData() any {
	return c.heap.udata
}

func (c *Context) Closed() bool {
	return c.vm == nil
}

// Close releases the heap. Calling Close more than once is harmless.
func (c *Context) Close() {
	if c.vm == nil {
		return
	}
	c.heap.destroy()
	c.vm = nil
	c.registry = nil
	c.logger.Debug().Msg("context closed")
}

// fatal reports an unrecoverable error through the host handler and never returns.
func (c *Context) fatal(msg string) {
	c.logger.Error().Str("reason", msg).Msg("fatal error")
	c.fatalFn(c.heap.udata, msg)
	panic(&FatalError{Msg: msg})
}

// RegisterFunction publishes fn as a global function called name.
func (c *Context) RegisterFunction(name string, fn func(call goja.FunctionCall) goja.Value) apperrors.Error {
	if c.vm == nil {
		return ErrContextClosed
	}
	obj := c.vm.ToValue(fn).(*goja.Object)
	if err := setFunctionName(c.vm, obj, name); err != nil {
		return ErrJSExecutionError.Msg("unable to name function " + name).Err(err)
	}
	if err := c.vm.Set(name, obj); err != nil {
		return ErrJSExecutionError.Msg("unable to register function " + name).Err(err)
	}
	return nil
}

// EnableRequire installs the CommonJS require function. Options only apply the first time.
func (c *Context) EnableRequire(opts ...require.Option) apperrors.Error {
	if c.vm == nil {
		return ErrContextClosed
	}
	if c.registry == nil {
		c.registry = require.NewRegistry(opts...)
		c.registry.Enable(c.vm)
	}
	return nil
}

// RegisterModule makes a native module available to require, enabling require if needed.
func (c *Context) RegisterModule(name string, loader require.ModuleLoader) apperrors.Error {
	if err := c.EnableRequire(); err != nil {
		return err
	}
	c.registry.RegisterNativeModule(name, loader)
	return nil
}

// Read exports a script value into the Go value pointed to by target.
func (c *Context) Read(v goja.Value, target any) apperrors.Error {
	if c.vm == nil {
		return ErrContextClosed
	}
	if err := c.vm.ExportTo(v, target); err != nil {
		return ErrJSExecutionError.Msg("unable to export value").Err(err)
	}
	return nil
}

// Write converts a Go value into a script value.
func (c *Context) Write(v any) goja.Value {
	return c.vm.ToValue(v)
}

// SetGlobal binds a Go value to a global name.
func (c *Context) SetGlobal(name string, v any) apperrors.Error {
	if c.vm == nil {
		return ErrContextClosed
	}
	if err := c.vm.Set(name, v); err != nil {
		return ErrJSExecutionError.Msg("unable to set global " + name).Err(err)
	}
	return nil
}

func setFunctionName(vm *goja.Runtime, fn *goja.Object, name string) error {
	return fn.DefineDataProperty("name", vm.ToValue(name), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
}
