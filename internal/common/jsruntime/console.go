package jsruntime

import (
	"bytes"
	"strings"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"github.com/tansive/jsbridge/internal/common/apperrors"
)

// ConsoleKind identifies which console method produced a message.
type ConsoleKind uint32

const (
	ConsoleAssert ConsoleKind = iota + 1
	ConsoleLog
	ConsoleDebug
	ConsoleTrace
	ConsoleInfo
	ConsoleWarn
	ConsoleError
	ConsoleException
	ConsoleDir
)

// ConsoleFunc receives every console message. msg is only valid for the duration of the
// call; copy it to keep it.
type ConsoleFunc func(udata any, kind ConsoleKind, msg []byte)

type consoleEntry struct {
	name      string
	kind      ConsoleKind
	errorName string
	level     zerolog.Level
}

// consoleEntries is the dispatch table, indexed by kind-1.
var consoleEntries = [...]consoleEntry{
	{"assert", ConsoleAssert, "AssertionError", zerolog.ErrorLevel},
	{"log", ConsoleLog, "", zerolog.DebugLevel},
	{"debug", ConsoleDebug, "", zerolog.DebugLevel},
	{"trace", ConsoleTrace, "Trace", zerolog.TraceLevel},
	{"info", ConsoleInfo, "", zerolog.InfoLevel},
	{"warn", ConsoleWarn, "", zerolog.WarnLevel},
	{"error", ConsoleError, "Error", zerolog.ErrorLevel},
	{"exception", ConsoleException, "Error", zerolog.ErrorLevel},
	{"dir", ConsoleDir, "", zerolog.DebugLevel},
}

// ParseConsoleKind maps a numeric kind back to a ConsoleKind. Unknown values read as log.
func ParseConsoleKind(v uint32) ConsoleKind {
	k := ConsoleKind(v)
	if k < ConsoleAssert || k > ConsoleDir {
		return ConsoleLog
	}
	return k
}

func (k ConsoleKind) entry() consoleEntry {
	return consoleEntries[ParseConsoleKind(uint32(k))-1]
}

func (k ConsoleKind) String() string {
	return k.entry().name
}

// ErrorName is the synthetic error name prefixed to the message, empty for plain kinds.
func (k ConsoleKind) ErrorName() string {
	return k.entry().errorName
}

func (k ConsoleKind) Level() zerolog.Level {
	return k.entry().level
}

// LoggerConsole returns a console callback writing every message to logger at the
// level of its kind.
func LoggerConsole(logger zerolog.Logger) ConsoleFunc {
	return func(_ any, kind ConsoleKind, msg []byte) {
		logger.WithLevel(kind.Level()).Str("kind", kind.String()).Msg("JS: " + string(msg))
	}
}

// Console is the bridge between the script visible console object and the host callback.
type Console struct {
	ctx        *Context
	callback   ConsoleFunc
	object     *goja.Object
	intrinsics intrinsics
}

// InstallConsole creates the console object on c, publishes it as the global console
// (replacing any previous binding) and routes its output to cb.
func InstallConsole(c *Context, cb ConsoleFunc) (*Console, apperrors.Error) {
	if c.vm == nil {
		return nil, ErrContextClosed
	}
	if cb == nil {
		return nil, ErrInvalidConsoleCallback
	}
	vm := c.vm
	con := &Console{
		ctx:        c,
		callback:   cb,
		object:     vm.NewObject(),
		intrinsics: c.intrinsics,
	}

	format := vm.ToValue(con.defaultFormat).(*goja.Object)
	if err := setFunctionName(vm, format, "format"); err != nil {
		return nil, ErrJSExecutionError.Msg("unable to install console.format").Err(err)
	}
	if err := con.object.Set("format", format); err != nil {
		return nil, ErrJSExecutionError.Msg("unable to install console.format").Err(err)
	}

	for _, e := range consoleEntries {
		fn := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return con.invoke(e, call.Arguments)
		}).(*goja.Object)
		if err := setFunctionName(vm, fn, e.name); err != nil {
			return nil, ErrJSExecutionError.Msg("unable to install console." + e.name).Err(err)
		}
		if err := con.object.Set(e.name, fn); err != nil {
			return nil, ErrJSExecutionError.Msg("unable to install console." + e.name).Err(err)
		}
	}

	if err := vm.Set("console", con.object); err != nil {
		return nil, ErrJSExecutionError.Msg("unable to publish console").Err(err)
	}
	c.console = con
	return con, nil
}

// Object returns the script visible console object.
func (con *Console) Object() *goja.Object {
	return con.object
}

func (con *Console) invoke(e consoleEntry, args []goja.Value) goja.Value {
	if e.kind == ConsoleAssert {
		if len(args) > 0 && args[0].ToBoolean() {
			return goja.Undefined()
		}
		if len(args) > 0 {
			args = args[1:]
		}
	}
	con.emit(e.kind, e.errorName, args)
	return goja.Undefined()
}

// emit formats args and hands the result to the host callback.
func (con *Console) emit(kind ConsoleKind, errorName string, args []goja.Value) {
	c := con.ctx
	if con.callback == nil {
		c.fatal("console callback missing")
	}
	vm := c.vm

	values := make([]goja.Value, len(args))
	copy(values, args)
	var format goja.Callable
	for i, v := range values {
		if _, ok := v.(*goja.Object); !ok {
			continue
		}
		if format == nil {
			format = con.formatFunc()
		}
		res, err := format(goja.Undefined(), v)
		if err != nil {
			rethrow(vm, err)
		}
		values[i] = res
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = con.intrinsics.display(v)
	}
	joined := strings.Join(parts, " ")

	pieces := []string{joined}
	if errorName != "" {
		pieces = con.errorStack(errorName, joined)
	}

	buf := heapBuffer{h: c.heap}
	defer buf.release()
	for _, p := range pieces {
		if !buf.WriteString(p) {
			panic(con.newRangeError("alloc failed"))
		}
	}
	con.callback(c.heap.udata, kind, buf.Bytes())
}

func (con *Console) formatFunc() goja.Callable {
	vm := con.ctx.vm
	fn, ok := goja.AssertFunction(con.object.Get("format"))
	if !ok {
		panic(vm.NewTypeError("console.format is not a function"))
	}
	return fn
}

// errorStack renders an Error named name carrying message, followed by the current
// call stack, one "at" line per frame.
func (con *Console) errorStack(name, message string) []string {
	vm := con.ctx.vm
	errObj, err := vm.New(con.intrinsics.errorCtor, vm.ToValue(message))
	if err != nil {
		rethrow(vm, err)
	}
	if err := errObj.DefineDataProperty("name", vm.ToValue(name), goja.FLAG_TRUE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
		rethrow(vm, err)
	}

	pieces := []string{errObj.String()}
	var b bytes.Buffer
	for _, frame := range vm.CaptureCallStack(0, nil) {
		b.Reset()
		b.WriteString("\n    at ")
		frame.Write(&b)
		pieces = append(pieces, b.String())
	}
	return pieces
}

func (con *Console) defaultFormat(call goja.FunctionCall) goja.Value {
	vm := con.ctx.vm
	v := call.Argument(0)
	s, err := encodeValue(vm, v, con.intrinsics.display)
	if err != nil {
		return vm.ToValue(coerceString(vm, v, con.intrinsics.display))
	}
	return vm.ToValue(s)
}

// coerceString is String(v) that never throws.
func coerceString(vm *goja.Runtime, v goja.Value, display func(goja.Value) string) string {
	var s string
	if ex := vm.Try(func() { s = display(v) }); ex != nil {
		if obj, ok := v.(*goja.Object); ok {
			return "[object " + obj.ClassName() + "]"
		}
		return "[object Object]"
	}
	return s
}

func rethrow(vm *goja.Runtime, err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex.Value())
	}
	panic(vm.NewGoError(err))
}

func (con *Console) newRangeError(msg string) goja.Value {
	vm := con.ctx.vm
	obj, err := vm.New(con.intrinsics.rangeErrorCtor, vm.ToValue(msg))
	if err != nil {
		return vm.NewTypeError(msg)
	}
	return obj
}
