package jsruntime

import "github.com/tansive/jsbridge/internal/common/apperrors"

var (
	ErrJSRuntime              = apperrors.New("js runtime error")
	ErrHeapCreation           = ErrJSRuntime.New("unable to create heap")
	ErrInvalidHeapConfig      = ErrJSRuntime.New("invalid heap configuration")
	ErrInvalidConsoleCallback = ErrJSRuntime.New("console callback is required")
	ErrContextClosed          = ErrJSRuntime.New("context is closed")
	ErrInvalidJSFunction      = ErrJSRuntime.New("invalid js function")
	ErrJSCompileError         = ErrJSRuntime.New("js compile error")
	ErrJSExecutionError       = ErrJSRuntime.New("js execution error")
	ErrJSRuntimeError         = ErrJSRuntime.New("js runtime exception")
	ErrJSRuntimeTimeout       = ErrJSRuntime.New("js execution timeout")
)
