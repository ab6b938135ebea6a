package jsruntime

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
)

const maxFormatDepth = 64

var (
	errCyclicValue = errors.New("cyclic value")
	errTooDeep     = errors.New("value nested too deeply")
)

var formatAPI = jsoniter.Config{EscapeHTML: false}.Froze()

var arrayBufferType = reflect.TypeOf(goja.ArrayBuffer{})

// encodeValue renders v in an extended JSON notation that keeps script types visible:
// undefined, NaN and Infinity are written bare, functions as {_func:true} and
// ArrayBuffers as |hex|. Identifier keys are left unquoted.
// Exceptions thrown by getters, proxies or toString are returned as errors.
func encodeValue(vm *goja.Runtime, v goja.Value, display func(goja.Value) string) (out string, err error) {
	stream := formatAPI.BorrowStream(nil)
	defer formatAPI.ReturnStream(stream)

	e := &valueEncoder{stream: stream, active: map[*goja.Object]struct{}{}, display: display}
	if ex := vm.Try(func() { err = e.encode(v, 0) }); ex != nil {
		return "", fmt.Errorf("encode: %w", ex)
	}
	if err != nil {
		return "", err
	}
	if stream.Error != nil {
		return "", stream.Error
	}
	return string(stream.Buffer()), nil
}

type valueEncoder struct {
	stream  *jsoniter.Stream
	active  map[*goja.Object]struct{}
	display func(goja.Value) string
}

func (e *valueEncoder) encode(v goja.Value, depth int) error {
	s := e.stream
	switch {
	case v == nil || goja.IsUndefined(v):
		s.WriteRaw("undefined")
		return nil
	case goja.IsNull(v):
		s.WriteNil()
		return nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		e.encodePrimitive(v)
		return nil
	}

	if depth >= maxFormatDepth {
		return errTooDeep
	}
	if _, seen := e.active[obj]; seen {
		return errCyclicValue
	}
	e.active[obj] = struct{}{}
	defer delete(e.active, obj)

	if _, isFunc := goja.AssertFunction(obj); isFunc {
		s.WriteRaw("{_func:true}")
		return nil
	}

	if obj.ExportType() == arrayBufferType {
		if ab, ok := obj.Export().(goja.ArrayBuffer); ok {
			s.WriteRaw("|" + hex.EncodeToString(ab.Bytes()) + "|")
			return nil
		}
	}

	switch obj.ClassName() {
	case "Array":
		return e.encodeArray(obj, depth)
	case "String":
		s.WriteString(obj.String())
		return nil
	case "Number", "Boolean":
		s.WriteRaw(obj.String())
		return nil
	case "Date", "RegExp", "Error":
		s.WriteString(obj.String())
		return nil
	}
	return e.encodeObject(obj, depth)
}

func (e *valueEncoder) encodePrimitive(v goja.Value) {
	s := e.stream
	switch x := v.Export().(type) {
	case bool:
		s.WriteBool(x)
	case int64:
		s.WriteInt64(x)
	case float64:
		switch {
		case math.IsNaN(x):
			s.WriteRaw("NaN")
		case math.IsInf(x, 1):
			s.WriteRaw("Infinity")
		case math.IsInf(x, -1):
			s.WriteRaw("-Infinity")
		default:
			s.WriteRaw(v.String())
		}
	case string:
		s.WriteString(x)
	default:
		// symbols and bigints
		s.WriteRaw(e.display(v))
	}
}

func (e *valueEncoder) encodeArray(arr *goja.Object, depth int) error {
	s := e.stream
	n := arr.Get("length").ToInteger()
	s.WriteArrayStart()
	for i := int64(0); i < n; i++ {
		if i > 0 {
			s.WriteMore()
		}
		if err := e.encode(arr.Get(strconv.FormatInt(i, 10)), depth+1); err != nil {
			return err
		}
	}
	s.WriteArrayEnd()
	return nil
}

func (e *valueEncoder) encodeObject(obj *goja.Object, depth int) error {
	s := e.stream
	s.WriteObjectStart()
	for i, key := range obj.Keys() {
		if i > 0 {
			s.WriteMore()
		}
		if isIdentifier(key) {
			s.WriteRaw(key)
		} else {
			s.WriteString(key)
		}
		s.WriteRaw(":")
		if err := e.encode(obj.Get(key), depth+1); err != nil {
			return err
		}
	}
	s.WriteObjectEnd()
	return nil
}

func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
