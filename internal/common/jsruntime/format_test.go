package jsruntime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultFormat(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"plain object", `({a: 1, b: "x"})`, `{a:1,b:"x"}`},
		{"array", `[1, 2, 3]`, `[1,2,3]`},
		{"nested", `({a: [1, {b: null}]})`, `{a:[1,{b:null}]}`},
		{"empty containers", `[{}, []]`, `[{},[]]`},
		{"quoted key", `({"foo-bar": 1, "1x": 2})`, `{"foo-bar":1,"1x":2}`},
		{"undefined member", `({u: undefined})`, `{u:undefined}`},
		{"special numbers", `({n: NaN, i: -Infinity, p: Infinity, f: 1.5})`, `{n:NaN,i:-Infinity,p:Infinity,f:1.5}`},
		{"escaped string", `({s: "q\"uote"})`, `{s:"q\"uote"}`},
		{"function", `(function named() {})`, `{_func:true}`},
		{"function member", `({f: function() {}})`, `{f:{_func:true}}`},
		{"boxed number", `new Number(5)`, `5`},
		{"boxed string", `new String("s")`, `"s"`},
		{"error member", `({e: new Error("boom")})`, `{e:"Error: boom"}`},
		{"symbol member", `({k: Symbol("d"), e: Symbol()})`, `{k:Symbol(d),e:Symbol()}`},
		{"array buffer", `new Uint8Array([1, 2, 255]).buffer`, `|0102ff|`},
		{"shared but not cyclic", `(function() { var x = {v: 1}; return {a: x, b: x}; })()`, `{a:{v:1},b:{v:1}}`},
		{"cyclic falls back to String", `(function() { var o = {}; o.self = o; return o; })()`, `[object Object]`},
		{"cyclic with custom toString", `(function() { var o = {toString: function() { return "custom"; }}; o.self = o; return o; })()`, `custom`},
		{"cyclic with throwing toString", `(function() { var o = {toString: function() { throw new Error("no"); }}; o.self = o; return o; })()`, `[object Object]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, r := newTestContext(t)
			mustEval(t, c, `console.log(`+tt.expr+`)`)
			require.Len(t, r.records, 1)
			if diff := cmp.Diff(tt.want, r.records[0].msg); diff != "" {
				t.Errorf("formatted output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefaultFormat_MixedArguments(t *testing.T) {
	c, r := newTestContext(t)
	mustEval(t, c, `console.log("x", {a: 1}, 2, [true])`)
	require.Len(t, r.records, 1)
	if diff := cmp.Diff(`x {a:1} 2 [true]`, r.records[0].msg); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultFormat_DepthLimit(t *testing.T) {
	c, r := newTestContext(t)
	mustEval(t, c, `var d = []; for (var i = 0; i < 100; i++) d = [d]; console.log(d)`)
	require.Len(t, r.records, 1)
	// String([[[]]]) flattens to the empty string
	if diff := cmp.Diff("", r.records[0].msg); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestIsIdentifier(t *testing.T) {
	for key, want := range map[string]bool{
		"a": true, "_x1": true, "$": true, "camelCase": true,
		"": false, "1a": false, "foo-bar": false, "a b": false, "é": false,
	} {
		if got := isIdentifier(key); got != want {
			t.Errorf("isIdentifier(%q) = %v, want %v", key, got, want)
		}
	}
}
