package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/jsbridge/internal/common/jsruntime"
)

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

func executeCmd(t *testing.T, stdin string, args ...string) cmdResult {
	t.Helper()
	color.NoColor = true
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cmdResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCmd(t *testing.T) {
	res := executeCmd(t, "", "version")
	require.NoError(t, res.err)
	assert.Equal(t, "jsbridge "+jsruntime.VersionInfo()+"\n", res.stdout)

	res = executeCmd(t, "", "version", "--json")
	require.NoError(t, res.err)
	var v map[string]any
	require.NoError(t, json.UnmarshalFromString(res.stdout, &v))
	assert.Equal(t, "master", v["git_branch"])
	assert.Equal(t, jsruntime.GitDescribe(), v["git_describe"])
	assert.Contains(t, v, "version")
}

func TestEvalCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{name: "number", args: []string{"eval", "1 + 2"}, want: "3\n"},
		{name: "string", args: []string{"eval", `"a" + "b"`}, want: "ab\n"},
		{name: "object", args: []string{"eval", `({a: [1, 2]})`}, want: `{"a":[1,2]}` + "\n"},
		{name: "undefined", args: []string{"eval", "undefined"}, want: "undefined\n"},
		{name: "query", args: []string{"eval", `({user: {name: "alice"}})`, "--query", "user.name"}, want: "alice\n"},
		{name: "query array", args: []string{"eval", `[{n: 1}, {n: 2}]`, "-q", "#.n"}, want: "[1,2]\n"},
		{name: "json", args: []string{"eval", "40 + 2", "--json"}, want: "{\n  \"result\": 42\n}\n"},
		{name: "console and result", args: []string{"eval", `console.log("hi", 1); 2`}, want: "hi 1\n2\n"},
		{name: "query misses", args: []string{"eval", `({a: 1})`, "--query", "b"}, wantErr: `query "b" matched nothing`},
		{name: "throws", args: []string{"eval", `throw new Error("boom")`}, wantErr: "boom"},
		{name: "syntax error", args: []string{"eval", `1 +`}, wantErr: "unexpected"},
		{name: "timeout", args: []string{"eval", "for(;;){}", "--timeout", "50ms"}, wantErr: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := executeCmd(t, "", tt.args...)
			if tt.wantErr != "" {
				require.Error(t, res.err)
				assert.Contains(t, strings.ToLower(res.err.Error()), strings.ToLower(tt.wantErr))
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func TestRunCmd(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib.js", `var greet = function (n) { return "hi " + n; };`)
	mainJS := writeFile(t, dir, "main.js", `console.log(greet(args.user.name), args.user.age + 1);`)

	t.Run("shared context with args", func(t *testing.T) {
		res := executeCmd(t, "", "run", lib, mainJS, "--arg", "user.name=alice", "--arg", "user.age=41")
		require.NoError(t, res.err)
		assert.Equal(t, "hi alice 42\n", res.stdout)
	})

	t.Run("stdin", func(t *testing.T) {
		res := executeCmd(t, `console.info("from stdin")`, "run", "-")
		require.NoError(t, res.err)
		assert.Equal(t, "from stdin\n", res.stdout)
	})

	t.Run("json status", func(t *testing.T) {
		res := executeCmd(t, "", "run", lib, "--json")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, `"status": "ok"`)
	})

	t.Run("uncaught error names the file", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.js", `throw new TypeError("nope")`)
		res := executeCmd(t, "", "run", bad)
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "bad.js")
		assert.Contains(t, res.err.Error(), "nope")
	})

	t.Run("missing file", func(t *testing.T) {
		res := executeCmd(t, "", "run", filepath.Join(dir, "missing.js"))
		assert.Error(t, res.err)
	})

	t.Run("bad arg", func(t *testing.T) {
		res := executeCmd(t, "", "run", lib, "--arg", "novalue")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "key.path=value")
	})

	t.Run("needs a file", func(t *testing.T) {
		res := executeCmd(t, "", "run")
		assert.Error(t, res.err)
	})
}

func TestConsoleConfiguration(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "warn.js", `console.warn("careful"); console.log("plain");`)

	t.Run("stderr with labels", func(t *testing.T) {
		cfg := writeFile(t, dir, "stderr.yaml", "console:\n  output: stderr\n  labels: true\n")
		res := executeCmd(t, "", "--config", cfg, "run", script)
		require.NoError(t, res.err)
		assert.Empty(t, res.stdout)
		assert.Contains(t, res.stderr, "[Warn] careful\n")
		assert.Contains(t, res.stderr, "[Log] plain\n")
	})

	t.Run("log output", func(t *testing.T) {
		cfg := writeFile(t, dir, "log.toml", "log_level = \"debug\"\n[console]\noutput = \"log\"\n")
		res := executeCmd(t, "", "--config", cfg, "run", script)
		require.NoError(t, res.err)
		assert.Empty(t, res.stdout)
		assert.Contains(t, res.stderr, "JS: careful")
		assert.Contains(t, res.stderr, `"kind":"warn"`)
	})

	t.Run("heap limit", func(t *testing.T) {
		cfg := writeFile(t, dir, "heap.toml", "[heap]\nlimit_bytes = 300\n")
		big := writeFile(t, dir, "big.js", `console.log("x".repeat(100));`)
		res := executeCmd(t, "", "--config", cfg, "run", big)
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "alloc failed")
	})

	t.Run("require from global folder", func(t *testing.T) {
		modDir := filepath.Join(dir, "modules")
		require.NoError(t, os.MkdirAll(modDir, 0755))
		writeFile(t, modDir, "double.js", `module.exports = function (n) { return n * 2; };`)
		cfg := writeFile(t, dir, "require.yaml", "require:\n  enabled: true\n  global_folders:\n    - "+modDir+"\n")
		res := executeCmd(t, "", "--config", cfg, "eval", `require("double")(21)`)
		require.NoError(t, res.err)
		assert.Equal(t, "42\n", res.stdout)
	})

	t.Run("invalid log level flag", func(t *testing.T) {
		res := executeCmd(t, "", "--log-level", "loud", "version")
		assert.Error(t, res.err)
	})

	t.Run("missing config file", func(t *testing.T) {
		res := executeCmd(t, "", "--config", filepath.Join(dir, "nope.toml"), "version")
		assert.Error(t, res.err)
	})
}

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    string
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: `{}`},
		{name: "string", pairs: []string{"name=alice"}, want: `{"name":"alice"}`},
		{name: "nested json values", pairs: []string{"user.age=42", "user.admin=true", "tags=[\"a\"]"}, want: `{"user":{"age":42,"admin":true},"tags":["a"]}`},
		{name: "value with equals", pairs: []string{"expr=a=b"}, want: `{"expr":"a=b"}`},
		{name: "missing value", pairs: []string{"name"}, wantErr: true},
		{name: "missing key", pairs: []string{"=1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildArgs(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestConsolePrinter(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	p := &consolePrinter{out: &buf, color: true, labels: true}
	p.print(nil, jsruntime.ConsoleTrace, []byte("Trace: here\n    at foo"))
	assert.Equal(t, "[Trace] Trace: here\n            at foo\n", buf.String())

	buf.Reset()
	p.labels = false
	p.print(nil, jsruntime.ConsoleError, []byte("Error: bad"))
	assert.Equal(t, "Error: bad\n", buf.String())
}
