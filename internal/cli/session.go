package cli

import (
	"context"
	"io"
	"os"

	"github.com/dop251/goja_nodejs/require"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tansive/jsbridge/internal/common/jsruntime"
	"github.com/tansive/jsbridge/internal/common/logtrace"
	"github.com/tansive/jsbridge/internal/config"
)

// scriptSession is one interpreter context configured for a command invocation
type scriptSession struct {
	ctx    context.Context
	js     *jsruntime.Context
	budget *jsruntime.BudgetAllocator
	opts   jsruntime.Options
}

func newScriptSession(cmd *cobra.Command, cfg *config.ConfigParam) (*scriptSession, error) {
	var console jsruntime.ConsoleFunc
	switch cfg.Console.Output {
	case "log":
		console = jsruntime.LoggerConsole(log.Logger)
	case "stderr":
		console = (&consolePrinter{out: cmd.ErrOrStderr(), color: cfg.Console.Color, labels: cfg.Console.Labels}).print
	default:
		console = (&consolePrinter{out: cmd.OutOrStdout(), color: cfg.Console.Color, labels: cfg.Console.Labels}).print
	}

	fatal := func(_ any, msg string) {
		log.Error().Str("reason", msg).Msg("interpreter fatal error")
	}

	s := &scriptSession{
		opts: jsruntime.Options{Timeout: cfg.GetTimeout()},
	}
	var (
		js  *jsruntime.Context
		err error
	)
	if cfg.Heap.LimitBytes > 0 {
		s.budget = &jsruntime.BudgetAllocator{Limit: cfg.Heap.LimitBytes}
		js, err = jsruntime.CreateHeap(s.budget.HeapConfig(nil, fatal), console)
	} else {
		js, err = jsruntime.CreateContext(nil, fatal, console)
	}
	if err != nil {
		return nil, err
	}
	s.js = js

	if cfg.Require.Enabled {
		var opts []require.Option
		if len(cfg.Require.GlobalFolders) > 0 {
			opts = append(opts, require.WithGlobalFolders(cfg.Require.GlobalFolders...))
		}
		if err := js.EnableRequire(opts...); err != nil {
			js.Close()
			return nil, err
		}
	}

	s.ctx = logtrace.WithContextID(cmd.Context(), js.ID())
	return s, nil
}

// guard runs f and turns a fatal interpreter error into a returned error
func (s *scriptSession) guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*jsruntime.FatalError)
			if !ok {
				panic(r)
			}
			err = errors.WithStack(fe)
		}
	}()
	return f()
}

func (s *scriptSession) close() {
	logger := logtrace.Logger(s.ctx)
	logger.Debug().Msg("closing script session")
	s.js.Close()
	if s.budget != nil && s.budget.Used() != 0 {
		logger.Warn().Int("bytes", s.budget.Used()).Msg("heap memory not returned")
	}
}

func readScript(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}
