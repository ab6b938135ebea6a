package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tansive/jsbridge/internal/common/logtrace"
	"github.com/tansive/jsbridge/internal/config"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var argPairs []string
	cmd := &cobra.Command{
		Use:   "run <file>...",
		Short: "Run one or more script files in a single context",
		Long: `Run one or more script files, in order, in a single interpreter context.
Use "-" to read a script from standard input. Values passed with --arg are
available to every script through the global "args" object.

Examples:
  jsbridge run main.js
  jsbridge run lib.js main.js --arg user.name=alice --arg user.age=42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(cmd, opts, args, argPairs)
		},
	}
	cmd.Flags().StringArrayVarP(&argPairs, "arg", "a", nil, "Script argument as key.path=value (repeatable)")
	return cmd
}

func runScripts(cmd *cobra.Command, opts *rootOptions, files, argPairs []string) error {
	doc, err := buildArgs(argPairs)
	if err != nil {
		return err
	}
	var scriptArgs map[string]any
	if err := json.UnmarshalFromString(doc, &scriptArgs); err != nil {
		return errors.Wrap(err, "unable to decode script arguments")
	}

	s, err := newScriptSession(cmd, config.Config())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.js.SetGlobal("args", scriptArgs); err != nil {
		return err
	}

	for _, name := range files {
		src, err := readScript(cmd, name)
		if err != nil {
			return errors.Wrapf(err, "unable to read %s", name)
		}
		logger := logtrace.Logger(s.ctx)
		logger.Debug().Str("file", name).Msg("running script")
		err = s.guard(func() error {
			if _, jerr := s.js.EvalFile(s.ctx, name, string(src), s.opts); jerr != nil {
				return jerr
			}
			return nil
		})
		if err != nil {
			return errors.WithMessage(err, name)
		}
	}

	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"status": "ok",
			"files":  files,
		})
	}
	return nil
}
