package cli

import (
	"fmt"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tansive/jsbridge/internal/config"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression and print its value as JSON",
		Long: `Evaluate an expression and print its completion value as JSON. A gjson
path given with --query selects part of the value.

Examples:
  jsbridge eval '1 + 2'
  jsbridge eval '({user: {name: "alice"}})' --query user.name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return evalExpression(cmd, opts, args[0], query)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "gjson path applied to the result")
	return cmd
}

func evalExpression(cmd *cobra.Command, opts *rootOptions, expr, query string) error {
	s, err := newScriptSession(cmd, config.Config())
	if err != nil {
		return err
	}
	defer s.close()

	var v goja.Value
	err = s.guard(func() error {
		var jerr error
		if v, jerr = s.js.Eval(s.ctx, expr, s.opts); jerr != nil {
			return jerr
		}
		return nil
	})
	if err != nil {
		return err
	}

	if goja.IsUndefined(v) && query == "" {
		if opts.jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"result": nil})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "undefined")
		return err
	}

	var out any
	if err := s.js.Read(v, &out); err != nil {
		return err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "result is not representable as JSON")
	}
	res, err := queryResult(raw, query)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"result": jsoniter.RawMessage(res.Raw),
		})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.String())
	return err
}
