package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tansive/jsbridge/internal/common/jsruntime"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of the embedded interpreter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"version":      jsruntime.Version(),
					"git_describe": jsruntime.GitDescribe(),
					"git_commit":   jsruntime.GitCommit(),
					"git_branch":   jsruntime.GitBranch(),
				})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "jsbridge "+jsruntime.VersionInfo())
			return err
		},
	}
}
