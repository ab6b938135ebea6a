package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/tansive/jsbridge/internal/common/logtrace"
	"github.com/tansive/jsbridge/internal/config"
)

// rootOptions carries the persistent flags shared by every subcommand
type rootOptions struct {
	configFile string
	jsonOutput bool
	timeout    time.Duration
	logLevel   string
}

// NewRootCmd creates a new root command for the CLI
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "jsbridge",
		Short: "jsbridge runs JavaScript with a host-bridged console",
		Long: `jsbridge runs JavaScript in an embedded interpreter whose console output is
routed to the terminal or the structured log. It can run script files, evaluate
expressions and report the interpreter version.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "", "", "Path to a TOML or YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")
	cmd.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Execution time limit per script, overrides the configuration")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "", "", "Log level (trace, debug, info, warn, error)")

	addCommands(cmd, opts)
	return cmd
}

func addCommands(cmd *cobra.Command, opts *rootOptions) {
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))
}

// load reads the configuration file, applies flag overrides and initializes logging
func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := config.LoadConfig(o.configFile); err != nil {
		return err
	}
	cfg := config.Config()
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = o.timeout.String()
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	logtrace.InitLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel, cfg.PrettyLog)
	return nil
}
