// Package cli implements the toolgate command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mpostma/toolgate/internal/config"
	"github.com/mpostma/toolgate/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toolgate",
		Short: "Local MCP tool server and LLM conversation driver",
		Long: "Toolgate serves filesystem, task-runner, and OpenAI tools over a local\n" +
			"JSON-RPC endpoint, and drives tool-using conversations against the\n" +
			"Anthropic Messages API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "toolgate.yaml", "config file path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// applyLogConfig rebuilds the logger from the loaded config. The --log-level
// flag wins over the configured level.
func applyLogConfig(cfg config.Config) error {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if cfg.Logging.File != "" {
		l, err := logging.NewWithFile(cfg.Logging.File, level)
		if err != nil {
			return err
		}
		log = l
		return nil
	}
	log = logging.New(nil, level)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
