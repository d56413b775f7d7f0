package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/ysyunhei/internal/config"
	"github.com/rshade/ysyunhei/internal/logging"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// annotationConfigOptional marks commands that still run when the config
// file cannot be parsed, falling back to defaults.
const annotationConfigOptional = "ysyunhei/config-optional"

// NewRootCmd creates the root Cobra command for the ysyunhei CLI.
// It loads the configuration, wires up logging, tracing and audit logging,
// and registers the serve, lookup, about and config subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult  *logging.LogPathResult
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "ysyunhei",
		Short: "Cloud blacklist moderation bot for OneBot groups",
		Long: `ysyunhei connects to a OneBot v11 implementation and lets configured
administrators register, look up and enforce entries of the shared cloud
blacklist in their groups.`,
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				if cmd.Annotations[annotationConfigOptional] == "" {
					return err
				}
				cmd.PrintErrf("Warning: %v; using defaults\n", err)
				cfg = config.New()
			}
			config.SetGlobalConfig(cfg)

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default $YSYUNHEI_HOME/config.yaml or ~/.ysyunhei/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(NewServeCmd(), NewLookupCmd(), NewAboutCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Write a default configuration, then edit api_key and admin_qqs
  ysyunhei config init

  # Check the configuration
  ysyunhei config validate

  # Run the bot against the local OneBot endpoint
  ysyunhei serve

  # Look up one account from the terminal
  ysyunhei lookup 123456789`

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}
