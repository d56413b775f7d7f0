package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rshade/ysyunhei/internal/config"
)

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the loaded configuration, including config.local.yaml and
environment overrides.

This includes:
- Sleep window hours (0-23) and mute duration
- admin_qqs keys (QQ numbers) and registrant names
- theme_date / theme_color syntax
- Cooldown backend and Redis address
- Logging level and format
- Presence of api_key`,
		Example: `  # Validate current configuration
  ysyunhei config validate

  # Validate and show detailed information
  ysyunhei config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if len(cfg.AdminQQs) == 0 {
		cmd.PrintErrln("Warning: admin_qqs is empty; nobody can use the moderation commands")
	}

	cmd.Printf("✅ Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information. Secrets are
// never printed.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.Path())
	cmd.Printf("  API base URL: %s\n", cfg.APIBaseURL)
	cmd.Printf("  OneBot endpoint: %s\n", cfg.OneBot.WSURL)
	cmd.Printf("  Sleep window: %d:00-%d:00, mute %d hours\n",
		cfg.SleepStartHour, cfg.SleepEndHour, cfg.SleepMuteHours)
	cmd.Printf("  Render as image: %t\n", cfg.RenderAsImage)
	cmd.Printf("  Cooldown backend: %s\n", cfg.Cooldown.Backend)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.MetricsAddr != "" {
		cmd.Printf("  Metrics: %s/metrics\n", cfg.MetricsAddr)
	}

	printAdminDetails(cmd, cfg)
}

// printAdminDetails lists configured administrators in a stable order.
func printAdminDetails(cmd *cobra.Command, cfg *config.Config) {
	if len(cfg.AdminQQs) == 0 {
		cmd.Println("  No administrators configured")
		return
	}

	ids := make([]string, 0, len(cfg.AdminQQs))
	for id := range cfg.AdminQQs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cmd.Printf("  Administrators: %d\n", len(ids))
	for _, id := range ids {
		cmd.Printf("    - %s (%s)\n", id, cfg.AdminQQs[id])
	}
}
