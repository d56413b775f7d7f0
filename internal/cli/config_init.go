package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/ysyunhei/internal/config"
)

// NewConfigInitCmd creates the config init command. It writes a default
// config.yaml with owner-only permissions and a .gitignore that keeps the API
// key out of version control.
func NewConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at --config, or
$YSYUNHEI_HOME/config.yaml, or ~/.ysyunhei/config.yaml. A .gitignore is written
next to it so the API key and access token are never committed.`,
		Example: `  # Create the default configuration
  ysyunhei config init

  # Create configuration, overwriting existing
  ysyunhei config init --force`,
		Annotations: map[string]string{annotationConfigOptional: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	configPath := config.GetGlobalConfig().Path()
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	// Check if config already exists and force isn't set
	if !force {
		_, err := os.Stat(configPath)
		if err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", configPath, err)
		}
	}

	cfg := config.New()
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Create .gitignore (never overwrites existing)
	created, err := config.EnsureGitignore(filepath.Dir(configPath))
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to protect the API key\n")
	}
	cmd.Printf("Set api_key and admin_qqs before running 'ysyunhei serve'\n")

	return nil
}
