package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pagelens/pagelens/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/pagelens.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a pagelens configuration file",
		Long: `Init creates a new .pagelens.yaml configuration file in the current
directory.

The generated file includes:
- Global defaults for the politeness delay
- Commented examples for per-site budgets, delays, and headers
- Documentation for all available options

Examples:
  # Create .pagelens.yaml in the current directory
  pagelens init

  # Create the config file at a specific path
  pagelens init -o myconfig.yaml

  # Force overwrite an existing file
  pagelens init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/pagelens.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit this file to configure per-site settings such as:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Page budgets and politeness delays")
	fmt.Fprintln(cmd.OutOrStdout(), "  - Extra request headers (e.g. staging auth)")

	return nil
}
