package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/configs"
	"github.com/Aman-CERP/sitesearch/internal/config"
	"github.com/Aman-CERP/sitesearch/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize sitesearch for a project",
		Long: `Initialize sitesearch in the project directory.

This command writes a .sitesearch.yaml template that enables the SiteTree
and File classes with their default fields, and creates the .sitesearch/
data directory for the index, the record store and reindex checkpoints.`,
		Example: `  # Initialize in current project
  sitesearch init

  # Replace an existing config (the old file is backed up)
  sitesearch init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, projectDir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	path, exists := config.ProjectConfigPath(dir)
	if exists && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Status("💡", "Use --force to replace it (a backup is kept)")
		return nil
	}

	if exists {
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Join(dir, config.DataDirName), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Successf("Created %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. List the classes to index in .sitesearch.yaml")
	out.Status("", "  2. Load records with 'sitesearch import <seed.yaml>'")
	out.Status("", "  3. Build the index with 'sitesearch reindex --full'")
	return nil
}
