package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/sitesearch/configs"
	"github.com/Aman-CERP/sitesearch/internal/config"
	"github.com/Aman-CERP/sitesearch/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage sitesearch configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/sitesearch/config.yaml)
  3. Project config (.sitesearch.yaml)
  4. Environment variables (SITESEARCH_*)`,
		Example: `  # Create user config from template
  sitesearch config init

  # Show effective configuration (merged from all sources)
  sitesearch config show

  # List and restore project config backups
  sitesearch config backups
  sitesearch config restore .sitesearch.yaml.bak.20260301-101500.000000000`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from a template.

The file is created at ~/.config/sitesearch/config.yaml
(or $XDG_CONFIG_HOME/sitesearch/config.yaml if XDG_CONFIG_HOME is set)
and holds machine-specific settings such as converter binary paths.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (a backup is kept)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func newConfigBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List project config backups, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := config.ProjectConfigPath(projectDir)
			backups, err := config.ListBackups(path)
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			if len(backups) == 0 {
				out.Status("📭", "No backups found")
				return nil
			}
			for _, b := range backups {
				out.Status("", b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore the project config from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := config.ProjectConfigPath(projectDir)
			backup := args[0]
			if !filepath.IsAbs(backup) && filepath.Dir(backup) == "." {
				backup = filepath.Join(filepath.Dir(path), backup)
			}
			if err := config.RestoreFile(path, backup); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Restored %s", path)
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := config.GetUserConfigPath()

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	var (
		cfg *config.Config
		err error
	)

	switch source {
	case "merged":
		cfg, err = config.Load(projectDir)
	case "user":
		cfg, err = readConfigFile(config.GetUserConfigPath())
	case "project":
		path, ok := config.ProjectConfigPath(projectDir)
		if !ok {
			return fmt.Errorf("no project configuration at %s; run 'sitesearch init'", path)
		}
		cfg, err = readConfigFile(path)
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("unknown source %q (use: merged, user, project, defaults)", source)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// readConfigFile reads one config file over the defaults, without the
// rest of the hierarchy.
func readConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg := config.NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}
