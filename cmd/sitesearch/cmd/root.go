// Package cmd provides the CLI commands for sitesearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/logging"
	"github.com/Aman-CERP/sitesearch/internal/profiling"
	"github.com/Aman-CERP/sitesearch/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profiler    *profiling.Session
)

// NewRootCmd creates the root command for the sitesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitesearch",
		Short: "Full-text search index for site content records",
		Long: `sitesearch keeps a full-text index in step with a store of content
records (pages, files, and anything else you configure) and serves
paginated, highlighted search results from it.

Run 'sitesearch init' in your project directory to get started.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("sitesearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.sitesearch/logs/")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newUpsertCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	if err := startLogging(cmd, args); err != nil {
		return err
	}
	if !profileOpts.Enabled() {
		return nil
	}
	session, err := profiling.Start(profileOpts)
	if err != nil {
		return err
	}
	profiler = session
	return nil
}

func stopProfilingAndLogging(cmd *cobra.Command, args []string) error {
	if profiler != nil {
		err := profiler.Stop()
		profiler = nil
		slog.Info("Profiling stopped",
			slog.String("heap_in_use", profiling.FormatBytes(profiling.HeapInUse())))
		if err != nil {
			return fmt.Errorf("failed to write profiles: %w", err)
		}
	}
	return stopLogging(cmd, args)
}

// startLogging installs the default logger: the rotating JSON file in
// debug mode, warnings on stderr otherwise.
func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode {
		slog.SetDefault(logging.NewStderr(cmd.ErrOrStderr(), "warn"))
		return nil
	}

	cfg := logging.DebugConfig()
	cfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Short()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints any error in CLI form.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		if profiler != nil {
			_ = profiler.Stop()
			profiler = nil
		}
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
		fmt.Fprint(os.Stderr, serrors.FormatForCLI(err))
	}
	return err
}
