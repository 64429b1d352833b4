package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/logging"
	"github.com/Aman-CERP/sitesearch/internal/output"
)

type logsOptions struct {
	lines   int
	level   string
	pattern string
	file    string
	noColor bool
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent debug log entries",
		Long: `Show the most recent entries of the debug log written by commands run
with --debug (~/.sitesearch/logs/sitesearch.log).`,
		Example: `  # Last 50 entries
  sitesearch logs

  # Failed reindex steps only
  sitesearch logs --level warn --grep reindex_step_failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of entries to show (0 = all)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.pattern, "grep", "", "Only show entries matching this regular expression")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read this log file instead of the default")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	cfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: opts.noColor || !output.ShouldUseColor(cmd.OutOrStdout()),
	}
	if opts.pattern != "" {
		if cfg.Pattern, err = regexp.Compile(opts.pattern); err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(cfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}
