package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/index"
	"github.com/Aman-CERP/sitesearch/internal/output"
)

type reindexOptions struct {
	full   bool
	resume bool
	steps  int
	quiet  bool
}

func newReindexCmd() *cobra.Command {
	var opts reindexOptions

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the record store",
		Long: `Enumerate every published record of the configured classes and index
them one step at a time.

Progress is checkpointed after each step. An interrupted run (Ctrl-C, or
--steps reached) continues where it stopped with --resume. A full
reindex first empties the index.`,
		Example: `  # Rebuild from scratch
  sitesearch reindex --full

  # Work in slices of 500 records
  sitesearch reindex --full --steps 500
  sitesearch reindex --resume --steps 500`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runReindex(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.full, "full", false, "Empty the index before reindexing")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "Continue an interrupted reindex")
	cmd.Flags().IntVar(&opts.steps, "steps", 0, "Stop after this many steps (0 = run to completion)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command, opts reindexOptions) error {
	out := output.New(cmd.OutOrStdout())

	a, err := openApp(projectDir)
	if err != nil {
		return err
	}
	defer a.Close()

	job, jobs, err := a.job()
	if err != nil {
		return err
	}
	defer func() { _ = jobs.Close() }()

	cfg := index.JobConfig{
		Full:     opts.full,
		Resume:   opts.resume,
		MaxSteps: opts.steps,
	}
	if !opts.quiet {
		cfg.Progress = func(cur index.Cursor) {
			label := "done"
			if len(cur.Remaining) > 0 {
				label = cur.Remaining[0].String()
			}
			out.Progress(cur.Total-len(cur.Remaining), cur.Total, label)
		}
	}

	result, err := job.Run(ctx, cfg)
	if result != nil {
		printReindexResult(out, result)
	}
	if errors.Is(err, context.Canceled) {
		out.Warning("Reindex interrupted; continue with 'sitesearch reindex --resume'")
		return nil
	}
	if err != nil {
		return err
	}
	if !result.Done {
		out.Status("⏸️ ", "Paused; continue with 'sitesearch reindex --resume'")
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("%d records failed to index", len(result.Failures))
	}
	return nil
}

func printReindexResult(out *output.Writer, r *index.JobResult) {
	if r.Done {
		out.Successf("Reindex complete in %s", r.Duration.Round(time.Millisecond))
	}
	if r.Resumed {
		out.KeyValue("Resumed", "yes")
	}
	out.KeyValue("Records", r.Total)
	out.KeyValue("Processed", r.Processed)
	out.KeyValue("Steps", r.Steps)
	for _, f := range r.Failures {
		out.Errorf("%s: %v", f.Ref, f.Err)
	}
}
