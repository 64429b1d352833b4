package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/index"
	"github.com/Aman-CERP/sitesearch/internal/output"
	"github.com/Aman-CERP/sitesearch/internal/store"
)

// statusInfo is the JSON form of `sitesearch status`.
type statusInfo struct {
	Documents      uint64   `json:"documents"`
	Classes        []string `json:"classes"`
	LastReindexAt  string   `json:"last_reindex_at,omitempty"`
	LastReindexSec string   `json:"last_reindex_seconds,omitempty"`
	LastReindexN   string   `json:"last_reindex_count,omitempty"`
	PendingSteps   int      `json:"pending_steps"`
	PendingFull    bool     `json:"pending_full,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size, configured classes and reindex state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := collectStatus(cmd)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			printStatus(output.New(cmd.OutOrStdout()), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func collectStatus(cmd *cobra.Command) (*statusInfo, error) {
	ctx := cmd.Context()

	a, err := openApp(projectDir)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	info := &statusInfo{Classes: a.configs.Classes()}
	if info.Documents, err = a.engine.DocCount(); err != nil {
		return nil, err
	}

	jobsPath := a.cfg.Path(a.cfg.Index.JobsPath)
	if _, err := os.Stat(jobsPath); err != nil {
		return info, nil
	}
	jobs, err := store.OpenJobStore(jobsPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = jobs.Close() }()

	for key, dst := range map[string]*string{
		store.StateKeyLastReindexAt:      &info.LastReindexAt,
		store.StateKeyLastReindexSeconds: &info.LastReindexSec,
		store.StateKeyLastReindexCount:   &info.LastReindexN,
	} {
		if *dst, err = jobs.GetState(ctx, key); err != nil {
			return nil, err
		}
	}

	cp, err := jobs.LoadCheckpoint(ctx, index.DefaultJobName)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		info.PendingSteps = len(cp.Remaining)
		info.PendingFull = cp.Full
	}
	return info, nil
}

func printStatus(out *output.Writer, info *statusInfo) {
	out.Header("sitesearch status")
	out.KeyValue("Documents", info.Documents)
	out.KeyValue("Classes", fmt.Sprintf("%v", info.Classes))
	if info.LastReindexAt != "" {
		out.KeyValue("Last reindex", fmt.Sprintf("%s (%s records, %ss)",
			info.LastReindexAt, info.LastReindexN, info.LastReindexSec))
	} else {
		out.KeyValue("Last reindex", "never")
	}
	if info.PendingSteps > 0 {
		out.Newline()
		out.Warningf("Interrupted reindex with %d records left", info.PendingSteps)
		out.Status("💡", "Continue with 'sitesearch reindex --resume'")
	}
}
