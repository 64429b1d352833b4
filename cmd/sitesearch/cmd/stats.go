package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/config"
	"github.com/Aman-CERP/sitesearch/internal/output"
	"github.com/Aman-CERP/sitesearch/internal/telemetry"
)

// statsReport is the JSON form of `sitesearch stats`.
type statsReport struct {
	From        string                            `json:"from"`
	To          string                            `json:"to"`
	QueryTypes  map[telemetry.QueryType]int64     `json:"query_types"`
	TopTerms    []telemetry.TermCount             `json:"top_terms"`
	ZeroResults []string                          `json:"zero_result_queries"`
	Latency     map[telemetry.LatencyBucket]int64 `json:"latency"`
}

func newStatsCmd() *cobra.Command {
	var (
		days       int
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search query statistics",
		Long: `Show what visitors search for: the most frequent terms, recent
queries that found nothing and the latency distribution.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}
			path := cfg.Path(cfg.Search.StatsPath)
			if _, err := os.Stat(path); err != nil {
				output.New(cmd.OutOrStdout()).Status("📭", "No searches recorded yet")
				return nil
			}

			store, err := telemetry.OpenMetricsStore(path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := collectStats(store, days, limit, time.Now())
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStats(output.New(cmd.OutOrStdout()), report)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Number of days of daily counts to include")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of terms and zero-result queries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func collectStats(store telemetry.QueryMetricsStore, days, limit int, now time.Time) (*statsReport, error) {
	if days < 1 {
		days = 1
	}
	report := &statsReport{
		From: now.AddDate(0, 0, -(days - 1)).Format(time.DateOnly),
		To:   now.Format(time.DateOnly),
	}

	var err error
	if report.QueryTypes, err = store.GetQueryTypeCounts(report.From, report.To); err != nil {
		return nil, err
	}
	if report.Latency, err = store.GetLatencyCounts(report.From, report.To); err != nil {
		return nil, err
	}
	if report.TopTerms, err = store.GetTopTerms(limit); err != nil {
		return nil, err
	}
	if report.ZeroResults, err = store.GetZeroResultQueries(limit); err != nil {
		return nil, err
	}
	return report, nil
}

func printStats(out *output.Writer, r *statsReport) {
	var total int64
	for _, n := range r.QueryTypes {
		total += n
	}

	out.Header(fmt.Sprintf("Search statistics %s to %s", r.From, r.To))
	out.KeyValue("Queries", total)
	for _, qt := range []telemetry.QueryType{telemetry.QueryTypeSingle, telemetry.QueryTypeMulti, telemetry.QueryTypeFielded} {
		if n := r.QueryTypes[qt]; n > 0 {
			out.KeyValue("  "+string(qt), n)
		}
	}

	if len(r.Latency) > 0 {
		out.Newline()
		out.Header("Latency")
		for _, b := range telemetry.Buckets {
			out.KeyValue(string(b), r.Latency[b])
		}
	}

	if len(r.TopTerms) > 0 {
		out.Newline()
		out.Header("Top terms")
		for _, tc := range r.TopTerms {
			out.KeyValue(tc.Term, tc.Count)
		}
	}

	if len(r.ZeroResults) > 0 {
		out.Newline()
		out.Header("Recent searches without results")
		for _, q := range r.ZeroResults {
			out.Status("•", q)
		}
	}
}
