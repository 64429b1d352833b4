package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/output"
	"github.com/Aman-CERP/sitesearch/internal/search"
	"github.com/Aman-CERP/sitesearch/internal/telemetry"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	start    int
	pageSize int
	words    int
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index and print one page of results.

Unqualified terms match any indexed field. Prefix a term with a field
name to match only that field, + to require it and - to exclude it.`,
		Example: `  sitesearch search "annual report"
  sitesearch search "+budget -draft" --start 10
  sitesearch search "ClassName:File invoice" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.start, "start", 0, "Zero-based index of the first result")
	cmd.Flags().IntVarP(&opts.pageSize, "limit", "n", 0, "Results per page (default from config)")
	cmd.Flags().IntVar(&opts.words, "words", 0, "Excerpt length in words (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (use: text, json)", opts.format)
	}

	a, err := openApp(projectDir)
	if err != nil {
		return err
	}
	defer a.Close()

	sc := a.cfg.Search
	if opts.pageSize > 0 {
		sc.PageSize = opts.pageSize
	}
	if opts.words > 0 {
		sc.HighlightWords = opts.words
	}

	searcher, err := search.NewSearcher(a.engine, search.Config{
		PageSize:   sc.PageSize,
		AlwaysShow: sc.AlwaysShow,
		MaxShow:    sc.MaxShow,
		BaseURL:    sc.BaseURL,
	}, a.logger)
	if err != nil {
		return err
	}

	began := time.Now()
	page := searcher.Search(ctx, query, opts.start)
	a.recordQuery(telemetry.QueryEvent{
		Query:       query,
		ResultCount: page.Window.TotalHits,
		Latency:     time.Since(began),
		Timestamp:   began,
	})
	terms := search.Terms(query)

	if opts.format == "json" {
		return writeSearchJSON(cmd, page, terms, sc.HighlightWords)
	}
	writeSearchText(output.New(cmd.OutOrStdout()), page, terms, sc.HighlightWords)
	return nil
}

type jsonResult struct {
	Number  int     `json:"number"`
	Score   float64 `json:"score"`
	Class   string  `json:"class"`
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Link    string  `json:"link,omitempty"`
	Excerpt string  `json:"excerpt"`
}

type jsonPage struct {
	Query       string             `json:"query"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"total_pages"`
	StartResult int                `json:"start_result"`
	EndResult   int                `json:"end_result"`
	Results     []jsonResult       `json:"results"`
	Pages       []search.PageEntry `json:"pages"`
	Prev        string             `json:"prev,omitempty"`
	Next        string             `json:"next,omitempty"`
}

func writeSearchJSON(cmd *cobra.Command, page *search.Page, terms []string, words int) error {
	out := jsonPage{
		Query:       page.Query,
		Total:       page.Window.TotalHits,
		Page:        page.Window.CurrentPage,
		TotalPages:  page.Window.TotalPages,
		StartResult: page.StartResult,
		EndResult:   page.EndResult,
		Results:     make([]jsonResult, 0, len(page.Results)),
		Pages:       page.Pages,
		Prev:        page.PrevLink,
		Next:        page.NextLink,
	}
	for _, r := range page.Results {
		out.Results = append(out.Results, jsonResult{
			Number:  r.Number,
			Score:   r.Score,
			Class:   r.Ref.Class,
			ID:      r.Ref.ID,
			Title:   r.Title(),
			Link:    r.Link(),
			Excerpt: search.Highlight(r.Content(), terms, words),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSearchText(out *output.Writer, page *search.Page, terms []string, words int) {
	if len(page.Results) == 0 {
		out.Statusf("🔍", "No results for %q", page.Query)
		return
	}

	out.Header(fmt.Sprintf("Results %d-%d of %d for %q",
		page.StartResult, page.EndResult, page.Window.TotalHits, page.Query))
	out.Newline()
	for _, r := range page.Results {
		title := r.Title()
		if title == "" {
			title = r.Ref.String()
		}
		out.Statusf(fmt.Sprintf("%2d.", r.Number), "%s", title)
		if link := r.Link(); link != "" {
			out.Dim("    " + link)
		}
		if excerpt := search.Highlight(r.Content(), terms, words); excerpt != "" {
			out.Status("", " "+terminalExcerpt(out, excerpt))
		}
		out.Newline()
	}

	out.Status("", "Pages: "+pageStrip(out, page.Pages))
	if page.NextLink != "" {
		out.Dim(fmt.Sprintf("    next page: --start %d", page.Window.CurrentPage*page.Window.PageSize))
	}
}

// terminalExcerpt turns highlighted HTML into terminal text.
func terminalExcerpt(out *output.Writer, excerpt string) string {
	var b strings.Builder
	for excerpt != "" {
		before, rest, found := strings.Cut(excerpt, "<strong>")
		b.WriteString(html.UnescapeString(before))
		if !found {
			break
		}
		term, after, _ := strings.Cut(rest, "</strong>")
		b.WriteString(out.Emphasize(html.UnescapeString(term)))
		excerpt = after
	}
	return b.String()
}

func pageStrip(out *output.Writer, pages []search.PageEntry) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		switch {
		case p.Ellipsis:
			parts = append(parts, "...")
		case p.Current:
			parts = append(parts, out.Emphasize(fmt.Sprintf("[%d]", p.Page)))
		default:
			parts = append(parts, fmt.Sprintf("%d", p.Page))
		}
	}
	return strings.Join(parts, " ")
}
