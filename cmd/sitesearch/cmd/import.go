package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/output"
	"github.com/Aman-CERP/sitesearch/internal/recordstore"
)

func newImportCmd() *cobra.Command {
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Import records into the record store",
		Long: `Import classes, relations and records from a YAML seed file.

Every imported record is indexed immediately through the write hooks,
unless --no-index is given. Records of classes that are not configured
for search are stored but not indexed.`,
		Example: `  # Import and index
  sitesearch import content.yaml

  # Import only, then build the index in one pass
  sitesearch import content.yaml --no-index
  sitesearch reindex --full`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runImport(ctx, cmd, args[0], noIndex)
		},
	}

	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Store records without indexing them")

	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, path string, noIndex bool) error {
	out := output.New(cmd.OutOrStdout())

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed: %w", err)
	}
	defer func() { _ = f.Close() }()

	seed, err := recordstore.ReadSeed(f)
	if err != nil {
		return err
	}

	a, err := openApp(projectDir)
	if err != nil {
		return err
	}
	defer a.Close()

	refs, err := a.records.Import(ctx, seed)
	if err != nil {
		return err
	}
	out.Successf("Imported %d records", len(refs))

	if noIndex {
		return nil
	}
	if err := a.afterWrite(ctx, refs...); err != nil {
		out.Warning("Some records could not be indexed")
		return err
	}
	count, err := a.engine.DocCount()
	if err == nil {
		out.KeyValue("Documents", count)
	}
	return nil
}
