package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/output"
	"github.com/Aman-CERP/sitesearch/internal/record"
	"github.com/Aman-CERP/sitesearch/internal/recordstore"
)

// parseRefArgs accepts "Class#ID" or "Class ID".
func parseRefArgs(args []string) (record.Ref, error) {
	var (
		ref record.Ref
		ok  bool
	)
	switch len(args) {
	case 1:
		ref, ok = recordstore.ParseRef(args[0])
	case 2:
		ref, ok = record.ParseRef(args[0], args[1])
	}
	if !ok {
		return record.Ref{}, serrors.New(serrors.ErrCodeInvalidInput, "invalid record reference", nil).
			WithDetail("ref", strings.Join(args, " ")).
			WithSuggestion("Use Class#ID, for example Page#12")
	}
	return ref, nil
}

func newUpsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upsert <Class#ID>",
		Short: "Index one record, replacing its existing document",
		Example: `  sitesearch upsert Page#12
  sitesearch upsert File 7`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArgs(args)
			if err != nil {
				return err
			}
			a, err := openApp(projectDir)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.records.Load(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if err := a.mutator.Upsert(cmd.Context(), rec); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Indexed %s", ref)
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <Class#ID>",
		Short: "Remove one record's document from the index",
		Long: `Remove the indexed document of a record. The record itself stays in
the record store; use 'sitesearch delete' to remove both.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArgs(args)
			if err != nil {
				return err
			}
			a, err := openApp(projectDir)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.mutator.Remove(cmd.Context(), ref); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Removed %s from the index", ref)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <Class#ID>",
		Short: "Delete a record and its indexed document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRefArgs(args)
			if err != nil {
				return err
			}
			a, err := openApp(projectDir)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			rec, err := a.records.Load(ctx, ref)
			if err != nil {
				return err
			}
			if err := a.records.Delete(ctx, ref); err != nil {
				return err
			}
			if err := a.hooks.AfterDelete(ctx, rec); err != nil {
				return fmt.Errorf("deleted %s but could not remove it from the index: %w", ref, err)
			}
			output.New(cmd.OutOrStdout()).Successf("Deleted %s", ref)
			return nil
		},
	}
}
