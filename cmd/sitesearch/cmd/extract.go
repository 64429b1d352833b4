package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sitesearch/internal/config"
	"github.com/Aman-CERP/sitesearch/internal/output"
)

func newExtractCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the text that would be indexed for a file",
		Long: `Run the text extractors registered for the file's extension and print
the first non-empty result. With --list, print the extractors for every
supported extension instead.`,
		Example: `  sitesearch extract assets/report.pdf
  sitesearch extract --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(projectDir)
			if err != nil {
				return err
			}
			reg, err := newExtractor(cfg, nil)
			if err != nil {
				return err
			}

			if list {
				out := output.New(cmd.OutOrStdout())
				for _, ext := range reg.Extensions() {
					var names []string
					for _, d := range reg.ExtractorsFor(ext) {
						names = append(names, d.Name)
					}
					out.KeyValue("."+ext, strings.Join(names, ", "))
				}
				return nil
			}

			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}
			text := reg.Extract(cmd.Context(), path)
			if text == "" {
				return fmt.Errorf("no text could be extracted from %s", path)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List extractors by extension")

	return cmd
}
