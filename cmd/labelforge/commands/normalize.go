package commands

import (
	"io"

	"github.com/spf13/cobra"

	"labelforge/internal/catalog/ingest"
	"labelforge/internal/catalog/models"
)

func normalizeCmd(a *app) *cobra.Command {
	var input, out string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Write the normalized catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			raws, err := ingest.ReadFile(input)
			if err != nil {
				return err
			}

			lin, closeLineage, err := a.openLineage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeLineage(); err != nil {
					a.logger.WarnContext(ctx, "lineage shutdown incomplete", "error", err)
				}
			}()

			records := a.newNormalizer(lin).Normalize(ctx, raws)
			a.logger.InfoContext(ctx, "catalog normalized", "records", len(records))
			return writeOutput(out, a.stdout, func(w io.Writer) error {
				return ingest.WriteCSV(w, records, models.NewColumns(nil))
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "catalog export (.csv or .tsv)")
	cmd.Flags().StringVar(&out, "out", "-", "CSV output path, - for stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
