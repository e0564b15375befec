package commands

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"labelforge/internal/catalog/models"
	lineage "labelforge/internal/lineage/service"
	dErrors "labelforge/pkg/domain-errors"
)

func lineageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Inspect and correct stored strain lineages",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every stored override",
			Args:  cobra.NoArgs,
			RunE: a.withLineage(func(ctx context.Context, svc *lineage.Service, _ []string) (any, error) {
				return svc.List(ctx)
			}),
		},
		&cobra.Command{
			Use:   "get STRAIN",
			Short: "Show the override for a strain",
			Args:  cobra.ExactArgs(1),
			RunE: a.withLineage(func(ctx context.Context, svc *lineage.Service, args []string) (any, error) {
				return svc.Get(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "set STRAIN LINEAGE",
			Short: "Confirm the lineage of a strain",
			Args:  cobra.ExactArgs(2),
			RunE: a.withLineage(func(ctx context.Context, svc *lineage.Service, args []string) (any, error) {
				l, ok := models.ParseLineage(args[1])
				if !ok {
					return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown lineage %q", args[1])
				}
				return svc.Confirm(ctx, args[0], l)
			}),
		},
		&cobra.Command{
			Use:   "delete STRAIN",
			Short: "Remove the override for a strain",
			Args:  cobra.ExactArgs(1),
			RunE: a.withLineage(func(ctx context.Context, svc *lineage.Service, args []string) (any, error) {
				return nil, svc.Delete(ctx, args[0])
			}),
		},
	)
	return cmd
}

// withLineage opens the adapter around fn and prints its result as JSON.
func (a *app) withLineage(fn func(ctx context.Context, svc *lineage.Service, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		svc, closeLineage, err := a.openLineage(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeLineage(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		out, err := fn(ctx, svc, args)
		if err != nil || out == nil {
			return err
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}
