package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vnastore/internal/core"
	"vnastore/internal/persistence"
)

func (a *app) kitCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "kit", Short: "Calibration kits"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "import FILE...",
			Short: "Ingest calibration kit XML documents",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
					for _, path := range args {
						summary, err := svc.ImportKit(ctx, path)
						if err != nil {
							return err
						}
						fmt.Fprintf(a.out, "imported %s\n", summary.Label)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored kits",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd, func(_ context.Context, svc *core.Service) error {
					var rows [][]string
					for _, k := range svc.Store().Kits() {
						rows = append(rows, []string{k.Label, k.Description})
					}
					return renderTable(a.out, []string{"LABEL", "DESCRIPTION"}, rows)
				})
			},
		},
		&cobra.Command{
			Use:   "show LABEL",
			Short: "Show a stored kit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
					kit, ok, err := svc.Store().RecoverKit(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("kit %q: %w", args[0], core.ErrNotFound)
					}
					return renderYAML(a.out, kit)
				})
			},
		},
		a.deleteCmd("delete LABEL", "Delete a stored kit", persistence.TableKit),
		&cobra.Command{
			Use:   "export LABEL",
			Short: "Export a stored kit as XML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
					info, err := svc.ExportKit(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, info.Key)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) deleteCmd(use, short string, table persistence.Table) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
				return svc.Store().DeleteEntry(ctx, args[0], table)
			})
		},
	}
}

func formatHz(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
