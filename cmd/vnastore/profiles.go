package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vnastore/internal/core"
	"vnastore/internal/persistence"
)

func (a *app) calCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cal", Short: "Calibration profiles"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored calibration profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd, func(_ context.Context, svc *core.Service) error {
					var rows [][]string
					for _, c := range svc.Store().Calibrations() {
						ch := c.Channels[0]
						rows = append(rows, []string{c.Name, ch.SweepType.String(), formatHz(ch.SweepStart), formatHz(ch.SweepStop), fmt.Sprint(ch.NPoints)})
					}
					return renderTable(a.out, []string{"NAME", "SWEEP", "START", "STOP", "POINTS"}, rows)
				})
			},
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Show a stored calibration profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
					p, ok, err := svc.Store().RecoverCalibration(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("calibration %q: %w", args[0], core.ErrNotFound)
					}
					return renderYAML(a.out, p)
				})
			},
		},
		a.deleteCmd("delete NAME", "Delete a stored calibration profile", persistence.TableCalibration),
	)
	return cmd
}

func (a *app) traceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "trace", Short: "Trace profiles"}
	var channel int
	export := &cobra.Command{
		Use:   "export NAME",
		Short: "Export one channel of a stored trace as Touchstone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
				info, err := svc.ExportTrace(ctx, args[0], channel-1)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, info.Key)
				return nil
			})
		},
	}
	export.Flags().IntVar(&channel, "channel", 1, "channel to export (1 or 2)")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored trace profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd, func(_ context.Context, svc *core.Service) error {
					var rows [][]string
					for _, t := range svc.Store().Traces() {
						rows = append(rows, []string{t.Name, t.Title, t.Timestamp})
					}
					return renderTable(a.out, []string{"NAME", "TITLE", "CAPTURED"}, rows)
				})
			},
		},
		&cobra.Command{
			Use:   "show NAME",
			Short: "Show a stored trace profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
					t, ok, err := svc.Store().RecoverTrace(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("trace %q: %w", args[0], core.ErrNotFound)
					}
					return renderYAML(a.out, t)
				})
			},
		},
		a.deleteCmd("delete NAME", "Delete a stored trace profile", persistence.TableTrace),
		export,
	)
	return cmd
}
