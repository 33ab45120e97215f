package main

import (
	"context"

	"github.com/spf13/cobra"

	"vnastore/internal/core"
	"vnastore/pkg/domain"
)

func (a *app) optionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "options", Short: "Program options"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved program options, or the defaults when none are saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
				o, _, err := svc.Store().RecoverOptions(ctx)
				if err != nil {
					return err
				}
				return renderYAML(a.out, o)
			})
		},
	}

	var next domain.ProgramOptions
	set := &cobra.Command{
		Use:   "set",
		Short: "Change program options; unset flags keep their saved values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, svc *core.Service) error {
				o, _, err := svc.Store().RecoverOptions(ctx)
				if err != nil {
					return err
				}
				applyChanged(cmd, &o, &next)
				if err := svc.Store().SaveOptions(ctx, &o); err != nil {
					return err
				}
				return renderYAML(a.out, o)
			})
		},
	}
	f := set.Flags()
	f.StringVar(&next.GPIBDeviceName, "gpib-device", "", "GPIB device name")
	f.IntVar(&next.GPIBControllerID, "gpib-controller", 0, "GPIB controller index")
	f.IntVar(&next.GPIBDevicePID, "gpib-pid", 0, "GPIB primary address of the analyzer")
	f.StringVar(&next.LastDirectory, "last-dir", "", "last used directory")
	f.StringVar(&next.CalProfile, "cal-profile", "", "selected calibration profile")
	f.StringVar(&next.TraceProfile, "trace-profile", "", "selected trace profile")
	f.StringVar(&next.Product, "product", "", "analyzer product string")
	f.BoolVar(&next.Flags.SmoothSplines, "smooth-splines", false, "draw traces with splines")
	f.BoolVar(&next.Flags.ShowDateTime, "show-date-time", false, "annotate plots with the capture time")
	f.BoolVar(&next.Flags.ShowHPLogo, "show-hp-logo", false, "draw the HP logo")
	f.BoolVar(&next.Flags.UseGPIBDeviceName, "use-gpib-device-name", false, "address the analyzer by device name")
	f.BoolVar(&next.Flags.AdmittanceSmith, "admittance-smith", false, "draw admittance Smith charts")

	cmd.AddCommand(show, set)
	return cmd
}

// applyChanged copies the flags given on the command line from next into o.
func applyChanged(cmd *cobra.Command, o, next *domain.ProgramOptions) {
	changed := cmd.Flags().Changed
	if changed("gpib-device") {
		o.GPIBDeviceName = next.GPIBDeviceName
	}
	if changed("gpib-controller") {
		o.GPIBControllerID = next.GPIBControllerID
	}
	if changed("gpib-pid") {
		o.GPIBDevicePID = next.GPIBDevicePID
	}
	if changed("last-dir") {
		o.LastDirectory = next.LastDirectory
	}
	if changed("cal-profile") {
		o.CalProfile = next.CalProfile
	}
	if changed("trace-profile") {
		o.TraceProfile = next.TraceProfile
	}
	if changed("product") {
		o.Product = next.Product
	}
	if changed("smooth-splines") {
		o.Flags.SmoothSplines = next.Flags.SmoothSplines
	}
	if changed("show-date-time") {
		o.Flags.ShowDateTime = next.Flags.ShowDateTime
	}
	if changed("show-hp-logo") {
		o.Flags.ShowHPLogo = next.Flags.ShowHPLogo
	}
	if changed("use-gpib-device-name") {
		o.Flags.UseGPIBDeviceName = next.Flags.UseGPIBDeviceName
	}
	if changed("admittance-smith") {
		o.Flags.AdmittanceSmith = next.Flags.AdmittanceSmith
	}
}
