package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"vnastore/internal/config"
	"vnastore/internal/core"
)

type app struct {
	out    io.Writer
	logOut io.Writer

	configPath  string
	dbPath      string
	logLevel    string
	metricsFile string
	exportRoot  string
}

func newRootCmd(out, logOut io.Writer) *cobra.Command {
	a := &app{out: out, logOut: logOut}
	root := &cobra.Command{
		Use:           "vnastore",
		Short:         "HP8753 calibration kit, calibration and trace profile store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(logOut)
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/hp8753/vnastore.toml)")
	pf.StringVar(&a.dbPath, "db", "", "sqlite database path")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.StringVar(&a.exportRoot, "export-root", "", "filesystem export directory")

	root.AddCommand(a.kitCmd(), a.calCmd(), a.traceCmd(), a.optionsCmd())
	return root
}

// loadConfig resolves the config file and environment, then applies command line flags.
func (a *app) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.configPath, nil)
	if err != nil {
		return config.Config{}, err
	}
	if a.dbPath != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.SQLitePath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsFile != "" {
		cfg.MetricsFile = a.metricsFile
	}
	if a.exportRoot != "" {
		cfg.Blob.FSRoot = a.exportRoot
	}
	return cfg, nil
}

// run opens the service for the duration of fn.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, svc *core.Service) error) (err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := core.Open(ctx, cfg, core.WithLogOutput(a.logOut))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, svc)
}
