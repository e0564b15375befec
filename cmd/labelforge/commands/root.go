// Package commands holds the labelforge CLI. Each command builds only the
// services it needs from the shared configuration.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"labelforge/internal/platform/config"
	"labelforge/internal/platform/logger"
	"labelforge/internal/platform/metrics"
)

// app carries what every command shares once flags are parsed.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	stdout   io.Writer
	stderr   io.Writer
}

// Execute runs the CLI against the process arguments.
func Execute() error {
	return NewRootCommand(os.Stdout, os.Stderr).Execute()
}

// NewRootCommand builds the command tree. Environment variables supply
// defaults and flags override them.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		cfg:      config.FromEnv(),
		registry: metrics.NewRegistry(),
		stdout:   stdout,
		stderr:   stderr,
	}

	root := &cobra.Command{
		Use:          "labelforge",
		Short:        "Normalize product catalogs and render shelf labels",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			a.logger = logger.NewWithWriter(a.stderr, a.cfg.Log)
			return a.cfg.Validate()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Store.Driver, "store", a.cfg.Store.Driver, "lineage store: memory, sqlite, postgres or redis")
	pf.StringVar(&a.cfg.Store.SQLitePath, "sqlite-path", a.cfg.Store.SQLitePath, "sqlite database file")
	pf.StringVar(&a.cfg.Store.PostgresDSN, "postgres-dsn", a.cfg.Store.PostgresDSN, "postgres connection string")
	pf.StringVar(&a.cfg.Redis.URL, "redis-url", a.cfg.Redis.URL, "redis URL")
	pf.StringVar(&a.cfg.Log.Level, "log-level", a.cfg.Log.Level, "debug, info, warn or error")
	pf.StringVar(&a.cfg.Log.Format, "log-format", a.cfg.Log.Format, "text or json")
	pf.Float64Var(&a.cfg.Lineage.MinConfidence, "min-confidence", a.cfg.Lineage.MinConfidence, "confidence a learned lineage needs before it applies")

	root.AddCommand(
		generateCmd(a),
		normalizeCmd(a),
		lineageCmd(a),
		serveCmd(a),
	)
	return root
}
