// Command synapse scans codebases into a queryable code graph.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/AperturePlus/synapse/internal/config"
	"github.com/AperturePlus/synapse/internal/metrics"
	"github.com/AperturePlus/synapse/internal/store"
)

type app struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	a := &app{}

	root := &cobra.Command{
		Use:           "synapse",
		Short:         "Extract and query code topology graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.LogLevel)
			slog.SetDefault(a.logger)

			s, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			a.store = s

			a.metrics = metrics.New()
			if cfg.MetricsAddr != "" {
				go serveMetrics(a.logger, cfg.MetricsAddr, a.metrics)
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "synapse.yaml", "path to config file")

	root.AddCommand(
		newScanCmd(a),
		newQueryCmd(a),
		newProjectCmd(a),
		newExportCmd(a),
	)
	return root
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func serveMetrics(logger *slog.Logger, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics.serve.failed", "addr", addr, "error", err)
	}
}
