// SPDX-License-Identifier: MIT

// Command coherent reconciles the forecasts of a YAML panel.
//
//	coherent reconcile --input panel.yaml --strategy min_trace --method mint_shrink --horizon 2
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/coherent/config"
	"github.com/katalvlaran/coherent/metrics"
	"github.com/katalvlaran/coherent/panel"
	"github.com/katalvlaran/coherent/reconcile"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flags holds the command-line values; only flags the user set override the config.
type flags struct {
	configPath  string
	input       string
	strategy    string
	method      string
	sparse      string
	horizon     int
	pdThreshold float64
	metricsFile string
	levels      []float64
	verbose     bool
}

// newRootCmd builds the command tree. A nil logger is built from the configuration.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "coherent",
		Short:         "Hierarchical forecast reconciliation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	rec := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile the base forecasts of a panel",
		Long: `Reads a YAML panel (key values, base forecasts and residuals per series),
reconciles it with the chosen strategy and writes the coherent forecasts as YAML.

Strategies: none, bottom_up, min_trace.
Methods (min_trace): ols, wls_var, wls_struct, mint_cov, mint_shrink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, f, logger)
		},
	}
	fl := rec.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "panel file (- for stdin)")
	fl.StringVar(&f.strategy, "strategy", "", "reconciliation strategy")
	fl.StringVar(&f.method, "method", "", "min_trace weighting method")
	fl.StringVar(&f.sparse, "sparse", "", "projector backend: auto, true or false")
	fl.IntVar(&f.horizon, "horizon", 0, "forecast steps")
	fl.Float64Var(&f.pdThreshold, "pd-threshold", 0, "smallest admissible eigenvalue of W")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fl.Float64SliceVar(&f.levels, "level", []float64{0.8, 0.95}, "prediction interval levels")
	_ = rec.MarkFlagRequired("input")

	root.AddCommand(rec)

	return root
}

// loadConfig layers the changed flags over config.Load.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if changed("method") {
		cfg.Method = f.method
	}
	if changed("sparse") {
		cfg.Sparse = f.sparse
	}
	if changed("horizon") {
		cfg.Horizon = f.horizon
	}
	if changed("pd-threshold") {
		cfg.PDThreshold = f.pdThreshold
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if f.verbose {
		cfg.LogLevel = zapcore.DebugLevel.String()
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(cfg.Level())
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return l, nil
}

func runReconcile(cmd *cobra.Command, f *flags, logger *zap.Logger) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if logger == nil {
		if logger, err = newLogger(cfg); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	strategy, err := cfg.ReconcileStrategy()
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if f.input != "-" {
		file, err := os.Open(f.input)
		if err != nil {
			return fmt.Errorf("open panel: %w", err)
		}
		defer file.Close()
		in = file
	}
	mt, err := panel.Decode(in)
	if err != nil {
		return err
	}
	column := mt.ModelVariables()[0]
	if mt, err = mt.Reconcile(column, strategy); err != nil {
		return err
	}
	logger.Info("panel loaded",
		zap.String("input", f.input),
		zap.Int("series", mt.Len()),
		zap.String("response", mt.Response()),
		zap.String("strategy", strategy.Name()))

	recorder := metrics.NewRecorder()
	opts := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithObserver(recorder),
		reconcile.WithPDThreshold(cfg.PDThreshold),
	}
	if s := cfg.SparseOverride(); s != nil {
		opts = append(opts, reconcile.WithSparse(*s))
	}
	res, err := mt.Forecast(cmd.Context(), column, cfg.Horizon, opts...)
	if cfg.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cfg.MetricsFile, recorder.Registry()); werr != nil {
			logger.Warn("metrics not written", zap.String("path", cfg.MetricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("reconciliation failed", zap.Error(err))
		return err
	}

	return panel.Encode(cmd.OutOrStdout(), res, runID, f.levels...)
}
