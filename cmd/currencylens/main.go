package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/config"
	"CurrencyLens/internal/logging"
	"CurrencyLens/internal/runner"
	"CurrencyLens/internal/store"
)

const version = "v0.3.0"

// app carries what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	closers  []func() error
}

type rootFlags struct {
	configPath string
	source     string
	logLevel   string
}

func main() {
	flags := &rootFlags{}
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "currencylens",
		Short:         "Risk and performance metrics for a basket of currency pairs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `CurrencyLens computes historical Value-at-Risk, annualized volatility,
maximum drawdown and depreciation for a basket of currency-pair price
histories over a chosen window, and renders the results as charts.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfig, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.source, "source", "", "Data source override (csv|sqlite|yahoo)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug|info|warn|error)")

	rootCmd.AddCommand(
		newAlignCmd(a),
		newReportCmd(a),
		newHistoryCmd(a),
		newImportCmd(a),
		newWatchCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		a.logger.Error().Err(err).Msg("command failed")
		a.close()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) init(flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.source != "" {
		cfg.DataSource.Type = flags.source
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With().Str("app", "currencylens").Logger()
	a.registry = prometheus.NewRegistry()
	a.logger.Debug().Str("config", flags.configPath).Str("source", cfg.DataSource.Type).Msg("configuration loaded")
	return nil
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// openStore opens the configured SQLite store; it is closed after the command.
func (a *app) openStore() (*store.SQLiteStore, error) {
	st, err := store.Open(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)
	return st, nil
}

// fetcher builds the fetcher for the configured data source.
func (a *app) fetcher() (collector.Fetcher, error) {
	switch a.cfg.DataSource.Type {
	case config.SourceSQLite:
		return a.openStore()
	case config.SourceYahoo:
		f := collector.NewYahooFetcher(a.cfg.DataSource.Yahoo.Tickers, a.cfg.Proxy)
		f.Range = a.cfg.DataSource.Yahoo.Range
		return f, nil
	default:
		return collector.NewCSVFetcher(a.cfg.DataSource.RawDir, a.cfg.DateLayouts()), nil
	}
}

func (a *app) collector() (*collector.Collector, error) {
	f, err := a.fetcher()
	if err != nil {
		return nil, err
	}
	a.logger.Info().Str("source", f.Name()).Msg("data source ready")
	return collector.NewCollector(f, a.logger), nil
}

func (a *app) runner() (*runner.Runner, error) {
	col, err := a.collector()
	if err != nil {
		return nil, err
	}
	return runner.New(col, a.logger, runner.NewMetrics(a.registry), a.cfg.Analysis.Workers), nil
}
