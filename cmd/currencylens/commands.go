package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"CurrencyLens/internal/chart"
	"CurrencyLens/internal/collector"
	"CurrencyLens/internal/model"
	"CurrencyLens/internal/notifier"
	"CurrencyLens/internal/runner"
	"CurrencyLens/internal/scheduler"
	"CurrencyLens/internal/window"
)

type outputFlags struct {
	style string
	plain bool
	width int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.style, "style", "dark", "Terminal style (dark|light|notty|ascii)")
	cmd.Flags().BoolVar(&o.plain, "plain", false, "Print raw markdown instead of rendering it")
	cmd.Flags().IntVar(&o.width, "width", 100, "Word-wrap width for rendered output")
}

func (o *outputFlags) print(cmd *cobra.Command, markdown string) error {
	if o.plain {
		_, err := fmt.Fprint(cmd.OutOrStdout(), markdown)
		return err
	}
	out, err := notifier.RenderTerminal(markdown, o.style, o.width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func newAlignCmd(a *app) *cobra.Command {
	var (
		out    outputFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Truncate every series to the common window and write the processed CSVs",
		Long: `Align picks the series with the shortest date span as the reference, cuts
every series to the reference window and writes each result as Date,Price CSV
into the processed data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.runner()
			if err != nil {
				return err
			}
			alignment, err := r.Align(cmd.Context())
			if err != nil {
				return err
			}

			var written []string
			if !dryRun {
				for _, s := range alignment.Series {
					path, err := collector.WriteCSVFile(a.cfg.DataSource.ProcessedDir, s.Sorted())
					if err != nil {
						return err
					}
					written = append(written, path)
				}
			}
			return out.print(cmd, notifier.FormatAlignment(alignment, written))
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the alignment without writing files")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		out        outputFlags
		start, end int
		confidence float64
		noChart    bool
	)
	cmd := &cobra.Command{
		Use:       "report <metric>",
		Short:     "Compute one metric for every series over a window of years",
		Example:   "  currencylens report var --start 2000 --end 2024 --confidence 0.99",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"var", "volatility", "mdd", "mdd_inverse", "depreciation"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("start") {
				start = a.cfg.Analysis.StartYear
			}
			if !cmd.Flags().Changed("end") {
				end = a.cfg.Analysis.EndYear
			}
			m, err := a.cfg.Metric(args[0], confidence)
			if err != nil {
				return err
			}
			req := runner.Request{StartYear: start, EndYear: end, Metric: m}
			if _, err := req.Validate(); err != nil {
				return err
			}

			r, err := a.runner()
			if err != nil {
				return err
			}
			report, err := r.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			if !noChart {
				name := fmt.Sprintf("%s_%d_%d", m.Name, start, end)
				path, err := chart.WriteFile(a.cfg.Output.FiguresDir, name, chart.Bar(report))
				if err != nil {
					return err
				}
				a.logger.Info().Str("path", path).Msg("chart written")
			}
			return out.print(cmd, notifier.FormatMarkdown(report))
		},
	}
	out.register(cmd)
	cmd.Flags().IntVar(&start, "start", 0, "First year of the window (default from config)")
	cmd.Flags().IntVar(&end, "end", 0, "Last year of the window, inclusive (default from config)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "VaR confidence level in (0,1) (default from config)")
	cmd.Flags().BoolVar(&noChart, "no-chart", false, "Skip writing the HTML bar chart")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "history <instrument>",
		Short: "Write the exchange-rate line chart of one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			s, err := col.LoadOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				if !cmd.Flags().Changed("start") {
					start = 1
				}
				if !cmd.Flags().Changed("end") {
					end = 9999
				}
				if s, err = window.FilterYears(s, start, end); err != nil {
					return err
				}
			}

			path, err := chart.WriteFile(a.cfg.Output.FiguresDir, s.Name+"_history", chart.History(s))
			if err != nil {
				return err
			}
			first, last, _ := s.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d observations, %s, written to %s\n",
				s.Name, s.Len(), model.Window{Start: first, End: last}, path)
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Only plot from this year")
	cmd.Flags().IntVar(&end, "end", 0, "Only plot up to this year, inclusive")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy every CSV series from the raw data directory into the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			csv := collector.NewCSVFetcher(a.cfg.DataSource.RawDir, a.cfg.DateLayouts())
			batch, err := collector.NewCollector(csv, a.logger).LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range batch.Series {
				if err := st.Import(cmd.Context(), s); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d series into %s", len(batch.Series), a.cfg.Database.SQLitePath)
			if len(batch.Failures) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d skipped", len(batch.Failures))
				for _, f := range batch.Failures {
					fmt.Fprintf(cmd.OutOrStdout(), "\n  %s: %s", f.Instrument, f.Detail)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		runNow      bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the scheduled report jobs, answer Telegram commands and serve /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r, err := a.runner()
			if err != nil {
				return err
			}
			var (
				sender scheduler.Sender
				tn     *notifier.TelegramNotifier
			)
			if a.cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.logger)
				sender = tn
			}

			sched := scheduler.NewScheduler(ctx, a.cfg, r, sender, a.logger)
			if err := sched.RegisterJobs(a.cfg.Schedule.Jobs); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			g, gctx := errgroup.WithContext(ctx)
			if tn != nil {
				g.Go(func() error {
					tn.StartPolling(gctx, sched.HandleCommand)
					return nil
				})
			}
			if metricsAddr != "" {
				a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error {
					a.logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}
			if runNow {
				g.Go(func() error {
					sched.RunAllNow(a.cfg.Schedule.Jobs)
					return nil
				})
			}

			a.logger.Info().Int("jobs", len(a.cfg.Schedule.Jobs)).Bool("telegram", tn != nil).
				Msg("CurrencyLens is running. Press Ctrl+C to stop.")
			g.Go(func() error {
				<-gctx.Done()
				return nil
			})
			err = g.Wait()
			a.logger.Info().Msg("shutdown signal received, stopping")
			return err
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", os.Getenv("RUN_ON_START") == "true", "Run every job once at startup")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default from config)")
	return cmd
}

func metricsMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}
