package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/config"
	"github.com/comalice/hsmx/internal/demo"
	"github.com/comalice/hsmx/observe"
	"github.com/comalice/hsmx/realtime"
)

type runOptions struct {
	root        *rootOptions
	events      []string
	ticks       int
	period      time.Duration
	metricsAddr string
	verbose     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{root: root}
	cmd := &cobra.Command{
		Use:   "run <demo>",
		Short: "Run a reference chart under the configured execution policy",
		Long: `Starts the chart under the selected policy, sends its event script (or --events)
and, for tick-driven charts, delivers ticks at --period. Transitions are printed as
they happen. Interrupt stops the runtime gracefully.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := lookupDemo(args[0])
			if err != nil {
				return err
			}
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = opts.metricsAddr
			}
			if opts.period <= 0 {
				opts.period = cfg.TickPeriod
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDemo(ctx, cmd, d, cfg, opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.events, "events", nil, "comma separated events to send instead of the demo script")
	f.IntVar(&opts.ticks, "ticks", -1, "ticks to deliver to tick-driven charts (-1 uses the demo default)")
	f.DurationVar(&opts.period, "period", 0, "tick period (default from configuration)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :2112")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "also print unhandled and rejected events")
	return cmd
}

func runDemo(ctx context.Context, cmd *cobra.Command, d demo.Demo, cfg config.Config, opts *runOptions) error {
	logger := cfg.Logger(cmd.ErrOrStderr()).With("demo", d.Name)
	chart := d.Build(hsmx.WithLogger(logger))
	p := newPrinter(cmd.OutOrStdout(), chart, opts.verbose)
	waiter := hsmx.NewWaiter()

	rtOpts := []hsmx.RuntimeOption{
		hsmx.WithObserver(p),
		hsmx.WithObserver(observe.NewLogging(chart, logger, slog.LevelDebug)),
		hsmx.WithObserver(waiter),
	}
	if cfg.MetricsAddr != "" {
		m, shutdown, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		rtOpts = append(rtOpts, hsmx.WithObserver(m))
	}

	rt, err := config.NewRuntime(chart, cfg, rtOpts...)
	if err != nil {
		return err
	}
	logger.Info("runtime starting", "policy", cfg.Policy)
	if err := rt.Start(ctx); err != nil {
		return errors.Join(err, rt.Stop())
	}
	p.state("start", chart.Configuration())

	sent, sendErr := send(ctx, rt, chart, d, opts, logger)
	if sendErr == nil {
		sendErr = settle(ctx, rt, waiter, sent)
	}
	if sendErr == nil || errors.Is(sendErr, context.Canceled) {
		p.state("final", chart.Configuration())
	}
	if errors.Is(sendErr, context.Canceled) {
		logger.Info("interrupted, shutting down")
		sendErr = nil
	}
	return errors.Join(sendErr, rt.Stop())
}

// send delivers the script and the ticks and returns how many events were queued.
func send(ctx context.Context, rt hsmx.Runtime, chart *hsmx.Chart, d demo.Demo, opts *runOptions, logger *slog.Logger) (uint64, error) {
	script := d.Script
	if len(opts.events) > 0 {
		script = opts.events
	}
	var sent uint64
	for _, name := range script {
		if err := rt.SendEvent(chart.Event(name)); err != nil {
			return sent, fmt.Errorf("send %s: %w", name, err)
		}
		sent++
	}

	ticks := opts.ticks
	if ticks < 0 {
		ticks = d.Ticks
	}
	if d.TickEvent == "" || ticks == 0 {
		return sent, nil
	}
	tick := chart.Event(d.TickEvent)

	// the synchronous policy has no worker to race a ticker against
	if _, ok := rt.(*hsmx.SyncRuntime); ok {
		start := time.Now()
		for n := 1; n <= ticks; n++ {
			at := start.Add(time.Duration(n) * opts.period)
			if err := rt.SendEvent(tick.With(realtime.Tick{N: uint64(n), At: at})); err != nil {
				return sent, err
			}
			sent++
		}
		return sent, nil
	}

	ticker := realtime.NewTicker(rt, tick, opts.period,
		realtime.WithTickLimit(uint64(ticks)),
		realtime.WithTickerLogger(logger),
	)
	if err := ticker.Start(ctx); err != nil {
		return sent, err
	}
	defer ticker.Stop()
	select {
	case <-ticker.Done():
	case <-ctx.Done():
		ticker.Stop()
		return sent + ticker.Ticks(), ctx.Err()
	}
	return sent + ticker.Ticks(), nil
}

// settle waits until every queued event was dispatched.
func settle(ctx context.Context, rt hsmx.Runtime, waiter *hsmx.Waiter, sent uint64) error {
	if s, ok := rt.(*hsmx.SyncRuntime); ok {
		_, err := s.Drain()
		return err
	}

	var done <-chan struct{}
	if w, ok := rt.(interface{ Done() <-chan struct{} }); ok {
		done = w.Done()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := waiter.Wait(ctx, sent)
	select {
	case <-done:
		// a worker that exited early reports its error from Stop
		return nil
	default:
	}
	return err
}

// serveMetrics exposes a private registry on addr and returns the observer that
// feeds it.
func serveMetrics(addr string, logger *slog.Logger) (*observe.Metrics, func(), error) {
	reg := prometheus.NewRegistry()
	m, err := observe.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return m, shutdown, nil
}
