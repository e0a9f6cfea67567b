package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"sma_trader/internal/config"
	"sma_trader/internal/exchange"
	"sma_trader/internal/health"
	"sma_trader/internal/journal"
	"sma_trader/internal/notify"
	"sma_trader/internal/runner"
	"sma_trader/internal/strategy"
	"sma_trader/pkg/logger"
	"sma_trader/pkg/tracing"
)

const serviceName = "sma_trader"

func startTracing(lc fx.Lifecycle, cfg *config.Config) error {
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run starts the bot and blocks until it stops. Configuration problems are reported on
// stderr before any component is built.
func run(args []string, stderr io.Writer) int {
	flags, err := config.ParseFlags(serviceName, args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)
	log, err := logger.New(flags.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	if dump, err := cfg.Dump(); err == nil {
		log.Debug("configuration", zap.String("yaml", dump))
	}
	log.Info("starting trader",
		zap.String("exchange", cfg.ExchangeID),
		zap.String("symbol", cfg.Symbol),
		zap.String("timeframe", cfg.Timeframe),
		zap.Int("fast_window", cfg.FastWindow),
		zap.Int("slow_window", cfg.SlowWindow),
		zap.Float64("base_order_size", cfg.BaseOrderSize),
		zap.String("quote_currency", cfg.QuoteCurrency),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Bool("sandbox", cfg.Sandbox),
		zap.Int("poll_interval_sec", cfg.PollInterval))

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.StopTimeout(runner.CycleTimeout(cfg)+5*time.Second),
		fx.Supply(cfg, flags, log),
		fx.Invoke(startTracing),
		exchange.Module(),
		strategy.Module(),
		notify.Module(),
		journal.Module(),
		health.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(stderr, "startup error: %v\n", err)
		return 1
	}
	app.Run()
	return 0
}
