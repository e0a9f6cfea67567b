package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"sma_trader/internal/config"
	"sma_trader/internal/health"
	"sma_trader/internal/metrics"
	"sma_trader/internal/models"
	"sma_trader/internal/strategy"
	"sma_trader/pkg/tracing"
)

// TradingCycle is one evaluate/execute pass. *Trader implements it.
type TradingCycle interface {
	Evaluate(ctx context.Context) (strategy.Result, error)
	Execute(ctx context.Context, res strategy.Result) (*models.OrderReceipt, error)
}

// Loop polls the trader every interval until its context is cancelled.
type Loop struct {
	trader       TradingCycle
	state        *health.State
	log          *zap.Logger
	interval     time.Duration
	cycleTimeout time.Duration
	once         bool
}

func NewLoop(trader TradingCycle, state *health.State, log *zap.Logger, interval, cycleTimeout time.Duration, once bool) *Loop {
	return &Loop{
		trader:       trader,
		state:        state,
		log:          log,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		once:         once,
	}
}

// CycleTimeout bounds a whole cycle: candles, balance and order requests plus one spare.
func CycleTimeout(cfg *config.Config) time.Duration {
	return 4 * cfg.Timeout()
}

func NewLoopFromConfig(cfg *config.Config, flags config.Flags, tr *Trader, state *health.State, log *zap.Logger) *Loop {
	return NewLoop(tr, state, log, cfg.PollEvery(), CycleTimeout(cfg), flags.Once)
}

// Run executes cycles until ctx is done (or once, in single-shot mode). A cycle that has
// started is allowed to finish; ctx is only checked between cycles and while sleeping.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("trading loop started",
		zap.Duration("poll_interval", l.interval),
		zap.Bool("once", l.once))

	for {
		if ctx.Err() != nil {
			l.stopped()
			return
		}

		_ = l.RunCycle(ctx)

		if l.once {
			l.log.Info("single cycle finished, stopping")
			return
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.stopped()
			return
		case <-timer.C:
		}
	}
}

// stopped withdraws readiness so /readyz reports the bot as draining.
func (l *Loop) stopped() {
	if l.state != nil {
		l.state.SetReady(false)
	}
	l.log.Info("trading loop stopped")
}

// RunCycle runs one cycle on a context detached from stop, logs its outcome and
// returns the error (or recovered panic) that ended it.
func (l *Loop) RunCycle(stop context.Context) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(stop), l.cycleTimeout)
	defer cancel()

	span, ctx := tracing.StartSpan(ctx, "trading.cycle")
	started := time.Now()
	result := "ok"

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in trading cycle: %v", p)
			result = "panic"
			l.log.Error("trading cycle panicked", zap.Any("panic", p), zap.Stack("stack"))
		} else if err != nil {
			result = "error"
			var insufficient *strategy.InsufficientDataError
			if errors.As(err, &insufficient) {
				l.log.Warn("skipping cycle", zap.Error(err))
			} else {
				l.log.Error("trading cycle failed", zap.Error(err))
			}
		}

		tracing.Fail(span, err)
		span.Finish()
		metrics.Cycles.WithLabelValues(result).Inc()
		metrics.CycleDuration.Observe(time.Since(started).Seconds())
		if l.state != nil {
			l.state.CycleDone(time.Now(), err)
		}
	}()

	res, err := l.trader.Evaluate(ctx)
	if err != nil {
		return err
	}

	receipt, err := l.trader.Execute(ctx, res)
	if err != nil {
		return err
	}
	if receipt != nil {
		bs, mErr := sonic.Marshal(receipt)
		if mErr != nil {
			l.log.Warn("marshal order receipt", zap.Error(mErr))
		}
		l.log.Info("order receipt", zap.ByteString("receipt", bs))
	}
	return nil
}
