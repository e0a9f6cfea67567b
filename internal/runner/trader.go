package runner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"sma_trader/internal/config"
	"sma_trader/internal/exchange"
	"sma_trader/internal/journal"
	"sma_trader/internal/metrics"
	"sma_trader/internal/models"
	"sma_trader/internal/notify"
	"sma_trader/internal/strategy"
	"sma_trader/pkg/tracing"
)

// a cycle requests three warmup windows of history
const candlesPerWarmup = 3

// Trader runs one evaluate/execute pass against the exchange.
type Trader struct {
	cfg      *config.Config
	ex       exchange.Exchange
	strategy strategy.Evaluator
	notifier notify.Notifier
	journal  journal.Journal
	log      *zap.Logger
}

func NewTrader(
	cfg *config.Config,
	ex exchange.Exchange,
	ev strategy.Evaluator,
	n notify.Notifier,
	j journal.Journal,
	log *zap.Logger,
) *Trader {
	return &Trader{cfg: cfg, ex: ex, strategy: ev, notifier: n, journal: j, log: log}
}

// Evaluate fetches recent candles and runs the strategy over them.
func (t *Trader) Evaluate(ctx context.Context) (strategy.Result, error) {
	span, ctx := tracing.StartSpan(ctx, "trader.evaluate")
	defer span.Finish()

	limit := candlesPerWarmup * t.strategy.Warmup()
	candles, err := t.ex.FetchRecentCandles(ctx, t.cfg.Symbol, t.cfg.Timeframe, limit)
	if err != nil {
		tracing.Fail(span, err)
		return strategy.Result{}, errors.Wrapf(err, "fetch candles %s %s", t.cfg.Symbol, t.cfg.Timeframe)
	}

	res, err := t.strategy.Evaluate(candles)
	if err != nil {
		tracing.Fail(span, err)
		return strategy.Result{}, err
	}

	metrics.FastAverage.Set(res.FastAverage)
	metrics.SlowAverage.Set(res.SlowAverage)
	metrics.Signals.WithLabelValues(res.Signal.String()).Inc()
	span.SetTag("signal", res.Signal.String())

	t.log.Info("strategy evaluated",
		zap.String("strategy", t.strategy.Name()),
		zap.String("symbol", t.cfg.Symbol),
		zap.Int("candles", len(candles)),
		zap.String("signal", res.Signal.String()),
		zap.Float64("fast_average", res.FastAverage),
		zap.Float64("slow_average", res.SlowAverage))
	return res, nil
}

// Execute sizes and submits the order for res. A nil receipt means nothing was traded.
func (t *Trader) Execute(ctx context.Context, res strategy.Result) (*models.OrderReceipt, error) {
	span, ctx := tracing.StartSpan(ctx, "trader.execute")
	defer span.Finish()

	amount, ok, err := ResolveOrderAmount(ctx, res.Signal, t.cfg.BaseOrderSize, t.ex, t.cfg.BaseCurrency(), t.log)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	if !ok {
		t.log.Info("no actionable signal",
			zap.String("signal", res.Signal.String()),
			zap.String("symbol", t.cfg.Symbol))
		return nil, nil
	}

	rounded, err := t.ex.RoundAmount(ctx, t.cfg.Symbol, amount)
	if err != nil {
		tracing.Fail(span, err)
		return nil, errors.Wrapf(err, "round amount %s", t.cfg.Symbol)
	}
	if rounded <= 0 {
		t.log.Info("order amount below venue minimum size",
			zap.String("signal", res.Signal.String()),
			zap.String("symbol", t.cfg.Symbol),
			zap.Float64("amount", amount))
		return nil, nil
	}
	amount = rounded

	if res.Signal == models.SideBuy {
		t.log.Debug("buying with quote currency",
			zap.String("quote_currency", t.cfg.QuoteCurrency),
			zap.Float64("amount", amount))
	}

	receipt, err := t.ex.SubmitMarketOrder(ctx, t.cfg.Symbol, res.Signal, amount)
	if err != nil {
		tracing.Fail(span, err)
		return nil, errors.Wrapf(err, "submit %s %s", res.Signal, t.cfg.Symbol)
	}
	metrics.Orders.WithLabelValues(res.Signal.String(), metrics.OrderMode(receipt.Simulated)).Inc()
	span.SetTag("order.status", receipt.Status)

	t.notifier.Send(notify.OrderMessage(receipt))
	if err := t.journal.Record(ctx, journal.Entry{
		Receipt:     receipt,
		FastAverage: res.FastAverage,
		SlowAverage: res.SlowAverage,
	}); err != nil {
		// order already placed: log only
		t.log.Warn("order journal write failed", zap.Error(err))
	}
	return &receipt, nil
}
