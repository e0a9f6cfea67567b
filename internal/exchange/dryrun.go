package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sma_trader/internal/models"
)

// DryRun forwards reads to the wrapped exchange and never places orders.
type DryRun struct {
	Exchange
	log *zap.Logger
	now func() time.Time
}

func NewDryRun(inner Exchange, log *zap.Logger) *DryRun {
	if log == nil {
		log = zap.NewNop()
	}
	return &DryRun{Exchange: inner, log: log, now: time.Now}
}

func (d *DryRun) SubmitMarketOrder(_ context.Context, symbol string, side models.Side, amount float64) (models.OrderReceipt, error) {
	d.log.Info("dry run active: market order not sent",
		zap.String("exchange", d.Name()),
		zap.String("symbol", symbol),
		zap.String("side", side.String()),
		zap.Float64("amount", amount))

	return models.OrderReceipt{
		Exchange:  d.Name(),
		Symbol:    symbol,
		Side:      side,
		Amount:    amount,
		Status:    models.OrderStatusSimulated,
		Simulated: true,
		CreatedAt: d.now().UTC(),
	}, nil
}
