package runner

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"sma_trader/internal/models"
)

// BalanceFetcher is the part of the exchange the sizer needs.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (models.Balance, error)
}

// ResolveOrderAmount turns a signal into an order quantity in base currency.
// Buys always use baseOrderSize; sells are capped by the free base balance.
// ok is false when there is nothing to trade.
func ResolveOrderAmount(
	ctx context.Context,
	side models.Side,
	baseOrderSize float64,
	balances BalanceFetcher,
	baseCurrency string,
	log *zap.Logger,
) (amount float64, ok bool, err error) {
	switch side {
	case models.SideNone:
		return 0, false, nil
	case models.SideBuy:
		amount = baseOrderSize
	case models.SideSell:
		bal, err := balances.FetchBalance(ctx)
		if err != nil {
			return 0, false, errors.Wrap(err, "fetch balance for sell sizing")
		}
		free, known := bal.Free(baseCurrency)
		if !known {
			log.Warn("free balance unavailable, using base order size",
				zap.String("currency", baseCurrency),
				zap.Float64("base_order_size", baseOrderSize))
			amount = baseOrderSize
		} else {
			amount = math.Min(free, baseOrderSize)
		}
	default:
		return 0, false, errors.Errorf("unknown side %q", string(side))
	}

	if amount <= 0 {
		log.Info("resolved order amount is zero",
			zap.String("side", side.String()),
			zap.String("currency", baseCurrency))
		return 0, false, nil
	}
	return amount, true, nil
}
