package exchange

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrBelowMinSize is returned when an order amount rounds to less than the venue's minimum size.
var ErrBelowMinSize = errors.New("order amount below venue minimum size")

// lotSize is the order size grid of one instrument.
type lotSize struct {
	step decimal.Decimal
	min  decimal.Decimal
}

func parseLotSize(step, minSize string) (lotSize, error) {
	s, err := decimal.NewFromString(step)
	if err != nil || !s.IsPositive() {
		return lotSize{}, errors.Errorf("bad lot step %q", step)
	}
	m := decimal.Zero
	if minSize != "" {
		if m, err = decimal.NewFromString(minSize); err != nil {
			return lotSize{}, errors.Wrapf(err, "parse min size %q", minSize)
		}
	}
	return lotSize{step: s, min: m}, nil
}

// round floors amount onto the step grid. Zero means nothing tradable is left.
func (l lotSize) round(amount float64) float64 {
	d := decimal.NewFromFloat(amount).Div(l.step).Floor().Mul(l.step)
	if !d.IsPositive() || d.LessThan(l.min) {
		return 0
	}
	return d.InexactFloat64()
}

// lotCache keeps one lotSize per symbol; the zero value is ready to use.
type lotCache struct {
	mu   sync.Mutex
	lots map[string]lotSize
}

func (c *lotCache) get(ctx context.Context, symbol string, fetch func(context.Context, string) (lotSize, error)) (lotSize, error) {
	c.mu.Lock()
	lot, ok := c.lots[symbol]
	c.mu.Unlock()
	if ok {
		return lot, nil
	}

	lot, err := fetch(ctx, symbol)
	if err != nil {
		return lotSize{}, err
	}

	c.mu.Lock()
	if c.lots == nil {
		c.lots = map[string]lotSize{}
	}
	c.lots[symbol] = lot
	c.mu.Unlock()
	return lot, nil
}
