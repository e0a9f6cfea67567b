package strategy

import (
	"fmt"

	"sma_trader/internal/models"
)

// SMACrossover compares a fast and a slow simple moving average of closing prices.
type SMACrossover struct {
	fast int
	slow int
}

func NewSMACrossover(fast, slow int) (*SMACrossover, error) {
	if fast < 1 {
		return nil, fmt.Errorf("%w: fast window must be positive, got %d", ErrConfiguration, fast)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%w: fast window (%d) must be smaller than slow window (%d)", ErrConfiguration, fast, slow)
	}
	return &SMACrossover{fast: fast, slow: slow}, nil
}

func (s *SMACrossover) Name() string { return fmt.Sprintf("sma_crossover(%d,%d)", s.fast, s.slow) }

func (s *SMACrossover) Warmup() int { return s.slow }

// Evaluate uses only the closes of the trailing windows; both windows end at the newest candle.
// Ties produce SideNone.
func (s *SMACrossover) Evaluate(candles []models.Candle) (Result, error) {
	if len(candles) < s.slow {
		return Result{}, &InsufficientDataError{Required: s.slow, Actual: len(candles)}
	}

	closes := models.Closes(candles)
	fast := mean(closes[len(closes)-s.fast:])
	slow := mean(closes[len(closes)-s.slow:])

	var side models.Side
	switch {
	case fast > slow:
		side = models.SideBuy
	case fast < slow:
		side = models.SideSell
	default:
		side = models.SideNone
	}

	return Result{Signal: side, FastAverage: fast, SlowAverage: slow}, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
