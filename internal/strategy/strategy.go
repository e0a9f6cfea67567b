package strategy

import (
	"errors"
	"fmt"

	"sma_trader/internal/models"
)

// ErrConfiguration marks strategy parameters that can never produce a valid evaluation.
var ErrConfiguration = errors.New("strategy configuration error")

// InsufficientDataError is returned when fewer candles than the slow window were supplied.
type InsufficientDataError struct {
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough candles to evaluate strategy: need %d, got %d", e.Required, e.Actual)
}

// Result is the outcome of one evaluation.
type Result struct {
	Signal      models.Side
	FastAverage float64
	SlowAverage float64
}

// Evaluator is what the trader calls once per cycle.
type Evaluator interface {
	Evaluate(candles []models.Candle) (Result, error)
	// Warmup is the minimum number of candles Evaluate accepts.
	Warmup() int
	Name() string
}
