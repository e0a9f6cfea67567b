package strategy

import (
	"sma_trader/internal/config"
)

// NewFromConfig builds the evaluator described by the trading config.
func NewFromConfig(cfg *config.Config) (Evaluator, error) {
	s, err := NewSMACrossover(cfg.FastWindow, cfg.SlowWindow)
	if err != nil {
		return nil, err
	}
	return s, nil
}
