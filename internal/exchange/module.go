package exchange

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sma_trader/internal/config"
)

// Provide builds the configured venue client, wrapped in DryRun unless live trading is on.
func Provide(cfg *config.Config, log *zap.Logger) (Exchange, error) {
	ex, err := DefaultRegistry().New(cfg.ExchangeID, Options{
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		Passphrase: cfg.APIPassphrase,
		Sandbox:    cfg.Sandbox,
		Timeout:    cfg.Timeout(),
		Log:        log,
	})
	if err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return NewDryRun(ex, log), nil
	}
	return ex, nil
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(Provide),
	)
}
