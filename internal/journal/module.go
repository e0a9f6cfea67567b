package journal

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"sma_trader/internal/config"
	"sma_trader/pkg/db"
)

// Provide connects the Postgres journal when journal.dsn is set; otherwise entries are dropped.
func Provide(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Journal, error) {
	if cfg.Journal.DSN == "" {
		return Nop{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	tx, err := db.Connect(ctx, db.PoolConfig{DSN: cfg.Journal.DSN})
	if err != nil {
		return nil, err
	}
	j := NewPostgres(tx, log)
	if err := j.EnsureSchema(ctx); err != nil {
		tx.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	log.Info("order journal enabled")
	return j, nil
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(Provide),
	)
}
