package journal

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"sma_trader/internal/models"
	"sma_trader/pkg/db"
)

// Entry is one executed (or simulated) order together with the averages that triggered it.
type Entry struct {
	Receipt     models.OrderReceipt
	FastAverage float64
	SlowAverage float64
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries; used when no journal DSN is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

const schemaSQL = `
CREATE TABLE IF NOT EXISTS order_journal (
	id              BIGSERIAL PRIMARY KEY,
	exchange        TEXT             NOT NULL,
	symbol          TEXT             NOT NULL,
	side            TEXT             NOT NULL,
	amount          DOUBLE PRECISION NOT NULL,
	status          TEXT             NOT NULL,
	simulated       BOOLEAN          NOT NULL,
	order_id        TEXT,
	client_order_id TEXT,
	fast_average    DOUBLE PRECISION NOT NULL,
	slow_average    DOUBLE PRECISION NOT NULL,
	raw             JSONB,
	created_at      TIMESTAMPTZ      NOT NULL
)`

const insertSQL = `
INSERT INTO order_journal
	(exchange, symbol, side, amount, status, simulated, order_id, client_order_id, fast_average, slow_average, raw, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Postgres appends entries to the order_journal table.
type Postgres struct {
	db  db.TxManager
	log *zap.Logger
}

func NewPostgres(tx db.TxManager, log *zap.Logger) *Postgres {
	return &Postgres{db: tx, log: log}
}

// EnsureSchema creates order_journal when missing.
func (p *Postgres) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.EnsureSchema: %w", err)
		}
	}()
	_, err = p.db.Conn().Exec(ctx, schemaSQL)
	return err
}

func (p *Postgres) Record(ctx context.Context, e Entry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Record: %w", err)
		}
	}()

	var raw []byte
	if len(e.Receipt.Raw) > 0 {
		raw, err = sonic.Marshal(e.Receipt.Raw)
		if err != nil {
			return err
		}
	}

	r := e.Receipt
	err = p.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertSQL,
			r.Exchange, r.Symbol, r.Side.String(), r.Amount, r.Status, r.Simulated,
			nullable(r.ID), nullable(r.ClientOrderID), e.FastAverage, e.SlowAverage, raw, r.CreatedAt)
		return err
	})
	if err != nil {
		return err
	}
	p.log.Debug("order journaled", zap.String("order_id", r.ID), zap.String("status", r.Status))
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
