package journal

import (
	"context"
	"fmt"
	"time"

	"margin_bot/internal/models"
	"margin_bot/pkg/db"

	"github.com/bytedance/sonic"
)

const schema = `
CREATE TABLE IF NOT EXISTS bot_trades (
	id         BIGSERIAL PRIMARY KEY,
	bot_id     BIGINT           NOT NULL,
	owner      TEXT             NOT NULL,
	pair       TEXT             NOT NULL,
	action     TEXT             NOT NULL,
	side       TEXT             NOT NULL,
	order_id   TEXT             NOT NULL,
	order_size DOUBLE PRECISION NOT NULL,
	deal_size  DOUBLE PRECISION NOT NULL,
	deal_funds DOUBLE PRECISION NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	silent     BOOLEAN          NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS bot_trades_owner_idx ON bot_trades (owner, created_at DESC);

CREATE TABLE IF NOT EXISTS bot_events (
	id         BIGSERIAL PRIMARY KEY,
	bot_id     BIGINT      NOT NULL,
	kind       TEXT        NOT NULL,
	payload    JSONB       NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);`

// Journal: журнал сделок и событий ботов в Postgres.
type Journal struct {
	db db.TxManager
}

func New(tm db.TxManager) *Journal {
	return &Journal{db: tm}
}

func (j *Journal) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Migrate: %w", err)
		}
	}()
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, schema)
		return err
	})
}

func (j *Journal) RecordTrade(ctx context.Context, t models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.RecordTrade: %w", err)
		}
	}()
	if t.At.IsZero() {
		t.At = time.Now()
	}
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO bot_trades (bot_id, owner, pair, action, side, order_id, order_size, deal_size, deal_funds, price, silent, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			t.BotID, t.Owner, t.Pair, t.Action, string(t.Side), t.OrderID,
			t.OrderSize, t.DealSize, t.DealFunds, t.Price, t.Silent, t.At,
		)
		return err
	})
}

func (j *Journal) RecordEvent(ctx context.Context, e models.BotEvent) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.RecordEvent: %w", err)
		}
	}()
	payload := []byte("{}")
	if len(e.Payload) > 0 {
		if payload, err = sonic.Marshal(e.Payload); err != nil {
			return err
		}
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO bot_events (bot_id, kind, payload, created_at) VALUES ($1, $2, $3::jsonb, $4)`,
			e.BotID, e.Kind, string(payload), e.At,
		)
		return err
	})
}

// Trades: последние сделки владельца, новые сверху.
func (j *Journal) Trades(ctx context.Context, owner string, limit int) (out []models.Trade, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("journal.Trades: %w", err)
		}
	}()
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Conn().Query(ctx, `
		SELECT bot_id, owner, pair, action, side, order_id, order_size, deal_size, deal_funds, price, silent, created_at
		FROM bot_trades WHERE owner = $1 ORDER BY created_at DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t    models.Trade
			side string
		)
		if err := rows.Scan(&t.BotID, &t.Owner, &t.Pair, &t.Action, &side, &t.OrderID,
			&t.OrderSize, &t.DealSize, &t.DealFunds, &t.Price, &t.Silent, &t.At); err != nil {
			return nil, err
		}
		t.Side = models.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Nop: журнал без базы.
type Nop struct{}

func (Nop) RecordTrade(context.Context, models.Trade) error    { return nil }
func (Nop) RecordEvent(context.Context, models.BotEvent) error { return nil }
