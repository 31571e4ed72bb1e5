package postgres

import (
	"context"
	"fmt"

	"margin_bot/internal/journal"
	"margin_bot/internal/modules/config"
	"margin_bot/internal/runner"
	"margin_bot/pkg/db"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewJournal: журнал в Postgres, если задан DSN, иначе пустышка.
func NewJournal(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (runner.Journal, error) {
	if cfg.DB == "" {
		log.Info("db_dsn is empty, trade journal disabled")
		return journal.Nop{}, nil
	}

	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, err
	}

	tm := db.NewPgTxManager(poolMaster)
	j := journal.New(tm)
	if err := j.Migrate(ctx); err != nil {
		tm.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return j, nil
}

// Module: журнал сделок и событий ботов.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewJournal,
		),
	)
}
