package storage

import (
	"context"

	"margin_bot/internal/modules/config"
	"margin_bot/internal/runner"
	"margin_bot/internal/store"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewBaselines(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (runner.Baselines, error) {
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		log.Warn("store.path is empty, baselines live in memory only")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return s.Close()
		},
	})
	return s, nil
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			NewBaselines,
		),
	)
}
