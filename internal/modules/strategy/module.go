package strategy

import (
	"context"

	"margin_bot/internal/modules/config"
	"margin_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewHub(src service.CandleSource, cfg *config.Config, log *zap.Logger) *service.Hub {
	return service.NewHub(src, cfg.Indicator, log.Named("indicators"))
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewHub, // *service.Hub: по индикатору на пару, общий для всех ботов
		),
		fx.Invoke(func(lc fx.Lifecycle, hub *service.Hub) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					hub.Start(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					hub.Close()
					return nil
				},
			})
		}),
	)
}
