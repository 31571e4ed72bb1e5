package exchange

import (
	"margin_bot/internal/exchange"
	"margin_bot/internal/models"
	"margin_bot/internal/modules/config"
	strategy "margin_bot/internal/modules/strategy/service"
	"margin_bot/internal/runner"

	"go.uber.org/fx"
)

// NewFactory: клиент биржи под ключи каждого владельца.
func NewFactory(cfg *config.Config) runner.ExchangeFactory {
	return func(creds models.Credentials) runner.Exchange {
		return exchange.NewClient(cfg.Exchange, creds)
	}
}

// NewMarketData: публичный клиент без ключей для свечей индикаторов.
func NewMarketData(cfg *config.Config) strategy.CandleSource {
	return exchange.NewClient(cfg.Exchange, models.Credentials{})
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			NewFactory,
			NewMarketData,
		),
	)
}
