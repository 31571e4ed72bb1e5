package runner

import (
	"context"

	"margin_bot/internal/models"
)

// Exchange: то, что бот использует от биржи.
type Exchange interface {
	Ticker(ctx context.Context, symbol string) (models.Ticker, error)
	Accounts(ctx context.Context, accountType string) ([]models.Account, error)
	Currency(ctx context.Context, code string) (models.Currency, error)
	CreateMarketOrder(ctx context.Context, o models.MarketOrder) (string, error)
	LatestOrder(ctx context.Context, symbol string) (models.Order, error)
}

// ExchangeFactory создаёт клиента под ключи конкретного владельца.
type ExchangeFactory func(creds models.Credentials) Exchange

// Channel: чат управления ботом.
type Channel interface {
	Send(ctx context.Context, chatID int64, text string) error
	Recent(ctx context.Context, chatID int64, limit int) ([]models.ChatMessage, error)
}

type IndicatorHub interface {
	Acquire(ctx context.Context, pair models.Pair) (models.SnapshotSource, error)
	Release(pair models.Pair)
}

type Journal interface {
	RecordTrade(ctx context.Context, t models.Trade) error
	RecordEvent(ctx context.Context, e models.BotEvent) error
}

// Baselines хранит стартовую стоимость и курсор чата между перезапусками.
type Baselines interface {
	Load(key string) (*models.Baseline, error)
	Save(key string, b models.Baseline) error
	Delete(key string) error
}

type fleet interface {
	EmergencyStop(ctx context.Context) int
}

type nopJournal struct{}

func (nopJournal) RecordTrade(context.Context, models.Trade) error    { return nil }
func (nopJournal) RecordEvent(context.Context, models.BotEvent) error { return nil }

type nopBaselines struct{}

func (nopBaselines) Load(string) (*models.Baseline, error) { return nil, nil }
func (nopBaselines) Save(string, models.Baseline) error    { return nil }
func (nopBaselines) Delete(string) error                   { return nil }
