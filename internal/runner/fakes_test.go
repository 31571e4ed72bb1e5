package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"margin_bot/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExchange struct {
	mu          sync.Mutex
	price       float64
	accounts    []models.Account
	accountsErr error
	currencies  map[string]models.Currency
	currencyErr error
	orderErr    error
	fill        models.Order
	orders      []models.MarketOrder
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		price: 10,
		currencies: map[string]models.Currency{
			"USDT": {Code: "USDT", WithdrawalMinSize: 0.001},
			"BTC":  {Code: "BTC", WithdrawalMinSize: 0.0001},
		},
		fill: models.Order{ID: "o1"},
	}
}

func (f *fakeExchange) Ticker(_ context.Context, symbol string) (models.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.Ticker{Symbol: symbol, Price: f.price}, nil
}

func (f *fakeExchange) Accounts(context.Context, string) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return append([]models.Account(nil), f.accounts...), nil
}

func (f *fakeExchange) Currency(_ context.Context, code string) (models.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currencyErr != nil {
		return models.Currency{}, f.currencyErr
	}
	return f.currencies[code], nil
}

func (f *fakeExchange) CreateMarketOrder(_ context.Context, o models.MarketOrder) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return "", f.orderErr
	}
	f.orders = append(f.orders, o)
	return f.fill.ID, nil
}

func (f *fakeExchange) LatestOrder(context.Context, string) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fill, nil
}

func (f *fakeExchange) placed() []models.MarketOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MarketOrder(nil), f.orders...)
}

func (f *fakeExchange) setMargin(accounts ...models.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range accounts {
		accounts[i].Type = models.AccountTypeMargin
	}
	f.accounts = accounts
}

type fakeChannel struct {
	mu    sync.Mutex
	sent  map[int64][]string
	inbox map[int64][]models.ChatMessage
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{sent: map[int64][]string{}, inbox: map[int64][]models.ChatMessage{}}
}

func (c *fakeChannel) Send(_ context.Context, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[chatID] = append(c.sent[chatID], text)
	return nil
}

func (c *fakeChannel) Recent(_ context.Context, chatID int64, limit int) ([]models.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.inbox[chatID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.ChatMessage(nil), msgs...), nil
}

func (c *fakeChannel) push(m models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.SenderChatID == 0 {
		m.SenderChatID = m.ChatID
	}
	c.inbox[m.ChatID] = append(c.inbox[m.ChatID], m)
}

func (c *fakeChannel) messages(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent[chatID]...)
}

func (c *fakeChannel) last(chatID int64) string {
	msgs := c.messages(chatID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (c *fakeChannel) joined(chatID int64) string {
	return strings.Join(c.messages(chatID), "\n")
}

type staticSource struct {
	mu   sync.Mutex
	snap models.IndicatorSnapshot
}

func newStaticSource(ema20, ema45, ema130 float64) *staticSource {
	s := &staticSource{}
	s.set(ema20, ema45, ema130)
	return s
}

func (s *staticSource) Snapshot() models.IndicatorSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *staticSource) set(ema20, ema45, ema130 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = models.IndicatorSnapshot{EMA20: ema20, EMA45: ema45, EMA130: ema130, ComputedAt: time.Now()}
}

type fakeHub struct {
	mu       sync.Mutex
	src      *staticSource
	err      error
	acquired map[string]int
	released map[string]int
}

func newFakeHub(src *staticSource) *fakeHub {
	return &fakeHub{src: src, acquired: map[string]int{}, released: map[string]int{}}
}

func (h *fakeHub) Acquire(_ context.Context, pair models.Pair) (models.SnapshotSource, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	h.acquired[pair.Symbol()]++
	return h.src, nil
}

func (h *fakeHub) Release(pair models.Pair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released[pair.Symbol()]++
}

func (h *fakeHub) counts(symbol string) (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.acquired[symbol], h.released[symbol]
}

type fatalErr struct{}

func (fatalErr) Error() string { return "api key revoked" }
func (fatalErr) Fatal() bool   { return true }

var errTransient = errors.New("connection reset")

func testParams(owner string, chatID int64) models.BotParams {
	return models.BotParams{
		Owner:  owner,
		ChatID: chatID,
		Pair:   models.NewPair("BTC", "USDT"),
		Creds:  models.Credentials{Key: owner, Secret: "s", Passphrase: "p"},
	}
}

// newTestBot собирает бота без цикла и проходит INIT.
func newTestBot(t *testing.T, p models.BotParams, ex *fakeExchange, ch *fakeChannel, src *staticSource, log *zap.Logger) *Bot {
	t.Helper()
	if log == nil {
		log = zap.NewNop()
	}
	b := newBot(1, p, botDeps{
		ex:           ex,
		ch:           ch,
		ind:          src,
		cfg:          Config{CycleInterval: time.Hour, PausePoll: time.Hour, EntryPoll: time.Millisecond},
		adminChatID:  1000,
		historyLimit: 100,
		log:          log,
	})
	require.NoError(t, b.init(context.Background()))
	return b
}
