package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"margin_bot/internal/models"

	"go.uber.org/zap"
)

var ErrBotNotFound = errors.New("bot not found")

type Deps struct {
	Hub         IndicatorHub
	Channel     Channel
	NewExchange ExchangeFactory
	Journal     Journal
	Baselines   Baselines
	Config      Config
	Poller      PollerConfig
	AdminChatID int64
	Log         *zap.Logger
}

// Manager: реестр живых ботов. Все операции над набором ботов идут под mu.
type Manager struct {
	deps Deps
	log  *zap.Logger

	mu     sync.RWMutex
	bots   map[int64]*Bot
	nextID int64
	root   context.Context

	wg sync.WaitGroup
}

func NewManager(d Deps) *Manager {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Journal == nil {
		d.Journal = nopJournal{}
	}
	if d.Baselines == nil {
		d.Baselines = nopBaselines{}
	}
	d.Poller = d.Poller.withDefaults()
	return &Manager{
		deps: d,
		log:  d.Log,
		bots: make(map[int64]*Bot),
		root: context.Background(),
	}
}

// SetContext задаёт контекст, в котором живут циклы ботов.
func (m *Manager) SetContext(ctx context.Context) {
	m.mu.Lock()
	m.root = ctx
	m.mu.Unlock()
}

// Start создаёт бота: индикатор пары (общий), INIT, регистрация, запуск цикла.
func (m *Manager) Start(ctx context.Context, p models.BotParams) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("invalid bot params: %w", err)
	}

	ind, err := m.deps.Hub.Acquire(ctx, p.Pair)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	root := m.root
	m.mu.Unlock()

	b := newBot(id, p, botDeps{
		ex:           m.deps.NewExchange(p.Creds),
		ch:           m.deps.Channel,
		ind:          ind,
		fleet:        m,
		journal:      m.deps.Journal,
		baselines:    m.deps.Baselines,
		cfg:          m.deps.Config,
		adminChatID:  m.deps.AdminChatID,
		historyLimit: m.deps.Poller.HistoryLimit,
		log:          m.log,
	})
	if err := b.init(ctx); err != nil {
		m.deps.Hub.Release(p.Pair)
		return 0, fmt.Errorf("init bot: %w", err)
	}

	m.mu.Lock()
	m.bots[id] = b
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		b.run(root)

		m.mu.Lock()
		delete(m.bots, id)
		m.mu.Unlock()
		m.deps.Hub.Release(p.Pair)
	}()

	m.log.Info("bot started",
		zap.Int64("bot", id),
		zap.String("owner", p.Owner),
		zap.String("pair", p.Pair.Symbol()),
		zap.Bool("bypass", p.Bypass),
	)
	b.event(ctx, "started", map[string]any{"bypass": p.Bypass, "first_value": b.State().FirstValue})
	return id, nil
}

func (m *Manager) Get(id int64) (*Bot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bots[id]
	return b, ok
}

// Bots: снимок живых ботов по возрастанию id.
func (m *Manager) Bots() []*Bot {
	m.mu.RLock()
	out := make([]*Bot, 0, len(m.bots))
	for _, b := range m.bots {
		out = append(out, b)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m *Manager) List() []models.BotSummary {
	bots := m.Bots()
	out := make([]models.BotSummary, 0, len(bots))
	for _, b := range bots {
		out = append(out, b.Summary())
	}
	return out
}

func (m *Manager) Pause(ctx context.Context, id int64) error {
	b, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrBotNotFound, id)
	}
	if b.pause() {
		b.notify(ctx, fmt.Sprintf("Your bot, trading %s, has been paused", b.params.Pair))
		b.event(ctx, "paused", nil)
	}
	return nil
}

func (m *Manager) PauseAll(ctx context.Context) int {
	bots := m.Bots()
	for _, b := range bots {
		_ = m.Pause(ctx, b.id)
	}
	return len(bots)
}

func (m *Manager) Resume(ctx context.Context, id int64) error {
	b, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrBotNotFound, id)
	}
	if b.resume() {
		b.notify(ctx, fmt.Sprintf("Your bot, trading %s, has been resumed", b.params.Pair))
		b.event(ctx, "resumed", nil)
	}
	return nil
}

func (m *Manager) ResumeAll(ctx context.Context) int {
	bots := m.Bots()
	for _, b := range bots {
		_ = m.Resume(ctx, b.id)
	}
	return len(bots)
}

// Kill снимает бота с учёта. Текущий проход бота доработает, новый не начнётся.
func (m *Manager) Kill(ctx context.Context, id int64, silent bool) error {
	b, ok := m.detach(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrBotNotFound, id)
	}
	b.kill()
	m.finishKill(ctx, b, silent)
	return nil
}

// KillLiquidate останавливает бота и синхронно прогоняет у него проход ликвидации.
func (m *Manager) KillLiquidate(ctx context.Context, id int64, silent bool) (Result, error) {
	b, ok := m.detach(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrBotNotFound, id)
	}
	b.kill()
	res := b.LiquidationPass(ctx, silent)
	if !res.OK() {
		m.log.Warn("liquidation before kill failed", zap.Int64("bot", id), zap.Error(res.Err))
	}
	m.finishKill(ctx, b, silent)
	return res, nil
}

func (m *Manager) detach(id int64) (*Bot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bots[id]
	if ok {
		delete(m.bots, id)
	}
	return b, ok
}

func (m *Manager) finishKill(ctx context.Context, b *Bot, silent bool) {
	if !silent {
		b.notify(ctx, fmt.Sprintf("Your bot, trading %s, has been killed", b.params.Pair))
	}
	if err := b.baselines.Delete(b.params.BaselineKey()); err != nil {
		m.log.Warn("delete baseline", zap.Int64("bot", b.id), zap.Error(err))
	}
	b.event(ctx, "killed", map[string]any{"silent": silent})
	m.log.Info("bot killed", zap.Int64("bot", b.id), zap.Bool("silent", silent))
}

func (m *Manager) KillAll(ctx context.Context, silent bool) int {
	bots := m.Bots()
	for _, b := range bots {
		_ = m.Kill(ctx, b.id, silent)
	}
	return len(bots)
}

// Liquidate взводит у бота принудительный проход продажи.
func (m *Manager) Liquidate(id int64, silent bool) error {
	b, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrBotNotFound, id)
	}
	b.ForceLiquidation(silent)
	return nil
}

func (m *Manager) LiquidateAll(silent bool) int {
	bots := m.Bots()
	for _, b := range bots {
		b.ForceLiquidation(silent)
	}
	return len(bots)
}

// EmergencyStop: ликвидация всех ботов по команде администратора.
func (m *Manager) EmergencyStop(ctx context.Context) int {
	n := m.LiquidateAll(false)
	m.log.Warn("emergency stop", zap.Int("bots", n))
	return n
}

// Load: быстрый запуск всех записей пакета.
func (m *Manager) Load(ctx context.Context, pkg models.Package, bypass bool) ([]int64, error) {
	var (
		ids  []int64
		errs []error
	)
	for _, idx := range pkg.Indexes() {
		id, err := m.Start(ctx, pkg[idx].Params(bypass))
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", idx, pkg[idx].Owner, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

// Restart поднимает ботов пакета с живыми балансами маржинального счёта за вычетом займа, в bypass.
func (m *Manager) Restart(ctx context.Context, pkg models.Package) ([]int64, error) {
	var (
		ids  []int64
		errs []error
	)
	for _, idx := range pkg.Indexes() {
		e := pkg[idx]
		p := e.Params(true)
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", idx, e.Owner, err))
			continue
		}

		accounts, err := m.deps.NewExchange(p.Creds).Accounts(ctx, models.AccountTypeMargin)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): accounts: %w", idx, e.Owner, err))
			continue
		}
		base, _ := models.FindAccount(accounts, p.Pair.Base, models.AccountTypeMargin)
		quote, _ := models.FindAccount(accounts, p.Pair.Quote, models.AccountTypeMargin)
		p.YourBase = math.Max(0, base.Balance-p.MarginBase)
		p.YourQuote = math.Max(0, quote.Balance-p.MarginQuote)

		id, err := m.Start(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", idx, e.Owner, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

// Shutdown останавливает циклы ботов и ждёт их. Базовые значения остаются в хранилище.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, b := range m.Bots() {
		b.kill()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return errors.New("bots did not stop in time")
	}
}
