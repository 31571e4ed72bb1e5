package runner

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"margin_bot/internal/models"

	"go.uber.org/zap"
)

type botDeps struct {
	ex           Exchange
	ch           Channel
	ind          models.SnapshotSource
	fleet        fleet
	journal      Journal
	baselines    Baselines
	cfg          Config
	adminChatID  int64
	historyLimit int
	log          *zap.Logger
}

// Bot: один владелец, одна пара, один капитал.
// Состояние пишет только собственный цикл бота; снаружи меняются лишь атомарные флаги.
type Bot struct {
	id        int64
	params    models.BotParams
	startedAt time.Time
	botDeps

	mu sync.Mutex
	st State

	passMu sync.Mutex

	lastSeen    atomic.Int64
	paused      atomic.Bool
	alive       atomic.Bool
	force       atomic.Bool
	forceSilent atomic.Bool

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newBot(id int64, p models.BotParams, d botDeps) *Bot {
	if d.journal == nil {
		d.journal = nopJournal{}
	}
	if d.baselines == nil {
		d.baselines = nopBaselines{}
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	d.cfg = d.cfg.withDefaults()
	d.log = d.log.With(
		zap.Int64("bot", id),
		zap.String("owner", p.Owner),
		zap.String("pair", p.Pair.Symbol()),
	)

	return &Bot{
		id:        id,
		params:    p,
		startedAt: time.Now(),
		botDeps:   d,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (b *Bot) ID() int64                { return b.id }
func (b *Bot) Params() models.BotParams { return b.params }
func (b *Bot) Paused() bool             { return b.paused.Load() }
func (b *Bot) Alive() bool              { return b.alive.Load() }
func (b *Bot) LastSeenMessageID() int64 { return b.lastSeen.Load() }

// Done закрывается, когда цикл бота завершился.
func (b *Bot) Done() <-chan struct{} { return b.done }

// State: копия текущего учёта.
func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Bot) commit(st State) {
	b.mu.Lock()
	b.st = st
	b.mu.Unlock()
}

func (b *Bot) Summary() models.BotSummary {
	st := b.State()
	status := models.BotEnabled
	if b.paused.Load() {
		status = models.BotPaused
	}
	return models.BotSummary{
		ID:       b.id,
		Owner:    b.params.Owner,
		Pair:     b.params.Pair.Symbol(),
		Status:   status,
		ChatID:   b.params.ChatID,
		BaseQty:  st.BaseQty,
		QuoteQty: st.QuoteQty,
		Started:  b.startedAt,
	}
}

// init, состояние INIT: балансы, минимальные размеры, базовая стоимость, курсор чата.
func (b *Bot) init(ctx context.Context) error {
	p := b.params
	st := State{
		BaseQty:     p.YourBase + p.MarginBase,
		QuoteQty:    p.YourQuote + p.MarginQuote,
		MarginBase:  p.MarginBase,
		MarginQuote: p.MarginQuote,
	}

	baseCur, err := b.ex.Currency(ctx, p.Pair.Base)
	if err != nil {
		return fmt.Errorf("currency %s: %w", p.Pair.Base, err)
	}
	quoteCur, err := b.ex.Currency(ctx, p.Pair.Quote)
	if err != nil {
		return fmt.Errorf("currency %s: %w", p.Pair.Quote, err)
	}
	st.MinBase, st.MinQuote = baseCur.WithdrawalMinSize, quoteCur.WithdrawalMinSize

	tk, err := b.ex.Ticker(ctx, p.Pair.Symbol())
	if err != nil {
		return fmt.Errorf("ticker %s: %w", p.Pair, err)
	}
	st.FirstValue = p.YourBase + p.YourQuote*tk.Price

	var cursor int64
	saved, err := b.baselines.Load(p.BaselineKey())
	if err != nil {
		b.log.Warn("load baseline", zap.Error(err))
	}
	if saved != nil {
		if saved.FirstValue > 0 {
			st.FirstValue = saved.FirstValue
		}
		cursor = saved.LastSeenMessageID
	}

	// старые команды в чате не переигрываем
	msgs, err := b.ch.Recent(ctx, p.ChatID, b.historyLimit)
	if err != nil {
		b.log.Warn("read chat history", zap.Error(err))
	}
	for _, m := range msgs {
		if m.ChatID == p.ChatID && m.ID > cursor {
			cursor = m.ID
		}
	}

	b.lastSeen.Store(cursor)
	b.commit(st)
	b.alive.Store(true)
	b.saveBaseline()
	return nil
}

func (b *Bot) run(ctx context.Context) {
	defer close(b.done)

	b.log.Info("Bot is ready and looking for entry point")
	b.notify(ctx, fmt.Sprintf("Hey %s ! Your bot, trading %s, is ready and looking for entry point, "+
		"this can take days, be patient ! It is worth waiting.", b.params.Owner, b.params.Pair))
	b.notify(ctx, rulesText)

	if !b.sleep(ctx, b.cfg.StartupDelay) {
		return
	}
	if !b.waitEntry(ctx) {
		return
	}
	b.log.Info("Bot is ready...")

	for b.alive.Load() {
		if !b.sleep(ctx, b.cfg.CycleInterval) {
			return
		}
		if b.consumeForce(ctx) {
			continue
		}
		for b.paused.Load() {
			if !b.sleep(ctx, b.cfg.PausePoll) {
				return
			}
			b.consumeForce(ctx)
		}
		b.handle(ctx, b.RunPass(ctx))
	}
}

// waitEntry, состояние WAITING_ENTRY: если на старте тренд уже выстроен, ждём его окончания.
func (b *Bot) waitEntry(ctx context.Context) bool {
	if b.params.Bypass {
		b.log.Info("Bypass mode")
		b.notify(ctx, "Bypass mode : you won't wait for the best entry point")
		return true
	}

	snap := b.ind.Snapshot()
	var aligned func(models.IndicatorSnapshot) bool
	switch {
	case snap.FullLong():
		aligned = models.IndicatorSnapshot.FullLong
	case snap.FullShort():
		aligned = models.IndicatorSnapshot.FullShort
	}
	if aligned != nil {
		b.log.Info("trend already aligned, waiting for entry point")
		for aligned(b.ind.Snapshot()) {
			if !b.sleep(ctx, b.cfg.EntryPoll) {
				return false
			}
			b.consumeForce(ctx)
		}
	}

	b.log.Info("Bot found its entry point")
	b.notify(ctx, "Bot found its entry point")
	return true
}

func (b *Bot) consumeForce(ctx context.Context) bool {
	if !b.force.Swap(false) {
		return false
	}
	silent := b.forceSilent.Swap(false)
	b.handle(ctx, b.LiquidationPass(ctx, silent))
	return true
}

func (b *Bot) handle(ctx context.Context, res Result) {
	switch res.Kind {
	case ResultOK:
	case ResultRecoverable:
		b.log.Warn("cycle pass failed", zap.String("phase", res.Phase), zap.Error(res.Err))
		b.sleep(ctx, b.cfg.ErrorDelay)
	case ResultFatal:
		b.log.Error("cycle pass failed, pausing bot", zap.String("phase", res.Phase), zap.Error(res.Err))
		b.paused.Store(true)
		b.notify(ctx, fmt.Sprintf("Your bot, trading %s, has been paused : %v", b.params.Pair, res.Err))
		b.event(ctx, "fatal", map[string]any{"phase": res.Phase, "error": res.Err.Error()})
	}
}

// sleep ждёт d, просыпается раньше по wake или взведённой ликвидации.
// false: бот остановлен или ctx отменён.
func (b *Bot) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 || b.force.Load() {
		select {
		case <-b.stop:
			return false
		case <-ctx.Done():
			return false
		default:
			return b.alive.Load()
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-b.wake:
	case <-b.stop:
		return false
	case <-ctx.Done():
		return false
	}
	return b.alive.Load()
}

func (b *Bot) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// pause/resume возвращают true, если флаг действительно поменялся.
func (b *Bot) pause() bool { return !b.paused.Swap(true) }

func (b *Bot) resume() bool {
	changed := b.paused.Swap(false)
	b.signal()
	return changed
}

// kill best effort: текущий EXECUTE доработает, следующий проход уже не начнётся.
func (b *Bot) kill() {
	b.alive.Store(false)
	b.stopOnce.Do(func() { close(b.stop) })
}

// ForceLiquidation взводит проход ликвидации на следующей итерации цикла, даже на паузе.
func (b *Bot) ForceLiquidation(silent bool) {
	b.forceSilent.Store(silent)
	b.force.Store(true)
	b.signal()
}

// LiquidationPending: взведён ли проход ликвидации.
func (b *Bot) LiquidationPending() bool { return b.force.Load() }

func (b *Bot) notify(ctx context.Context, text string) {
	if err := b.ch.Send(ctx, b.params.ChatID, text); err != nil {
		b.log.Warn("send to chat", zap.Error(err))
	}
}

func (b *Bot) event(ctx context.Context, kind string, payload map[string]any) {
	err := b.journal.RecordEvent(ctx, models.BotEvent{BotID: b.id, Kind: kind, Payload: payload, At: time.Now()})
	if err != nil {
		b.log.Warn("journal event", zap.String("kind", kind), zap.Error(err))
	}
}

func (b *Bot) saveBaseline() {
	st := b.State()
	err := b.baselines.Save(b.params.BaselineKey(), models.Baseline{
		FirstValue:        st.FirstValue,
		LastSeenMessageID: b.lastSeen.Load(),
		BaseQty:           st.BaseQty,
		QuoteQty:          st.QuoteQty,
		UpdatedAt:         time.Now(),
	})
	if err != nil {
		b.log.Warn("save baseline", zap.Error(err))
	}
}

func num(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }

const rulesText = `Few rules about me :
- You can get the list of available commands sending /commands
- Please wait for the answer before asking me new things ! Only the last question will have its answer.
- This bot works on a mid-term basis. It usually trades once a week, sometimes more, sometimes less : wait and accumulate !`
