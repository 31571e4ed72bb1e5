package runner

import (
	"context"
	"fmt"
	"time"

	"margin_bot/internal/models"
	"margin_bot/pkg/tracing"

	"go.uber.org/zap"
)

// RunPass: один проход ANALYZE → DECIDE → EXECUTE → RECONCILE.
// Работает на копии состояния, фиксирует её только после RECONCILE.
func (b *Bot) RunPass(ctx context.Context) (res Result) {
	b.passMu.Lock()
	defer b.passMu.Unlock()

	span, ctx := tracing.StartSpan(ctx, "bot.pass", map[string]any{"bot": b.id, "pair": b.params.Pair.Symbol()})
	defer func() { tracing.Finish(span, res.Err) }()

	st := b.State()
	Analyze(&st, b.ind.Snapshot())
	return b.finishPass(ctx, &st, false)
}

// LiquidationPass делает принудительную продажу, оба стопа взведены вне зависимости от тренда.
func (b *Bot) LiquidationPass(ctx context.Context, silent bool) (res Result) {
	b.passMu.Lock()
	defer b.passMu.Unlock()

	span, ctx := tracing.StartSpan(ctx, "bot.liquidation", map[string]any{"bot": b.id, "silent": silent})
	defer func() { tracing.Finish(span, res.Err) }()

	b.log.Warn("forced liquidation pass", zap.Bool("silent", silent))
	st := b.State()
	ForceStops(&st)
	return b.finishPass(ctx, &st, silent)
}

func (b *Bot) finishPass(ctx context.Context, st *State, silent bool) Result {
	action := Decide(st)
	if action != ActionNone {
		b.log.Info("decided", zap.Stringer("action", action), zap.Float64("order_size", st.OrderSize))
	}

	if res := b.verify(ctx, st, action); !res.OK() {
		return res
	}
	action = st.Flags.Action()

	fill, res := b.execute(ctx, st, action, silent)
	if !res.OK() {
		return res
	}

	b.reconcile(ctx, st, action, fill, silent)
	return okResult()
}

// verify сверяет размер ордера с живым маржинальным балансом тратимой валюты.
// Нехватка баланса не ошибка, действие просто отменяется на этот проход.
func (b *Bot) verify(ctx context.Context, st *State, action Action) Result {
	if action == ActionNone {
		return okResult()
	}

	accounts, err := b.ex.Accounts(ctx, models.AccountTypeMargin)
	if err != nil {
		return failed("verify", err)
	}

	currency := action.SpendCurrency(b.params.Pair)
	acc, _ := models.FindAccount(accounts, currency, models.AccountTypeMargin)
	if acc.Available < st.OrderSize {
		st.Flags.cancelAction()
		b.log.Warn("balance insufficient",
			zap.Stringer("action", action),
			zap.String("currency", currency),
			zap.Float64("available", acc.Available),
			zap.Float64("order_size", st.OrderSize),
		)
	}
	return okResult()
}

func (b *Bot) execute(ctx context.Context, st *State, action Action, silent bool) (models.Order, Result) {
	if action == ActionNone {
		return models.Order{}, okResult()
	}

	symbol := b.params.Pair.Symbol()
	order := models.MarketOrder{Symbol: symbol, Side: action.Side()}
	if order.Side == models.SideBuy {
		order.Funds = st.OrderSize
	} else {
		order.Size = st.OrderSize
	}

	b.log.Info("placing order", zap.String("side", string(order.Side)), zap.Float64("size", st.OrderSize))
	orderID, err := b.ex.CreateMarketOrder(ctx, order)
	if err != nil {
		return models.Order{}, failed("execute", err)
	}

	if b.cfg.SettleDelay > 0 {
		t := time.NewTimer(b.cfg.SettleDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	// фактическое исполнение берём с биржи, оценке до сделки не доверяем
	fill, err := b.ex.LatestOrder(ctx, symbol)
	if err != nil {
		b.log.Error("order placed but fill unknown, wallet not updated", zap.String("order_id", orderID), zap.Error(err))
		return models.Order{}, failed("execute", err)
	}
	if orderID != "" && fill.ID != orderID {
		b.log.Warn("latest order differs from placed one", zap.String("placed", orderID), zap.String("latest", fill.ID))
	}

	price := fill.Price
	if tk, err := b.ex.Ticker(ctx, symbol); err == nil {
		price = tk.Price
	} else {
		b.log.Warn("ticker after order", zap.Error(err))
	}

	p := b.params.Pair
	var text string
	if order.Side == models.SideBuy {
		text = fmt.Sprintf("Hey %s , I bought %s%s at price %s, using %s%s",
			b.params.Owner, num(fill.DealSize), p.Quote, num(price), num(fill.DealFunds), p.Base)
	} else {
		text = fmt.Sprintf("Hey %s , I sold %s%s at price %s, winning %s%s",
			b.params.Owner, num(fill.DealSize), p.Quote, num(price), num(fill.DealFunds), p.Base)
	}
	if !silent {
		b.notify(ctx, text)
	}
	b.log.Info(text, zap.String("order_id", fill.ID))

	err = b.journal.RecordTrade(ctx, models.Trade{
		BotID:     b.id,
		Owner:     b.params.Owner,
		Pair:      symbol,
		Action:    action.String(),
		Side:      order.Side,
		OrderID:   fill.ID,
		OrderSize: st.OrderSize,
		DealSize:  fill.DealSize,
		DealFunds: fill.DealFunds,
		Price:     price,
		Silent:    silent,
		At:        time.Now(),
	})
	if err != nil {
		b.log.Warn("journal trade", zap.Error(err))
	}
	return fill, okResult()
}

func (b *Bot) reconcile(ctx context.Context, st *State, action Action, fill models.Order, silent bool) {
	Reconcile(st, action, fill)
	b.commit(*st)

	if action == ActionNone {
		return
	}
	p := b.params.Pair
	wallet := fmt.Sprintf("Wallet : %s%s and %s%s", num(st.BaseQty), p.Base, num(st.QuoteQty), p.Quote)
	b.log.Info(wallet)
	b.log.Info("All went well, waiting for new signals")
	if !silent {
		b.notify(ctx, wallet)
		b.notify(ctx, "All went well, waiting for new signals")
	}
	b.saveBaseline()
}
