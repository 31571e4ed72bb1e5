package runner

import (
	"context"
	"fmt"

	"margin_bot/internal/models"

	"go.uber.org/zap"
)

const (
	cmdROI       = "/roi"
	cmdWallet    = "/wallet"
	cmdCredits   = "/credits"
	cmdCommands  = "/commands"
	cmdEMAs      = "emas"
	cmdEmergency = "stop_all#warning"
)

const commandsText = `Commands :
 /wallet : get your current wallet value, minus what you borrowed
 /roi : get your current Return On Investment
 /credits`

const creditsText = "EMA 20/45/130 margin trading bot. Ask your operator for support."

// CheckInbox обрабатывает самое свежее непрочитанное сообщение из чата бота.
// Курсор только растёт; если ответить не удалось, сообщение будет обработано на следующем опросе.
func (b *Bot) CheckInbox(ctx context.Context) error {
	msgs, err := b.ch.Recent(ctx, b.params.ChatID, b.historyLimit)
	if err != nil {
		return fmt.Errorf("recent messages: %w", err)
	}

	cursor := b.lastSeen.Load()
	var next *models.ChatMessage
	for i := range msgs {
		m := &msgs[i]
		if m.ChatID != b.params.ChatID || m.ID <= cursor {
			continue
		}
		if next == nil || m.ID > next.ID {
			next = m
		}
	}
	if next == nil {
		return nil
	}

	reply, err := b.answer(ctx, *next)
	if err != nil {
		return fmt.Errorf("answer %q: %w", next.Text, err)
	}
	b.advanceCursor(next.ID)
	b.saveBaseline()

	if reply != "" {
		if err := b.ch.Send(ctx, b.params.ChatID, reply); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}

func (b *Bot) advanceCursor(id int64) {
	for {
		cur := b.lastSeen.Load()
		if id <= cur || b.lastSeen.CompareAndSwap(cur, id) {
			return
		}
	}
}

func (b *Bot) answer(ctx context.Context, m models.ChatMessage) (string, error) {
	pair := b.params.Pair
	switch m.Text {
	case cmdROI:
		price, err := b.price(ctx)
		if err != nil {
			return "", err
		}
		roi, ok := b.State().ROI(price)
		if !ok {
			return fmt.Sprintf("On %s : your wallet is empty", pair), nil
		}
		return fmt.Sprintf("On %s : you made %+g%% of profit", pair, Round(roi, 2)), nil

	case cmdWallet:
		price, err := b.price(ctx)
		if err != nil {
			return "", err
		}
		st := b.State()
		return fmt.Sprintf("On %s : your wallet is worth %s %s : you have %s %s and %s %s",
			pair,
			num(Round(st.WalletValue(price), 2)), pair.Base,
			num(Round(st.QuoteQty-st.MarginQuote, 4)), pair.Quote,
			num(Round(st.BaseQty-st.MarginBase, 2)), pair.Base,
		), nil

	case cmdCredits:
		return creditsText, nil

	case cmdCommands:
		return commandsText, nil

	case cmdEMAs:
		s := b.ind.Snapshot()
		return fmt.Sprintf("20=%s, 45=%s, 130=%s", num(s.EMA20), num(s.EMA45), num(s.EMA130)), nil

	case cmdEmergency:
		if b.adminChatID != 0 && m.SenderChatID == b.adminChatID && b.fleet != nil {
			n := b.fleet.EmergencyStop(ctx)
			b.log.Warn("emergency stop requested from chat", zap.Int("bots", n))
			return fmt.Sprintf("Emergency stop : liquidating %d bots", n), nil
		}
	}
	return "Unknown command, type /commands to get commands", nil
}

func (b *Bot) price(ctx context.Context) (float64, error) {
	tk, err := b.ex.Ticker(ctx, b.params.Pair.Symbol())
	if err != nil {
		return 0, err
	}
	return tk.Price, nil
}
