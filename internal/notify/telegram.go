package notify

import (
	"context"
	"fmt"
	"sync"

	"margin_bot/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram это чат управления ботами: исходящие сообщения и long-polling входящих в Inbox.
type Telegram struct {
	bot   *tgbot.BotAPI
	inbox *Inbox
	log   *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func NewTelegram(token string, inbox *Inbox, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{
		bot:   b,
		inbox: inbox,
		log:   log,
		done:  make(chan struct{}),
	}, nil
}

func (t *Telegram) Send(_ context.Context, chatID int64, text string) error {
	_, err := t.bot.Send(tgbot.NewMessage(chatID, text))
	return err
}

func (t *Telegram) Recent(_ context.Context, chatID int64, limit int) ([]models.ChatMessage, error) {
	return t.inbox.Recent(chatID, limit), nil
}

// Start запускает long-polling; обновления складываются в Inbox.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		defer close(t.done)
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if m, ok := chatMessage(upd); ok {
					t.inbox.Push(m)
				}
			}
		}
	}()
	t.log.Info("telegram polling started", zap.String("bot", t.bot.Self.UserName))
}

func (t *Telegram) Stop() {
	t.stopOnce.Do(t.bot.StopReceivingUpdates)
}

func chatMessage(upd tgbot.Update) (models.ChatMessage, bool) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return models.ChatMessage{}, false
	}

	// в личке id отправителя совпадает с id чата
	sender := msg.Chat.ID
	switch {
	case msg.From != nil:
		sender = msg.From.ID
	case msg.SenderChat != nil:
		sender = msg.SenderChat.ID
	}
	return models.ChatMessage{
		ID:           int64(msg.MessageID),
		ChatID:       msg.Chat.ID,
		SenderChatID: sender,
		Text:         msg.Text,
		Time:         msg.Time(),
	}, true
}
