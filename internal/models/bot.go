package models

import (
	"errors"
	"fmt"
	"time"
)

type Credentials struct {
	Key        string `json:"-"`
	Secret     string `json:"-"`
	Passphrase string `json:"-"`
	Sandbox    bool   `json:"sandbox"`
}

func (c Credentials) Empty() bool { return c.Key == "" || c.Secret == "" || c.Passphrase == "" }

// BotParams: всё, что оператор передаёт при старте бота.
type BotParams struct {
	Owner       string
	ChatID      int64
	Pair        Pair
	Creds       Credentials
	YourBase    float64
	YourQuote   float64
	MarginBase  float64
	MarginQuote float64
	Bypass      bool
}

func (p BotParams) Validate() error {
	var errs []error
	if p.Owner == "" {
		errs = append(errs, errors.New("owner is required"))
	}
	if p.ChatID == 0 {
		errs = append(errs, errors.New("chat id is required"))
	}
	if p.Pair.IsZero() {
		errs = append(errs, errors.New("pair is required"))
	}
	if p.Creds.Empty() {
		errs = append(errs, errors.New("exchange credentials are required"))
	}
	for name, v := range map[string]float64{
		"your_base":    p.YourBase,
		"your_quote":   p.YourQuote,
		"margin_base":  p.MarginBase,
		"margin_quote": p.MarginQuote,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	return errors.Join(errs...)
}

// BaselineKey: ключ бота в локальном хранилище, стабильный между перезапусками.
func (p BotParams) BaselineKey() string {
	return fmt.Sprintf("%s/%s/%d", p.Owner, p.Pair.Symbol(), p.ChatID)
}

type BotStatus string

const (
	BotEnabled BotStatus = "ENABLED"
	BotPaused  BotStatus = "PAUSED"
)

type BotSummary struct {
	ID       int64     `json:"id"`
	Owner    string    `json:"owner"`
	Pair     string    `json:"pair"`
	Status   BotStatus `json:"status"`
	ChatID   int64     `json:"chat_id"`
	BaseQty  float64   `json:"base_qty"`
	QuoteQty float64   `json:"quote_qty"`
	Started  time.Time `json:"started"`
}

// Baseline переживает перезапуск процесса.
type Baseline struct {
	FirstValue        float64   `json:"first_value"`
	LastSeenMessageID int64     `json:"last_seen_message_id"`
	BaseQty           float64   `json:"base_qty"`
	QuoteQty          float64   `json:"quote_qty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Trade struct {
	BotID     int64     `json:"bot_id"`
	Owner     string    `json:"owner"`
	Pair      string    `json:"pair"`
	Action    string    `json:"action"`
	Side      Side      `json:"side"`
	OrderID   string    `json:"order_id"`
	OrderSize float64   `json:"order_size"`
	DealSize  float64   `json:"deal_size"`
	DealFunds float64   `json:"deal_funds"`
	Price     float64   `json:"price"`
	Silent    bool      `json:"silent"`
	At        time.Time `json:"at"`
}

type BotEvent struct {
	BotID   int64          `json:"bot_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// ChatMessage: входящее сообщение канала управления. ID монотонен в пределах чата.
type ChatMessage struct {
	ID           int64
	ChatID       int64
	SenderChatID int64
	Text         string
	Time         time.Time
}
