package models

import (
	"fmt"
	"strings"
)

// Pair: торгуемая пара. Символ на бирже записывается как QUOTE-BASE:
// покупаем quote за base, продаём quote за base.
type Pair struct {
	Quote string `json:"quote" yaml:"quote"`
	Base  string `json:"base" yaml:"base"`
}

func NewPair(quote, base string) Pair {
	return Pair{
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
		Base:  strings.ToUpper(strings.TrimSpace(base)),
	}
}

// ParsePair принимает символ вида "BTC-USDT".
func ParsePair(symbol string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(symbol), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, want QUOTE-BASE", symbol)
	}
	return NewPair(parts[0], parts[1]), nil
}

func (p Pair) Symbol() string { return p.Quote + "-" + p.Base }

func (p Pair) String() string { return p.Symbol() }

func (p Pair) IsZero() bool { return p.Quote == "" || p.Base == "" }
