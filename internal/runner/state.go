package runner

import (
	"math"

	"margin_bot/internal/models"

	"github.com/shopspring/decimal"
)

// доля баланса, уходящая в ордер
const sizeFactor = 0.999

type Action int

const (
	ActionNone Action = iota
	ActionBuyAll
	ActionSellAll
	ActionSellLong
	ActionSellShort
)

func (a Action) String() string {
	switch a {
	case ActionBuyAll:
		return "buy_all"
	case ActionSellAll:
		return "sell_all"
	case ActionSellLong:
		return "sell_long"
	case ActionSellShort:
		return "sell_short"
	default:
		return "none"
	}
}

// Side: buy_all и sell_short покупают quote за base, остальные продают quote.
func (a Action) Side() models.Side {
	switch a {
	case ActionBuyAll, ActionSellShort:
		return models.SideBuy
	case ActionSellAll, ActionSellLong:
		return models.SideSell
	default:
		return ""
	}
}

// SpendCurrency: валюта, которую действие тратит и которую надо сверить с биржей.
func (a Action) SpendCurrency(p models.Pair) string {
	switch a.Side() {
	case models.SideBuy:
		return p.Base
	case models.SideSell:
		return p.Quote
	default:
		return ""
	}
}

type Flags struct {
	FullLong  bool
	FullShort bool
	StopLong  bool
	StopShort bool

	BuyAll    bool
	SellAll   bool
	SellLong  bool
	SellShort bool
}

// Action: выбранное действие; после Decide выставлен максимум один флаг.
func (f Flags) Action() Action {
	switch {
	case f.BuyAll:
		return ActionBuyAll
	case f.SellAll:
		return ActionSellAll
	case f.SellLong:
		return ActionSellLong
	case f.SellShort:
		return ActionSellShort
	default:
		return ActionNone
	}
}

func (f Flags) actionCount() int {
	n := 0
	for _, v := range []bool{f.BuyAll, f.SellAll, f.SellLong, f.SellShort} {
		if v {
			n++
		}
	}
	return n
}

func (f *Flags) cancelAction() {
	f.BuyAll, f.SellAll, f.SellLong, f.SellShort = false, false, false, false
}

// State: учёт одного бота. Балансы включают заёмные средства.
type State struct {
	BaseQty     float64
	QuoteQty    float64
	MarginBase  float64
	MarginQuote float64
	MinBase     float64
	MinQuote    float64
	FirstValue  float64

	Flags     Flags
	OrderSize float64
}

// Analyze сбрасывает флаги и выставляет трендовые/стоповые по снапшоту.
func Analyze(st *State, snap models.IndicatorSnapshot) {
	st.Flags = Flags{}
	st.OrderSize = 0

	st.Flags.FullLong = snap.FullLong()
	st.Flags.FullShort = snap.FullShort()
	if st.Flags.FullLong || st.Flags.FullShort {
		return
	}
	if st.BaseQty < st.MarginBase {
		st.Flags.StopLong = true
	} else if st.QuoteQty < st.MarginQuote {
		st.Flags.StopShort = true
	}
}

// ForceStops готовит проход ликвидации: тренд игнорируется, оба стопа взведены.
func ForceStops(st *State) {
	st.Flags = Flags{StopLong: true, StopShort: true}
	st.OrderSize = 0
}

// Decide выбирает не больше одного действия по приоритету и размер ордера.
func Decide(st *State) Action {
	st.Flags.cancelAction()
	st.OrderSize = 0

	spendQuote := st.QuoteQty - st.MarginQuote
	spendBase := st.BaseQty - st.MarginBase

	switch {
	case st.Flags.FullLong && st.BaseQty > st.MinBase:
		st.Flags.BuyAll = true
		st.OrderSize = orderSize(st.BaseQty)
	case st.Flags.FullShort && st.QuoteQty > st.MinQuote:
		st.Flags.SellAll = true
		st.OrderSize = orderSize(st.QuoteQty)
	case st.Flags.StopLong && spendQuote > st.MinQuote:
		st.Flags.SellLong = true
		st.OrderSize = orderSize(spendQuote)
	case st.Flags.StopShort && spendBase > st.MinBase:
		st.Flags.SellShort = true
		st.OrderSize = orderSize(spendBase)
	}
	return st.Flags.Action()
}

// Reconcile применяет фактическое исполнение и очищает флаги решения.
func Reconcile(st *State, action Action, fill models.Order) {
	switch action.Side() {
	case models.SideBuy:
		st.BaseQty -= fill.DealFunds
		st.QuoteQty += fill.DealSize
	case models.SideSell:
		st.BaseQty += fill.DealFunds
		st.QuoteQty -= fill.DealSize
	}
	st.BaseQty = math.Max(0, st.BaseQty)
	st.QuoteQty = math.Max(0, st.QuoteQty)

	st.Flags = Flags{}
	st.OrderSize = 0
}

// WalletValue: стоимость кошелька в base за вычетом займа.
func (s State) WalletValue(price float64) float64 {
	return (s.BaseQty - s.MarginBase) + (s.QuoteQty-s.MarginQuote)*price
}

// ROI в процентах; ok=false, если базовая стоимость нулевая.
func (s State) ROI(price float64) (float64, bool) {
	if s.FirstValue == 0 {
		return 0, false
	}
	return (Round(s.WalletValue(price)/s.FirstValue, 5) - 1) * 100, true
}

func orderSize(available float64) float64 {
	return sizeFactor * Truncate(available, 6)
}

// Truncate отбрасывает всё после places знаков; для неотрицательных x результат не больше x.
func Truncate(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Truncate(places).InexactFloat64()
}

func Round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
