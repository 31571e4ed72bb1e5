package service

import (
	"errors"
	"fmt"
)

var Periods = [3]int{20, 45, 130}

// MinCandles: сколько свечей нужно, чтобы засеять SMA130.
const MinCandles = 2*130 - 1

var ErrNotEnoughCandles = errors.New("not enough candles")

// SeededEMA считает EMA по закрытиям в хронологическом порядке.
//
// Окно отсчитывается от самой свежей свечи, которая сама не участвует (она ещё не закрыта):
// SMA берётся по свечам с отступом [period, 2*period-1] от текущей,
// затем period-1 раз применяется ema = (price-ema)*m + ema от старых к новым.
func SeededEMA(closes []float64, period int) (float64, error) {
	n := len(closes)
	if period < 1 {
		return 0, fmt.Errorf("invalid period %d", period)
	}
	if n < 2*period-1 {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCandles, n, 2*period-1)
	}
	// back(k): k-я свеча от самой свежей (back(0) это текущая)
	back := func(k int) float64 { return closes[n-1-k] }

	var sma float64
	for k := period - 1; k <= 2*period-2; k++ {
		sma += back(k)
	}
	ema := sma / float64(period)

	m := 2.0 / float64(period+1)
	for i := 1; i < period; i++ {
		ema = (back(period-i)-ema)*m + ema
	}
	return ema, nil
}

// ComputeEMAs: EMA20/45/130 за один проход.
func ComputeEMAs(closes []float64) (ema20, ema45, ema130 float64, err error) {
	if len(closes) < MinCandles {
		return 0, 0, 0, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCandles, len(closes), MinCandles)
	}
	var out [3]float64
	for i, p := range Periods {
		if out[i], err = SeededEMA(closes, p); err != nil {
			return 0, 0, 0, err
		}
	}
	return out[0], out[1], out[2], nil
}
