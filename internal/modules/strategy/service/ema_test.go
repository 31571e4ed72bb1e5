package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// referenceEMA: та же рекуррентная формула, записанная по массиву от новых к старым.
func referenceEMA(newestFirst []float64, period int) float64 {
	var sma float64
	for i := period - 1; i < 2*period-1; i++ {
		sma += newestFirst[i]
	}
	ema := sma / float64(period)
	m := 2 / (float64(period) + 1)
	for i := 1; i < period; i++ {
		ema = (newestFirst[period-i]-ema)*m + ema
	}
	return ema
}

func samplePrices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/7) + 0.05*float64(i)
	}
	return out
}

func TestSeededEMAMatchesReference(t *testing.T) {
	closes := samplePrices(300)
	newestFirst := make([]float64, len(closes))
	for i, c := range closes {
		newestFirst[len(closes)-1-i] = c
	}

	for _, p := range Periods {
		got, err := SeededEMA(closes, p)
		require.NoError(t, err)
		assert.InDelta(t, referenceEMA(newestFirst, p), got, 1e-9, "period %d", p)
	}
}

func TestSeededEMASmallCase(t *testing.T) {
	got, err := SeededEMA([]float64{1, 2, 3}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.8333333333, got, 1e-9)
}

func TestSeededEMAConstantSeries(t *testing.T) {
	closes := make([]float64, MinCandles)
	for i := range closes {
		closes[i] = 42
	}
	ema20, ema45, ema130, err := ComputeEMAs(closes)
	require.NoError(t, err)
	assert.InDelta(t, 42, ema20, 1e-9)
	assert.InDelta(t, 42, ema45, 1e-9)
	assert.InDelta(t, 42, ema130, 1e-9)
}

func TestComputeEMAsNotEnoughCandles(t *testing.T) {
	_, _, _, err := ComputeEMAs(samplePrices(MinCandles - 1))
	assert.ErrorIs(t, err, ErrNotEnoughCandles)

	_, _, _, err = ComputeEMAs(samplePrices(MinCandles))
	assert.NoError(t, err)
}

func TestUptrendOrdersEMAs(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = float64(i)
	}
	ema20, ema45, ema130, err := ComputeEMAs(closes)
	require.NoError(t, err)
	assert.Greater(t, ema20, ema45)
	assert.Greater(t, ema45, ema130)
}
