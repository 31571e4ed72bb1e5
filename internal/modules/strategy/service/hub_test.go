package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"margin_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCandles struct {
	mu     sync.Mutex
	closes []float64
	err    error
	calls  map[string]int
	gates  map[string]chan struct{}
}

func newFakeCandles(closes []float64) *fakeCandles {
	return &fakeCandles{closes: closes, calls: map[string]int{}, gates: map[string]chan struct{}{}}
}

// hold задерживает ответы по symbol до закрытия возвращённого канала.
func (f *fakeCandles) hold(symbol string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[symbol] = gate
	return gate
}

func (f *fakeCandles) Candles(_ context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	f.mu.Lock()
	f.calls[symbol]++
	gate := f.gates[symbol]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Candle, len(f.closes))
	for i, c := range f.closes {
		out[i] = models.Candle{OpenTime: start.Add(time.Duration(i) * 2 * time.Hour), Close: c}
	}
	return out, nil
}

func (f *fakeCandles) set(closes []float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes, f.err = closes, err
}

func (f *fakeCandles) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func TestIndicatorKeepsSnapshotOnFailure(t *testing.T) {
	src := newFakeCandles(samplePrices(300))
	ind := NewIndicator(models.NewPair("BTC", "USDT"), src, Config{}, zap.NewNop())

	assert.True(t, ind.Snapshot().IsZero())
	require.NoError(t, ind.Refresh(context.Background()))
	first := ind.Snapshot()
	assert.False(t, first.IsZero())

	src.set(nil, errors.New("boom"))
	require.Error(t, ind.Refresh(context.Background()))
	assert.Equal(t, first, ind.Snapshot())

	src.set(samplePrices(10), nil)
	require.ErrorIs(t, ind.Refresh(context.Background()), ErrNotEnoughCandles)
	assert.Equal(t, first, ind.Snapshot())
	assert.Equal(t, int64(2), ind.Failures())
}

func TestHubSharesIndicatorPerPair(t *testing.T) {
	src := newFakeCandles(samplePrices(300))
	hub := NewHub(src, Config{RefreshInterval: time.Hour}, zap.NewNop())
	defer hub.Close()

	btc := models.NewPair("BTC", "USDT")
	a, err := hub.Acquire(context.Background(), btc)
	require.NoError(t, err)
	b, err := hub.Acquire(context.Background(), btc)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, src.count("BTC-USDT"))

	eth, err := hub.Acquire(context.Background(), models.NewPair("ETH", "USDT"))
	require.NoError(t, err)
	assert.NotSame(t, a, eth)

	stats := hub.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "BTC-USDT", stats[0].Pair)
	assert.Equal(t, 2, stats[0].Refs)

	hub.Release(btc)
	require.Len(t, hub.Stats(), 2)
	hub.Release(btc)
	stats = hub.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "ETH-USDT", stats[0].Pair)

	c, err := hub.Acquire(context.Background(), btc)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestHubAcquireFailsOnInitialFetch(t *testing.T) {
	src := newFakeCandles(nil)
	src.set(nil, errors.New("down"))
	hub := NewHub(src, Config{}, zap.NewNop())
	defer hub.Close()

	_, err := hub.Acquire(context.Background(), models.NewPair("BTC", "USDT"))
	require.Error(t, err)
	assert.Empty(t, hub.Stats())
}

func TestIndicatorRunRefreshes(t *testing.T) {
	src := newFakeCandles(samplePrices(300))
	ind := NewIndicator(models.NewPair("BTC", "USDT"), src, Config{RefreshInterval: 5 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ind.Run(ctx)
	}()

	require.Eventually(t, func() bool { return src.count("BTC-USDT") >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.False(t, ind.Snapshot().IsZero())
}

func TestHubAcquireDoesNotBlockOtherPairs(t *testing.T) {
	src := newFakeCandles(samplePrices(300))
	hub := NewHub(src, Config{RefreshInterval: time.Hour}, zap.NewNop())
	defer hub.Close()

	btc := models.NewPair("BTC", "USDT")
	gate := src.hold("BTC-USDT")

	type acquired struct {
		src models.SnapshotSource
		err error
	}
	results := make(chan acquired, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := hub.Acquire(context.Background(), btc)
			results <- acquired{s, err}
		}()
	}
	require.Eventually(t, func() bool { return src.count("BTC-USDT") == 1 }, time.Second, time.Millisecond)

	// пока BTC ждёт биржу, реестр доступен
	eth, err := hub.Acquire(context.Background(), models.NewPair("ETH", "USDT"))
	require.NoError(t, err)
	require.NotNil(t, eth)
	stats := hub.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "ETH-USDT", stats[0].Pair)

	close(gate)
	a, b := <-results, <-results
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Same(t, a.src, b.src)
	assert.Equal(t, 1, src.count("BTC-USDT"))
	assert.Equal(t, 2, hub.Stats()[0].Refs)
}

func TestHubConcurrentAcquireSharesInitFailure(t *testing.T) {
	src := newFakeCandles(nil)
	src.set(nil, errors.New("down"))
	hub := NewHub(src, Config{}, zap.NewNop())
	defer hub.Close()

	btc := models.NewPair("BTC", "USDT")
	gate := src.hold("BTC-USDT")

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := hub.Acquire(context.Background(), btc)
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return src.count("BTC-USDT") == 1 }, time.Second, time.Millisecond)
	close(gate)

	assert.Error(t, <-errs)
	assert.Error(t, <-errs)
	assert.Empty(t, hub.Stats())
}
