package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"margin_bot/internal/models"
	"margin_bot/pkg/tracing"

	"go.uber.org/zap"
)

type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error)
}

type Config struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	CandleInterval  string        `mapstructure:"candle_interval"`
	Lookback        time.Duration `mapstructure:"lookback"`
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 8 * time.Second
	}
	if c.CandleInterval == "" {
		c.CandleInterval = "2hour"
	}
	if c.Lookback <= 0 {
		c.Lookback = 1879200 * time.Second
	}
	return c
}

// Indicator держит актуальный снапшот EMA по одной паре.
// Писатель один (Refresh), читатели получают снапшот целиком через atomic.Pointer.
type Indicator struct {
	pair models.Pair
	src  CandleSource
	cfg  Config
	log  *zap.Logger
	now  func() time.Time

	snap     atomic.Pointer[models.IndicatorSnapshot]
	failures atomic.Int64
}

func NewIndicator(pair models.Pair, src CandleSource, cfg Config, log *zap.Logger) *Indicator {
	return &Indicator{
		pair: pair,
		src:  src,
		cfg:  cfg.withDefaults(),
		log:  log.With(zap.String("pair", pair.Symbol())),
		now:  time.Now,
	}
}

func (i *Indicator) Pair() models.Pair { return i.pair }

// Snapshot: последний успешно посчитанный снапшот (нулевой, если расчёта ещё не было).
func (i *Indicator) Snapshot() models.IndicatorSnapshot {
	if s := i.snap.Load(); s != nil {
		return *s
	}
	return models.IndicatorSnapshot{Pair: i.pair}
}

func (i *Indicator) Failures() int64 { return i.failures.Load() }

// Refresh перекачивает свечи и пересчитывает EMA. При ошибке предыдущий снапшот остаётся.
func (i *Indicator) Refresh(ctx context.Context) (err error) {
	span, ctx := tracing.StartSpan(ctx, "indicator.refresh", map[string]any{"pair": i.pair.Symbol()})
	defer func() { tracing.Finish(span, err) }()

	end := i.now()
	candles, err := i.src.Candles(ctx, i.pair.Symbol(), i.cfg.CandleInterval, end.Add(-i.cfg.Lookback), end)
	if err != nil {
		i.failures.Add(1)
		return fmt.Errorf("fetch candles %s: %w", i.pair, err)
	}

	closes := make([]float64, len(candles))
	for k, c := range candles {
		closes[k] = c.Close
	}
	ema20, ema45, ema130, err := ComputeEMAs(closes)
	if err != nil {
		i.failures.Add(1)
		return fmt.Errorf("compute emas %s: %w", i.pair, err)
	}

	prev := i.snap.Load()
	next := &models.IndicatorSnapshot{
		Pair:       i.pair,
		EMA20:      ema20,
		EMA45:      ema45,
		EMA130:     ema130,
		ComputedAt: end,
	}
	i.snap.Store(next)
	if prev == nil || prev.EMA20 != ema20 || prev.EMA45 != ema45 || prev.EMA130 != ema130 {
		i.log.Info("EMAs moved",
			zap.Float64("ema20", ema20),
			zap.Float64("ema45", ema45),
			zap.Float64("ema130", ema130),
		)
	}
	return nil
}

// Run крутит Refresh до отмены ctx; ошибки только логируются.
func (i *Indicator) Run(ctx context.Context) {
	ticker := time.NewTicker(i.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := i.Refresh(ctx); err != nil && ctx.Err() == nil {
				i.log.Warn("indicator refresh failed, keeping previous snapshot", zap.Error(err))
			}
		}
	}
}
