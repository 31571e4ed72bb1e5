package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"margin_bot/internal/models"

	"go.uber.org/zap"
)

type hubEntry struct {
	ind    *Indicator
	refs   int
	cancel context.CancelFunc
	done   chan struct{}

	// ready закрывается после первого расчёта; err != nil, если он не удался
	ready chan struct{}
	err   error
}

// Hub это реестр индикаторов, не больше одного на пару, живёт пока на него ссылается хоть один бот.
type Hub struct {
	src CandleSource
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	root    context.Context
	entries map[string]*hubEntry
}

func NewHub(src CandleSource, cfg Config, log *zap.Logger) *Hub {
	return &Hub{
		src:     src,
		cfg:     cfg.withDefaults(),
		log:     log,
		root:    context.Background(),
		entries: make(map[string]*hubEntry),
	}
}

// Start задаёт родительский контекст для циклов обновления.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	h.root = ctx
	h.mu.Unlock()
}

// Acquire возвращает индикатор пары, создавая его при первом обращении.
// Первый расчёт должен пройти успешно, иначе индикатор не создаётся.
// Запрос свечей идёт без блокировки реестра; параллельные Acquire той же пары ждут его результата.
func (h *Hub) Acquire(ctx context.Context, pair models.Pair) (models.SnapshotSource, error) {
	key := pair.Symbol()

	h.mu.Lock()
	if e, ok := h.entries[key]; ok {
		e.refs++
		h.mu.Unlock()
		<-e.ready
		if e.err != nil {
			return nil, e.err
		}
		return e.ind, nil
	}
	e := &hubEntry{refs: 1, ready: make(chan struct{})}
	h.entries[key] = e
	h.mu.Unlock()

	ind := NewIndicator(pair, h.src, h.cfg, h.log)
	if err := ind.Refresh(ctx); err != nil {
		h.mu.Lock()
		if h.entries[key] == e {
			delete(h.entries, key)
		}
		e.err = fmt.Errorf("init indicator: %w", err)
		h.mu.Unlock()
		close(e.ready)
		return nil, e.err
	}

	h.mu.Lock()
	loopCtx, cancel := context.WithCancel(h.root)
	e.ind, e.cancel, e.done = ind, cancel, make(chan struct{})
	if h.entries[key] != e {
		// реестр закрыли, пока шёл первый расчёт
		cancel()
	}
	h.mu.Unlock()

	go func() {
		defer close(e.done)
		ind.Run(loopCtx)
	}()
	close(e.ready)

	h.log.Info("indicator started", zap.String("pair", key))
	return ind, nil
}

// Release снимает ссылку; на нуле цикл обновления останавливается.
func (h *Hub) Release(pair models.Pair) {
	key := pair.Symbol()

	h.mu.Lock()
	e, ok := h.entries[key]
	if !ok {
		h.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.entries, key)
	h.mu.Unlock()

	e.stop()
	h.log.Info("indicator stopped", zap.String("pair", key))
}

func (e *hubEntry) stop() {
	<-e.ready
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

type PairStat struct {
	Pair     string                   `json:"pair"`
	Refs     int                      `json:"refs"`
	Failures int64                    `json:"failures"`
	Snapshot models.IndicatorSnapshot `json:"snapshot"`
}

func (h *Hub) Stats() []PairStat {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]PairStat, 0, len(h.entries))
	for key, e := range h.entries {
		if e.ind == nil {
			continue
		}
		out = append(out, PairStat{Pair: key, Refs: e.refs, Failures: e.ind.Failures(), Snapshot: e.ind.Snapshot()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

// Close останавливает все циклы независимо от ссылок.
func (h *Hub) Close() {
	h.mu.Lock()
	entries := h.entries
	h.entries = make(map[string]*hubEntry)
	h.mu.Unlock()

	for _, e := range entries {
		e.stop()
	}
}
