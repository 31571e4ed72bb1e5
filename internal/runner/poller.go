package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller по очереди опрашивает чаты всех живых ботов с фиксированным интервалом.
type Poller struct {
	reg      *Manager
	interval time.Duration
	log      *zap.Logger
	onSweep  func(time.Time)
}

func NewPoller(reg *Manager, log *zap.Logger) *Poller {
	return &Poller{
		reg:      reg,
		interval: reg.deps.Poller.Interval,
		log:      log,
	}
}

// OnSweep: колбэк после каждого обхода (health).
func (p *Poller) OnSweep(fn func(time.Time)) { p.onSweep = fn }

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep: один обход всех ботов, последовательно.
func (p *Poller) Sweep(ctx context.Context) {
	for _, b := range p.reg.Bots() {
		if ctx.Err() != nil {
			return
		}
		if err := b.CheckInbox(ctx); err != nil {
			p.log.Warn("check inbox", zap.Int64("bot", b.ID()), zap.Error(err))
		}
	}
	if p.onSweep != nil {
		p.onSweep(time.Now())
	}
}
