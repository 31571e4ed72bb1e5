package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	channelConnected atomic.Bool
	lastSweepUnix    atomic.Int64 // unix seconds
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetChannelConnected(v bool) { s.channelConnected.Store(v) }
func (s *State) ChannelConnected() bool     { return s.channelConnected.Load() }

// TouchSweep: отметка последнего обхода чатов ботов.
func (s *State) TouchSweep(t time.Time) { s.lastSweepUnix.Store(t.Unix()) }
func (s *State) LastSweep() time.Time {
	u := s.lastSweepUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
