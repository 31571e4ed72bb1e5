package runner

import "time"

type Config struct {
	Profile       string        `mapstructure:"profile"` // normal | fast
	CycleInterval time.Duration `mapstructure:"cycle_interval"`
	PausePoll     time.Duration `mapstructure:"pause_poll"`
	EntryPoll     time.Duration `mapstructure:"entry_poll"`
	ErrorDelay    time.Duration `mapstructure:"error_delay"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

type PollerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

func (c Config) withDefaults() Config {
	if c.CycleInterval <= 0 {
		c.CycleInterval = 10 * time.Second
		if c.Profile == "fast" {
			c.CycleInterval = 2 * time.Second
		}
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 10 * time.Second
	}
	if c.EntryPoll <= 0 {
		c.EntryPoll = 10 * time.Second
	}
	if c.ErrorDelay <= 0 {
		c.ErrorDelay = 2 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = 500 * time.Millisecond
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	return c
}
