package models

import "time"

// IndicatorSnapshot публикуется целиком, поля никогда не меняются на месте.
type IndicatorSnapshot struct {
	Pair       Pair
	EMA20      float64
	EMA45      float64
	EMA130     float64
	ComputedAt time.Time
}

func (s IndicatorSnapshot) FullLong() bool {
	return s.EMA20 > s.EMA45 && s.EMA45 > s.EMA130
}

func (s IndicatorSnapshot) FullShort() bool {
	return s.EMA20 < s.EMA45 && s.EMA45 < s.EMA130
}

func (s IndicatorSnapshot) IsZero() bool { return s.ComputedAt.IsZero() }

// SnapshotSource: то, что бот читает каждый проход.
type SnapshotSource interface {
	Snapshot() IndicatorSnapshot
}
