package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeframe is returned for timeframe keys outside the enum.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Timeframe is one of the fixed look-back windows used by stats and insights.
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe12h Timeframe = "12h"
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1h:  time.Hour,
	Timeframe4h:  4 * time.Hour,
	Timeframe12h: 12 * time.Hour,
	Timeframe24h: 24 * time.Hour,
	Timeframe7d:  7 * 24 * time.Hour,
}

// Timeframes lists every valid timeframe, shortest first.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1h, Timeframe4h, Timeframe12h, Timeframe24h, Timeframe7d}
}

// ParseTimeframe validates a timeframe key.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
	return tf, nil
}

// Duration returns the look-back length, or zero for unknown keys.
func (t Timeframe) Duration() time.Duration {
	return timeframeDurations[t]
}

// Cutoff returns the earliest instant covered by the timeframe.
func (t Timeframe) Cutoff(now time.Time) time.Time {
	return now.Add(-t.Duration())
}
