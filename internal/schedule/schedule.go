package schedule

import (
	"math/rand"
	"time"
)

// Gate decides whether a scheduled run should actually execute. Runs
// spaced closer than MinGap are suppressed, runs spaced further than
// MaxGap always go, and the window in between is a coin flip so runs
// do not land on a fixed cadence.
type Gate struct {
	MinGap time.Duration
	MaxGap time.Duration
	rng    *rand.Rand
}

// NewGate creates a jitter gate with its own random source.
func NewGate(minGap, maxGap time.Duration) *Gate {
	return &Gate{
		MinGap: minGap,
		MaxGap: maxGap,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ShouldRun reports whether a run starting at now should proceed given
// the previous run time. A nil lastRun always proceeds.
func (g *Gate) ShouldRun(lastRun *time.Time, now time.Time) bool {
	if lastRun == nil {
		return true
	}
	gap := now.Sub(*lastRun)
	switch {
	case gap < g.MinGap:
		return false
	case gap >= g.MaxGap:
		return true
	default:
		return g.rng.Float64() < 0.5
	}
}
