package schedule

import (
	"testing"
	"time"
)

func TestShouldRunFirstRunAlwaysProceeds(t *testing.T) {
	gate := NewGate(30*time.Minute, 2*time.Hour)
	if !gate.ShouldRun(nil, time.Now()) {
		t.Error("a run with no prior cursor must always proceed")
	}
}

func TestShouldRunSuppressesShortGaps(t *testing.T) {
	gate := NewGate(30*time.Minute, 2*time.Hour)
	now := time.Now()
	last := now.Add(-10 * time.Minute)
	for i := 0; i < 100; i++ {
		if gate.ShouldRun(&last, now) {
			t.Fatal("gaps below the minimum must never run")
		}
	}
}

func TestShouldRunForcesLongGaps(t *testing.T) {
	gate := NewGate(30*time.Minute, 2*time.Hour)
	now := time.Now()
	last := now.Add(-3 * time.Hour)
	for i := 0; i < 100; i++ {
		if !gate.ShouldRun(&last, now) {
			t.Fatal("gaps at or above the maximum must always run")
		}
	}
}

func TestShouldRunJittersInBetween(t *testing.T) {
	gate := NewGate(30*time.Minute, 2*time.Hour)
	now := time.Now()
	last := now.Add(-time.Hour)

	ran, skipped := 0, 0
	for i := 0; i < 1000; i++ {
		if gate.ShouldRun(&last, now) {
			ran++
		} else {
			skipped++
		}
	}
	// A fair coin over 1000 flips stays well inside these bounds.
	if ran < 350 || skipped < 350 {
		t.Errorf("mid-window gate looks biased: ran=%d skipped=%d", ran, skipped)
	}
}
