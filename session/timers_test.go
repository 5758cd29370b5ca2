package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRefreshGateSkipsTicksWhileBusy(t *testing.T) {
	tc := NewTimerCoordinator(2*time.Millisecond, time.Hour)
	defer tc.StopRefresh()

	var busy atomic.Bool
	busy.Store(true)
	tc.SetRefreshGate(busy.Load)

	var ticks atomic.Int64
	tc.StartRefresh(func() { ticks.Add(1) })

	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != 0 {
		t.Fatalf("gated refresh fired %d times", n)
	}

	// Cadence resumes without a restart once the gate opens.
	busy.Store(false)
	deadline := time.After(time.Second)
	for ticks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("refresh never resumed after gate opened")
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestStartRefreshCancelsPreviousLoop(t *testing.T) {
	tc := NewTimerCoordinator(2*time.Millisecond, time.Hour)
	defer tc.StopRefresh()

	var first, second atomic.Int64
	tc.StartRefresh(func() { first.Add(1) })
	tc.StartRefresh(func() { second.Add(1) })

	deadline := time.After(time.Second)
	for second.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("replacement loop never ticked")
		case <-time.After(2 * time.Millisecond):
		}
	}

	stale := first.Load()
	time.Sleep(20 * time.Millisecond)
	if got := first.Load(); got != stale {
		t.Fatalf("cancelled loop kept ticking: %d -> %d", stale, got)
	}
}

func TestStopPairingPollFromHandler(t *testing.T) {
	tc := NewTimerCoordinator(time.Hour, 2*time.Millisecond)

	var ticks atomic.Int64
	tc.StartPairingPoll(func() {
		ticks.Add(1)
		tc.StopPairingPoll()
	})

	deadline := time.After(time.Second)
	for ticks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("poll never ticked")
		case <-time.After(2 * time.Millisecond):
		}
	}

	time.Sleep(20 * time.Millisecond)
	if n := ticks.Load(); n != 1 {
		t.Fatalf("poll ticked %d times after stopping itself", n)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tc := NewTimerCoordinator(time.Hour, time.Hour)
	tc.StartRefresh(func() {})
	tc.StartPairingPoll(func() {})

	tc.StopRefresh()
	tc.StopRefresh()
	tc.StopPairingPoll()
	tc.StopPairingPoll()
}
