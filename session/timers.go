package session

import (
	"sync"
	"time"
)

// Default cadences for the two recurring background tasks.
const (
	RefreshInterval = 2 * time.Second
	PollInterval    = 1 * time.Second
)

// recurring is one running ticker loop. Closing stop ends the loop; done is
// closed when the loop has fully exited.
type recurring struct {
	stop chan struct{}
	done chan struct{}
}

func (r *recurring) cancel() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// TimerCoordinator owns the screen-refresh and pairing-poll tickers. At most
// one of each kind is live; starting a kind cancels any previous instance
// first, so restarts never leak a duplicate loop. Refresh ticks are skipped
// (the loop keeps running) while the gate reports busy, so the normal
// cadence resumes immediately once execution ends.
type TimerCoordinator struct {
	mu      sync.Mutex
	refresh *recurring
	poll    *recurring

	refreshEvery time.Duration
	pollEvery    time.Duration

	// gate reports whether refresh ticks should be skipped. Nil means never.
	gate func() bool
}

// NewTimerCoordinator returns a coordinator with the given cadences.
func NewTimerCoordinator(refreshEvery, pollEvery time.Duration) *TimerCoordinator {
	return &TimerCoordinator{refreshEvery: refreshEvery, pollEvery: pollEvery}
}

// SetRefreshGate installs the busy check consulted before each refresh tick.
func (t *TimerCoordinator) SetRefreshGate(gate func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gate = gate
}

// StartRefresh starts the recurring screen refresh, cancelling any prior one.
func (t *TimerCoordinator) StartRefresh(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refresh != nil {
		t.refresh.cancel()
	}
	t.refresh = t.spawn(t.refreshEvery, func() {
		if g := t.currentGate(); g != nil && g() {
			return
		}
		fn()
	})
}

// StopRefresh cancels the recurring screen refresh.
func (t *TimerCoordinator) StopRefresh() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refresh != nil {
		t.refresh.cancel()
		t.refresh = nil
	}
}

// StartPairingPoll starts the recurring pairing status poll, cancelling any
// prior one.
func (t *TimerCoordinator) StartPairingPoll(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.poll != nil {
		t.poll.cancel()
	}
	t.poll = t.spawn(t.pollEvery, fn)
}

// StopPairingPoll cancels the recurring pairing poll. Safe to call from
// within the poll handler itself.
func (t *TimerCoordinator) StopPairingPoll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.poll != nil {
		t.poll.cancel()
		t.poll = nil
	}
}

func (t *TimerCoordinator) currentGate() func() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gate
}

// spawn launches one ticker loop. The stop channel is re-checked after each
// tick fires so a cancellation that races a due tick still suppresses the
// callback.
func (t *TimerCoordinator) spawn(every time.Duration, fn func()) *recurring {
	r := &recurring{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				select {
				case <-r.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return r
}
