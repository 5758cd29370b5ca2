package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/droidpilot/droid-tui/client"
)

// fakePairAPI replays a scripted status sequence, one entry per poll. The
// final entry repeats once exhausted.
type fakePairAPI struct {
	mu          sync.Mutex
	startResp   *client.PairingStartResponse
	startErr    error
	statuses    []*client.PairingStatusResponse
	statusErrAt map[int]error // poll index (0-based) -> transport error
	statusCalls int
	stopCalls   int
}

func (f *fakePairAPI) StartPairing(timeoutSeconds int) (*client.PairingStartResponse, error) {
	return f.startResp, f.startErr
}

func (f *fakePairAPI) PairingStatus() (*client.PairingStatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if err, ok := f.statusErrAt[i]; ok {
		return nil, err
	}
	if len(f.statuses) == 0 {
		return &client.PairingStatusResponse{Success: true, Status: "idle"}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakePairAPI) StopPairing() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

func (f *fakePairAPI) calls() (status, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.stopCalls
}

func st(status string) *client.PairingStatusResponse {
	return &client.PairingStatusResponse{Success: true, Status: status}
}

// fastTimers returns a coordinator ticking fast enough for tests.
func fastTimers() *TimerCoordinator {
	return NewTimerCoordinator(2*time.Millisecond, 2*time.Millisecond)
}

func TestPairingHappyPathConnectsOnce(t *testing.T) {
	api := &fakePairAPI{
		startResp: &client.PairingStartResponse{
			Success:  true,
			QRCode:   "data:image/png;base64,abc",
			Password: 123456,
		},
		statuses: []*client.PairingStatusResponse{
			st("waiting_scan"),
			st("pairing"),
			st("pair_success"),
			st("connecting"),
			{Success: true, Status: "connected", DeviceIP: "10.0.0.5", DevicePort: 5555},
		},
	}

	var mu sync.Mutex
	var serials []string
	connected := make(chan struct{})
	connect := func(serial string) {
		mu.Lock()
		serials = append(serials, serial)
		mu.Unlock()
		close(connected)
	}

	var updates []PairingUpdate
	onUpdate := func(u PairingUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}

	c := NewPairingController(api, fastTimers(), onUpdate, connect, nil)
	if err := c.Start(60); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("never reached connected")
	}

	if got := c.State(); got != PairingConnected {
		t.Fatalf("state = %v, want connected", got)
	}
	if got := c.Addr(); got != "10.0.0.5:5555" {
		t.Fatalf("addr = %q, want 10.0.0.5:5555", got)
	}

	mu.Lock()
	if len(serials) != 1 || serials[0] != "10.0.0.5:5555" {
		t.Fatalf("connect calls = %v, want exactly one with the pair address", serials)
	}
	if updates[0].State != PairingWaitingScan || updates[0].QRCode == "" || updates[0].Password != 123456 {
		t.Fatalf("first update should carry the QR artifact, got %+v", updates[0])
	}
	mu.Unlock()

	// Polling must be torn down at the terminal state.
	before, _ := api.calls()
	time.Sleep(20 * time.Millisecond)
	after, _ := api.calls()
	if after != before {
		t.Fatalf("poll kept running after connected: %d -> %d calls", before, after)
	}
}

func TestPairingStartFailureSkipsPolling(t *testing.T) {
	api := &fakePairAPI{startErr: errors.New("adb not found")}

	var updates []PairingUpdate
	c := NewPairingController(api, fastTimers(), func(u PairingUpdate) {
		updates = append(updates, u)
	}, nil, nil)

	if err := c.Start(60); err == nil {
		t.Fatal("want error from failed start")
	}
	if c.State() != PairingFailed {
		t.Fatalf("state = %v, want failed", c.State())
	}
	if len(updates) != 1 || updates[0].State != PairingFailed {
		t.Fatalf("updates = %+v, want single failed push", updates)
	}

	time.Sleep(20 * time.Millisecond)
	if calls, _ := api.calls(); calls != 0 {
		t.Fatalf("status polled %d times after failed start", calls)
	}
}

func TestPairingTransientPollFailureContinues(t *testing.T) {
	api := &fakePairAPI{
		startResp: &client.PairingStartResponse{Success: true},
		statuses: []*client.PairingStatusResponse{
			st("waiting_scan"),
			{Success: true, Status: "connected", DeviceIP: "10.0.0.5", DevicePort: 5555},
		},
		statusErrAt: map[int]error{0: errors.New("timeout")},
	}

	var warned bool
	connected := make(chan struct{})
	c := NewPairingController(api, fastTimers(), nil, func(string) {
		close(connected)
	}, func(string, ...any) { warned = true })

	if err := c.Start(60); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("poll failure ended the session instead of being retried")
	}
	if !warned {
		t.Fatal("transport failure should be surfaced as a warning")
	}
}

func TestPairingCancelResetsToIdle(t *testing.T) {
	api := &fakePairAPI{
		startResp: &client.PairingStartResponse{Success: true},
		statuses:  []*client.PairingStatusResponse{st("waiting_scan")},
	}
	c := NewPairingController(api, fastTimers(), nil, nil, nil)
	if err := c.Start(60); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	c.Cancel()
	if c.State() != PairingIdle {
		t.Fatalf("state = %v, want idle after cancel", c.State())
	}

	// Best-effort server teardown fires, and polling stops.
	deadline := time.After(time.Second)
	for {
		calls, stops := api.calls()
		if stops == 1 {
			time.Sleep(20 * time.Millisecond)
			after, _ := api.calls()
			if after > calls+1 { // allow one in-flight tick
				t.Fatalf("poll kept running after cancel: %d -> %d", calls, after)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("StopPairing never called")
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestPairingTerminalStateIgnoresLaterStatuses(t *testing.T) {
	c := NewPairingController(&fakePairAPI{}, fastTimers(), nil, nil, nil)
	c.state = PairingInProgress

	c.apply(st("timeout"))
	if c.State() != PairingTimedOut {
		t.Fatalf("state = %v, want timeout", c.State())
	}

	// A straggler tick after the terminal state changes nothing.
	c.apply(st("connecting"))
	c.apply(&client.PairingStatusResponse{Success: true, Status: "connected", DeviceIP: "1.2.3.4", DevicePort: 1})
	if c.State() != PairingTimedOut {
		t.Fatalf("terminal state moved to %v", c.State())
	}
	if c.Addr() != "" {
		t.Fatalf("addr set after terminal state: %q", c.Addr())
	}
}

func TestPairingNeverMovesBackwards(t *testing.T) {
	c := NewPairingController(&fakePairAPI{}, fastTimers(), nil, nil, nil)
	c.state = PairingConnecting

	c.apply(st("pairing"))
	if c.State() != PairingConnecting {
		t.Fatalf("state moved backwards to %v", c.State())
	}
	c.apply(st("connecting")) // re-affirmation
	if c.State() != PairingConnecting {
		t.Fatalf("re-affirmed state became %v", c.State())
	}
}

func TestPairingIgnoresIdleAndUnknownStatuses(t *testing.T) {
	var updates int
	c := NewPairingController(&fakePairAPI{}, fastTimers(), func(PairingUpdate) {
		updates++
	}, nil, nil)
	c.state = PairingWaitingScan

	c.apply(st("idle"))
	c.apply(st("rebooting"))
	if c.State() != PairingWaitingScan || updates != 0 {
		t.Fatalf("idle/unknown status changed state to %v (%d updates)", c.State(), updates)
	}
}
