package session

import (
	"fmt"
	"sync"

	"github.com/droidpilot/droid-tui/client"
)

// PairingState is the local view of the server-driven pairing handshake.
type PairingState int

const (
	PairingIdle PairingState = iota
	PairingWaitingScan
	PairingInProgress
	PairingPaired
	PairingConnecting
	PairingConnected // terminal: success
	PairingFailed    // terminal: pair_failed, connect_failed or error
	PairingTimedOut  // terminal: server-reported timeout
)

func (s PairingState) String() string {
	switch s {
	case PairingIdle:
		return "idle"
	case PairingWaitingScan:
		return "waiting_scan"
	case PairingInProgress:
		return "pairing"
	case PairingPaired:
		return "pair_success"
	case PairingConnecting:
		return "connecting"
	case PairingConnected:
		return "connected"
	case PairingFailed:
		return "failed"
	case PairingTimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further automatic transition can occur.
func (s PairingState) Terminal() bool {
	return s == PairingConnected || s == PairingFailed || s == PairingTimedOut
}

// rank orders the forward-only progress states. Status codes mapping to a
// lower or equal rank than the current state are re-affirmations, not
// transitions.
func (s PairingState) rank() int {
	switch s {
	case PairingWaitingScan:
		return 1
	case PairingInProgress:
		return 2
	case PairingPaired:
		return 3
	case PairingConnecting:
		return 4
	case PairingConnected:
		return 5
	default:
		return 0
	}
}

// PairingUpdate is pushed to the UI on every observable change.
type PairingUpdate struct {
	State    PairingState
	Message  string
	QRCode   string // data URI, set once at session start
	Password int    // numeric pairing code, set once at session start
	Addr     string // "ip:port", set when connected
}

// PairingAPI is the backend surface the controller needs. *client.Client
// satisfies it.
type PairingAPI interface {
	StartPairing(timeoutSeconds int) (*client.PairingStartResponse, error)
	PairingStatus() (*client.PairingStatusResponse, error)
	StopPairing() error
}

// PairingController drives one wireless pairing attempt: it requests the QR
// artifact, polls the status endpoint once per second, maps status codes
// onto the forward-only state graph, and on success fires the downstream
// device connect exactly once.
type PairingController struct {
	api    PairingAPI
	timers *TimerCoordinator
	// onUpdate receives every state change; called from controller
	// goroutines, never concurrently with itself for one session.
	onUpdate func(PairingUpdate)
	// connectDevice performs the automatic downstream connect with the
	// "ip:port" serial. Fired at most once per session.
	connectDevice func(serial string)
	warnf         func(format string, args ...any)

	mu           sync.Mutex
	state        PairingState
	addr         string
	connectFired bool
}

// NewPairingController wires a pairing controller. onUpdate and
// connectDevice may be nil; warnf may be nil.
func NewPairingController(api PairingAPI, timers *TimerCoordinator, onUpdate func(PairingUpdate), connectDevice func(serial string), warnf func(string, ...any)) *PairingController {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &PairingController{
		api:           api,
		timers:        timers,
		onUpdate:      onUpdate,
		connectDevice: connectDevice,
		warnf:         warnf,
	}
}

// State returns the current pairing state.
func (c *PairingController) State() PairingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addr returns the "ip:port" of the paired device, or "" before connected.
func (c *PairingController) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Start begins a new pairing session, first cancelling any prior poll so a
// restart never leaves an orphaned ticker. On a failed start request the
// session moves straight to failed without polling.
func (c *PairingController) Start(timeoutSeconds int) error {
	c.timers.StopPairingPoll()

	c.mu.Lock()
	c.state = PairingIdle
	c.addr = ""
	c.connectFired = false
	c.mu.Unlock()

	resp, err := c.api.StartPairing(timeoutSeconds)
	if err != nil {
		c.mu.Lock()
		c.state = PairingFailed
		c.mu.Unlock()
		c.push(PairingUpdate{State: PairingFailed, Message: err.Error()})
		return fmt.Errorf("start pairing: %w", err)
	}

	c.mu.Lock()
	c.state = PairingWaitingScan
	c.mu.Unlock()
	c.push(PairingUpdate{
		State:    PairingWaitingScan,
		Message:  resp.Message,
		QRCode:   resp.QRCode,
		Password: resp.Password,
	})

	c.timers.StartPairingPoll(c.poll)
	return nil
}

// Cancel stops polling, notifies the server best-effort, and resets to
// idle. A tick that already fired finds the session idle and is ignored.
func (c *PairingController) Cancel() {
	c.timers.StopPairingPoll()

	c.mu.Lock()
	c.state = PairingIdle
	c.addr = ""
	c.mu.Unlock()

	go func() {
		if err := c.api.StopPairing(); err != nil {
			c.warnf("pairing teardown failed: %v", err)
		}
	}()
	c.push(PairingUpdate{State: PairingIdle})
}

// poll is one status-endpoint tick. Transport failures are logged and the
// session keeps polling; only explicit terminal statuses or cancellation
// end it.
func (c *PairingController) poll() {
	st, err := c.api.PairingStatus()
	if err != nil {
		c.warnf("pairing status poll failed: %v", err)
		return
	}
	c.apply(st)
}

// apply maps one server status onto the transition graph. Unknown or idle
// statuses during a live session are no-ops, and nothing moves backwards.
func (c *PairingController) apply(st *client.PairingStatusResponse) {
	c.mu.Lock()
	if c.state == PairingIdle || c.state.Terminal() {
		c.mu.Unlock()
		return
	}

	switch st.Status {
	case "pair_failed", "connect_failed", "error":
		c.state = PairingFailed
		c.mu.Unlock()
		c.timers.StopPairingPoll()
		c.push(PairingUpdate{State: PairingFailed, Message: st.Message})
		return

	case "timeout":
		c.state = PairingTimedOut
		c.mu.Unlock()
		c.timers.StopPairingPoll()
		c.push(PairingUpdate{State: PairingTimedOut, Message: st.Message})
		return

	case "connected":
		addr := fmt.Sprintf("%s:%d", st.DeviceIP, st.DevicePort)
		c.state = PairingConnected
		c.addr = addr
		fire := !c.connectFired
		c.connectFired = true
		c.mu.Unlock()

		c.timers.StopPairingPoll()
		c.push(PairingUpdate{State: PairingConnected, Message: st.Message, Addr: addr})
		if fire && c.connectDevice != nil {
			c.connectDevice(addr)
		}
		return
	}

	next, ok := progressState(st.Status)
	if !ok || next.rank() <= c.state.rank() {
		// Re-affirmation, idle, or an unknown status: ignore.
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()
	c.push(PairingUpdate{State: next, Message: st.Message})
}

func progressState(status string) (PairingState, bool) {
	switch status {
	case "waiting_scan":
		return PairingWaitingScan, true
	case "pairing":
		return PairingInProgress, true
	case "pair_success":
		return PairingPaired, true
	case "connecting":
		return PairingConnecting, true
	default:
		return PairingIdle, false
	}
}

func (c *PairingController) push(u PairingUpdate) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}
