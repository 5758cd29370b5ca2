package app

// State represents the current application state.
type State int

const (
	StateIdle    State = iota // Ready for user input
	StateRunning              // Task executing; input disabled
	StatePicker               // Device picker overlay active
	StatePairing              // Wireless pairing panel active
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePicker:
		return "picker"
	case StatePairing:
		return "pairing"
	default:
		return "unknown"
	}
}
