// Package msg defines all tea.Msg types dispatched within the DroidPilot TUI.
// It has no upstream imports (client, model) to avoid import cycles.
package msg

// -- Severity (mirrors session.Severity) --

// Severity classifies a system-rendered chat entry. It mirrors
// session.Severity so this package remains import-cycle-free.
type Severity int

const (
	SevInfo Severity = iota
	SevAction
	SevSuccess
	SevWarning
	SevError
)

// AgentAction mirrors client.AgentAction for the same reason.
type AgentAction struct {
	Type   string
	Params map[string]any
}

// -- User input --

// SubmitInput when the user presses Enter.
type SubmitInput struct {
	Text string
}

// -- Execution stream (forwarded from the session controllers) --

// TaskSubmitted echoes the user's task into the chat log.
type TaskSubmitted struct {
	Text string
}

// AgentMessage is one system-rendered entry from the event stream.
type AgentMessage struct {
	Text     string
	Severity Severity
	Action   *AgentAction
	Debug    string // raw JSON payload, shown when expanded
}

// ThinkingUpdate creates or replaces the thinking placeholder text.
type ThinkingUpdate struct {
	Text string
}

// ThinkingCleared removes the thinking placeholder.
type ThinkingCleared struct{}

// DeviceFrame replaces the mirrored device screen.
type DeviceFrame struct {
	ImageRef string // data:image/png;base64 URI
}

// BusyChanged disables (true) or re-enables (false) task input.
type BusyChanged struct {
	Busy bool
}

// StreamWarning is a non-fatal diagnostic (dropped record, failed poll).
type StreamWarning struct {
	Text string
}

// -- Device management --

// Device mirrors client.DeviceEntry.
type Device struct {
	Serial string
	Status string
}

// DevicesResult from GET /api/device/list.
type DevicesResult struct {
	Devices []Device
	Err     error
}

// ConnectResult from POST /api/device/connect.
type ConnectResult struct {
	Serial string
	Err    error
}

// DisconnectResult from POST /api/device/disconnect.
type DisconnectResult struct {
	Err error
}

// DeviceInfoResult from GET /api/device/info.
type DeviceInfoResult struct {
	Serial  string
	Brand   string
	Model   string
	Version string
	SDK     string
	Width   int
	Height  int
	Err     error
}

// -- Chat history --

// HistoryEntry mirrors one persisted conversation record.
type HistoryEntry struct {
	Role    string
	Content string
}

// HistoryResult from GET /api/chat/history.
type HistoryResult struct {
	Entries []HistoryEntry
	Err     error
}

// ClearResult from POST /api/chat/clear.
type ClearResult struct {
	Err error
}

// -- Manual actions --

// ActionResult from POST /api/chat/single-action.
type ActionResult struct {
	Kind    string // the slash command that triggered it, e.g. "tap"
	Message string
	Err     error
}

// -- Wireless pairing --

// PairingUpdate from the pairing session. State carries the
// session.PairingState string form.
type PairingUpdate struct {
	State    string
	Message  string
	QRCode   string // data URI from the server, kept for reference
	Password int    // numeric pairing code
	Addr     string // "ip:port" once connected
}

// -- UI events --

// TickMsg for periodic timer updates.
type TickMsg struct{}

// ToggleExpand for Ctrl+O.
type ToggleExpand struct{}
