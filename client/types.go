package client

import "encoding/json"

// StreamEvent is one decoded record from the /api/chat/execute stream.
// Type is one of: start, info, update, thinking, action, done, completed,
// failed, error, stopped, warning.
type StreamEvent struct {
	Type       string          `json:"type"`
	Message    string          `json:"message,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"`
	Action     *AgentAction    `json:"action,omitempty"`
	Debug      json.RawMessage `json:"debug,omitempty"`
}

// AgentAction describes one operation the remote agent performed on the phone.
type AgentAction struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// ExecuteRequest for POST /api/chat/execute.
type ExecuteRequest struct {
	Task string `json:"task"`
}

// SingleActionRequest for POST /api/chat/single-action.
type SingleActionRequest struct {
	Action AgentAction `json:"action"`
}

// APIResult is the {success, message} envelope most endpoints return.
type APIResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeviceEntry from GET /api/device/list.
type DeviceEntry struct {
	Serial string `json:"serial"`
	Status string `json:"status"`
}

// DeviceListResponse from GET /api/device/list.
type DeviceListResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    []DeviceEntry `json:"data"`
}

// DisplaySize is the device screen dimensions in pixels.
type DisplaySize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DeviceInfo from POST /api/device/connect and GET /api/device/info.
type DeviceInfo struct {
	Serial  string      `json:"serial"`
	Brand   string      `json:"brand"`
	Model   string      `json:"model"`
	SDK     string      `json:"sdk"`
	Version string      `json:"version"`
	Display DisplaySize `json:"display"`
}

// ConnectRequest for POST /api/device/connect.
type ConnectRequest struct {
	Serial string `json:"serial,omitempty"`
}

// ConnectResponse from POST /api/device/connect.
type ConnectResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    DeviceInfo `json:"data"`
}

// ScreenshotResponse from GET /api/device/screenshot.
// Data is a data:image/png;base64 URI.
type ScreenshotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    string `json:"data"`
}

// HistoryEntry is one turn of the server-side conversation history.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryResponse from GET /api/chat/history.
type HistoryResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    []HistoryEntry `json:"data"`
}

// PairingStartRequest for POST /api/device/wireless/start.
type PairingStartRequest struct {
	Timeout int `json:"timeout"`
}

// PairingStartResponse from POST /api/device/wireless/start.
// QRCode is a data:image/png;base64 URI; Password is the numeric pairing code
// embedded in the QR payload.
type PairingStartResponse struct {
	Success  bool   `json:"success"`
	QRCode   string `json:"qr_code"`
	Password int    `json:"password"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// PairingStatusResponse from GET /api/device/wireless/status.
// Status values: idle, waiting_scan, pairing, pair_success, connecting,
// connected, pair_failed, connect_failed, error, timeout.
type PairingStatusResponse struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DeviceIP   string `json:"device_ip,omitempty"`
	DevicePort int    `json:"device_port,omitempty"`
}
