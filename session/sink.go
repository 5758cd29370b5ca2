// Package session owns the task-execution and device-pairing lifecycles and
// the recurring background timers that serve them. Nothing here knows how
// output is rendered; controllers speak to a RenderSink and the UI layer
// adapts that into whatever it draws with.
package session

import (
	"encoding/json"

	"github.com/droidpilot/droid-tui/client"
)

// Severity classifies a system-rendered message.
type Severity int

const (
	SevInfo Severity = iota
	SevAction
	SevSuccess
	SevWarning
	SevError
)

// RenderSink consumes the render events the controllers produce. Calls made
// from one controller goroutine arrive in order; implementations forward
// them to the UI loop without reordering.
type RenderSink interface {
	// AppendUser adds the user's submitted task text to the log.
	AppendUser(text string)
	// AppendSystem adds a system message. action and debug are optional
	// payloads attached to the rendered entry.
	AppendSystem(text string, sev Severity, action *client.AgentAction, debug json.RawMessage)
	// UpsertThinking creates the thinking placeholder, or replaces its text
	// in place if one is already shown.
	UpsertThinking(text string)
	// RemoveThinking clears the thinking placeholder if present.
	RemoveThinking()
	// SetDeviceFrame replaces the displayed device frame. imageRef is a
	// data:image/png;base64 URI.
	SetDeviceFrame(imageRef string)
	// SetBusy disables (true) or re-enables (false) task input.
	SetBusy(busy bool)
	// Warnf reports a non-fatal diagnostic (dropped record, failed poll).
	Warnf(format string, args ...any)
}
