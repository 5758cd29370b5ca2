package app

import (
	"encoding/json"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidpilot/droid-tui/client"
	"github.com/droidpilot/droid-tui/msg"
	"github.com/droidpilot/droid-tui/session"
)

// programSink adapts session.RenderSink onto the bubbletea program. The
// controllers call it from their own goroutines; p.Send hands each event to
// the single Update loop, which preserves arrival order. Events arriving
// before ProgramReady are dropped — nothing renders before the program runs.
type programSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSink) setProgram(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSink) send(v tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(v)
	}
}

func (s *programSink) AppendUser(text string) {
	s.send(msg.TaskSubmitted{Text: text})
}

func (s *programSink) AppendSystem(text string, sev session.Severity, action *client.AgentAction, debug json.RawMessage) {
	var a *msg.AgentAction
	if action != nil {
		a = &msg.AgentAction{Type: action.Type, Params: action.Params}
	}
	s.send(msg.AgentMessage{
		Text:     text,
		Severity: msg.Severity(sev),
		Action:   a,
		Debug:    string(debug),
	})
}

func (s *programSink) UpsertThinking(text string) {
	s.send(msg.ThinkingUpdate{Text: text})
}

func (s *programSink) RemoveThinking() {
	s.send(msg.ThinkingCleared{})
}

func (s *programSink) SetDeviceFrame(imageRef string) {
	s.send(msg.DeviceFrame{ImageRef: imageRef})
}

func (s *programSink) SetBusy(busy bool) {
	s.send(msg.BusyChanged{Busy: busy})
}

func (s *programSink) Warnf(format string, args ...any) {
	s.send(msg.StreamWarning{Text: fmt.Sprintf(format, args...)})
}
