package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidpilot/droid-tui/markdown"
	"github.com/droidpilot/droid-tui/msg"
	"github.com/droidpilot/droid-tui/style"
)

// messageRole identifies who produced a chat entry.
type messageRole int

const (
	roleUser messageRole = iota
	roleAgent
)

// ChatMessage is a single entry in the conversation log.
type ChatMessage struct {
	Role      messageRole
	Severity  msg.Severity
	Content   string
	Action    *msg.AgentAction
	Debug     string // raw JSON, rendered only when expanded
	Timestamp time.Time
}

// ChatModel is a scrollable viewport displaying the conversation log plus an
// optional thinking placeholder pinned below the last entry. The placeholder
// is not part of the log: consecutive thinking updates replace its text in
// place, and it disappears without trace when cleared.
type ChatModel struct {
	vp       viewport.Model
	messages []ChatMessage
	thinking string
	hasThink bool
	expanded bool // show action params and debug payloads
	width    int
	height   int
}

// NewChat constructs a ChatModel sized to width x height.
func NewChat(width, height int) ChatModel {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return ChatModel{
		vp:     vp,
		width:  width,
		height: height,
	}
}

// AddUserMessage appends a user-role entry and scrolls to the bottom.
func (m *ChatModel) AddUserMessage(text string) {
	m.messages = append(m.messages, ChatMessage{
		Role:      roleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	m.refresh()
}

// AddAgentMessage appends an agent entry with severity and optional payloads.
func (m *ChatModel) AddAgentMessage(text string, sev msg.Severity, action *msg.AgentAction, debug string) {
	m.messages = append(m.messages, ChatMessage{
		Role:      roleAgent,
		Severity:  sev,
		Content:   text,
		Action:    action,
		Debug:     debug,
		Timestamp: time.Now(),
	})
	m.refresh()
}

// SetThinking creates the thinking placeholder or replaces its text in place.
func (m *ChatModel) SetThinking(text string) {
	m.thinking = text
	m.hasThink = true
	m.refresh()
}

// ClearThinking removes the thinking placeholder.
func (m *ChatModel) ClearThinking() {
	m.thinking = ""
	m.hasThink = false
	m.refresh()
}

// Clear drops the entire log, including any thinking placeholder.
func (m *ChatModel) Clear() {
	m.messages = nil
	m.thinking = ""
	m.hasThink = false
	m.refresh()
}

// ToggleExpanded flips the detail view for action params and debug payloads.
func (m *ChatModel) ToggleExpanded() {
	m.expanded = !m.expanded
	m.refresh()
}

// IsExpanded reports whether payload details are shown.
func (m ChatModel) IsExpanded() bool { return m.expanded }

// SetSize resizes the underlying viewport.
func (m *ChatModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.vp.Width = width
	m.vp.Height = height
	m.refresh()
}

// Init satisfies tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return nil
}

// Update forwards keyboard and mouse events to the viewport.
func (m ChatModel) Update(teaMsg tea.Msg) (ChatModel, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(teaMsg)
	return m, cmd
}

// View returns the rendered viewport content.
func (m ChatModel) View() string {
	return m.vp.View()
}

// refresh re-renders all entries into the viewport and scrolls to the bottom.
func (m *ChatModel) refresh() {
	m.vp.SetContent(m.renderAll())
	m.vp.GotoBottom()
}

func (m *ChatModel) renderAll() string {
	if len(m.messages) == 0 && !m.hasThink {
		return style.Faint.Render("  No messages yet. Describe a task, or type / for commands.")
	}

	var sb strings.Builder
	for i, entry := range m.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderMessage(entry))
	}
	if m.hasThink {
		if len(m.messages) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(style.PrefixActive.Render("✳") + " " + style.ThinkingText.Render(m.thinking))
	}
	return sb.String()
}

func (m *ChatModel) renderMessage(entry ChatMessage) string {
	if entry.Role == roleUser {
		return style.UserLabel.Render("❯ You") + "\n" + entry.Content
	}

	switch entry.Severity {
	case msg.SevAction:
		return m.renderAction(entry)
	case msg.SevSuccess:
		return style.PrefixDone.Render("⏺") + " " + style.SuccessText.Render(entry.Content) + m.debugDetail(entry)
	case msg.SevWarning:
		return style.WarningText.Render("⚠ " + entry.Content)
	case msg.SevError:
		return style.ErrorText.Render("✘ "+entry.Content) + m.debugDetail(entry)
	default:
		return style.AgentLabel.Render("◈ DroidPilot") + "\n" + markdown.Render(entry.Content)
	}
}

// renderAction formats an action entry:
//
//	⏺ Tapping the settings icon
//	  ⎿ click x=120 y=640
func (m *ChatModel) renderAction(entry ChatMessage) string {
	line := style.PrefixActive.Render("⏺") + " " + entry.Content
	if entry.Action != nil {
		detail := style.ActionLabel.Render(entry.Action.Type)
		if len(entry.Action.Params) > 0 {
			detail += " " + style.Faint.Render(formatParams(entry.Action.Params))
		}
		line += "\n" + style.Connector.Render("  ⎿ ") + detail
	}
	return line + m.debugDetail(entry)
}

// debugDetail renders the raw payload when expanded, or a hint that one is
// available when collapsed.
func (m *ChatModel) debugDetail(entry ChatMessage) string {
	if entry.Debug == "" {
		return ""
	}
	if !m.expanded {
		return "\n" + style.Hint.Render("  ⎿ ctrl+o to show raw payload")
	}
	var sb strings.Builder
	for _, line := range strings.Split(entry.Debug, "\n") {
		sb.WriteString("\n" + style.Hint.Render("    "+line))
	}
	return sb.String()
}

// formatParams renders action parameters as stable "k=v" pairs.
func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return strings.Join(parts, " ")
}
