package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidpilot/droid-tui/style"
)

// StatusModel renders the bottom status line. It has two visual states:
//
//   - running: ▸ running "open settings" · pixel-7 (19s)
//   - idle: device serial + brand/model + display size
type StatusModel struct {
	serial  string
	brand   string
	model   string
	version string
	width   int
	height  int

	running bool
	task    string
	elapsed int // seconds since the task started
}

// NewStatus returns a zero-value StatusModel.
func NewStatus() StatusModel {
	return StatusModel{}
}

// SetDevice stores the connected device identity for idle display.
func (m *StatusModel) SetDevice(serial, brand, model, version string, width, height int) {
	m.serial = serial
	m.brand = brand
	m.model = model
	m.version = version
	m.width = width
	m.height = height
}

// ClearDevice drops the device identity after a disconnect.
func (m *StatusModel) ClearDevice() {
	*m = StatusModel{running: m.running, task: m.task, elapsed: m.elapsed}
}

// SetRunning marks a task as executing (true) or finished (false).
func (m *StatusModel) SetRunning(running bool, task string) {
	m.running = running
	m.task = task
	m.elapsed = 0
}

// Tick advances the elapsed counter. Call once per second while running.
func (m *StatusModel) Tick() {
	if m.running {
		m.elapsed++
	}
}

// Init satisfies tea.Model.
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model. StatusModel is driven entirely by setter calls.
func (m StatusModel) Update(teaMsg tea.Msg) (StatusModel, tea.Cmd) {
	return m, nil
}

// View renders the status line. Returns "" when there is nothing to show.
func (m StatusModel) View() string {
	if m.running {
		task := m.task
		if len(task) > 48 {
			task = task[:45] + "…"
		}
		line := style.StatusRunning.Render("▸ running") + style.StatusBar.Render(fmt.Sprintf("%q", task))
		if m.serial != "" {
			line += style.StatusBar.Render("· " + m.serial)
		}
		line += style.StatusBar.Render(fmt.Sprintf("(%ds)", m.elapsed))
		return line
	}

	if m.serial == "" {
		return style.StatusBar.Render("no device — /devices to connect, /pair for wireless")
	}

	parts := []string{style.StatusDevice.Render(m.serial)}
	if m.brand != "" || m.model != "" {
		parts = append(parts, strings.TrimSpace(m.brand+" "+m.model))
	}
	if m.version != "" {
		parts = append(parts, "Android "+m.version)
	}
	if m.width > 0 && m.height > 0 {
		parts = append(parts, fmt.Sprintf("%dx%d", m.width, m.height))
	}
	return style.StatusBar.Render(strings.Join(parts, " · "))
}
