package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/droidpilot/droid-tui/style"
)

// PickerItem is a single entry in the device picker.
type PickerItem struct {
	Serial    string
	Status    string // "device", "offline", "unauthorized"
	Connected bool   // currently selected device
}

// PickerChoice is emitted when the user selects a device.
type PickerChoice struct {
	Serial string
}

// PickerCancel is emitted when the user presses Esc.
type PickerCancel struct{}

// PickerModel renders a vertical list of ADB devices with arrow-key
// navigation. Offline and unauthorized devices are listed but not selectable.
type PickerModel struct {
	items    []PickerItem
	cursor   int
	active   bool
	width    int
	offset   int // scroll offset for long lists
	pageSize int // visible items per page
}

// NewPicker returns a zero-value PickerModel.
func NewPicker() PickerModel {
	return PickerModel{pageSize: 10}
}

// SetItems populates the picker and activates it. The cursor starts on the
// connected device when there is one.
func (m *PickerModel) SetItems(items []PickerItem) {
	m.items = items
	m.cursor = 0
	m.offset = 0
	m.active = true
	for i, item := range items {
		if item.Connected {
			m.cursor = i
			if m.cursor >= m.pageSize {
				m.offset = m.cursor - m.pageSize + 1
			}
			break
		}
	}
}

// Clear deactivates the picker.
func (m *PickerModel) Clear() {
	m.active = false
	m.items = nil
	m.cursor = 0
	m.offset = 0
}

// IsActive reports whether the picker is currently visible.
func (m PickerModel) IsActive() bool {
	return m.active
}

// SetWidth constrains the picker to the terminal width.
func (m *PickerModel) SetWidth(w int) {
	m.width = w
}

// Init satisfies tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update handles keyboard input when the picker is active.
func (m PickerModel) Update(teaMsg tea.Msg) (PickerModel, tea.Cmd) {
	if !m.active || len(m.items) == 0 {
		return m, nil
	}

	keyMsg, ok := teaMsg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		} else {
			// Wrap to bottom
			m.cursor = len(m.items) - 1
			if m.cursor >= m.offset+m.pageSize {
				m.offset = m.cursor - m.pageSize + 1
			}
		}

	case tea.KeyDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.pageSize {
				m.offset = m.cursor - m.pageSize + 1
			}
		} else {
			// Wrap to top
			m.cursor = 0
			m.offset = 0
		}

	case tea.KeyEnter:
		item := m.items[m.cursor]
		if item.Status != "device" {
			return m, nil
		}
		m.Clear()
		return m, func() tea.Msg {
			return PickerChoice{Serial: item.Serial}
		}

	case tea.KeyEsc:
		m.Clear()
		return m, func() tea.Msg { return PickerCancel{} }
	}

	return m, nil
}

// View renders the picker panel.
func (m PickerModel) View() string {
	if !m.active || len(m.items) == 0 {
		return ""
	}

	var sb strings.Builder

	header := lipgloss.NewStyle().
		Foreground(style.Primary).
		Bold(true).
		Render("◈ Select Device")
	hint := lipgloss.NewStyle().
		Foreground(style.Muted).
		Render("  ↑↓ navigate · Enter connect · Esc cancel")
	sb.WriteString(header + hint + "\n\n")

	end := m.offset + m.pageSize
	if end > len(m.items) {
		end = len(m.items)
	}

	if m.offset > 0 {
		sb.WriteString(style.Faint.Render("  ↑ more above") + "\n")
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderItem(m.items[i], i == m.cursor))
		sb.WriteString("\n")
	}
	if end < len(m.items) {
		sb.WriteString(style.Faint.Render("  ↓ more below") + "\n")
	}

	sb.WriteString(style.Faint.Render(fmt.Sprintf("\n  %d device(s) found", len(m.items))))

	boxStyle := style.PanelBorder
	if m.width > 0 {
		boxStyle = boxStyle.Width(m.width - 2)
	}
	return boxStyle.Render(sb.String())
}

// renderItem renders a single device line.
func (m PickerModel) renderItem(item PickerItem, isCursor bool) string {
	var cursor string
	if isCursor {
		cursor = lipgloss.NewStyle().Foreground(style.Primary).Bold(true).Render("  > ")
	} else {
		cursor = "    "
	}

	var marker string
	switch {
	case item.Connected:
		marker = lipgloss.NewStyle().Foreground(style.Success).Render("●")
	case item.Status == "device":
		marker = lipgloss.NewStyle().Foreground(style.Muted).Render("○")
	default:
		marker = lipgloss.NewStyle().Foreground(style.Error).Render("○")
	}

	nameStyle := lipgloss.NewStyle()
	if isCursor {
		nameStyle = nameStyle.Bold(true)
	}
	if item.Status != "device" {
		nameStyle = nameStyle.Foreground(style.Muted)
	}
	line := cursor + marker + " " + nameStyle.Render(item.Serial)

	if item.Status != "device" {
		line += style.WarningText.Render("  " + item.Status)
	}
	if item.Connected {
		line += lipgloss.NewStyle().Foreground(style.Success).Render("  connected")
	}
	return line
}
