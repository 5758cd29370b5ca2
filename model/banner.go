package model

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidpilot/droid-tui/style"
)

// BannerModel renders the one-line startup banner:
//
//	DroidPilot v1.0 · http://localhost:5000 · 2 devices
//
// It is populated after the first device listing and is purely static —
// Update handles no messages.
type BannerModel struct {
	version     string
	backendURL  string
	deviceCount int
	haveCount   bool
}

// NewBanner returns a BannerModel with a default version string.
func NewBanner(version string) BannerModel {
	if version == "" {
		version = "dev"
	}
	return BannerModel{version: version}
}

// SetBackendURL sets the backend address displayed in the banner.
func (m *BannerModel) SetBackendURL(url string) {
	m.backendURL = url
}

// SetDeviceCount sets the number of devices seen by the backend.
func (m *BannerModel) SetDeviceCount(n int) {
	m.deviceCount = n
	m.haveCount = true
}

// Init satisfies tea.Model.
func (m BannerModel) Init() tea.Cmd {
	return nil
}

// Update satisfies tea.Model. The banner is static; all messages pass through.
func (m BannerModel) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the banner line.
func (m BannerModel) View() string {
	title := style.BannerTitle.Render("DroidPilot " + m.version)
	sep := style.BannerDetail.Render(" · ")

	out := title + sep + style.BannerDetail.Render(m.backendURL)
	if m.haveCount {
		out += sep + style.BannerDetail.Render(fmt.Sprintf("%d devices", m.deviceCount))
	}
	return out
}
