package model

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mdp/qrterminal/v3"

	"github.com/droidpilot/droid-tui/msg"
	"github.com/droidpilot/droid-tui/style"
)

// pairingSessionName is the mDNS service name the backend advertises the
// pairing session under. The QR payload is reconstructed from it locally so
// the code can be rendered as terminal cells instead of a PNG.
const pairingSessionName = "debug"

// PairingModel renders the wireless pairing panel: a scannable QR code with
// the numeric fallback code while waiting for the scan, then a spinner with
// the live handshake state.
type PairingModel struct {
	sp      spinner.Model
	active  bool
	state   string
	message string
	qr      string // pre-rendered ANSI QR block
	code    int
	addr    string
}

// NewPairing constructs a PairingModel with a Dot spinner.
func NewPairing() PairingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.SpinnerStyle
	return PairingModel{sp: sp}
}

// Start activates the panel for a fresh session.
func (m *PairingModel) Start() {
	m.active = true
	m.state = "starting"
	m.message = ""
	m.qr = ""
	m.code = 0
	m.addr = ""
}

// Stop hides the panel.
func (m *PairingModel) Stop() {
	m.active = false
}

// IsActive reports whether the panel is visible.
func (m PairingModel) IsActive() bool { return m.active }

// Apply folds one pairing update into the panel.
func (m *PairingModel) Apply(u msg.PairingUpdate) {
	m.state = u.State
	m.message = u.Message
	if u.Password != 0 && u.Password != m.code {
		m.code = u.Password
		m.qr = renderPairingQR(u.Password)
	}
	if u.Addr != "" {
		m.addr = u.Addr
	}
}

// Init satisfies tea.Model.
func (m PairingModel) Init() tea.Cmd {
	return m.sp.Tick
}

// Update advances the spinner.
func (m PairingModel) Update(teaMsg tea.Msg) (PairingModel, tea.Cmd) {
	if v, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(v)
		return m, cmd
	}
	return m, nil
}

// View renders the pairing panel. Returns "" when inactive.
func (m PairingModel) View() string {
	if !m.active {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(style.BannerTitle.Render("◈ Wireless Pairing"))
	sb.WriteString("\n\n")

	switch m.state {
	case "waiting_scan":
		if m.qr != "" {
			sb.WriteString(m.qr)
			sb.WriteString("\n")
		}
		sb.WriteString("  Scan with ")
		sb.WriteString(style.Bold.Render("Developer options → Wireless debugging → Pair with QR code"))
		sb.WriteString("\n")
		if m.code != 0 {
			sb.WriteString("  Pairing code: " + style.PairCode.Render(fmt.Sprintf("%06d", m.code)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n" + style.Hint.Render("  esc to cancel"))

	case "connected":
		sb.WriteString(style.PrefixDone.Render("⏺") + " " + style.SuccessText.Render("Paired and connected"))
		if m.addr != "" {
			sb.WriteString(style.Faint.Render("  " + m.addr))
		}

	case "failed", "timeout":
		text := m.message
		if text == "" {
			text = "Pairing " + m.state
		}
		sb.WriteString(style.ErrorText.Render("✘ " + text))

	default:
		// pairing, pair_success, connecting: live handshake.
		label := m.message
		if label == "" {
			label = m.state
		}
		sb.WriteString(m.sp.View() + label)
		sb.WriteString("\n\n" + style.Hint.Render("  esc to cancel"))
	}

	return style.PanelBorder.Render(sb.String())
}

// renderPairingQR draws the ADB wireless-debugging QR payload as terminal
// half-blocks. qrterminal writes directly to a writer, so render to a buffer
// and indent each line.
func renderPairingQR(password int) string {
	payload := fmt.Sprintf("WIFI:T:ADB;S:%s;P:%d;;", pairingSessionName, password)

	var buf bytes.Buffer
	qrterminal.GenerateWithConfig(payload, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		QuietZone:      1,
	})

	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}
