package style

import "github.com/charmbracelet/lipgloss"

// Colors — populated from the active Theme by SetTheme.
var (
	Primary   lipgloss.TerminalColor = lipgloss.Color("#3DDC84") // android green
	Secondary lipgloss.TerminalColor = lipgloss.Color("#06B6D4") // cyan-500
	Success   lipgloss.TerminalColor = lipgloss.Color("#22C55E") // green-500
	Warning   lipgloss.TerminalColor = lipgloss.Color("#F59E0B") // amber-500
	Error     lipgloss.TerminalColor = lipgloss.Color("#EF4444") // red-500
	Muted     lipgloss.TerminalColor = lipgloss.Color("#6B7280") // gray-500
	Dim       lipgloss.TerminalColor = lipgloss.Color("#374151") // gray-700
	Border    lipgloss.TerminalColor = lipgloss.Color("#4B5563") // gray-600
)

// Base styles. Rebuilt by SetTheme when the palette changes.
var (
	Bold      lipgloss.Style
	Faint     lipgloss.Style
	ErrorText lipgloss.Style

	// Banner
	BannerTitle  lipgloss.Style
	BannerDetail lipgloss.Style

	// Prompt
	PromptChar lipgloss.Style

	// Chat
	UserLabel    lipgloss.Style
	AgentLabel   lipgloss.Style
	ActionLabel  lipgloss.Style
	SuccessText  lipgloss.Style
	WarningText  lipgloss.Style
	ThinkingText lipgloss.Style

	// Spinner / pairing
	SpinnerStyle lipgloss.Style
	PairCode     lipgloss.Style

	// Device status bar
	StatusBar     lipgloss.Style
	StatusDevice  lipgloss.Style
	StatusRunning lipgloss.Style

	// Panels
	PanelBorder lipgloss.Style

	// Connector (⎿) for action detail lines
	Connector lipgloss.Style

	// Hint text (ctrl+o, esc)
	Hint lipgloss.Style

	// Prefix characters (⏺ ✳)
	PrefixActive lipgloss.Style
	PrefixDone   lipgloss.Style
)

func init() {
	SetTheme(CurrentThemeName)
}

// SetTheme switches the active palette and rebuilds every exported style.
// Unknown names fall back to the dark theme.
func SetTheme(name string) {
	t, ok := Themes[name]
	if !ok {
		t = Themes["dark"]
	}
	CurrentThemeName = t.Name

	Primary = t.Primary
	Secondary = t.Secondary
	Success = t.Success
	Warning = t.Warning
	Error = t.Error
	Muted = t.Muted
	Dim = t.Dim
	Border = t.Border

	Bold = lipgloss.NewStyle().Bold(true)
	Faint = lipgloss.NewStyle().Foreground(Muted)
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)

	BannerTitle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	BannerDetail = lipgloss.NewStyle().Foreground(Muted)

	PromptChar = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	UserLabel = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	AgentLabel = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	ActionLabel = lipgloss.NewStyle().Foreground(Secondary)
	SuccessText = lipgloss.NewStyle().Foreground(Success)
	WarningText = lipgloss.NewStyle().Foreground(Warning)
	ThinkingText = lipgloss.NewStyle().Foreground(Muted).Italic(true)

	SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)
	PairCode = lipgloss.NewStyle().Foreground(Warning).Bold(true)

	StatusBar = lipgloss.NewStyle().Foreground(Muted).PaddingLeft(1)
	StatusDevice = lipgloss.NewStyle().Foreground(Secondary)
	StatusRunning = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	PanelBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Connector = lipgloss.NewStyle().Foreground(Muted)
	Hint = lipgloss.NewStyle().Foreground(Dim)

	PrefixActive = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	PrefixDone = lipgloss.NewStyle().Foreground(Success).Bold(true)
}
