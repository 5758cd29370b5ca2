package app

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidpilot/droid-tui/client"
	"github.com/droidpilot/droid-tui/config"
	"github.com/droidpilot/droid-tui/frame"
	"github.com/droidpilot/droid-tui/model"
	"github.com/droidpilot/droid-tui/msg"
	"github.com/droidpilot/droid-tui/session"
	"github.com/droidpilot/droid-tui/style"
)

// ProfileDir is where tui.json and other per-profile state live.
var ProfileDir string

// ProgramReady delivers the running program handle so background goroutines
// can p.Send into the update loop.
type ProgramReady struct{ Program *tea.Program }

// deviceCountLoaded is the bootstrap device listing, used only for the banner.
type deviceCountLoaded int

const defaultPairTimeout = 120

var slashCommands = []string{
	"/app", "/clear", "/devices", "/disconnect", "/exit", "/help",
	"/history", "/info", "/input", "/key", "/pair", "/quit",
	"/refresh", "/swipe", "/tap", "/theme",
}

// deviceState is the connected-device serial shared with controller closures,
// which outlive any single Model value in the update loop.
type deviceState struct {
	mu     sync.Mutex
	serial string
}

func (d *deviceState) set(serial string) {
	d.mu.Lock()
	d.serial = serial
	d.mu.Unlock()
}

func (d *deviceState) get() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serial
}

func (d *deviceState) connected() bool { return d.get() != "" }

type Model struct {
	banner  model.BannerModel
	chat    model.ChatModel
	input   model.InputModel
	picker  model.PickerModel
	pairing model.PairingModel
	toasts  model.ToastsModel
	status  model.StatusModel

	state State
	keys  KeyMap

	client *client.Client
	sink   *programSink
	timers *session.TimerCoordinator
	exec   *session.ExecController
	pair   *session.PairingController
	frames *frame.Renderer
	device *deviceState

	program     *tea.Program
	width       int
	height      int
	frameView   string // last rendered device frame block
	confirmQuit bool
	pairDone    bool // pairing panel is showing a terminal state
}

// New wires the controllers and sub-models. The program handle arrives later
// via ProgramReady; until then controller output is dropped.
func New(c *client.Client, version string) Model {
	sink := &programSink{}
	timers := session.NewTimerCoordinator(session.RefreshInterval, session.PollInterval)
	device := &deviceState{}

	exec := session.NewExecController(sink, c,
		func() session.StreamRunner { return client.NewStream(c.BaseURL) },
		device.connected,
		func() { pushFrame(c, sink) },
	)
	// Refresh ticks are skipped while a task runs; the stream's screenshots
	// carry the frame instead.
	timers.SetRefreshGate(exec.Active)

	pair := session.NewPairingController(c, timers,
		func(u session.PairingUpdate) {
			sink.send(msg.PairingUpdate{
				State:    u.State.String(),
				Message:  u.Message,
				QRCode:   u.QRCode,
				Password: u.Password,
				Addr:     u.Addr,
			})
		},
		func(serial string) { connectAndReport(c, sink, serial) },
		sink.Warnf,
	)

	banner := model.NewBanner(version)
	banner.SetBackendURL(c.BaseURL)

	m := Model{
		banner:  banner,
		chat:    model.NewChat(80, 20),
		input:   model.NewInput(),
		picker:  model.NewPicker(),
		pairing: model.NewPairing(),
		toasts:  model.NewToasts(),
		status:  model.NewStatus(),
		state:   StateIdle,
		keys:    DefaultKeyMap(),
		client:  c,
		sink:    sink,
		timers:  timers,
		exec:    exec,
		pair:    pair,
		frames:  frame.NewRenderer(),
		device:  device,
		width:   80,
		height:  24,
	}
	m.input.SetCommands(slashCommands)
	return m
}

// pushFrame fetches one screenshot and forwards it. Failures are dropped;
// the next refresh tick retries.
func pushFrame(c *client.Client, sink *programSink) {
	if uri, err := c.Screenshot(); err == nil && uri != "" {
		sink.SetDeviceFrame(uri)
	}
}

// connectAndReport performs the device connect and pushes both the result and
// the device identity into the update loop. Used by the picker path and the
// pairing auto-connect.
func connectAndReport(c *client.Client, sink *programSink, serial string) {
	info, err := c.Connect(serial)
	if err != nil {
		sink.send(msg.ConnectResult{Serial: serial, Err: err})
		return
	}
	sink.send(msg.ConnectResult{Serial: info.Serial})
	sink.send(msg.DeviceInfoResult{
		Serial:  info.Serial,
		Brand:   info.Brand,
		Model:   info.Model,
		Version: info.Version,
		SDK:     info.SDK,
		Width:   info.Display.Width,
		Height:  info.Display.Height,
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.tickCmd(), m.bootstrapCmd())
}

func (m Model) Update(rawMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := rawMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		m.chat.SetSize(v.Width, m.chatHeight())
		m.picker.SetWidth(v.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(v)

	case ProgramReady:
		m.program = v.Program
		m.sink.setProgram(v.Program)
		return m, nil

	case msg.TickMsg:
		m.status.Tick()
		m.toasts.Tick()
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.pairing, cmd = m.pairing.Update(v)
		return m, cmd

	case deviceCountLoaded:
		m.banner.SetDeviceCount(int(v))
		return m, nil

	case msg.TaskSubmitted:
		m.chat.AddUserMessage(v.Text)
		m.status.SetRunning(true, v.Text)
		return m, nil

	case msg.AgentMessage:
		m.chat.AddAgentMessage(v.Text, v.Severity, v.Action, v.Debug)
		return m, nil

	case msg.ThinkingUpdate:
		m.chat.SetThinking(v.Text)
		return m, nil

	case msg.ThinkingCleared:
		m.chat.ClearThinking()
		return m, nil

	case msg.DeviceFrame:
		m.frameView = m.frames.Render(v.ImageRef, m.frameWidth())
		return m, nil

	case msg.BusyChanged:
		m.input.SetDisabled(v.Busy)
		if v.Busy {
			m.state = StateRunning
			return m, nil
		}
		m.state = StateIdle
		m.status.SetRunning(false, "")
		return m, m.input.Focus()

	case msg.StreamWarning:
		m.toasts.Add(v.Text, model.ToastWarning)
		return m, nil

	case msg.DevicesResult:
		return m.handleDevices(v)

	case model.PickerChoice:
		m.state = StateIdle
		return m, tea.Batch(m.connectCmd(v.Serial), m.input.Focus())

	case model.PickerCancel:
		m.state = StateIdle
		return m, m.input.Focus()

	case msg.ConnectResult:
		return m.handleConnect(v)

	case msg.DeviceInfoResult:
		if v.Err != nil {
			m.toasts.Add(fmt.Sprintf("device info: %v", v.Err), model.ToastError)
			return m, nil
		}
		m.status.SetDevice(v.Serial, v.Brand, v.Model, v.Version, v.Width, v.Height)
		return m, nil

	case msg.DisconnectResult:
		if v.Err != nil {
			m.toasts.Add(fmt.Sprintf("disconnect: %v", v.Err), model.ToastError)
			return m, nil
		}
		m.device.set("")
		m.status.ClearDevice()
		m.timers.StopRefresh()
		m.frameView = ""
		m.toasts.Add("Device disconnected", model.ToastInfo)
		return m, nil

	case msg.HistoryResult:
		return m.handleHistory(v)

	case msg.ClearResult:
		if v.Err != nil {
			m.toasts.Add(fmt.Sprintf("clear history: %v", v.Err), model.ToastError)
			return m, nil
		}
		m.chat.Clear()
		m.toasts.Add("History cleared", model.ToastInfo)
		return m, nil

	case msg.ActionResult:
		if v.Err != nil {
			m.toasts.Add(fmt.Sprintf("/%s: %v", v.Kind, v.Err), model.ToastError)
			return m, nil
		}
		m.toasts.Add(v.Message, model.ToastInfo)
		return m, nil

	case msg.PairingUpdate:
		return m.handlePairing(v)
	}

	return m, nil
}

func (m Model) handleDevices(v msg.DevicesResult) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		m.toasts.Add(fmt.Sprintf("list devices: %v", v.Err), model.ToastError)
		return m, nil
	}
	m.banner.SetDeviceCount(len(v.Devices))
	if len(v.Devices) == 0 {
		m.toasts.Add("No devices found — try /pair for wireless", model.ToastWarning)
		return m, nil
	}

	current := m.device.get()
	items := make([]model.PickerItem, len(v.Devices))
	for i, d := range v.Devices {
		items[i] = model.PickerItem{
			Serial:    d.Serial,
			Status:    d.Status,
			Connected: d.Serial == current,
		}
	}
	m.picker.SetItems(items)
	m.state = StatePicker
	m.input.Blur()
	return m, nil
}

func (m Model) handleConnect(v msg.ConnectResult) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		m.toasts.Add(fmt.Sprintf("connect: %v", v.Err), model.ToastError)
		return m, nil
	}
	m.device.set(v.Serial)
	m.toasts.Add("Connected to "+v.Serial, model.ToastInfo)
	m.timers.StartRefresh(func() { pushFrame(m.client, m.sink) })
	return m, nil
}

func (m Model) handleHistory(v msg.HistoryResult) (tea.Model, tea.Cmd) {
	if v.Err != nil {
		m.toasts.Add(fmt.Sprintf("history: %v", v.Err), model.ToastError)
		return m, nil
	}
	if len(v.Entries) == 0 {
		m.toasts.Add("No server-side history", model.ToastInfo)
		return m, nil
	}
	m.chat.Clear()
	for _, e := range v.Entries {
		if e.Role == "user" {
			m.chat.AddUserMessage(e.Content)
		} else {
			m.chat.AddAgentMessage(e.Content, msg.SevInfo, nil, "")
		}
	}
	return m, nil
}

func (m Model) handlePairing(v msg.PairingUpdate) (tea.Model, tea.Cmd) {
	m.pairing.Apply(v)
	switch v.State {
	case "connected":
		m.pairDone = true
		// The auto-connect fires separately; the panel shows success until
		// the user dismisses it.
	case "failed", "timeout":
		m.pairDone = true
	case "idle":
		m.pairing.Stop()
		if m.state == StatePairing {
			m.state = StateIdle
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sections []string
	sections = append(sections, m.banner.View())

	switch m.state {
	case StatePicker:
		sections = append(sections, m.chat.View(), m.picker.View())
	case StatePairing:
		sections = append(sections, m.chat.View(), m.pairing.View())
	default:
		sections = append(sections, m.chat.View())
		if m.frameView != "" {
			sections = append(sections, m.frameView)
		}
	}

	sections = append(sections, m.status.View(), m.input.View())

	if m.confirmQuit {
		sections = append(sections, style.Faint.Render("  Press Ctrl+C again to quit, or any key to cancel."))
	}
	if m.toasts.HasToasts() {
		sections = append(sections, m.toasts.View(m.width))
	}
	return strings.Join(sections, "\n")
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmQuit {
		if key.Matches(k, m.keys.Cancel) {
			m.shutdown()
			return m, tea.Quit
		}
		m.confirmQuit = false
		return m, nil
	}

	if key.Matches(k, m.keys.ToggleExpand) {
		m.chat.ToggleExpanded()
		return m, nil
	}

	switch m.state {
	case StatePicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(k)
		if !m.picker.IsActive() && cmd == nil {
			m.state = StateIdle
		}
		return m, cmd

	case StatePairing:
		return m.handlePairingKey(k)

	case StateRunning:
		return m.handleRunningKey(k)
	}
	return m.handleIdleKey(k)
}

func (m Model) handleIdleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Escape):
		m.input.Reset()
		return m, nil

	case key.Matches(k, m.keys.Cancel):
		if m.input.Value() == "" {
			m.confirmQuit = true
			return m, nil
		}
		m.input.Reset()
		return m, nil

	case key.Matches(k, m.keys.QuitEOF):
		if m.input.Value() == "" {
			m.shutdown()
			return m, tea.Quit
		}

	case key.Matches(k, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Submit(text)
		return m.submitInput(text)

	case key.Matches(k, m.keys.PageUp), key.Matches(k, m.keys.PageDown):
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(k)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	return m, cmd
}

func (m Model) handleRunningKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Escape), key.Matches(k, m.keys.Cancel):
		m.exec.Stop()
		m.toasts.Add("Stop requested — waiting for the agent", model.ToastInfo)
		return m, nil

	case key.Matches(k, m.keys.PageUp), key.Matches(k, m.keys.PageDown):
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(k)
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePairingKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Escape), key.Matches(k, m.keys.Cancel):
		if !m.pairDone {
			m.pair.Cancel()
		}
		m.pairing.Stop()
		m.state = StateIdle
		return m, m.input.Focus()

	case key.Matches(k, m.keys.Submit):
		if m.pairDone {
			m.pairing.Stop()
			m.state = StateIdle
			return m, m.input.Focus()
		}
	}
	return m, nil
}

// submitInput routes slash commands, or hands plain text to the execution
// controller as a task.
func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(text, "/") {
		return m, m.startTaskCmd(text)
	}

	m.chat.AddUserMessage(text)
	fields := strings.Fields(text)

	switch fields[0] {
	case "/exit", "/quit":
		m.shutdown()
		return m, tea.Quit

	case "/help":
		m.chat.AddAgentMessage(helpText, msg.SevInfo, nil, "")
		return m, nil

	case "/devices":
		return m, m.listDevicesCmd()

	case "/refresh":
		return m, func() tea.Msg {
			pushFrame(m.client, m.sink)
			return nil
		}

	case "/pair":
		timeout := defaultPairTimeout
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				timeout = n
			}
		}
		m.pairing.Start()
		m.pairDone = false
		m.state = StatePairing
		m.input.Blur()
		return m, tea.Batch(m.pairing.Init(), m.startPairingCmd(timeout))

	case "/disconnect":
		return m, m.disconnectCmd()

	case "/info":
		return m, m.deviceInfoCmd()

	case "/history":
		return m, m.historyCmd()

	case "/clear":
		return m, m.clearCmd()

	case "/tap":
		return m.manualTap(fields[1:])

	case "/swipe":
		return m.manualSwipe(fields[1:])

	case "/key":
		if len(fields) != 2 {
			m.toasts.Add("usage: /key <back|home|enter|...>", model.ToastWarning)
			return m, nil
		}
		return m, m.actionCmd("key", client.AgentAction{
			Type:   "press",
			Params: map[string]any{"key": fields[1]},
		}, "Pressed "+fields[1])

	case "/input":
		if len(fields) < 2 {
			m.toasts.Add("usage: /input <text>", model.ToastWarning)
			return m, nil
		}
		typed := strings.TrimSpace(strings.TrimPrefix(text, "/input"))
		return m, m.actionCmd("input", client.AgentAction{
			Type:   "input",
			Params: map[string]any{"text": typed},
		}, "Typed text")

	case "/app":
		if len(fields) != 2 {
			m.toasts.Add("usage: /app <package>", model.ToastWarning)
			return m, nil
		}
		return m, m.actionCmd("app", client.AgentAction{
			Type:   "start_app",
			Params: map[string]any{"package": fields[1]},
		}, "Launched "+fields[1])

	case "/theme":
		return m.switchTheme(fields[1:])
	}

	m.toasts.Add("Unknown command "+fields[0]+" — /help lists commands", model.ToastWarning)
	return m, nil
}

func (m Model) manualTap(args []string) (tea.Model, tea.Cmd) {
	if len(args) != 2 {
		m.toasts.Add("usage: /tap <x> <y>", model.ToastWarning)
		return m, nil
	}
	x, errX := strconv.Atoi(args[0])
	y, errY := strconv.Atoi(args[1])
	if errX != nil || errY != nil {
		m.toasts.Add("usage: /tap <x> <y>", model.ToastWarning)
		return m, nil
	}
	return m, m.actionCmd("tap", client.AgentAction{
		Type:   "click",
		Params: map[string]any{"x": x, "y": y},
	}, fmt.Sprintf("Tapped (%d, %d)", x, y))
}

func (m Model) manualSwipe(args []string) (tea.Model, tea.Cmd) {
	switch len(args) {
	case 1:
		dir := args[0]
		switch dir {
		case "up", "down", "left", "right":
			return m, m.actionCmd("swipe", client.AgentAction{
				Type:   "swipe",
				Params: map[string]any{"direction": dir},
			}, "Swiped "+dir)
		}

	case 4:
		coords := make([]int, 4)
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				coords = nil
				break
			}
			coords[i] = n
		}
		if coords != nil {
			return m, m.actionCmd("swipe", client.AgentAction{
				Type: "swipe",
				Params: map[string]any{
					"start_x": coords[0], "start_y": coords[1],
					"end_x": coords[2], "end_y": coords[3],
				},
			}, "Swiped")
		}
	}
	m.toasts.Add("usage: /swipe <up|down|left|right> or /swipe <x1> <y1> <x2> <y2>", model.ToastWarning)
	return m, nil
}

func (m Model) switchTheme(args []string) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		m.toasts.Add("usage: /theme <"+strings.Join(style.ThemeNames, "|")+">", model.ToastWarning)
		return m, nil
	}
	name := args[0]
	if _, ok := style.Themes[name]; !ok {
		m.toasts.Add("Unknown theme "+name, model.ToastWarning)
		return m, nil
	}
	style.SetTheme(name)
	if ProfileDir != "" {
		cfg := config.Load(ProfileDir)
		cfg.Theme = name
		if err := config.Save(ProfileDir, cfg); err != nil {
			m.toasts.Add(fmt.Sprintf("save config: %v", err), model.ToastWarning)
		}
	}
	m.toasts.Add("Theme set to "+name, model.ToastInfo)
	return m, nil
}

// -- Commands --

func (m Model) startTaskCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := m.exec.Start(text); err != nil {
			return msg.StreamWarning{Text: err.Error()}
		}
		return nil
	}
}

func (m Model) startPairingCmd(timeout int) tea.Cmd {
	return func() tea.Msg {
		// The controller pushes its own updates; errors surface there too.
		m.pair.Start(timeout)
		return nil
	}
}

func (m Model) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.client.ListDevices()
		if err != nil {
			return msg.StreamWarning{Text: fmt.Sprintf("backend unreachable: %v", err)}
		}
		return deviceCountLoaded(len(devices))
	}
}

func (m Model) listDevicesCmd() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.client.ListDevices()
		result := msg.DevicesResult{Err: err}
		for _, d := range devices {
			result.Devices = append(result.Devices, msg.Device{Serial: d.Serial, Status: d.Status})
		}
		return result
	}
}

func (m Model) connectCmd(serial string) tea.Cmd {
	return func() tea.Msg {
		connectAndReport(m.client, m.sink, serial)
		return nil
	}
}

func (m Model) disconnectCmd() tea.Cmd {
	return func() tea.Msg {
		return msg.DisconnectResult{Err: m.client.Disconnect()}
	}
}

func (m Model) deviceInfoCmd() tea.Cmd {
	return func() tea.Msg {
		info, err := m.client.DeviceInfo()
		if err != nil {
			return msg.DeviceInfoResult{Err: err}
		}
		return msg.DeviceInfoResult{
			Serial:  info.Serial,
			Brand:   info.Brand,
			Model:   info.Model,
			Version: info.Version,
			SDK:     info.SDK,
			Width:   info.Display.Width,
			Height:  info.Display.Height,
		}
	}
}

func (m Model) historyCmd() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.client.History()
		result := msg.HistoryResult{Err: err}
		for _, e := range entries {
			result.Entries = append(result.Entries, msg.HistoryEntry{Role: e.Role, Content: e.Content})
		}
		return result
	}
}

func (m Model) clearCmd() tea.Cmd {
	return func() tea.Msg {
		return msg.ClearResult{Err: m.client.ClearHistory()}
	}
}

func (m Model) actionCmd(kind string, action client.AgentAction, okMessage string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.SingleAction(action); err != nil {
			return msg.ActionResult{Kind: kind, Err: err}
		}
		// Manual actions change the screen; refresh right away.
		pushFrame(m.client, m.sink)
		return msg.ActionResult{Kind: kind, Message: okMessage}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return msg.TickMsg{}
	})
}

// shutdown stops background work before the program exits.
func (m Model) shutdown() {
	m.timers.StopRefresh()
	m.timers.StopPairingPoll()
	if m.exec.Active() {
		m.exec.Stop()
	}
}

func (m Model) chatHeight() int {
	// banner + status + input + padding
	h := m.height - 6
	if m.frameView != "" {
		h -= strings.Count(m.frameView, "\n") + 1
	}
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) frameWidth() int {
	w := m.width / 3
	if w < 20 {
		w = 20
	}
	return w
}

const helpText = `**Commands**

| Command | Description |
|---------|-------------|
| ` + "`/devices`" + ` | List ADB devices and pick one to connect |
| ` + "`/pair [seconds]`" + ` | Wireless pairing via QR code (default 120s timeout) |
| ` + "`/disconnect`" + ` | Detach from the current device |
| ` + "`/info`" + ` | Show connected device details |
| ` + "`/refresh`" + ` | Fetch a fresh device frame now |
| ` + "`/tap x y`" + ` | Tap at screen coordinates |
| ` + "`/swipe dir`" + ` | Swipe up/down/left/right (or x1 y1 x2 y2) |
| ` + "`/key name`" + ` | Press a key (back, home, enter, …) |
| ` + "`/input text`" + ` | Type text into the focused field |
| ` + "`/app package`" + ` | Launch an app by package name |
| ` + "`/history`" + ` | Load the server-side conversation history |
| ` + "`/clear`" + ` | Clear server-side history and the local log |
| ` + "`/theme name`" + ` | Switch color theme |
| ` + "`/exit`" + ` | Quit |

Anything else is sent to the agent as a task. While a task runs, **esc**
requests a stop; **ctrl+o** toggles raw payloads.`
