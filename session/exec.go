package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/droidpilot/droid-tui/client"
)

// Pre-flight failures rejected before any network activity.
var (
	ErrEmptyTask   = errors.New("task text is empty")
	ErrNoDevice    = errors.New("no device connected")
	ErrTaskRunning = errors.New("a task is already running")
)

// StreamRunner is one task-execution stream. client.Stream satisfies it;
// tests substitute a fake.
type StreamRunner interface {
	Run(task string, warn func(string), handle func(client.StreamEvent)) error
	Close()
}

// Stopper delivers the out-of-band stop signal to the agent.
type Stopper interface {
	StopExecution() error
}

// ExecController owns one task execution at a time: it validates the
// submission, opens the stream, applies every decoded event to the sink in
// arrival order, and reconciles the device frame when the stream ends.
type ExecController struct {
	sink      RenderSink
	stopper   Stopper
	newStream func() StreamRunner
	connected func() bool
	// refreshFrame fetches and renders one device frame; invoked once on
	// every termination so the final screen state is shown.
	refreshFrame func()

	mu       sync.Mutex
	active   bool
	task     string
	lastKind string
	thinking bool
	stream   StreamRunner
}

// NewExecController wires an execution controller. refreshFrame may be nil.
func NewExecController(sink RenderSink, stopper Stopper, newStream func() StreamRunner, connected func() bool, refreshFrame func()) *ExecController {
	return &ExecController{
		sink:         sink,
		stopper:      stopper,
		newStream:    newStream,
		connected:    connected,
		refreshFrame: refreshFrame,
	}
}

// Active reports whether a task is currently executing.
func (c *ExecController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Task returns the text of the running task, or "".
func (c *ExecController) Task() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

// LastEventKind returns the kind of the most recently applied event.
func (c *ExecController) LastEventKind() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKind
}

// Start validates taskText and begins executing it. The user message is
// rendered and input disabled before the request goes out. Events are then
// consumed on a background goroutine until the server closes the stream.
func (c *ExecController) Start(taskText string) error {
	if strings.TrimSpace(taskText) == "" {
		return ErrEmptyTask
	}
	if c.connected != nil && !c.connected() {
		return ErrNoDevice
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrTaskRunning
	}
	c.active = true
	c.task = taskText
	c.lastKind = ""
	c.thinking = false
	stream := c.newStream()
	c.stream = stream
	c.mu.Unlock()

	c.sink.AppendUser(taskText)
	c.sink.SetBusy(true)

	go func() {
		err := stream.Run(taskText, func(w string) { c.sink.Warnf("%s", w) }, c.dispatch)
		c.finish(err)
	}()
	return nil
}

// Stop sends the stop signal. The stream is left open; the session ends
// when the server closes it. Delivery failure is reported but changes no
// local state.
func (c *ExecController) Stop() {
	if !c.Active() {
		return
	}
	go func() {
		if err := c.stopper.StopExecution(); err != nil {
			c.sink.Warnf("stop signal failed: %v", err)
		}
	}()
}

// dispatch applies one event. Runs on the stream goroutine only, so events
// are applied strictly in arrival order.
func (c *ExecController) dispatch(ev client.StreamEvent) {
	// A screenshot on any kind replaces the device frame; this never blocks
	// or suppresses the message render below.
	if ev.Screenshot != "" {
		c.sink.SetDeviceFrame(ev.Screenshot)
	}

	switch ev.Type {
	case "start", "info", "update":
		c.sink.AppendSystem(ev.Message, SevInfo, nil, nil)
	case "thinking":
		c.setThinking(true)
		c.sink.UpsertThinking(ev.Message)
	case "action":
		c.clearThinking()
		c.sink.AppendSystem(ev.Message, SevAction, ev.Action, ev.Debug)
	case "done":
		c.sink.AppendSystem(ev.Message, SevSuccess, nil, nil)
	case "completed":
		c.sink.AppendSystem(ev.Message, SevSuccess, nil, ev.Debug)
	case "failed", "error":
		c.clearThinking()
		c.sink.AppendSystem(ev.Message, SevError, nil, ev.Debug)
	case "stopped":
		c.clearThinking()
		c.sink.AppendSystem(ev.Message, SevWarning, nil, nil)
	case "warning":
		c.sink.AppendSystem(ev.Message, SevWarning, nil, nil)
	default:
		c.sink.Warnf("[stream] unknown event type %q", ev.Type)
		return
	}

	c.mu.Lock()
	c.lastKind = ev.Type
	c.mu.Unlock()
}

// finish ends the session: input is re-enabled, the frame reconciled, and a
// transport failure rendered as a single error message. No automatic retry.
func (c *ExecController) finish(err error) {
	c.mu.Lock()
	c.active = false
	c.task = ""
	c.stream = nil
	c.mu.Unlock()

	if err != nil {
		c.clearThinking()
		c.sink.AppendSystem("Task stream failed: "+err.Error(), SevError, nil, nil)
	}

	c.sink.SetBusy(false)
	if c.refreshFrame != nil {
		c.refreshFrame()
	}
}

func (c *ExecController) setThinking(v bool) {
	c.mu.Lock()
	c.thinking = v
	c.mu.Unlock()
}

// clearThinking removes the placeholder only if one is pending, so the sink
// never sees a spurious removal.
func (c *ExecController) clearThinking() {
	c.mu.Lock()
	pending := c.thinking
	c.thinking = false
	c.mu.Unlock()
	if pending {
		c.sink.RemoveThinking()
	}
}
