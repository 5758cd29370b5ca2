package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/droidpilot/droid-tui/client"
)

// recSink records every sink call in order.
type recSink struct {
	mu    sync.Mutex
	calls []string
	idle  chan struct{} // closed on SetBusy(false)
}

func newRecSink() *recSink {
	return &recSink{idle: make(chan struct{})}
}

func (s *recSink) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recSink) AppendUser(text string) { s.record("user:" + text) }

func (s *recSink) AppendSystem(text string, sev Severity, action *client.AgentAction, debug json.RawMessage) {
	tag := fmt.Sprintf("sys[%d]:%s", sev, text)
	if action != nil {
		tag += ":action=" + action.Type
	}
	if debug != nil {
		tag += ":debug"
	}
	s.record(tag)
}

func (s *recSink) UpsertThinking(text string) { s.record("think:" + text) }
func (s *recSink) RemoveThinking()            { s.record("unthink") }
func (s *recSink) SetDeviceFrame(ref string)  { s.record("frame:" + ref) }

func (s *recSink) SetBusy(busy bool) {
	s.record(fmt.Sprintf("busy:%v", busy))
	if !busy {
		close(s.idle)
	}
}

func (s *recSink) Warnf(format string, args ...any) {
	s.record("warn:" + fmt.Sprintf(format, args...))
}

func (s *recSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// fakeStream replays a scripted event sequence.
type fakeStream struct {
	events []client.StreamEvent
	err    error
	block  chan struct{} // if non-nil, Run waits on it before returning
}

func (f *fakeStream) Run(task string, warn func(string), handle func(client.StreamEvent)) error {
	for _, ev := range f.events {
		handle(ev)
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func (f *fakeStream) Close() {}

type fakeStopper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeStopper) StopExecution() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func newController(sink *recSink, stream *fakeStream, connected bool, refresh func()) *ExecController {
	return NewExecController(
		sink,
		&fakeStopper{},
		func() StreamRunner { return stream },
		func() bool { return connected },
		refresh,
	)
}

func waitIdle(t *testing.T, sink *recSink) {
	t.Helper()
	select {
	case <-sink.idle:
	case <-time.After(2 * time.Second):
		t.Fatal("controller never re-enabled input")
	}
}

func TestStartRejectsEmptyTask(t *testing.T) {
	sink := newRecSink()
	c := newController(sink, &fakeStream{}, true, nil)
	if err := c.Start("   "); !errors.Is(err, ErrEmptyTask) {
		t.Fatalf("want ErrEmptyTask, got %v", err)
	}
	if len(sink.snapshot()) != 0 {
		t.Fatalf("rejected start must not render anything, got %v", sink.snapshot())
	}
}

func TestStartRejectsWithoutDevice(t *testing.T) {
	sink := newRecSink()
	c := newController(sink, &fakeStream{}, false, nil)
	if err := c.Start("open settings"); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("want ErrNoDevice, got %v", err)
	}
}

func TestStartRejectsWhileRunning(t *testing.T) {
	sink := newRecSink()
	block := make(chan struct{})
	c := newController(sink, &fakeStream{block: block}, true, nil)

	if err := c.Start("first"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := c.Start("second"); !errors.Is(err, ErrTaskRunning) {
		t.Fatalf("want ErrTaskRunning, got %v", err)
	}

	close(block)
	waitIdle(t, sink)
	if c.Active() {
		t.Fatal("controller still active after stream end")
	}
}

func TestThinkingCoalescesAndActionClears(t *testing.T) {
	sink := newRecSink()
	stream := &fakeStream{events: []client.StreamEvent{
		{Type: "thinking", Message: "A"},
		{Type: "thinking", Message: "B"},
		{Type: "action", Message: "step 1", Action: &client.AgentAction{Type: "click"}},
	}}
	c := newController(sink, stream, true, nil)
	if err := c.Start("do the thing"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitIdle(t, sink)

	want := []string{
		"user:do the thing",
		"busy:true",
		"think:A",
		"think:B",
		"unthink",
		"sys[1]:step 1:action=click",
		"busy:false",
	}
	got := sink.snapshot()
	if len(got) != len(want) {
		t.Fatalf("call sequence mismatch\nwant %v\ngot  %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestScreenshotAppliesOnAnyKind(t *testing.T) {
	sink := newRecSink()
	stream := &fakeStream{events: []client.StreamEvent{
		{Type: "info", Message: "hello", Screenshot: "img-1"},
		{Type: "update", Message: "world", Screenshot: "img-2"},
	}}
	c := newController(sink, stream, true, nil)
	if err := c.Start("look around"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitIdle(t, sink)

	var frames []string
	for _, call := range sink.snapshot() {
		if len(call) > 6 && call[:6] == "frame:" {
			frames = append(frames, call[6:])
		}
	}
	if len(frames) != 2 || frames[0] != "img-1" || frames[1] != "img-2" {
		t.Fatalf("want frames [img-1 img-2], got %v", frames)
	}
}

func TestTransportFailureRendersSingleError(t *testing.T) {
	sink := newRecSink()
	stream := &fakeStream{
		events: []client.StreamEvent{{Type: "thinking", Message: "hmm"}},
		err:    errors.New("connection reset"),
	}
	refreshed := 0
	c := newController(sink, stream, true, func() { refreshed++ })
	if err := c.Start("fragile"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitIdle(t, sink)

	var errCount int
	for _, call := range sink.snapshot() {
		if len(call) > 7 && call[:7] == "sys[4]:" {
			errCount++
		}
	}
	if errCount != 1 {
		t.Fatalf("want exactly one error message, got %d in %v", errCount, sink.snapshot())
	}
	if refreshed != 1 {
		t.Fatalf("want one terminal frame refresh, got %d", refreshed)
	}
	if c.Active() {
		t.Fatal("failed session must not stay active")
	}
}

func TestCompletedCarriesDebugPayload(t *testing.T) {
	sink := newRecSink()
	stream := &fakeStream{events: []client.StreamEvent{
		{Type: "completed", Message: "all done", Debug: json.RawMessage(`{"raw_response":"ok"}`)},
	}}
	c := newController(sink, stream, true, nil)
	if err := c.Start("finish up"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitIdle(t, sink)

	found := false
	for _, call := range sink.snapshot() {
		if call == "sys[2]:all done:debug" {
			found = true
		}
	}
	if !found {
		t.Fatalf("completed message with debug payload not rendered: %v", sink.snapshot())
	}
}

func TestStopSignalsWithoutEndingSession(t *testing.T) {
	sink := newRecSink()
	block := make(chan struct{})
	stopper := &fakeStopper{}
	stream := &fakeStream{block: block}
	c := NewExecController(sink, stopper,
		func() StreamRunner { return stream },
		func() bool { return true }, nil)

	if err := c.Start("long task"); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()

	// The stop signal is fire-and-forget; the session stays active until
	// the server closes the stream.
	deadline := time.After(2 * time.Second)
	for {
		stopper.mu.Lock()
		calls := stopper.calls
		stopper.mu.Unlock()
		if calls == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stop signal never sent")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !c.Active() {
		t.Fatal("stop must not locally terminate the session")
	}

	close(block)
	waitIdle(t, sink)
}
