package client

import (
	"strings"
	"testing"
)

func feedAll(d *Decoder, chunks ...string) []StreamEvent {
	var events []StreamEvent
	for _, c := range chunks {
		events = append(events, d.Feed([]byte(c))...)
	}
	return events
}

func TestDecoderSplitsAreInvisible(t *testing.T) {
	raw := "data: {\"type\":\"start\",\"message\":\"Executing task\"}\n\n" +
		"data: {\"type\":\"thinking\",\"message\":\"Looking at 设置 screen…\"}\n\n" +
		"data: {\"type\":\"done\",\"message\":\"Task finished\"}\n\n"

	whole := feedAll(NewDecoder(nil), raw)
	if len(whole) != 3 {
		t.Fatalf("whole feed: %d events, want 3", len(whole))
	}

	// Every possible two-chunk split, including splits inside the JSON
	// payload and inside the multi-byte characters, yields the same events.
	for cut := 1; cut < len(raw); cut++ {
		got := feedAll(NewDecoder(nil), raw[:cut], raw[cut:])
		if len(got) != len(whole) {
			t.Fatalf("cut at %d: %d events, want %d", cut, len(got), len(whole))
		}
		for i := range whole {
			if got[i].Type != whole[i].Type || got[i].Message != whole[i].Message {
				t.Fatalf("cut at %d, event %d: %+v != %+v", cut, i, got[i], whole[i])
			}
		}
	}

	// Byte-at-a-time is the degenerate case of the same property.
	var crumbs []string
	for i := 0; i < len(raw); i++ {
		crumbs = append(crumbs, raw[i:i+1])
	}
	got := feedAll(NewDecoder(nil), crumbs...)
	if len(got) != 3 || got[1].Message != whole[1].Message {
		t.Fatalf("byte-at-a-time feed diverged: %+v", got)
	}
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	d := NewDecoder(nil)
	events := d.Feed([]byte(": keep-alive\n\nretry: 1000\ndata: {\"type\":\"info\",\"message\":\"ok\"}\n"))
	if len(events) != 1 || events[0].Type != "info" {
		t.Fatalf("events = %+v, want single info", events)
	}
}

func TestDecoderDropsMalformedRecordAndContinues(t *testing.T) {
	var warnings []string
	d := NewDecoder(func(w string) { warnings = append(warnings, w) })

	events := d.Feed([]byte("data: {broken\ndata: {\"type\":\"update\",\"message\":\"still here\"}\n"))
	if len(events) != 1 || events[0].Message != "still here" {
		t.Fatalf("decoding did not continue past the bad record: %+v", events)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "malformed") {
		t.Fatalf("warnings = %v, want one malformed-record diagnostic", warnings)
	}
}

func TestDecoderHandlesCRLF(t *testing.T) {
	d := NewDecoder(nil)
	events := d.Feed([]byte("data: {\"type\":\"action\",\"message\":\"tap\"}\r\n"))
	if len(events) != 1 || events[0].Type != "action" {
		t.Fatalf("CRLF line not decoded: %+v", events)
	}
}

func TestDecoderCloseDiscardsPartialRecord(t *testing.T) {
	d := NewDecoder(nil)
	if events := d.Feed([]byte("data: {\"type\":\"done\",\"mess")); len(events) != 0 {
		t.Fatalf("partial record surfaced: %+v", events)
	}
	d.Close()
	// Bytes arriving after Close start a fresh buffer; the old tail is gone.
	if events := d.Feed([]byte("age\":\"x\"}\n")); len(events) != 0 {
		t.Fatalf("stale tail resurfaced after Close: %+v", events)
	}
}

func TestDecoderEventPayloads(t *testing.T) {
	d := NewDecoder(nil)
	events := d.Feed([]byte(`data: {"type":"action","message":"Tapping","action":{"type":"click","params":{"x":120,"y":640}},"screenshot":"data:image/png;base64,iVBOR"}` + "\n"))
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	ev := events[0]
	if ev.Action == nil || ev.Action.Type != "click" {
		t.Fatalf("action payload lost: %+v", ev.Action)
	}
	if ev.Screenshot != "data:image/png;base64,iVBOR" {
		t.Fatalf("screenshot = %q", ev.Screenshot)
	}
}
