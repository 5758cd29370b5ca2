package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStreamDeliversEventsUntilServerCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/execute" || r.Method != "POST" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range []string{
			`data: {"type":"start","message":"Executing task"}`,
			`data: {"type":"thinking","message":"hmm"}`,
			`data: {"type":"done","message":"Task finished"}`,
		} {
			w.Write([]byte(line + "\n\n"))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	var got []StreamEvent
	s := NewStream(srv.URL)
	err := s.Run("open settings", nil, func(ev StreamEvent) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(got), got)
	}
	if got[0].Type != "start" || got[2].Type != "done" {
		t.Fatalf("event kinds wrong: %+v", got)
	}
}

func TestStreamNon200SurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"task already running"}`))
	}))
	defer srv.Close()

	s := NewStream(srv.URL)
	err := s.Run("anything", nil, func(StreamEvent) {
		t.Error("no events expected on a failed open")
	})
	if err == nil {
		t.Fatal("want error on 409")
	}
	if !strings.Contains(err.Error(), "task already running") {
		t.Fatalf("server message not surfaced: %v", err)
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	s := NewStream("http://localhost:1")
	if s.IsClosed() {
		t.Fatal("fresh stream reports closed")
	}
	s.Close()
	s.Close()
	if !s.IsClosed() {
		t.Fatal("closed stream reports open")
	}
}
