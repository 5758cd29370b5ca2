package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Stream reads one /api/chat/execute response body. The http.Client carries
// no timeout: the body stays open for the lifetime of the task.
type Stream struct {
	baseURL string
	done    chan struct{}
	httpCli *http.Client
}

// NewStream creates a stream handle for one task execution.
func NewStream(baseURL string) *Stream {
	return &Stream{
		baseURL: baseURL,
		done:    make(chan struct{}),
		httpCli: &http.Client{Timeout: 0},
	}
}

// Close signals the reader to stop after the current read returns.
func (s *Stream) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// IsClosed reports whether the stream was intentionally closed.
func (s *Stream) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Run posts the task and delivers each decoded event to handle, in arrival
// order, until the server closes the body. Returns nil on a normal end and
// the transport error otherwise. warn receives non-fatal decode diagnostics.
func (s *Stream) Run(task string, warn func(string), handle func(StreamEvent)) error {
	payload, err := json.Marshal(ExecuteRequest{Task: task})
	if err != nil {
		return fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequest("POST", s.baseURL+"/api/chat/execute", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := s.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr APIResult
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("execute returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("execute returned %d", resp.StatusCode)
	}

	dec := NewDecoder(warn)
	defer dec.Close()

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-s.done:
			return nil
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				handle(ev)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if s.IsClosed() {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}
