package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

var ErrSSEClosed = errors.New("sse stream closed")

// SSEWriter writes server-sent events. It is safe for concurrent use so a
// heartbeat goroutine can share it with the main stream.
type SSEWriter struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	closed bool
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w}
}

func (s *SSEWriter) Write(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(event, data)
}

func (s *SSEWriter) write(event, data string) error {
	if s.closed {
		return ErrSSEClosed
	}

	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}

	// multi-line payloads need one data field per line
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(s.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(s.w, "\n"); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}

// Close sends the [DONE] sentinel. Later writes fail.
func (s *SSEWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.write("", "[DONE]")
	s.closed = true
	return err
}
