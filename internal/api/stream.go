package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// sseStream serializes Server-Sent Events onto one response. stdout and
// stderr are copied concurrently, so every event goes through mu.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// newSSEStream returns nil if w cannot flush.
func newSSEStream(w http.ResponseWriter) *sseStream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	return &sseStream{w: w, flusher: flusher}
}

// start sends the event-stream headers.
func (s *sseStream) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *sseStream) send(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Each line needs its own data: prefix or a newline in tool output
	// would end the event early.
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Writer returns an io.Writer that sends each write as one event.
func (s *sseStream) Writer(event string) *SSEWriter {
	return &SSEWriter{stream: s, event: event}
}

// SSEWriter implements io.Writer on top of an event stream.
type SSEWriter struct {
	stream *sseStream
	event  string
}

func (s *SSEWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.stream.send(s.event, strings.TrimSuffix(string(p), "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
