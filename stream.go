package recordbase

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Stream is a lazy sequence of server-sent events over a long-lived HTTP
// connection. It is restartable from scratch only, not resumable
// mid-stream. The consumer MUST call Close on every exit path (normal
// completion, early break, or error) to release the underlying connection.
// A Stream is meant for a single consuming goroutine.
type Stream struct {
	resp    *http.Response
	scanner *bufio.Scanner

	mu     sync.Mutex
	closed bool
}

const dataPrefix = "data: "

func newStream(resp *http.Response) *Stream {
	scanner := bufio.NewScanner(resp.Body)
	// Event payloads are single JSON lines; allow up to 1 MiB per event.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &Stream{resp: resp, scanner: scanner}
}

// StatusCode returns the HTTP status the stream was opened with,
// propagated verbatim.
func (s *Stream) StatusCode() int {
	return s.resp.StatusCode
}

// Next blocks until the next `data: ` event line arrives and returns its
// raw JSON payload. Lines that are not data frames (comments, blank
// keep-alives) are skipped. Returns io.EOF when the server closes the
// connection and ErrStreamClosed after Close.
func (s *Stream) Next() (json.RawMessage, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if strings.HasPrefix(line, dataPrefix) {
			return json.RawMessage(strings.TrimPrefix(line, dataPrefix)), nil
		}
	}

	s.mu.Lock()
	closed = s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, io.EOF
}

// Close releases the underlying connection. Safe to call multiple times
// and concurrently with a blocked Next, which it unblocks.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Body.Close()
}

// body exposes the raw response body for status-error reporting.
func (s *Stream) body() io.Reader {
	return s.resp.Body
}

// RecordEvent is one change notification from a record subscription. The
// wire format is a JSON object whose single top-level key names the change
// kind and wraps the affected row.
type RecordEvent struct {
	Insert json.RawMessage `json:"Insert,omitempty"`
	Update json.RawMessage `json:"Update,omitempty"`
	Delete json.RawMessage `json:"Delete,omitempty"`
}

// Record returns the row payload regardless of change kind.
func (e *RecordEvent) Record() json.RawMessage {
	switch {
	case e.Insert != nil:
		return e.Insert
	case e.Update != nil:
		return e.Update
	default:
		return e.Delete
	}
}

// Subscription adapts a raw event Stream into typed RecordEvents. Like the
// Stream it wraps, it must be closed by the consumer.
type Subscription struct {
	stream *Stream
}

// Next blocks for the next change notification.
func (s *Subscription) Next() (*RecordEvent, error) {
	data, err := s.stream.Next()
	if err != nil {
		return nil, err
	}

	var event RecordEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// Close releases the underlying connection.
func (s *Subscription) Close() error {
	return s.stream.Close()
}
