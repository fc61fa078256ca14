package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoFlusher is returned when the response writer cannot stream.
var ErrNoFlusher = errors.New("sse: response writer does not support flushing")

// Writer emits server-sent events to a connected client, flushing after
// every event. A write error means the client has disconnected.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter commits the response to an event stream: it sets the SSE
// headers, writes the 200 status, and flushes. From this point on all
// failures must be reported in-band as error events.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlusher
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent writes one "event:"/"data:" pair and flushes. data is emitted
// byte-for-byte.
func (s *Writer) WriteEvent(eventType string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteJSON marshals v and emits it under eventType.
func (s *Writer) WriteJSON(eventType string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	return s.WriteEvent(eventType, b)
}

// WriteError emits a terminal error event.
func (s *Writer) WriteError(msg string) error {
	return s.WriteJSON("error", map[string]string{"error": msg})
}
