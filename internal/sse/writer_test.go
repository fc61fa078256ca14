package sse

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewWriterCommitsStream(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !rec.Flushed {
		t.Fatal("headers not flushed")
	}

	if err := w.WriteEvent("message", []byte(`{"content":"hi"}`)); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := w.WriteError("boom"); err != nil {
		t.Fatalf("WriteError: %v", err)
	}

	want := "event: message\ndata: {\"content\":\"hi\"}\n\n" +
		"event: error\ndata: {\"error\":\"boom\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("body:\n got: %q\nwant: %q", got, want)
	}
}

func TestNewWriterRequiresFlusher(t *testing.T) {
	t.Parallel()

	if _, err := NewWriter(nonFlushingWriter{httptest.NewRecorder()}); err != ErrNoFlusher {
		t.Fatalf("expected ErrNoFlusher, got %v", err)
	}
}

// nonFlushingWriter hides the recorder's Flush method.
type nonFlushingWriter struct{ rec *httptest.ResponseRecorder }

func (w nonFlushingWriter) Header() http.Header         { return w.rec.Header() }
func (w nonFlushingWriter) Write(b []byte) (int, error) { return w.rec.Write(b) }
func (w nonFlushingWriter) WriteHeader(code int)        { w.rec.WriteHeader(code) }
