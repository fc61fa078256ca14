package sse

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Event is one decoded frame from an event stream.
type Event struct {
	Type string
	Data []byte
}

// TypeDone is emitted exactly once when the [DONE] sentinel is consumed.
const TypeDone = "done"

var (
	eventPrefix  = []byte("event: ")
	dataPrefix   = []byte("data: ")
	doneSentinel = []byte("[DONE]")
)

// Parser incrementally decodes a newline-delimited event stream into
// discrete events. Chunks may split lines, frames, or multi-byte UTF-8
// sequences at any byte position; the emitted event sequence never depends
// on where the chunk boundaries fall. The parser buffers raw bytes and only
// splits on '\n', which cannot occur inside a UTF-8 continuation sequence.
type Parser struct {
	defaultType string
	curType     string
	buf         []byte
	done        bool
}

// NewParser returns a parser whose data lines carry defaultType until an
// "event:" line overrides it. A blank line resets back to defaultType.
func NewParser(defaultType string) *Parser {
	return &Parser{defaultType: defaultType, curType: defaultType}
}

// Feed appends chunk to the decode buffer and returns every event completed
// by it. Once the [DONE] sentinel has been seen, all further input is
// consumed and ignored.
func (p *Parser) Feed(chunk []byte) []Event {
	if p.done {
		return nil
	}
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		p.buf = p.buf[i+1:]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		if ev, ok := p.processLine(line); ok {
			events = append(events, ev)
		}
		if p.done {
			p.buf = nil
			return events
		}
	}
	// Compact so the held-back partial line does not pin the whole chunk.
	if len(p.buf) > 0 {
		p.buf = append(make([]byte, 0, len(p.buf)), p.buf...)
	}
	return events
}

func (p *Parser) processLine(line []byte) (Event, bool) {
	switch {
	case len(line) == 0:
		p.curType = p.defaultType
	case bytes.HasPrefix(line, eventPrefix):
		p.curType = string(bytes.TrimSpace(line[len(eventPrefix):]))
	case bytes.HasPrefix(line, dataPrefix):
		payload := line[len(dataPrefix):]
		// Copy: the backing array is the shared decode buffer.
		data := append([]byte(nil), payload...)
		if bytes.Equal(bytes.TrimSpace(payload), doneSentinel) {
			p.done = true
			return Event{Type: TypeDone, Data: data}, true
		}
		return Event{Type: p.curType, Data: data}, true
	}
	return Event{}, false
}

// Finish marks the end of input. A trailing partial line is incomplete by
// definition and is discarded.
func (p *Parser) Finish() {
	p.buf = nil
}

// Done reports whether the [DONE] sentinel has been consumed.
func (p *Parser) Done() bool {
	return p.done
}

// Pump reads r to completion, feeding the parser and invoking fn for each
// decoded event. It returns nil on clean end of stream or sentinel, the
// first error returned by fn, or the read error. Reading stops as soon as
// the sentinel is seen, even if more bytes follow. fn is called on the
// caller's goroutine, so a blocked downstream write blocks the upstream
// read as well.
func Pump(ctx context.Context, r io.Reader, p *Parser, fn func(Event) error) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range p.Feed(buf[:n]) {
				if ferr := fn(ev); ferr != nil {
					return ferr
				}
			}
			if p.Done() {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.Finish()
				return nil
			}
			return err
		}
	}
}
