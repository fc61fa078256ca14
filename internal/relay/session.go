package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"infergate/internal/metrics"
	"infergate/internal/preset"
	"infergate/internal/sse"
	"infergate/internal/upstream"
)

// State is a session's position in its lifecycle.
type State int

const (
	StateOpen State = iota
	StateStreaming
	StateDone
	StateErrored
	StateClientDisconnected
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateClientDisconnected:
		return "client_disconnected"
	default:
		return "unknown"
	}
}

const (
	modeChat    = "chat"
	modeCompare = "compare"

	// Default event types for data lines with no preceding "event:" line.
	eventMessage = "message"
	eventChunk   = "chunk"
)

var (
	doneData      = []byte("[DONE]")
	errClientGone = errors.New("client disconnected")
)

// chatEvent is the normalized downstream payload in single-model mode.
// Field order is part of the wire format.
type chatEvent struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Model   string `json:"model"`
}

// Session relays one client-facing streaming request. It is driven on the
// handler goroutine: the upstream read, decode, and downstream write all
// happen in one loop, so a blocked client naturally blocks the upstream
// read and a dead client aborts it.
type Session struct {
	upstream *upstream.Client
	sink     *sse.Writer
	logger   *zap.Logger
	state    State
	relayed  int
}

// NewSession creates a session bound to one downstream sink.
func NewSession(up *upstream.Client, sink *sse.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		upstream: up,
		sink:     sink,
		logger:   logger.With(zap.String("session_id", uuid.NewString())),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// RunChat relays a single-model chat stream: resolve the preset upstream
// payload, decode each chunk, re-emit it normalized, terminate on the
// sentinel. Returns the terminal state.
func (s *Session) RunChat(ctx context.Context, req ChatRequest, pre preset.Preset) State {
	start := time.Now()
	s.begin(modeChat, zap.String("model", req.Model))
	defer metrics.StreamsActive.WithLabelValues(modeChat).Dec()

	body, err := s.upstream.OpenChatStream(ctx, BuildChatPayload(req, pre))
	if err != nil {
		return s.finish(modeChat, start, err)
	}
	defer body.Close()

	parser := sse.NewParser(eventMessage)
	err = sse.Pump(ctx, body, parser, func(ev sse.Event) error {
		if ev.Type == sse.TypeDone {
			return s.emit(modeChat, sse.TypeDone, doneData)
		}

		var chunk upstream.ChatChunk
		if jerr := json.Unmarshal(ev.Data, &chunk); jerr != nil {
			if s.relayed > 0 {
				// The stream is already flowing; drop the bad chunk and
				// keep going.
				s.logger.Warn("skipping malformed chat chunk",
					zap.Error(jerr),
					zap.ByteString("payload", ev.Data),
				)
				return nil
			}
			return &ParseError{Err: jerr, Payload: truncate(ev.Data, 200)}
		}

		out, jerr := json.Marshal(chatEvent{
			Content: chunk.Message.Content,
			Done:    chunk.Done,
			Model:   chunk.Model,
		})
		if jerr != nil {
			return fmt.Errorf("marshal chat event: %w", jerr)
		}
		return s.emit(modeChat, eventMessage, out)
	})

	if err == nil && !parser.Done() {
		// Upstream closed without the sentinel; terminate the client
		// stream cleanly anyway.
		err = s.emit(modeChat, sse.TypeDone, doneData)
	}
	return s.finish(modeChat, start, err)
}

// RunCompare relays a multi-model compare stream verbatim: every upstream
// "event:"/"data:" pair is forwarded byte-for-byte, no payload is ever
// decoded or re-serialized. A per-model progress map is maintained from
// shallow field peeks for logging and metrics only.
func (s *Session) RunCompare(ctx context.Context, req CompareRequest) State {
	start := time.Now()
	s.begin(modeCompare, zap.Strings("models", req.Models))
	defer metrics.StreamsActive.WithLabelValues(modeCompare).Dec()

	body, err := s.upstream.OpenCompareStream(ctx, BuildComparePayload(req))
	if err != nil {
		return s.finish(modeCompare, start, err)
	}
	defer body.Close()

	progress := make(map[string]*modelProgress, len(req.Models))
	parser := sse.NewParser(eventChunk)
	err = sse.Pump(ctx, body, parser, func(ev sse.Event) error {
		if ev.Type != sse.TypeDone {
			track(progress, ev.Data)
		}
		return s.emit(modeCompare, ev.Type, ev.Data)
	})

	for model, p := range progress {
		s.logger.Debug("compare model progress",
			zap.String("model", model),
			zap.Int("chunks", p.chunks),
			zap.Bool("done", p.done),
			zap.Float64("total_duration", p.duration),
		)
	}
	return s.finish(modeCompare, start, err)
}

type modelProgress struct {
	chunks   int
	done     bool
	duration float64
}

// track attributes a pass-through payload to its model without decoding
// it. gjson reads the bytes in place; nothing is re-serialized.
func track(progress map[string]*modelProgress, payload []byte) {
	model := gjson.GetBytes(payload, "model").String()
	if model == "" {
		return
	}
	p := progress[model]
	if p == nil {
		p = &modelProgress{}
		progress[model] = p
	}
	p.chunks++
	if d := gjson.GetBytes(payload, "totalDuration"); d.Exists() {
		p.done = true
		p.duration = d.Float()
	}
}

func (s *Session) begin(mode string, fields ...zap.Field) {
	s.state = StateOpen
	metrics.StreamsActive.WithLabelValues(mode).Inc()
	s.logger.Info("relay session opened", append(fields, zap.String("mode", mode))...)
}

// emit writes one event downstream. A failed write means the client is
// gone; the returned error unwinds the pump loop, which closes the
// upstream body and thereby aborts the upstream connection.
func (s *Session) emit(mode, eventType string, data []byte) error {
	if err := s.sink.WriteEvent(eventType, data); err != nil {
		return fmt.Errorf("%w: %v", errClientGone, err)
	}
	s.state = StateStreaming
	s.relayed++
	metrics.StreamEventsTotal.WithLabelValues(mode, eventType).Inc()
	return nil
}

// finish classifies the terminal state, emits the error event when one is
// owed to the client, and records the outcome.
func (s *Session) finish(mode string, start time.Time, err error) State {
	switch {
	case err == nil:
		s.state = StateDone
	case errors.Is(err, errClientGone), errors.Is(err, context.Canceled):
		// Nobody is listening; cancel upstream work and say nothing.
		s.state = StateClientDisconnected
	default:
		s.state = StateErrored
		if werr := s.sink.WriteError(err.Error()); werr != nil {
			s.state = StateClientDisconnected
		}
	}

	metrics.StreamsTotal.WithLabelValues(mode, s.state.String()).Inc()
	fields := []zap.Field{
		zap.String("mode", mode),
		zap.String("state", s.state.String()),
		zap.Int("events_relayed", s.relayed),
		zap.Duration("duration", time.Since(start)),
	}
	if s.state == StateErrored {
		s.logger.Error("relay session failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("relay session closed", fields...)
	}
	return s.state
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
