package relay

import (
	"errors"
	"fmt"

	"infergate/internal/preset"
	"infergate/internal/upstream"
)

// Params are the client-tunable generation parameters. Nil means "not
// supplied": in chat mode the preset fills the gap, in compare mode the
// field is simply omitted upstream.
type Params struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ChatRequest is the downstream body of POST /api/chat.
type ChatRequest struct {
	Model    string             `json:"model"`
	Messages []upstream.Message `json:"messages"`
	Stream   *bool              `json:"stream,omitempty"`
	Options  Params             `json:"options"`
}

func (r *ChatRequest) Validate() error {
	if r.Model == "" {
		return errors.New("model is required")
	}
	return upstream.ValidateMessages(r.Messages)
}

// Streaming reports whether the client asked for a streamed response.
// Omitted means streamed; the browser UI always streams.
func (r *ChatRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// CompareRequest is the downstream body of POST /api/compare.
type CompareRequest struct {
	Models   []string           `json:"models"`
	Messages []upstream.Message `json:"messages"`
	Options  Params             `json:"options"`
}

func (r *CompareRequest) Validate() error {
	if len(r.Models) == 0 || len(r.Models) > 5 {
		return fmt.Errorf("compare takes 1 to 5 models, got %d", len(r.Models))
	}
	seen := make(map[string]struct{}, len(r.Models))
	for _, m := range r.Models {
		if m == "" {
			return errors.New("empty model id in compare request")
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("duplicate model %q in compare request", m)
		}
		seen[m] = struct{}{}
	}
	return upstream.ValidateMessages(r.Messages)
}

// BuildChatPayload merges client params over the resolved preset. A field
// the client set wins; an unset field falls back to the preset.
// prompt_format always comes from the preset and is never client-supplied.
func BuildChatPayload(req ChatRequest, pre preset.Preset) upstream.ChatPayload {
	pl := upstream.ChatPayload{
		Model:        req.Model,
		Messages:     req.Messages,
		PromptFormat: pre.PromptFormat,
		Temperature:  req.Options.Temperature,
		TopP:         req.Options.TopP,
		TopK:         req.Options.TopK,
		MaxTokens:    req.Options.MaxTokens,
	}
	if pl.Temperature == nil {
		pl.Temperature = ptr(pre.Temperature)
	}
	if pl.TopP == nil {
		pl.TopP = ptr(pre.TopP)
	}
	if pl.TopK == nil {
		pl.TopK = ptr(pre.TopK)
	}
	if pl.MaxTokens == nil {
		pl.MaxTokens = ptr(pre.MaxTokens)
	}
	return pl
}

// BuildComparePayload carries the client params verbatim: presets are
// deliberately not applied in compare mode, the upstream fans out and
// defaults on its own.
func BuildComparePayload(req CompareRequest) upstream.ComparePayload {
	return upstream.ComparePayload{
		Models:      req.Models,
		Messages:    req.Messages,
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		TopK:        req.Options.TopK,
		MaxTokens:   req.Options.MaxTokens,
	}
}

func ptr[T any](v T) *T {
	return &v
}

// ParseError is a data payload that had to be JSON but was not.
type ParseError struct {
	Err     error
	Payload string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed stream payload %q: %v", e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
