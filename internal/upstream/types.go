package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one element of a multi-part message: either text or an
// image reference (URL or data URI).
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

const (
	PartText  = "text"
	PartImage = "image"
)

// Content is either plain text or an ordered list of parts. Part order is
// preserved end-to-end; the gateway never reorders it.
type Content struct {
	Text  string
	Parts []ContentPart
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither string nor part list: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

// Message is one turn of a conversation.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// ValidateMessages checks the invariants shared by chat and compare
// requests: at least one message, every role known.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return errors.New("at least one message is required")
	}
	for i, m := range msgs {
		if m.Role != RoleSystem && m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("invalid role %q in messages[%d]", m.Role, i)
		}
	}
	return nil
}

// ChatPayload is the body of POST /api/chat on the Inference Service.
// Pointer fields are omitted when unset so the upstream applies its own
// defaults only where neither the client nor a preset supplied a value.
type ChatPayload struct {
	Model        string    `json:"model"`
	Messages     []Message `json:"messages"`
	Stream       bool      `json:"stream"`
	Temperature  *float64  `json:"temperature,omitempty"`
	TopP         *float64  `json:"top_p,omitempty"`
	TopK         *int      `json:"top_k,omitempty"`
	MaxTokens    *int      `json:"max_tokens,omitempty"`
	PromptFormat string    `json:"prompt_format,omitempty"`
}

// ComparePayload is the body of POST /api/compare. The upstream fans the
// request out across models itself; the gateway sends params verbatim.
type ComparePayload struct {
	Models      []string  `json:"models"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	TopK        *int      `json:"top_k,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// ChunkMessage is the inner message of a streamed chat chunk.
type ChunkMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// ChatChunk is one streamed record from /api/chat, and also the shape of
// the single JSON object returned when stream is false.
type ChatChunk struct {
	Model         string       `json:"model"`
	Message       ChunkMessage `json:"message"`
	Done          bool         `json:"done"`
	TotalDuration float64      `json:"total_duration,omitempty"`
	EvalCount     int          `json:"eval_count,omitempty"`
}

// ModelSummary is one entry of GET /api/tags: a model the Inference
// Service currently has loaded. Name may be a bare short name.
type ModelSummary struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

type tagsResponse struct {
	Models []ModelSummary `json:"models"`
}
