package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Chat issues a non-streaming chat request and returns the single response
// object.
func (c *Client) Chat(ctx context.Context, payload ChatPayload) (*ChatChunk, error) {
	payload.Stream = false
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.doWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.postJSON(ctx, "/api/chat", body, "application/json")
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out ChatChunk
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	c.logger.Debug("chat completed",
		zap.String("model", out.Model),
		zap.Int("eval_count", out.EvalCount),
	)
	return &out, nil
}

// OpenChatStream issues a streaming chat request and returns the raw SSE
// body. The caller owns the reader and must close it; closing it (or
// cancelling ctx) aborts the upstream connection.
func (c *Client) OpenChatStream(ctx context.Context, payload ChatPayload) (io.ReadCloser, error) {
	payload.Stream = true
	return c.openStream(ctx, "/api/chat", payload)
}

// OpenCompareStream issues a multi-model compare request and returns the
// raw SSE body, same ownership rules as OpenChatStream.
func (c *Client) OpenCompareStream(ctx context.Context, payload ComparePayload) (io.ReadCloser, error) {
	return c.openStream(ctx, "/api/compare", payload)
}

func (c *Client) openStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}

	// No deadline unless configured: a stream may legitimately run for
	// minutes. cancel must survive this function, so it is tied to the
	// returned body instead of deferred.
	runCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.StreamTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.StreamTimeout)
	}

	resp, err := c.doWithRetry(runCtx, func(ctx context.Context) (*http.Response, error) {
		return c.postJSON(ctx, path, body, "text/event-stream")
	})
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}

	c.logger.Debug("stream opened", zap.String("path", path))
	if cancel == nil {
		return resp.Body, nil
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
