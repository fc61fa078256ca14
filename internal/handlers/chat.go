package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"infergate/internal/cache"
	"infergate/internal/preset"
	"infergate/internal/relay"
	"infergate/internal/sse"
	"infergate/internal/upstream"
	"infergate/pkg/logging"
)

// Chat handles POST /api/chat: a streamed relay by default, or a cached
// single JSON response when the client sends stream=false.
func (g *Gateway) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req relay.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(w, r, err)
		return
	}

	pre := g.Presets.LLM.Resolve(req.Model)

	if !req.Streaming() {
		g.chatOnce(w, r, req, pre)
		return
	}

	sink, err := sse.NewWriter(w)
	if err != nil {
		logger.Error("streaming unsupported", zap.Error(err))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	relay.NewSession(g.Upstream, sink, logger).RunChat(ctx, req, pre)
}

// chatOnce is the non-streaming path: resolved payload, exact cache, one
// upstream round trip.
func (g *Gateway) chatOnce(w http.ResponseWriter, r *http.Request, req relay.ChatRequest, pre preset.Preset) {
	ctx := r.Context()
	logger := logging.L(ctx)

	payload := relay.BuildChatPayload(req, pre)

	key, err := cache.BuildChatKey(payload, userID(r), g.VersionID)
	cacheable := err == nil
	if err != nil {
		logger.Warn("cache key build failed", zap.Error(err))
	}

	if cacheable {
		if cached, hit, cerr := g.Cache.Get(ctx, key.String()); cerr == nil && hit {
			var resp upstream.ChatChunk
			jerr := json.Unmarshal(cached, &resp)
			if jerr == nil {
				g.writeJSON(w, r, resp)
				return
			}
			logger.Warn("cached chat response unreadable", zap.Error(jerr))
		}
	}

	resp, err := g.Upstream.Chat(ctx, payload)
	if err != nil {
		logger.Error("upstream chat failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if cacheable {
		if b, jerr := json.Marshal(resp); jerr == nil {
			if cerr := g.Cache.Set(ctx, key.String(), b, g.ChatTTL); cerr != nil {
				logger.Warn("cache set failed", zap.Error(cerr))
			}
		}
	}
	g.writeJSON(w, r, resp)
}
