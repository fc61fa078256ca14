package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"infergate/internal/cache"
	"infergate/internal/catalog"
	"infergate/pkg/logging"
)

type modelsResponse struct {
	Models []catalog.Entry `json:"models"`
}

// Models handles GET /api/models: the merged directory of loaded models
// and preset entries, cached briefly to spare the upstream.
func (g *Gateway) Models(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	if cached, hit, err := g.Cache.Get(ctx, cache.DirectoryKey); err == nil && hit {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(cached)
		return
	}

	loaded, err := g.Upstream.Tags(ctx)
	if err != nil {
		// Degrade to the preset table alone: the directory is still
		// useful when the upstream is down.
		logger.Warn("tags fetch failed, serving presets only", zap.Error(err))
		loaded = nil
	}

	resp := modelsResponse{Models: catalog.Merge(loaded, g.Presets.LLM)}
	b, jerr := json.Marshal(resp)
	if jerr != nil {
		logger.Error("marshal directory", zap.Error(jerr))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Only cache complete directories.
	if err == nil {
		if cerr := g.Cache.Set(ctx, cache.DirectoryKey, b, g.ModelsTTL); cerr != nil {
			logger.Warn("cache set failed", zap.Error(cerr))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
