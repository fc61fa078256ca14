// Package handlers wires HTTP endpoints to the relay, catalog, and cache.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"infergate/internal/cache"
	"infergate/internal/preset"
	"infergate/internal/upstream"
	"infergate/pkg/logging"

	"go.uber.org/zap"
)

// Gateway holds the dependencies shared by all endpoints.
type Gateway struct {
	Upstream  *upstream.Client
	Presets   *preset.Tables
	Cache     cache.Cache
	ChatTTL   time.Duration
	ModelsTTL time.Duration
	VersionID string
}

// NewGateway applies default TTLs.
func NewGateway(up *upstream.Client, presets *preset.Tables, c cache.Cache, versionID string) *Gateway {
	return &Gateway{
		Upstream:  up,
		Presets:   presets,
		Cache:     c,
		ChatTTL:   5 * time.Minute,
		ModelsTTL: 30 * time.Second,
		VersionID: versionID,
	}
}

func (g *Gateway) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.L(r.Context()).Warn("write response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	logging.L(r.Context()).Warn("invalid request", zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anon"
}
