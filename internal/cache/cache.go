// Package cache is a best-effort response cache for the gateway's
// non-streaming paths: completed chat responses and the merged model
// directory. Cache failures are logged and treated as misses, never
// surfaced to clients.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"infergate/internal/upstream"
)

// Cache is the interface used by the handlers. Implemented by the memory
// backend (dev) and the Redis backend (prod).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ChatKey identifies a fully resolved chat request. Hash covers the entire
// upstream payload, so two requests that resolve to different presets never
// share an entry.
type ChatKey struct {
	UserID    string
	ModelID   string
	VersionID string
	Hash      string
}

// String renders the key as chat:<user>:<model>:<version>:<hash>.
func (k ChatKey) String() string {
	return fmt.Sprintf("chat:%s:%s:%s:%s", k.UserID, k.ModelID, k.VersionID, k.Hash)
}

// BuildChatKey hashes the resolved upstream payload. The payload is
// canonical already: struct field order is fixed and unset params are
// omitted, so equal requests marshal identically.
func BuildChatKey(payload upstream.ChatPayload, userID, versionID string) (ChatKey, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return ChatKey{}, fmt.Errorf("cache: marshal payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return ChatKey{
		UserID:    userID,
		ModelID:   payload.Model,
		VersionID: versionID,
		Hash:      hex.EncodeToString(sum[:]),
	}, nil
}

// DirectoryKey is the cache key for the merged model directory.
const DirectoryKey = "directory:v1"
