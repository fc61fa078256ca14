package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"infergate/internal/relay"
	"infergate/internal/sse"
	"infergate/pkg/logging"
)

// Compare handles POST /api/compare: one request fanned out across up to
// five models by the upstream, relayed back verbatim.
func (g *Gateway) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	var req relay.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(w, r, err)
		return
	}

	sink, err := sse.NewWriter(w)
	if err != nil {
		logger.Error("streaming unsupported", zap.Error(err))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	relay.NewSession(g.Upstream, sink, logger).RunCompare(ctx, req)
}
