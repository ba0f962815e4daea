package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
)

// TVL handles POST /v1/tvl. Single-source endpoint: an upstream failure
// fails the whole request.
func (h *Handlers) TVL(w http.ResponseWriter, r *http.Request) {
	var req httpContracts.TVLRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.writeFailed(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultTVLLimit
	}
	if limit > maxTVLLimit {
		limit = maxTVLLimit
	}

	start := time.Now()
	chains, err := h.tvl.TopChains(r.Context(), limit)
	h.metrics.ObserveUpstream("defillama", err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("TVL fetch failed")
		h.writeFailed(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.Succeeded(httpContracts.TVLOutput{
		Chains:    chains,
		Count:     len(chains),
		Source:    "defillama",
		FetchedAt: time.Now().UTC(),
	}))
}
