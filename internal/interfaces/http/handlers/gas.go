package handlers

import (
	"net/http"
	"time"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
	"github.com/chaindesk/chaindesk/internal/providers"
)

// Gas handles POST /v1/gas. Chains are fetched concurrently and individual
// chain failures come back as inline error items, so the request succeeds
// whenever the body itself is valid.
func (h *Handlers) Gas(w http.ResponseWriter, r *http.Request) {
	var req httpContracts.GasRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.writeFailed(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	chains := normalizeList(req.Chains, defaultGasChains)

	start := time.Now()
	readings := h.gas.Fetch(r.Context(), chains)
	h.observeGas(readings, time.Since(start))

	h.writeJSON(w, http.StatusOK, httpContracts.Succeeded(httpContracts.GasOutput{
		Chains:    readings,
		FetchedAt: time.Now().UTC(),
	}))
}

// observeGas records the fan-out duration once and each chain failure under
// its canonical label. Unsupported readings echo whatever chain name the
// request body carried, so anything Resolve rejects collapses into a single
// label to keep metric cardinality bounded by the configured chains.
func (h *Handlers) observeGas(readings []providers.GasReading, duration time.Duration) {
	outcome := "success"
	for _, reading := range readings {
		if reading.Error == "" {
			continue
		}
		outcome = "error"

		provider := "rpc:unknown"
		if canonical, ok := h.gas.Resolve(reading.Chain); ok {
			provider = "rpc:" + canonical
		}
		h.metrics.UpstreamErrors.WithLabelValues(provider).Inc()
	}
	h.metrics.UpstreamDuration.WithLabelValues("rpc", outcome).Observe(duration.Seconds())
}
