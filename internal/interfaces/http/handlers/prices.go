package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
	"github.com/chaindesk/chaindesk/internal/providers"
)

// Prices handles POST /v1/prices. A single CoinGecko call backs the whole
// response, so any upstream failure fails the request.
func (h *Handlers) Prices(w http.ResponseWriter, r *http.Request) {
	var req httpContracts.PricesRequest
	if err := h.decodeBody(r, &req); err != nil {
		h.writeFailed(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	coins := normalizeList(req.Coins, defaultCoins)
	currencies := normalizeList(req.Currencies, defaultCurrencies)

	start := time.Now()
	table, err := h.prices.SimplePrices(r.Context(), providers.PriceQuery{
		Coins:            coins,
		Currencies:       currencies,
		IncludeMarketCap: req.IncludeMarketCap,
		Include24hChange: req.Include24hChange,
	})
	h.metrics.ObserveUpstream("coingecko", err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Strs("coins", coins).Msg("Price fetch failed")
		h.writeFailed(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.Succeeded(httpContracts.PricesOutput{
		Prices:    table,
		Source:    "coingecko",
		FetchedAt: time.Now().UTC(),
	}))
}

// normalizeList lowercases and trims entries, dropping empties; an empty
// result falls back to defaults.
func normalizeList(items, defaults []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}
