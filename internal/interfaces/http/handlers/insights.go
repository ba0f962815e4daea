package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
	"github.com/chaindesk/chaindesk/internal/providers"
	"github.com/chaindesk/chaindesk/internal/x402"
)

// Insights handles POST /v1/insights, the paid endpoint. Requests without a
// payment header receive a 402 challenge describing the accepted terms; with
// one, the market snapshot is aggregated and summarized by the LLM.
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	terms := h.requirements(r)

	header := r.Header.Get(x402.PaymentHeader)
	if header == "" {
		h.metrics.PaymentChallenges.Inc()
		h.writeChallenge(w, "X-Payment header is required", terms)
		return
	}

	payload, err := x402.DecodePayment(header)
	if err != nil {
		h.metrics.PaymentsRejected.Inc()
		h.writeChallenge(w, err.Error(), terms)
		return
	}
	if !payload.Matches(terms) {
		h.metrics.PaymentsRejected.Inc()
		h.writeChallenge(w, "payment does not match accepted scheme or network", terms)
		return
	}

	status := httpContracts.PaymentStatus{}
	if h.verifier != nil {
		start := time.Now()
		verdict, err := h.verifier.Verify(r.Context(), payload, terms)
		h.metrics.ObserveUpstream("facilitator", err, time.Since(start))
		if err != nil {
			log.Error().Err(err).Msg("Payment verification unavailable")
			h.writeFailed(w, http.StatusBadGateway, "payment verification unavailable: "+err.Error())
			return
		}
		if !verdict.IsValid {
			h.metrics.PaymentsRejected.Inc()
			h.writeChallenge(w, "payment rejected: "+verdict.InvalidReason, terms)
			return
		}
		status.Verified = true
		status.Payer = verdict.Payer
	}
	h.metrics.PaymentsAccepted.Inc()

	snapshot := h.collectMarket(r.Context())

	raw, err := json.Marshal(snapshot)
	if err != nil {
		h.writeFailed(w, http.StatusInternalServerError, "failed to encode market snapshot")
		return
	}

	start := time.Now()
	insight, err := h.llm.Summarize(r.Context(), raw)
	h.metrics.ObserveUpstream("llm", err, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Insight generation failed")
		h.writeFailed(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, httpContracts.Succeeded(httpContracts.InsightsOutput{
		Market:    snapshot,
		Insight:   *insight,
		Payment:   status,
		FetchedAt: time.Now().UTC(),
	}))
}

// collectMarket aggregates all three upstreams concurrently. Each source
// fails independently; per-source errors are recorded inline so a partial
// snapshot still reaches the model.
func (h *Handlers) collectMarket(ctx context.Context) httpContracts.MarketSnapshot {
	var snapshot httpContracts.MarketSnapshot
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		start := time.Now()
		table, err := h.prices.SimplePrices(ctx, providers.PriceQuery{
			Coins:            defaultCoins,
			Currencies:       defaultCurrencies,
			Include24hChange: true,
		})
		h.metrics.ObserveUpstream("coingecko", err, time.Since(start))
		if err != nil {
			snapshot.PricesError = err.Error()
			return
		}
		snapshot.Prices = table
	}()
	go func() {
		defer wg.Done()
		snapshot.Gas = h.gas.Fetch(ctx, defaultGasChains)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		chains, err := h.tvl.TopChains(ctx, insightsTVLLimit)
		h.metrics.ObserveUpstream("defillama", err, time.Since(start))
		if err != nil {
			snapshot.TVLError = err.Error()
			return
		}
		snapshot.TVL = chains
	}()
	wg.Wait()

	return snapshot
}

// requirements builds the advertised payment terms for this request
func (h *Handlers) requirements(r *http.Request) x402.PaymentRequirements {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return x402.PaymentRequirements{
		Scheme:            h.terms.Scheme,
		Network:           h.terms.Network,
		MaxAmountRequired: h.terms.Amount,
		Resource:          scheme + "://" + r.Host + r.URL.Path,
		Description:       h.terms.Description,
		MimeType:          "application/json",
		PayTo:             h.terms.PayTo,
		MaxTimeoutSeconds: h.terms.MaxTimeoutSeconds,
		Asset:             h.terms.Asset,
		Extra:             map[string]string{"name": "USD Coin", "version": "2"},
	}
}

// writeChallenge emits the 402 response. The JSON body carries the challenge
// and the same document, base64-encoded, rides in the challenge header.
func (h *Handlers) writeChallenge(w http.ResponseWriter, reason string, terms x402.PaymentRequirements) {
	challenge := x402.NewChallenge(reason, terms)
	if encoded, err := challenge.Encode(); err == nil {
		w.Header().Set(x402.ChallengeHeader, encoded)
	}
	h.writeJSON(w, http.StatusPaymentRequired, challenge)
}
