package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	httpContracts "github.com/chaindesk/chaindesk/internal/http"
	"github.com/chaindesk/chaindesk/internal/metrics"
	"github.com/chaindesk/chaindesk/internal/providers"
	"github.com/chaindesk/chaindesk/internal/x402"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request body defaults
var (
	defaultCoins      = []string{"bitcoin", "ethereum"}
	defaultCurrencies = []string{"usd"}
	defaultGasChains  = []string{"eth", "base", "poly"}
)

const (
	defaultTVLLimit = 20
	maxTVLLimit     = 200

	insightsTVLLimit = 10
)

// PriceSource fetches spot prices
type PriceSource interface {
	SimplePrices(ctx context.Context, q providers.PriceQuery) (providers.PriceTable, error)
}

// GasSource fetches per-chain gas readings
type GasSource interface {
	Fetch(ctx context.Context, chains []string) []providers.GasReading
	Resolve(name string) (string, bool)
	Chains() []string
}

// TVLSource fetches chain TVL rankings
type TVLSource interface {
	TopChains(ctx context.Context, limit int) ([]providers.ChainTVL, error)
}

// InsightSource produces the LLM market summary
type InsightSource interface {
	Summarize(ctx context.Context, snapshot []byte) (*providers.Insight, error)
}

// PaymentVerifier validates payment proofs against advertised terms.
// Nil when no facilitator is configured.
type PaymentVerifier interface {
	Verify(ctx context.Context, payload *x402.PaymentPayload, req x402.PaymentRequirements) (*x402.VerifyResponse, error)
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	prices   PriceSource
	gas      GasSource
	tvl      TVLSource
	llm      InsightSource
	verifier PaymentVerifier
	terms    PaymentTerms
	metrics  *metrics.Registry
}

// PaymentTerms is the payment configuration advertised in 402 challenges
type PaymentTerms struct {
	Scheme            string
	Network           string
	Amount            string
	Asset             string
	PayTo             string
	MaxTimeoutSeconds int
	Description       string
}

// NewHandlers creates a handlers instance wired to the given providers
func NewHandlers(prices PriceSource, gas GasSource, tvl TVLSource, llm InsightSource,
	verifier PaymentVerifier, terms PaymentTerms, reg *metrics.Registry) *Handlers {
	return &Handlers{
		prices:   prices,
		gas:      gas,
		tvl:      tvl,
		llm:      llm,
		verifier: verifier,
		terms:    terms,
		metrics:  reg,
	}
}

// decodeBody parses an optional JSON request body into dst. An empty body is
// valid; every endpoint falls back to documented defaults.
func (h *Handlers) decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeJSON writes a JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"status":"failed","error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeFailed writes a failure envelope
func (h *Handlers) writeFailed(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, httpContracts.Failed(message))
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeFailed(w, http.StatusNotFound, "endpoint not found")
}

// MethodNotAllowed handles 405 responses
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeFailed(w, http.StatusMethodNotAllowed, "method not allowed")
}
