// Package http defines the wire contracts shared between the server and its
// endpoint handlers.
package http

import (
	"time"

	"github.com/chaindesk/chaindesk/internal/providers"
)

// Envelope statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Envelope is the uniform response wrapper for all data endpoints
type Envelope struct {
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Succeeded wraps an output payload in a success envelope
func Succeeded(output any) Envelope {
	return Envelope{Status: StatusSucceeded, Output: output}
}

// Failed wraps an error message in a failure envelope
func Failed(message string) Envelope {
	return Envelope{Status: StatusFailed, Error: message}
}

// PricesRequest is the body of POST /v1/prices; all fields optional
type PricesRequest struct {
	Coins            []string `json:"coins"`
	Currencies       []string `json:"currencies"`
	IncludeMarketCap bool     `json:"include_market_cap"`
	Include24hChange bool     `json:"include_24h_change"`
}

// GasRequest is the body of POST /v1/gas; all fields optional
type GasRequest struct {
	Chains []string `json:"chains"`
}

// TVLRequest is the body of POST /v1/tvl; all fields optional
type TVLRequest struct {
	Limit int `json:"limit"`
}

// PricesOutput is the success payload of POST /v1/prices
type PricesOutput struct {
	Prices    providers.PriceTable `json:"prices"`
	Source    string               `json:"source"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// GasOutput is the success payload of POST /v1/gas
type GasOutput struct {
	Chains    []providers.GasReading `json:"chains"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// TVLOutput is the success payload of POST /v1/tvl
type TVLOutput struct {
	Chains    []providers.ChainTVL `json:"chains"`
	Count     int                  `json:"count"`
	Source    string               `json:"source"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// MarketSnapshot is the aggregated market view the insights endpoint feeds
// to the model. Independent upstream failures surface as inline errors
// rather than failing the whole snapshot.
type MarketSnapshot struct {
	Prices      providers.PriceTable   `json:"prices,omitempty"`
	PricesError string                 `json:"prices_error,omitempty"`
	Gas         []providers.GasReading `json:"gas"`
	TVL         []providers.ChainTVL   `json:"tvl,omitempty"`
	TVLError    string                 `json:"tvl_error,omitempty"`
}

// PaymentStatus reports how the inbound payment proof was handled
type PaymentStatus struct {
	Verified bool   `json:"verified"`
	Settled  bool   `json:"settled"`
	Payer    string `json:"payer,omitempty"`
}

// InsightsOutput is the success payload of POST /v1/insights
type InsightsOutput struct {
	Market    MarketSnapshot    `json:"market"`
	Insight   providers.Insight `json:"insight"`
	Payment   PaymentStatus     `json:"payment"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// HealthResponse is the payload of GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	UptimeSec int64     `json:"uptime_sec"`
	Timestamp time.Time `json:"timestamp"`
}
