// Package providers contains the upstream API clients that the HTTP
// endpoints aggregate: CoinGecko for spot prices, DefiLlama for chain TVL,
// EVM JSON-RPC for gas data, and an OpenAI-compatible chat-completions API
// for the paid insights endpoint.
package providers

import (
	"time"

	cb "github.com/sony/gobreaker"
)

const userAgent = "chaindesk/1.0"

// ProbeResult reports the outcome of a provider health probe
type ProbeResult struct {
	Provider  string    `json:"provider"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int       `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Breaker wraps a circuit breaker around upstream calls. A provider trips
// after three consecutive failures, or a >5% failure rate once it has seen
// twenty requests in the rolling interval.
type Breaker struct{ cb *cb.CircuitBreaker }

// NewBreaker creates a named breaker with provider-grade defaults
func NewBreaker(name string) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	return &Breaker{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn under the breaker
func (b *Breaker) Execute(fn func() (any, error)) (any, error) { return b.cb.Execute(fn) }
