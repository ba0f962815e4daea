package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/chaindesk/chaindesk/internal/config"
)

// DefillamaProvider fetches aggregate TVL figures from the DefiLlama API
type DefillamaProvider struct {
	name    string
	baseURL string
	client  *http.Client
	breaker *Breaker
}

// ChainTVL is one chain's total value locked snapshot
type ChainTVL struct {
	Name    string  `json:"name"`
	Symbol  string  `json:"symbol,omitempty"`
	TVLUSD  float64 `json:"tvl_usd"`
	ChainID int64   `json:"chain_id,omitempty"`
}

// NewDefillamaProvider creates a DefiLlama provider from configuration
func NewDefillamaProvider(cfg config.DefillamaConfig) *DefillamaProvider {
	return &DefillamaProvider{
		name:    "defillama",
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		breaker: NewBreaker("defillama"),
	}
}

func (d *DefillamaProvider) Name() string {
	return d.name
}

// TopChains returns the highest-TVL chains, sorted descending, truncated to limit
func (d *DefillamaProvider) TopChains(ctx context.Context, limit int) ([]ChainTVL, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	result, err := d.breaker.Execute(func() (any, error) {
		body, err := d.get(ctx, d.baseURL+"/v2/chains")
		if err != nil {
			return nil, err
		}

		var raw []struct {
			Name        string  `json:"name"`
			TokenSymbol string  `json:"tokenSymbol"`
			TVL         float64 `json:"tvl"`
			ChainID     int64   `json:"chainId"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		chains := make([]ChainTVL, 0, len(raw))
		for _, r := range raw {
			chains = append(chains, ChainTVL{
				Name:    r.Name,
				Symbol:  r.TokenSymbol,
				TVLUSD:  r.TVL,
				ChainID: r.ChainID,
			})
		}
		sort.Slice(chains, func(i, j int) bool { return chains[i].TVLUSD > chains[j].TVLUSD })
		return chains, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}

	chains := result.([]ChainTVL)
	if limit < len(chains) {
		chains = chains[:limit]
	}
	return chains, nil
}

// Probe checks upstream health with a full chains fetch; DefiLlama exposes
// no lighter ping endpoint.
func (d *DefillamaProvider) Probe(ctx context.Context) *ProbeResult {
	start := time.Now()
	_, err := d.get(ctx, d.baseURL+"/v2/chains")

	result := &ProbeResult{
		Provider:  d.name,
		Success:   err == nil,
		LatencyMs: int(time.Since(start).Milliseconds()),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (d *DefillamaProvider) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
