package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chaindesk/chaindesk/internal/config"
)

// CoingeckoProvider fetches spot prices from the CoinGecko free/demo API
type CoingeckoProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *Breaker
}

// PriceQuery describes one simple/price request
type PriceQuery struct {
	Coins            []string
	Currencies       []string
	IncludeMarketCap bool
	Include24hChange bool
}

// PriceTable maps coin id -> currency (or derived key like usd_market_cap) -> value
type PriceTable map[string]map[string]float64

// NewCoingeckoProvider creates a CoinGecko provider from configuration.
// An empty API key keeps the client on keyless endpoints.
func NewCoingeckoProvider(cfg config.CoingeckoConfig, apiKey string) *CoingeckoProvider {
	return &CoingeckoProvider{
		name:    "coingecko",
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		breaker: NewBreaker("coingecko"),
	}
}

func (c *CoingeckoProvider) Name() string {
	return c.name
}

// SimplePrices fetches current prices for the given coins and currencies in
// a single upstream call.
func (c *CoingeckoProvider) SimplePrices(ctx context.Context, q PriceQuery) (PriceTable, error) {
	if len(q.Coins) == 0 {
		return nil, fmt.Errorf("at least one coin id is required")
	}
	if len(q.Currencies) == 0 {
		return nil, fmt.Errorf("at least one currency is required")
	}

	params := url.Values{}
	params.Set("ids", strings.Join(q.Coins, ","))
	params.Set("vs_currencies", strings.Join(q.Currencies, ","))
	if q.IncludeMarketCap {
		params.Set("include_market_cap", "true")
	}
	if q.Include24hChange {
		params.Set("include_24hr_change", "true")
	}

	fullURL := fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode())

	result, err := c.breaker.Execute(func() (any, error) {
		body, err := c.get(ctx, fullURL)
		if err != nil {
			return nil, err
		}

		var table PriceTable
		if err := json.Unmarshal(body, &table); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return table, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	return result.(PriceTable), nil
}

// Probe checks upstream health via the lightweight ping endpoint
func (c *CoingeckoProvider) Probe(ctx context.Context) *ProbeResult {
	start := time.Now()
	_, err := c.get(ctx, c.baseURL+"/ping")

	result := &ProbeResult{
		Provider:  c.name,
		Success:   err == nil,
		LatencyMs: int(time.Since(start).Milliseconds()),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

func (c *CoingeckoProvider) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
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
