package providers

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/chaindesk/chaindesk/internal/config"
)

// GasProvider reads current gas pricing from EVM JSON-RPC endpoints, one per
// configured chain.
type GasProvider struct {
	timeout time.Duration
	chains  map[string]*gasChain
}

type gasChain struct {
	name    string
	chainID int64
	url     string
	breaker *Breaker

	mu      sync.Mutex
	client  *ethclient.Client
	dialErr error
}

// GasReading is one chain's gas snapshot. A failed chain carries only the
// chain name and an inline error.
type GasReading struct {
	Chain           string  `json:"chain"`
	ChainID         int64   `json:"chain_id,omitempty"`
	GasPriceGwei    float64 `json:"gas_price_gwei,omitempty"`
	BaseFeeGwei     float64 `json:"base_fee_gwei,omitempty"`
	PriorityFeeGwei float64 `json:"priority_fee_gwei,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// chainAliases maps accepted request spellings to canonical chain names
var chainAliases = map[string]string{
	"eth":      "eth",
	"ethereum": "eth",
	"mainnet":  "eth",
	"base":     "base",
	"poly":     "poly",
	"polygon":  "poly",
	"matic":    "poly",
}

// NewGasProvider creates a gas provider for the configured chains
func NewGasProvider(cfg config.RPCConfig) *GasProvider {
	chains := make(map[string]*gasChain, len(cfg.Chains))
	for name, chain := range cfg.Chains {
		chains[name] = &gasChain{
			name:    name,
			chainID: chain.ChainID,
			url:     chain.URL,
			breaker: NewBreaker("rpc:" + name),
		}
	}
	return &GasProvider{
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		chains:  chains,
	}
}

// Chains returns the canonical names of all configured chains, sorted
func (g *GasProvider) Chains() []string {
	names := make([]string, 0, len(g.chains))
	for name := range g.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps a request chain name to its canonical configured name
func (g *GasProvider) Resolve(name string) (string, bool) {
	canonical := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := chainAliases[canonical]; ok {
		canonical = alias
	}
	_, ok := g.chains[canonical]
	return canonical, ok
}

// Fetch reads gas data for the requested chains concurrently. Each chain
// failure is captured inline in its reading; Fetch itself never fails.
func (g *GasProvider) Fetch(ctx context.Context, names []string) []GasReading {
	readings := make([]GasReading, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		canonical, ok := g.Resolve(name)
		if !ok {
			readings[i] = GasReading{Chain: name, Error: fmt.Sprintf("unsupported chain %q", name)}
			continue
		}

		wg.Add(1)
		go func(i int, chain *gasChain) {
			defer wg.Done()
			readings[i] = g.fetchChain(ctx, chain)
		}(i, g.chains[canonical])
	}
	wg.Wait()

	return readings
}

func (g *GasProvider) fetchChain(ctx context.Context, chain *gasChain) GasReading {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := chain.breaker.Execute(func() (any, error) {
		client, err := chain.dial()
		if err != nil {
			return nil, err
		}

		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price query failed: %w", err)
		}

		reading := GasReading{
			Chain:        chain.name,
			ChainID:      chain.chainID,
			GasPriceGwei: weiToGwei(gasPrice),
		}

		// Tip and base fee are best-effort; some RPCs reject the tip query
		// and pre-London chains carry no base fee.
		if tip, err := client.SuggestGasTipCap(ctx); err == nil {
			reading.PriorityFeeGwei = weiToGwei(tip)
		}
		if header, err := client.HeaderByNumber(ctx, nil); err == nil && header.BaseFee != nil {
			reading.BaseFeeGwei = weiToGwei(header.BaseFee)
		}

		return reading, nil
	})
	if err != nil {
		log.Warn().Str("chain", chain.name).Err(err).Msg("Gas fetch failed")
		return GasReading{Chain: chain.name, ChainID: chain.chainID, Error: err.Error()}
	}

	return result.(GasReading)
}

// Probe dials each chain and checks the reported chain id against config
func (g *GasProvider) Probe(ctx context.Context) []*ProbeResult {
	results := make([]*ProbeResult, 0, len(g.chains))
	for _, name := range g.Chains() {
		chain := g.chains[name]
		start := time.Now()

		result := &ProbeResult{
			Provider:  "rpc:" + name,
			Timestamp: time.Now(),
		}

		client, err := chain.dial()
		if err == nil {
			var id *big.Int
			id, err = client.ChainID(ctx)
			if err == nil && id.Int64() != chain.chainID {
				err = fmt.Errorf("chain id mismatch: got %s, want %d", id, chain.chainID)
			}
		}

		result.LatencyMs = int(time.Since(start).Milliseconds())
		result.Success = err == nil
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// dial lazily connects the chain's RPC client, caching the outcome
func (c *gasChain) dial() (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil || c.dialErr != nil {
		return c.client, c.dialErr
	}

	client, err := ethclient.Dial(c.url)
	if err != nil {
		c.dialErr = fmt.Errorf("failed to dial %s: %w", c.url, err)
		return nil, c.dialErr
	}
	c.client = client
	return c.client, nil
}

func weiToGwei(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}
