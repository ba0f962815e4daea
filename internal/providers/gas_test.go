package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaindesk/chaindesk/internal/config"
)

// fakeRPC answers the JSON-RPC methods ethclient issues for gas queries.
// Block queries are unsupported so base fee stays best-effort-empty.
func fakeRPC(t *testing.T, chainID string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_gasPrice":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x3b9aca00"}`, req.ID) // 1 gwei
		case "eth_maxPriorityFeePerGas":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x77359400"}`, req.ID) // 2 gwei
		case "eth_chainId":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"%s"}`, req.ID, chainID)
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newGasTest(t *testing.T, url string) *GasProvider {
	t.Helper()
	return NewGasProvider(config.RPCConfig{
		TimeoutMS: 2000,
		Chains: map[string]config.ChainConfig{
			"eth": {ChainID: 1, URL: url},
		},
	})
}

func TestResolveAliases(t *testing.T) {
	provider := newGasTest(t, "http://localhost:0")

	for _, alias := range []string{"eth", "ETH", "ethereum", " mainnet "} {
		name, ok := provider.Resolve(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, "eth", name, alias)
	}

	_, ok := provider.Resolve("solana")
	assert.False(t, ok)
}

func TestFetchGasReading(t *testing.T) {
	server := fakeRPC(t, "0x1")
	provider := newGasTest(t, server.URL)

	readings := provider.Fetch(context.Background(), []string{"ethereum"})
	require.Len(t, readings, 1)

	reading := readings[0]
	assert.Empty(t, reading.Error)
	assert.Equal(t, "eth", reading.Chain)
	assert.Equal(t, int64(1), reading.ChainID)
	assert.Equal(t, 1.0, reading.GasPriceGwei)
	assert.Equal(t, 2.0, reading.PriorityFeeGwei)
	assert.Zero(t, reading.BaseFeeGwei)
}

func TestFetchUnsupportedChainInlineError(t *testing.T) {
	server := fakeRPC(t, "0x1")
	provider := newGasTest(t, server.URL)

	readings := provider.Fetch(context.Background(), []string{"eth", "dogechain"})
	require.Len(t, readings, 2)
	assert.Empty(t, readings[0].Error)
	assert.Equal(t, "dogechain", readings[1].Chain)
	assert.Contains(t, readings[1].Error, "unsupported chain")
}

func TestFetchDownstreamFailureInlineError(t *testing.T) {
	server := fakeRPC(t, "0x1")
	provider := newGasTest(t, server.URL)
	server.Close()

	readings := provider.Fetch(context.Background(), []string{"eth"})
	require.Len(t, readings, 1)
	assert.Equal(t, "eth", readings[0].Chain)
	assert.NotEmpty(t, readings[0].Error)
}

func TestProbeChainIDMismatch(t *testing.T) {
	server := fakeRPC(t, "0x89") // polygon id against an eth config entry
	provider := newGasTest(t, server.URL)

	results := provider.Probe(context.Background())
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "chain id mismatch")
}

func TestProbeSuccess(t *testing.T) {
	server := fakeRPC(t, "0x1")
	provider := newGasTest(t, server.URL)

	results := provider.Probe(context.Background())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "rpc:eth", results[0].Provider)
}

func TestWeiToGwei(t *testing.T) {
	assert.Equal(t, 1.0, weiToGwei(big.NewInt(1_000_000_000)))
	assert.Equal(t, 0.5, weiToGwei(big.NewInt(500_000_000)))
	assert.Equal(t, 0.0, weiToGwei(big.NewInt(0)))
}
