package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaindesk/chaindesk/internal/config"
	httpContracts "github.com/chaindesk/chaindesk/internal/http"
	"github.com/chaindesk/chaindesk/internal/interfaces/http/handlers"
	"github.com/chaindesk/chaindesk/internal/metrics"
	"github.com/chaindesk/chaindesk/internal/providers"
)

type noopPrices struct{}

func (noopPrices) SimplePrices(ctx context.Context, q providers.PriceQuery) (providers.PriceTable, error) {
	return providers.PriceTable{"bitcoin": {"usd": 1}}, nil
}

type noopGas struct{}

func (noopGas) Fetch(ctx context.Context, chains []string) []providers.GasReading {
	return []providers.GasReading{{Chain: "eth", ChainID: 1, GasPriceGwei: 1}}
}
func (noopGas) Resolve(name string) (string, bool) { return name, true }
func (noopGas) Chains() []string                   { return []string{"eth"} }

type noopTVL struct{}

func (noopTVL) TopChains(ctx context.Context, limit int) ([]providers.ChainTVL, error) {
	return []providers.ChainTVL{{Name: "Ethereum", TVLUSD: 1}}, nil
}

type noopLLM struct{}

func (noopLLM) Summarize(ctx context.Context, snapshot []byte) (*providers.Insight, error) {
	return &providers.Insight{Model: "test", Summary: "ok"}, nil
}

func newTestServer(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()
	reg := metrics.NewRegistry()
	h := handlers.NewHandlers(noopPrices{}, noopGas{}, noopTVL{}, noopLLM{}, nil,
		handlers.PaymentTerms{
			Scheme:            "exact",
			Network:           "eip155:84532",
			Amount:            "10000",
			MaxTimeoutSeconds: 60,
		}, reg)
	return NewServer(cfg, h, reg)
}

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:             "127.0.0.1",
		Port:             8080,
		ReadTimeoutMS:    1000,
		WriteTimeoutMS:   1000,
		IdleTimeoutMS:    1000,
		RequestTimeoutMS: 1000,
		RateLimitRPS:     100,
		RateLimitBurst:   100,
		MaxBodyBytes:     65536,
	}
}

func TestRoutesAndEnvelope(t *testing.T) {
	s := newTestServer(t, serverConfig())

	for _, path := range []string{"/v1/prices", "/v1/gas", "/v1/tvl"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"), path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)

		var env httpContracts.Envelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), path)
		assert.Equal(t, httpContracts.StatusSucceeded, env.Status, path)
	}
}

func TestInsightsRouteChallenges(t *testing.T) {
	s := newTestServer(t, serverConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/insights", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Payment-Required"))
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t, serverConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, serverConfig())

	// Generate one request so counters exist
	warm := httptest.NewRequest(http.MethodPost, "/v1/gas", nil)
	s.router.ServeHTTP(httptest.NewRecorder(), warm)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "chaindesk_requests_total")
}

func TestNotFoundEnvelope(t *testing.T) {
	s := newTestServer(t, serverConfig())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var env httpContracts.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, httpContracts.StatusFailed, env.Status)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, serverConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/prices", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, serverConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/prices", nil)
	req.Header.Set("Origin", "https://example.com")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-Payment")
}

func TestBodySizeLimit(t *testing.T) {
	cfg := serverConfig()
	cfg.MaxBodyBytes = 32
	s := newTestServer(t, cfg)

	oversized := `{"coins":["bitcoin","ethereum","solana","cardano"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/prices", strings.NewReader(oversized))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var env httpContracts.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, httpContracts.StatusFailed, env.Status)

	small := httptest.NewRequest(http.MethodPost, "/v1/prices", strings.NewReader(`{}`))
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, small)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := serverConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	s := newTestServer(t, cfg)

	first := httptest.NewRecorder()
	s.router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	s.router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
