package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(65536), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "exact", cfg.Payment.Scheme)
	assert.Contains(t, cfg.Providers.RPC.Chains, "eth")
	assert.Contains(t, cfg.Providers.RPC.Chains, "base")
	assert.Contains(t, cfg.Providers.RPC.Chains, "poly")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
payment:
  pay_to: "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
  amount: "25000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "25000", cfg.Payment.Amount)
	// Untouched sections keep defaults
	assert.Equal(t, "https://api.llama.fi", cfg.Providers.Defillama.BaseURL)
}

func TestLoadRejectsBadPayee(t *testing.T) {
	path := writeConfig(t, `
payment:
  pay_to: "not-an-address"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pay_to")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7001")
	t.Setenv("PAY_TO_ADDRESS", "0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
server:
  port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", cfg.Payment.PayTo)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateChainConfig(t *testing.T) {
	cfg := Default()
	cfg.Providers.RPC.Chains["broken"] = ChainConfig{ChainID: 0, URL: "https://example.com"}
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Providers.RPC.Chains["broken"] = ChainConfig{ChainID: 10, URL: ""}
	assert.Error(t, cfg.Validate())
}

func TestAPIKeyResolution(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "cg-demo")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg := Default()
	assert.Equal(t, "cg-demo", cfg.CoingeckoAPIKey())
	assert.Equal(t, "sk-test", cfg.LLMAPIKey())
}
