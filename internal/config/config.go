package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config represents the complete chaindesk configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Payment   PaymentConfig   `yaml:"payment"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	ReadTimeoutMS    int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS   int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS    int    `yaml:"idle_timeout_ms"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	RateLimitRPS     int    `yaml:"rate_limit_rps"`   // Inbound requests per second
	RateLimitBurst   int    `yaml:"rate_limit_burst"` // Inbound burst capacity
	MaxBodyBytes     int64  `yaml:"max_body_bytes"`   // Request body size cap
}

// ProvidersConfig holds upstream API settings
type ProvidersConfig struct {
	Coingecko CoingeckoConfig `yaml:"coingecko"`
	Defillama DefillamaConfig `yaml:"defillama"`
	RPC       RPCConfig       `yaml:"rpc"`
	LLM       LLMConfig       `yaml:"llm"`
}

// CoingeckoConfig configures the CoinGecko price provider
type CoingeckoConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"` // Env var holding the demo API key
	TimeoutMS int    `yaml:"timeout_ms"`
}

// DefillamaConfig configures the DefiLlama TVL provider
type DefillamaConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// RPCConfig configures EVM JSON-RPC endpoints used for gas data
type RPCConfig struct {
	Chains    map[string]ChainConfig `yaml:"chains"`
	TimeoutMS int                    `yaml:"timeout_ms"`
}

// ChainConfig describes a single EVM chain endpoint
type ChainConfig struct {
	ChainID int64  `yaml:"chain_id"`
	URL     string `yaml:"url"`
}

// LLMConfig configures the chat-completions provider for the insights endpoint
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// PaymentConfig describes the terms advertised in 402 challenges
type PaymentConfig struct {
	Scheme            string `yaml:"scheme"`
	Network           string `yaml:"network"` // CAIP-2 id, e.g. eip155:84532
	Amount            string `yaml:"amount"`  // Atomic units of the asset
	Asset             string `yaml:"asset"`   // Token contract address
	PayTo             string `yaml:"pay_to"`
	MaxTimeoutSeconds int    `yaml:"max_timeout_seconds"`
	FacilitatorURL    string `yaml:"facilitator_url"` // Optional; empty disables verification
	Description       string `yaml:"description"`
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file and applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration used when no file overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeoutMS:    10000,
			WriteTimeoutMS:   30000,
			IdleTimeoutMS:    60000,
			RequestTimeoutMS: 25000,
			RateLimitRPS:     20,
			RateLimitBurst:   40,
			MaxBodyBytes:     65536,
		},
		Providers: ProvidersConfig{
			Coingecko: CoingeckoConfig{
				BaseURL:   "https://api.coingecko.com/api/v3",
				APIKeyEnv: "COINGECKO_API_KEY",
				TimeoutMS: 10000,
			},
			Defillama: DefillamaConfig{
				BaseURL:   "https://api.llama.fi",
				TimeoutMS: 10000,
			},
			RPC: RPCConfig{
				TimeoutMS: 8000,
				Chains: map[string]ChainConfig{
					"eth":  {ChainID: 1, URL: "https://ethereum-rpc.publicnode.com"},
					"base": {ChainID: 8453, URL: "https://mainnet.base.org"},
					"poly": {ChainID: 137, URL: "https://polygon-rpc.com"},
				},
			},
			LLM: LLMConfig{
				BaseURL:   "https://api.openai.com/v1",
				Model:     "gpt-4o-mini",
				APIKeyEnv: "LLM_API_KEY",
				MaxTokens: 512,
				TimeoutMS: 30000,
			},
		},
		Payment: PaymentConfig{
			Scheme:            "exact",
			Network:           "eip155:84532",
			Amount:            "10000",
			Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			PayTo:             "",
			MaxTimeoutSeconds: 60,
			Description:       "Aggregated on-chain market insights",
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyEnvOverrides lets deployment environments override file settings
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PAY_TO_ADDRESS"); v != "" {
		c.Payment.PayTo = v
	}
	if v := os.Getenv("FACILITATOR_URL"); v != "" {
		c.Payment.FacilitatorURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for values that would break at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Providers.Coingecko.BaseURL == "" {
		return fmt.Errorf("providers.coingecko.base_url is required")
	}
	if c.Providers.Defillama.BaseURL == "" {
		return fmt.Errorf("providers.defillama.base_url is required")
	}
	if len(c.Providers.RPC.Chains) == 0 {
		return fmt.Errorf("providers.rpc.chains must define at least one chain")
	}
	for name, chain := range c.Providers.RPC.Chains {
		if chain.URL == "" {
			return fmt.Errorf("providers.rpc.chains.%s.url is required", name)
		}
		if chain.ChainID <= 0 {
			return fmt.Errorf("providers.rpc.chains.%s.chain_id must be positive", name)
		}
	}
	if c.Payment.PayTo != "" && !common.IsHexAddress(c.Payment.PayTo) {
		return fmt.Errorf("payment.pay_to %q is not a valid address", c.Payment.PayTo)
	}
	if c.Payment.Asset != "" && !common.IsHexAddress(c.Payment.Asset) {
		return fmt.Errorf("payment.asset %q is not a valid address", c.Payment.Asset)
	}
	if c.Payment.Scheme == "" || c.Payment.Network == "" {
		return fmt.Errorf("payment.scheme and payment.network are required")
	}
	if c.Payment.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("payment.max_timeout_seconds must be positive")
	}
	return nil
}

// CoingeckoAPIKey resolves the CoinGecko demo key from the environment
func (c *Config) CoingeckoAPIKey() string {
	if c.Providers.Coingecko.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Providers.Coingecko.APIKeyEnv)
}

// LLMAPIKey resolves the LLM bearer token from the environment
func (c *Config) LLMAPIKey() string {
	if c.Providers.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Providers.LLM.APIKeyEnv)
}

// RequestTimeout returns the per-request deadline for inbound handlers
func (c *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
