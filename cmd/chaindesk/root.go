package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chaindesk/chaindesk/internal/config"
	httpserver "github.com/chaindesk/chaindesk/internal/interfaces/http"
	"github.com/chaindesk/chaindesk/internal/interfaces/http/handlers"
	"github.com/chaindesk/chaindesk/internal/metrics"
	"github.com/chaindesk/chaindesk/internal/providers"
	"github.com/chaindesk/chaindesk/internal/x402"
)

const defaultConfigPath = "config/config.yaml"

var (
	configPath   string
	probeTimeout time.Duration
	probeFormat  string
)

// rootCmd is the base command for the chaindesk CLI
var rootCmd = &cobra.Command{
	Use:   "chaindesk",
	Short: "chaindesk on-chain market data API",
	Long: `chaindesk aggregates public blockchain market data (prices, gas, TVL)
behind uniform JSON endpoints, plus an x402-gated insights endpoint that
summarizes the market with an LLM.`,
}

// serveCmd runs the HTTP server until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chaindesk API server",
	RunE:  runServe,
}

// probeCmd tests upstream provider health
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe upstream provider health",
	Long: `Probe every configured upstream (CoinGecko, DefiLlama, each RPC chain)
and report availability and latency.

Example usage:
  chaindesk providers probe
  chaindesk providers probe --format=json
  chaindesk providers probe --timeout=10s`,
	RunE: runProbe,
}

// providersCmd is the parent command for provider operations
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage and test upstream data providers",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chaindesk version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chaindesk %s\n", handlers.Version)
	},
}

func init() {
	bindGlobalFlags(rootCmd.PersistentFlags())

	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 30*time.Second, "Timeout for provider probes")
	probeCmd.Flags().StringVar(&probeFormat, "format", "table", "Output format: table, json")

	providersCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(serveCmd, providersCmd, versionCmd)
}

func bindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
}

// Execute runs the CLI with the given context
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file; a missing file at the default path falls
// back to built-in defaults so the binary runs out of the box.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if configPath != defaultConfigPath {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(configPath)
}

func applyLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

type stack struct {
	coingecko *providers.CoingeckoProvider
	defillama *providers.DefillamaProvider
	gas       *providers.GasProvider
	llm       *providers.LLMProvider
}

func buildStack(cfg *config.Config) *stack {
	return &stack{
		coingecko: providers.NewCoingeckoProvider(cfg.Providers.Coingecko, cfg.CoingeckoAPIKey()),
		defillama: providers.NewDefillamaProvider(cfg.Providers.Defillama),
		gas:       providers.NewGasProvider(cfg.Providers.RPC),
		llm:       providers.NewLLMProvider(cfg.Providers.LLM, cfg.LLMAPIKey()),
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogLevel(cfg)

	st := buildStack(cfg)

	var verifier handlers.PaymentVerifier
	if cfg.Payment.FacilitatorURL != "" {
		verifier = x402.NewFacilitatorClient(cfg.Payment.FacilitatorURL)
		log.Info().Str("facilitator", cfg.Payment.FacilitatorURL).Msg("Payment verification enabled")
	} else {
		log.Warn().Msg("No facilitator configured; accepting payment headers unverified")
	}
	if cfg.Payment.PayTo == "" {
		log.Warn().Msg("payment.pay_to is empty; 402 challenges will advertise no payee")
	}

	reg := metrics.NewRegistry()
	h := handlers.NewHandlers(st.coingecko, st.gas, st.defillama, st.llm, verifier,
		handlers.PaymentTerms{
			Scheme:            cfg.Payment.Scheme,
			Network:           cfg.Payment.Network,
			Amount:            cfg.Payment.Amount,
			Asset:             cfg.Payment.Asset,
			PayTo:             cfg.Payment.PayTo,
			MaxTimeoutSeconds: cfg.Payment.MaxTimeoutSeconds,
			Description:       cfg.Payment.Description,
		}, reg)

	server := httpserver.NewServer(cfg.Server, h, reg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogLevel(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()

	st := buildStack(cfg)

	results := []*providers.ProbeResult{
		st.coingecko.Probe(ctx),
		st.defillama.Probe(ctx),
	}
	results = append(results, st.gas.Probe(ctx)...)

	switch strings.ToLower(probeFormat) {
	case "json":
		return outputJSON(results)
	default:
		return outputTable(results)
	}
}

func outputJSON(results []*providers.ProbeResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func outputTable(results []*providers.ProbeResult) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tLATENCY\tERROR")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "down"
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", r.Provider, status, r.LatencyMs, r.Error)
	}
	return w.Flush()
}
