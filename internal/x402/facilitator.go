package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// FacilitatorClient talks to an external x402 facilitator service. Only the
// verify endpoint is used; settlement stays out of the request path.
type FacilitatorClient struct {
	baseURL string
	client  *http.Client
}

// VerifyRequest is the facilitator /verify request body
type VerifyRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator /verify response body
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// NewFacilitatorClient creates a client for the given facilitator base URL
func NewFacilitatorClient(baseURL string) *FacilitatorClient {
	return &FacilitatorClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Verify submits a payment payload and requirements for validation
func (f *FacilitatorClient) Verify(ctx context.Context, payload *PaymentPayload, req PaymentRequirements) (*VerifyResponse, error) {
	body, err := json.Marshal(VerifyRequest{
		X402Version:         Version,
		PaymentPayload:      *payload,
		PaymentRequirements: req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("facilitator request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read facilitator response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facilitator returned status %d", resp.StatusCode)
	}

	var result VerifyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode facilitator response: %w", err)
	}

	if !result.IsValid {
		log.Warn().
			Str("reason", result.InvalidReason).
			Str("payer", result.Payer).
			Msg("Facilitator rejected payment")
	}

	return &result, nil
}
