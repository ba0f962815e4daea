// Package x402 implements the request/response shapes of the x402
// micropayment protocol as seen on the wire: payment requirement challenges
// emitted with HTTP 402, and the base64 JSON payment payload clients send
// back in the X-Payment header. Cryptographic verification of the payload is
// delegated to an external facilitator and never performed here.
package x402

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version advertised in challenges
const Version = 2

// PaymentHeader is the request header carrying the payment proof
const PaymentHeader = "X-Payment"

// ChallengeHeader carries the base64-encoded challenge on 402 responses
const ChallengeHeader = "X-Payment-Required"

var (
	// ErrNoPayment indicates the payment header was absent
	ErrNoPayment = errors.New("payment header missing")
	// ErrMalformedPayment indicates the header could not be decoded
	ErrMalformedPayment = errors.New("malformed payment payload")
)

// PaymentRequirements describes one acceptable way to pay for a resource
type PaymentRequirements struct {
	Scheme            string            `json:"scheme"`
	Network           string            `json:"network"`
	MaxAmountRequired string            `json:"maxAmountRequired"`
	Resource          string            `json:"resource"`
	Description       string            `json:"description"`
	MimeType          string            `json:"mimeType"`
	PayTo             string            `json:"payTo"`
	MaxTimeoutSeconds int               `json:"maxTimeoutSeconds"`
	Asset             string            `json:"asset"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// Challenge is the body of an HTTP 402 response
type Challenge struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// PaymentPayload is the decoded client payment proof. The payload field is
// scheme-specific and opaque to this service.
type PaymentPayload struct {
	X402Version int             `json:"x402Version"`
	Scheme      string          `json:"scheme"`
	Network     string          `json:"network"`
	Payload     json.RawMessage `json:"payload"`
}

// NewChallenge builds a single-option challenge for the given resource
func NewChallenge(reason string, req PaymentRequirements) *Challenge {
	return &Challenge{
		X402Version: Version,
		Error:       reason,
		Accepts:     []PaymentRequirements{req},
	}
}

// Encode renders the challenge as base64 JSON for the challenge header
func (c *Challenge) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePayment parses a base64 JSON payment header value
func DecodePayment(header string) (*PaymentPayload, error) {
	if header == "" {
		return nil, ErrNoPayment
	}

	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformedPayment, err)
	}

	var payload PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrMalformedPayment, err)
	}

	if payload.X402Version == 0 || payload.Scheme == "" || payload.Network == "" {
		return nil, fmt.Errorf("%w: missing version, scheme or network", ErrMalformedPayment)
	}

	return &payload, nil
}

// Matches reports whether the payload targets the advertised terms
func (p *PaymentPayload) Matches(req PaymentRequirements) bool {
	return p.Scheme == req.Scheme && p.Network == req.Network
}
