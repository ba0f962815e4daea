package x402

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequirements() PaymentRequirements {
	return PaymentRequirements{
		Scheme:            "exact",
		Network:           "eip155:84532",
		MaxAmountRequired: "10000",
		Resource:          "https://api.example.com/v1/insights",
		Description:       "Aggregated on-chain market insights",
		MimeType:          "application/json",
		PayTo:             "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
		MaxTimeoutSeconds: 60,
		Asset:             "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	}
}

func encodePayment(t *testing.T, p PaymentPayload) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestChallengeEncodeRoundTrip(t *testing.T) {
	challenge := NewChallenge("X-Payment header is required", testRequirements())

	encoded, err := challenge.Encode()
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var got Challenge
	require.NoError(t, json.Unmarshal(decoded, &got))
	assert.Equal(t, Version, got.X402Version)
	assert.Equal(t, "X-Payment header is required", got.Error)
	require.Len(t, got.Accepts, 1)
	assert.Equal(t, "exact", got.Accepts[0].Scheme)
	assert.Equal(t, "eip155:84532", got.Accepts[0].Network)
	assert.Equal(t, "10000", got.Accepts[0].MaxAmountRequired)
}

func TestDecodePaymentMissing(t *testing.T) {
	_, err := DecodePayment("")
	assert.ErrorIs(t, err, ErrNoPayment)
}

func TestDecodePaymentInvalidBase64(t *testing.T) {
	_, err := DecodePayment("not base64!!!")
	assert.ErrorIs(t, err, ErrMalformedPayment)
}

func TestDecodePaymentInvalidJSON(t *testing.T) {
	header := base64.StdEncoding.EncodeToString([]byte("{nope"))
	_, err := DecodePayment(header)
	assert.ErrorIs(t, err, ErrMalformedPayment)
}

func TestDecodePaymentMissingFields(t *testing.T) {
	header := encodePayment(t, PaymentPayload{X402Version: Version})
	_, err := DecodePayment(header)
	assert.ErrorIs(t, err, ErrMalformedPayment)
}

func TestDecodePaymentValid(t *testing.T) {
	header := encodePayment(t, PaymentPayload{
		X402Version: Version,
		Scheme:      "exact",
		Network:     "eip155:84532",
		Payload:     json.RawMessage(`{"signature":"0xabc"}`),
	})

	payload, err := DecodePayment(header)
	require.NoError(t, err)
	assert.Equal(t, Version, payload.X402Version)
	assert.Equal(t, "exact", payload.Scheme)
	assert.True(t, payload.Matches(testRequirements()))
}

func TestPaymentMatches(t *testing.T) {
	payload := &PaymentPayload{X402Version: Version, Scheme: "exact", Network: "eip155:1"}
	assert.False(t, payload.Matches(testRequirements()), "network mismatch must not match")

	payload.Network = "eip155:84532"
	assert.True(t, payload.Matches(testRequirements()))

	payload.Scheme = "upto"
	assert.False(t, payload.Matches(testRequirements()), "scheme mismatch must not match")
}

func TestMalformedWrapsSentinel(t *testing.T) {
	_, err := DecodePayment("%%%")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayment))
	assert.False(t, errors.Is(err, ErrNoPayment))
}
