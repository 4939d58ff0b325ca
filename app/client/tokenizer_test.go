package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-checkout/app/checkout"
)

func TestTokenAmount(t *testing.T) {
	assert.Equal(t, int64(150000), TokenAmount(decimal.NewFromInt(150000)))
	assert.Equal(t, int64(10), TokenAmount(decimal.RequireFromString("9.5")))
	assert.Equal(t, int64(9), TokenAmount(decimal.RequireFromString("9.49")))
	assert.Equal(t, int64(1), TokenAmount(decimal.RequireFromString("0.2")))
	assert.Equal(t, int64(1), TokenAmount(decimal.Zero))
}

func TestTokenizeUsesPublicKeyAndParsesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/credit_card_tokens", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "xnd_public", user)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "4111111111111111", body["card_number"])
		assert.Equal(t, "12", body["card_exp_month"])
		assert.Equal(t, "2030", body["card_exp_year"])
		assert.Equal(t, float64(1), body["amount"])
		assert.Equal(t, "buyer@example.com", body["card_holder_email"])

		_, _ = w.Write([]byte(`{"id":"tok_1","status":"IN_REVIEW","payer_authentication_url":"https://3ds.example.com/tok_1","card_info":{"brand":"visa"}}`))
	}))
	defer server.Close()

	tokenizer := NewTokenizer(TokenizerConfig{BaseURL: server.URL, PublicKey: "xnd_public"})
	token, err := tokenizer.Tokenize(context.Background(), checkout.TokenizeRequest{
		Card:   checkout.CardDetails{Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "123", Email: "buyer@example.com"},
		Amount: decimal.RequireFromString("0.4"),
	})
	require.NoError(t, err)
	assert.Equal(t, "tok_1", token.ID)
	assert.Equal(t, "VISA", token.Brand)
	assert.Equal(t, "https://3ds.example.com/tok_1", token.VerificationURL)
}

func TestTokenizeSurfacesGatewayMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"API_VALIDATION_ERROR","message":"Card number is invalid"}`))
	}))
	defer server.Close()

	tokenizer := NewTokenizer(TokenizerConfig{BaseURL: server.URL, PublicKey: "xnd_public"})
	_, err := tokenizer.Tokenize(context.Background(), checkout.TokenizeRequest{Card: checkout.CardDetails{Number: "4111", Expiry: "12/30"}})
	require.Error(t, err)
	assert.Equal(t, "Card number is invalid", checkout.GatewayMessage(err))
}

func TestTokenizeFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"tok_2","status":"FAILED","failure_reason":"AUTHENTICATION_FAILED"}`))
	}))
	defer server.Close()

	tokenizer := NewTokenizer(TokenizerConfig{BaseURL: server.URL})
	_, err := tokenizer.Tokenize(context.Background(), checkout.TokenizeRequest{Card: checkout.CardDetails{Number: "4111111111111111", Expiry: "12/30"}})
	assert.Equal(t, "Authentication failed", checkout.GatewayMessage(err))
}
