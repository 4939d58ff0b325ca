package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/checkout"
)

const defaultGatewayBaseURL = "https://api.xendit.co"

type TokenizerConfig struct {
	BaseURL   string
	PublicKey string
	Timeout   time.Duration
}

// Tokenizer exchanges raw card data for a single-use gateway token. It authenticates with the
// gateway's public key only, never with the customer's order credentials.
type Tokenizer struct {
	baseURL   string
	publicKey string
	http      *http.Client
}

func NewTokenizer(cfg TokenizerConfig) *Tokenizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGatewayBaseURL
	}
	return &Tokenizer{baseURL: baseURL, publicKey: cfg.PublicKey, http: &http.Client{Timeout: timeout}}
}

// TokenAmount rounds the charge amount to a whole minor unit, never below one.
func TokenAmount(amount decimal.Decimal) int64 {
	rounded := amount.Round(0).IntPart()
	if rounded < 1 {
		return 1
	}
	return rounded
}

func (t *Tokenizer) Tokenize(ctx context.Context, req checkout.TokenizeRequest) (*checkout.CardToken, error) {
	month, year, _ := strings.Cut(strings.TrimSpace(req.Card.Expiry), "/")
	yearNumber, _ := strconv.Atoi(strings.TrimSpace(year))

	body := map[string]interface{}{
		"card_number":         checkout.DigitsOnly(req.Card.Number),
		"card_exp_month":      strings.TrimSpace(month),
		"card_exp_year":       strconv.Itoa(2000 + yearNumber),
		"card_cvn":            strings.TrimSpace(req.Card.CVV),
		"amount":              TokenAmount(req.Amount),
		"is_multiple_use":     false,
		"should_authenticate": true,
	}
	if name := strings.TrimSpace(req.Card.HolderName); name != "" {
		body["card_holder_first_name"] = name
	}
	if email := strings.TrimSpace(req.Card.Email); email != "" {
		body["card_holder_email"] = email
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/credit_card_tokens", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(t.publicKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return nil, &checkout.TransientError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &checkout.TransientError{Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, tokenizeError(payload)
	}

	var parsed struct {
		ID                     string `json:"id"`
		Status                 string `json:"status"`
		PayerAuthenticationURL string `json:"payer_authentication_url"`
		FailureReason          string `json:"failure_reason"`
		CardInfo               struct {
			Brand string `json:"brand"`
		} `json:"card_info"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, err
	}
	if strings.EqualFold(parsed.Status, "FAILED") || parsed.ID == "" {
		return nil, &checkout.GatewayError{Message: humanizeReason(parsed.FailureReason)}
	}

	return &checkout.CardToken{
		ID:              parsed.ID,
		Brand:           strings.ToUpper(strings.TrimSpace(parsed.CardInfo.Brand)),
		Status:          strings.ToUpper(strings.TrimSpace(parsed.Status)),
		VerificationURL: parsed.PayerAuthenticationURL,
	}, nil
}

func tokenizeError(body []byte) error {
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	return &checkout.GatewayError{Message: strings.TrimSpace(payload.Message)}
}

func humanizeReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}
	reason = strings.ReplaceAll(strings.ToLower(reason), "_", " ")
	return strings.ToUpper(reason[:1]) + reason[1:]
}
