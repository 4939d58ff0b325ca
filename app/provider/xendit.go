package provider

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const defaultXenditBaseURL = "https://api.xendit.co"

type XenditConfig struct {
	BaseURL                string
	SecretKey              string
	CallbackToken          string
	GatewayCallbackBaseURL string
	SuccessRedirectURL     string
	HTTPTimeout            time.Duration
	RateLimitPerSecond     int
}

type XenditGateway struct {
	cfg     XenditConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewXenditGateway(cfg XenditConfig) *XenditGateway {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultXenditBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	limit := rate.Inf
	burst := 1
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
		burst = cfg.RateLimitPerSecond
	}

	return &XenditGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (g *XenditGateway) Code() string {
	return "xendit"
}

func (g *XenditGateway) Methods() []types.PaymentMethod {
	return []types.PaymentMethod{
		types.PaymentMethodVirtualAccount,
		types.PaymentMethodEWallet,
		types.PaymentMethodQRIS,
		types.PaymentMethodRetailOutlet,
		types.PaymentMethodPayLater,
		types.PaymentMethodCard,
	}
}

func (g *XenditGateway) CreateTransaction(ctx context.Context, input *CreateInput) (*TransactionResult, error) {
	if strings.TrimSpace(g.cfg.SecretKey) == "" {
		return nil, errors.New("gateway secret key is not configured")
	}

	callbackURL := joinCallbackURL(g.cfg.GatewayCallbackBaseURL, input.CallbackHash)
	if callbackURL == "" {
		return nil, errors.New("gateway callback base url is not configured")
	}

	switch input.Method {
	case types.PaymentMethodVirtualAccount:
		return g.createVirtualAccount(ctx, input)
	case types.PaymentMethodQRIS:
		return g.createQRCode(ctx, input, callbackURL)
	case types.PaymentMethodEWallet:
		return g.createEWalletCharge(ctx, input, callbackURL)
	case types.PaymentMethodRetailOutlet:
		return g.createFixedPaymentCode(ctx, input)
	case types.PaymentMethodPayLater:
		return g.createInvoice(ctx, input)
	case types.PaymentMethodCard:
		// Card attempts start locally and reach the gateway through ChargeCard.
		expiresAt := input.ExpiresAt
		return &TransactionResult{Status: "PENDING", ExpiresAt: &expiresAt}, nil
	default:
		return nil, ErrMethodNotSupported
	}
}

func (g *XenditGateway) ChargeCard(ctx context.Context, input *ChargeInput) (*TransactionResult, error) {
	if strings.TrimSpace(input.TokenID) == "" {
		return nil, errors.New("token id is required")
	}

	body, err := g.do(ctx, http.MethodPost, "/credit_card_charges", map[string]interface{}{
		"token_id":    input.TokenID,
		"external_id": input.ExternalID,
		"amount":      input.Amount,
		"currency":    input.Currency,
	})
	if err != nil {
		return nil, err
	}

	return parseCardCharge(body)
}

func (g *XenditGateway) GetTransactionStatus(ctx context.Context, method types.PaymentMethod, providerReference string) (*TransactionResult, error) {
	providerReference = strings.TrimSpace(providerReference)
	if providerReference == "" {
		return nil, nil
	}

	ref := url.PathEscape(providerReference)
	switch method {
	case types.PaymentMethodVirtualAccount:
		body, err := g.do(ctx, http.MethodGet, "/callback_virtual_accounts/"+ref, nil)
		if err != nil {
			return nil, err
		}
		return parseVirtualAccount(body)
	case types.PaymentMethodQRIS:
		return g.qrCodeStatus(ctx, ref)
	case types.PaymentMethodEWallet:
		body, err := g.do(ctx, http.MethodGet, "/ewallets/charges/"+ref, nil)
		if err != nil {
			return nil, err
		}
		return parseEWalletCharge(body)
	case types.PaymentMethodRetailOutlet:
		body, err := g.do(ctx, http.MethodGet, "/fixed_payment_code/"+ref, nil)
		if err != nil {
			return nil, err
		}
		return parseFixedPaymentCode(body)
	case types.PaymentMethodPayLater:
		body, err := g.do(ctx, http.MethodGet, "/v2/invoices/"+ref, nil)
		if err != nil {
			return nil, err
		}
		return parseInvoice(body)
	case types.PaymentMethodCard:
		body, err := g.do(ctx, http.MethodGet, "/credit_card_charges/"+ref, nil)
		if err != nil {
			return nil, err
		}
		return parseCardCharge(body)
	default:
		return nil, ErrMethodNotSupported
	}
}

// qrCodeStatus reads the QR code and its payments. The QR code object itself only reports
// ACTIVE/INACTIVE, so a settlement is only visible through the payments list.
func (g *XenditGateway) qrCodeStatus(ctx context.Context, ref string) (*TransactionResult, error) {
	body, err := g.do(ctx, http.MethodGet, "/qr_codes/"+ref, nil)
	if err != nil {
		return nil, err
	}
	result, err := parseQRCode(body)
	if err != nil {
		return nil, err
	}

	payments, err := g.do(ctx, http.MethodGet, "/qr_codes/"+ref+"/payments", nil)
	if err != nil {
		return nil, err
	}
	paid, err := parseQRPayments(payments)
	if err != nil {
		return nil, err
	}
	if paid {
		result.Status = "SUCCEEDED"
	}
	return result, nil
}

func (g *XenditGateway) VerifyAndParseCallback(_ context.Context, payload []byte, callbackToken string) (*CallbackEvent, error) {
	if strings.TrimSpace(g.cfg.CallbackToken) == "" {
		return nil, errors.New("gateway callback token is not configured")
	}
	if !verifyCallbackToken(callbackToken, g.cfg.CallbackToken) {
		return nil, errors.New("invalid gateway callback token")
	}

	return parseCallback(payload)
}

func (g *XenditGateway) createVirtualAccount(ctx context.Context, input *CreateInput) (*TransactionResult, error) {
	body, err := g.do(ctx, http.MethodPost, "/callback_virtual_accounts", map[string]interface{}{
		"external_id":     input.ExternalID,
		"bank_code":       input.Channel,
		"name":            input.CustomerName,
		"expected_amount": input.Amount,
		"is_closed":       true,
		"is_single_use":   true,
		"expiration_date": input.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return parseVirtualAccount(body)
}

func (g *XenditGateway) createQRCode(ctx context.Context, input *CreateInput, callbackURL string) (*TransactionResult, error) {
	body, err := g.do(ctx, http.MethodPost, "/qr_codes", map[string]interface{}{
		"reference_id": input.ExternalID,
		"type":         "DYNAMIC",
		"currency":     input.Currency,
		"amount":       input.Amount,
		"expires_at":   input.ExpiresAt.UTC().Format(time.RFC3339),
		"callback_url": callbackURL,
	})
	if err != nil {
		return nil, err
	}
	return parseQRCode(body)
}

func (g *XenditGateway) createEWalletCharge(ctx context.Context, input *CreateInput, callbackURL string) (*TransactionResult, error) {
	properties := map[string]interface{}{
		"success_redirect_url": g.successRedirectURL(input.OrderID),
	}
	if input.CustomerPhone != "" {
		properties["mobile_number"] = input.CustomerPhone
	}

	body, err := g.do(ctx, http.MethodPost, "/ewallets/charges", map[string]interface{}{
		"reference_id":       input.ExternalID,
		"currency":           input.Currency,
		"amount":             input.Amount,
		"checkout_method":    "ONE_TIME_PAYMENT",
		"channel_code":       "ID_" + input.Channel,
		"channel_properties": properties,
		"metadata": map[string]string{
			"order_id":     input.OrderID,
			"callback_url": callbackURL,
		},
	})
	if err != nil {
		return nil, err
	}

	result, err := parseEWalletCharge(body)
	if err != nil {
		return nil, err
	}
	if result.ExpiresAt == nil {
		expiresAt := input.ExpiresAt
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

func (g *XenditGateway) createFixedPaymentCode(ctx context.Context, input *CreateInput) (*TransactionResult, error) {
	body, err := g.do(ctx, http.MethodPost, "/fixed_payment_code", map[string]interface{}{
		"external_id":        input.ExternalID,
		"retail_outlet_name": input.Channel,
		"name":               input.CustomerName,
		"expected_amount":    input.Amount,
		"is_single_use":      true,
		"expiration_date":    input.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	return parseFixedPaymentCode(body)
}

func (g *XenditGateway) createInvoice(ctx context.Context, input *CreateInput) (*TransactionResult, error) {
	duration := int64(time.Until(input.ExpiresAt).Seconds())
	if duration < 60 {
		duration = 60
	}

	body, err := g.do(ctx, http.MethodPost, "/v2/invoices", map[string]interface{}{
		"external_id":          input.ExternalID,
		"amount":               input.Amount,
		"currency":             input.Currency,
		"description":          input.Description,
		"payer_email":          input.CustomerEmail,
		"invoice_duration":     duration,
		"payment_methods":      []string{input.Channel},
		"success_redirect_url": g.successRedirectURL(input.OrderID),
		"customer": map[string]string{
			"given_names": input.CustomerName,
			"email":       input.CustomerEmail,
		},
	})
	if err != nil {
		return nil, err
	}
	return parseInvoice(body)
}

func (g *XenditGateway) successRedirectURL(orderID string) string {
	base := strings.TrimSpace(g.cfg.SuccessRedirectURL)
	if base == "" {
		return ""
	}
	if strings.Contains(base, "{order_id}") {
		return strings.ReplaceAll(base, "{order_id}", url.PathEscape(orderID))
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(orderID)
}

func (g *XenditGateway) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.cfg.SecretKey, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

func parseAPIError(statusCode int, body []byte) error {
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	if payload.ErrorCode == "" && payload.Message == "" {
		payload.Message = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: statusCode, Code: payload.ErrorCode, Message: payload.Message}
}

func parseVirtualAccount(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID             string `json:"id"`
		AccountNumber  string `json:"account_number"`
		Status         string `json:"status"`
		ExpirationDate string `json:"expiration_date"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &TransactionResult{
		ProviderReference:    strings.TrimSpace(payload.ID),
		Status:               virtualAccountStatus(payload.Status),
		VirtualAccountNumber: strings.TrimSpace(payload.AccountNumber),
		ExpiresAt:            parseGatewayTime(payload.ExpirationDate),
	}, nil
}

func parseQRCode(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID        string `json:"id"`
		QRString  string `json:"qr_string"`
		QRCodeURL string `json:"qr_code_url"`
		Status    string `json:"status"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	if status == "ACTIVE" {
		status = "PENDING"
	}

	return &TransactionResult{
		ProviderReference: strings.TrimSpace(payload.ID),
		Status:            status,
		QRString:          strings.TrimSpace(payload.QRString),
		QRCodeURL:         strings.TrimSpace(payload.QRCodeURL),
		ExpiresAt:         parseGatewayTime(payload.ExpiresAt),
	}, nil
}

func parseQRPayments(body []byte) (bool, error) {
	var payload struct {
		Data []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, err
	}
	for _, payment := range payload.Data {
		switch strings.ToUpper(strings.TrimSpace(payment.Status)) {
		case "SUCCEEDED", "COMPLETED":
			return true, nil
		}
	}
	return false, nil
}

func parseEWalletCharge(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		FailureCode string `json:"failure_code"`
		Actions     struct {
			DesktopWebCheckoutURL string `json:"desktop_web_checkout_url"`
			MobileWebCheckoutURL  string `json:"mobile_web_checkout_url"`
			MobileDeeplinkURL     string `json:"mobile_deeplink_checkout_url"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &TransactionResult{
		ProviderReference: strings.TrimSpace(payload.ID),
		Status:            strings.ToUpper(strings.TrimSpace(payload.Status)),
		CheckoutURL: firstNonEmpty(
			payload.Actions.DesktopWebCheckoutURL,
			payload.Actions.MobileWebCheckoutURL,
			payload.Actions.MobileDeeplinkURL,
		),
		FailureReason: strings.TrimSpace(payload.FailureCode),
	}, nil
}

func parseFixedPaymentCode(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID             string `json:"id"`
		PaymentCode    string `json:"payment_code"`
		Status         string `json:"status"`
		ExpirationDate string `json:"expiration_date"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &TransactionResult{
		ProviderReference: strings.TrimSpace(payload.ID),
		Status:            virtualAccountStatus(payload.Status),
		PaymentCode:       strings.TrimSpace(payload.PaymentCode),
		ExpiresAt:         parseGatewayTime(payload.ExpirationDate),
	}, nil
}

func parseInvoice(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		InvoiceURL string `json:"invoice_url"`
		ExpiryDate string `json:"expiry_date"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	invoiceURL := strings.TrimSpace(payload.InvoiceURL)
	return &TransactionResult{
		ProviderReference: strings.TrimSpace(payload.ID),
		Status:            strings.ToUpper(strings.TrimSpace(payload.Status)),
		CheckoutURL:       invoiceURL,
		InvoiceURL:        invoiceURL,
		ExpiresAt:         parseGatewayTime(payload.ExpiryDate),
	}, nil
}

func parseCardCharge(body []byte) (*TransactionResult, error) {
	var payload struct {
		ID                     string `json:"id"`
		Status                 string `json:"status"`
		CardBrand              string `json:"card_brand"`
		FailureReason          string `json:"failure_reason"`
		PayerAuthenticationURL string `json:"payer_authentication_url"`
		RedirectURL            string `json:"redirect_url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return &TransactionResult{
		ProviderReference: strings.TrimSpace(payload.ID),
		Status:            strings.ToUpper(strings.TrimSpace(payload.Status)),
		CardBrand:         strings.ToUpper(strings.TrimSpace(payload.CardBrand)),
		CheckoutURL:       firstNonEmpty(payload.PayerAuthenticationURL, payload.RedirectURL),
		FailureReason:     strings.TrimSpace(payload.FailureReason),
	}, nil
}

// parseCallback accepts both the flat callback body and the {event, data} envelope.
func parseCallback(payload []byte) (*CallbackEvent, error) {
	var body struct {
		Event          string          `json:"event"`
		ID             string          `json:"id"`
		ExternalID     string          `json:"external_id"`
		ReferenceID    string          `json:"reference_id"`
		Status         string          `json:"status"`
		PaymentID      string          `json:"payment_id"`
		CallbackVAID   string          `json:"callback_virtual_account_id"`
		FixedPaymentID string          `json:"fixed_payment_code_id"`
		FailureCode    string          `json:"failure_code"`
		FailureReason  string          `json:"failure_reason"`
		Data           json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, err
	}

	if len(body.Data) > 0 && string(body.Data) != "null" {
		inner, err := parseCallback(body.Data)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(body.Event) != "" {
			inner.EventType = strings.TrimSpace(body.Event)
		}
		return inner, nil
	}

	event := &CallbackEvent{
		EventType:     strings.TrimSpace(body.Event),
		ExternalID:    firstNonEmpty(body.ExternalID, body.ReferenceID),
		Status:        strings.ToUpper(strings.TrimSpace(body.Status)),
		FailureReason: firstNonEmpty(body.FailureReason, body.FailureCode),
	}

	switch {
	case body.CallbackVAID != "":
		// Virtual account payment notifications carry no status; their arrival means paid.
		event.ProviderReference = strings.TrimSpace(body.CallbackVAID)
		if event.Status == "" {
			event.Status = "PAID"
		}
	case body.FixedPaymentID != "":
		event.ProviderReference = strings.TrimSpace(body.FixedPaymentID)
		if event.Status == "" || event.Status == "SETTLING" {
			event.Status = "PAID"
		}
	default:
		event.ProviderReference = strings.TrimSpace(body.ID)
	}

	if event.Status == "" && strings.TrimSpace(body.PaymentID) != "" {
		event.Status = "PAID"
	}
	if event.EventType == "" {
		event.EventType = "payment." + strings.ToLower(event.Status)
	}
	if event.ExternalID == "" && event.ProviderReference == "" {
		return nil, errors.New("callback carries no transaction reference")
	}

	return event, nil
}

func virtualAccountStatus(raw string) string {
	switch status := strings.ToUpper(strings.TrimSpace(raw)); status {
	case "ACTIVE", "PENDING", "":
		return "PENDING"
	case "INACTIVE":
		// Single-use accounts go inactive both when paid and when expired.
		return "INACTIVE"
	default:
		return status
	}
}

func parseGatewayTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func verifyCallbackToken(got, want string) bool {
	got = strings.TrimSpace(got)
	want = strings.TrimSpace(want)
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func joinCallbackURL(baseURL, callbackHash string) string {
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	callbackHash = strings.TrimSpace(callbackHash)
	if baseURL == "" || callbackHash == "" {
		return ""
	}
	return baseURL + "/" + callbackHash
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
