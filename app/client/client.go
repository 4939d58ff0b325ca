package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-checkout/app/checkout"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

var (
	_ checkout.OrderCreator    = (*Client)(nil)
	_ checkout.CardCharger     = (*Client)(nil)
	_ checkout.ActionPerformer = (*Client)(nil)
	_ checkout.CardTokenizer   = (*Tokenizer)(nil)
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials CredentialProvider
	// APIKey is sent as X-API-Key on admin calls.
	APIKey string
}

type Client struct {
	baseURL     string
	http        *http.Client
	credentials CredentialProvider
	apiKey      string
	requestID   func() string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	credentials := cfg.Credentials
	if credentials == nil {
		credentials = NewTokenStore()
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:        &http.Client{Timeout: timeout},
		credentials: credentials,
		apiKey:      cfg.APIKey,
		requestID:   func() string { return uuid.NewString() },
	}
}

func (c *Client) GetOrder(ctx context.Context, orderID string, sync bool) (*types.Order, error) {
	path := "/orders/" + url.PathEscape(orderID)
	if sync {
		path += "?sync=true"
	}
	var resp types.OrderEnvelopeResponse
	if err := c.orderCall(ctx, orderID, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) ListPaymentChannels(ctx context.Context) ([]*types.PaymentChannelStatus, error) {
	var resp types.ListPaymentChannelsResponse
	if err := c.do(ctx, http.MethodGet, "/payment-channels", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// CreateOrder posts the order and hands the issued access token to the credential provider when it
// can keep it.
func (c *Client) CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.CreateOrderResponse, error) {
	headers := http.Header{}
	if req.RequestId != "" {
		headers.Set(requestIDHeader, req.RequestId)
	}
	var resp types.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders", headers, req, &resp); err != nil {
		return nil, err
	}
	if saver, ok := c.credentials.(TokenSaver); ok && resp.Order != nil && resp.AccessToken != "" {
		saver.SaveOrderToken(resp.Order.Id, resp.AccessToken)
	}
	return &resp, nil
}

func (c *Client) ChargeCard(ctx context.Context, orderID, tokenID, cardBrand string) (*types.CardChargeResponse, error) {
	body := map[string]string{"token_id": tokenID, "card_brand": cardBrand}
	var resp types.CardChargeResponse
	if err := c.orderCall(ctx, orderID, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/card-charge", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PerformAction(ctx context.Context, orderID string, action types.OrderAction, reason string) (*types.Order, error) {
	body := map[string]string{"action": string(action), "reason": reason}
	var resp types.OrderEnvelopeResponse
	if err := c.orderCall(ctx, orderID, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/actions", body, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

func (c *Client) SubmitRating(ctx context.Context, orderID string, rating int32, review string) (*types.Order, error) {
	body := map[string]interface{}{"rating": rating, "review": review}
	var resp types.OrderEnvelopeResponse
	if err := c.orderCall(ctx, orderID, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/rating", body, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// AdminSetStatus force-sets an order status through the internal admin endpoint.
func (c *Client) AdminSetStatus(ctx context.Context, orderID string, status types.OrderStatus, note string) (*types.Order, error) {
	headers := http.Header{}
	headers.Set("X-API-Key", c.apiKey)
	body := map[string]string{"status": string(status), "note": note}
	var resp types.OrderEnvelopeResponse
	if err := c.do(ctx, http.MethodPost, "/admin/orders/"+url.PathEscape(orderID)+"/status", headers, body, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

const requestIDHeader = "X-Request-ID"

func (c *Client) orderCall(ctx context.Context, orderID, method, path string, body, out interface{}) error {
	token, err := c.credentials.OrderToken(ctx, orderID)
	if err != nil {
		return fmt.Errorf("resolve order token: %w", err)
	}
	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	return c.do(ctx, method, path, headers, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, headers http.Header, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, c.requestID())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &checkout.TransientError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &checkout.TransientError{Err: err}
	}
	if resp.StatusCode >= 400 {
		return mapStatus(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// mapStatus turns a checkout service error response into the checkout error taxonomy.
func mapStatus(statusCode int, body []byte) error {
	var payload types.ErrorResponse
	_ = json.Unmarshal(body, &payload)
	message := strings.TrimSpace(payload.Error)

	switch {
	case statusCode == http.StatusNotFound:
		return checkout.ErrNotFound
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return checkout.ErrAccessDenied
	case statusCode == http.StatusConflict:
		switch {
		case strings.HasPrefix(message, "order is closed"):
			return fmt.Errorf("%w: %s", checkout.ErrClosed, message)
		case strings.HasPrefix(message, "payment channel unavailable"):
			return fmt.Errorf("%w: %s", checkout.ErrChannelUnavailable, message)
		default:
			return fmt.Errorf("%w: %s", checkout.ErrConflict, message)
		}
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity:
		return &checkout.ValidationError{Message: message}
	case statusCode == http.StatusBadGateway:
		return &checkout.GatewayError{Message: message}
	case statusCode >= 500, statusCode == http.StatusTooManyRequests:
		return &checkout.TransientError{Err: fmt.Errorf("status %d: %s", statusCode, message)}
	default:
		return fmt.Errorf("unexpected status %d: %s", statusCode, message)
	}
}
