package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type CreateInput struct {
	OrderID      string
	ExternalID   string
	CallbackHash string

	Amount   int64
	Currency string

	Method  types.PaymentMethod
	Channel string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Description   string

	ExpiresAt time.Time
}

type ChargeInput struct {
	ExternalID string
	TokenID    string
	CardBrand  string
	Amount     int64
	Currency   string
}

// TransactionResult is the gateway's view of a payment attempt. Status is the raw gateway value.
type TransactionResult struct {
	ProviderReference string
	Status            string

	VirtualAccountNumber string
	QRCodeURL            string
	QRString             string
	PaymentCode          string
	CheckoutURL          string
	InvoiceURL           string
	CardBrand            string

	ExpiresAt     *time.Time
	FailureReason string
}

type CallbackEvent struct {
	EventType         string
	ExternalID        string
	ProviderReference string
	Status            string
	FailureReason     string
}

type Gateway interface {
	Code() string
	Methods() []types.PaymentMethod
	CreateTransaction(ctx context.Context, input *CreateInput) (*TransactionResult, error)
	ChargeCard(ctx context.Context, input *ChargeInput) (*TransactionResult, error)
	GetTransactionStatus(ctx context.Context, method types.PaymentMethod, providerReference string) (*TransactionResult, error)
	VerifyAndParseCallback(ctx context.Context, payload []byte, callbackToken string) (*CallbackEvent, error)
}

// APIError carries the gateway's own rejection message so it can be shown verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway request failed: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway request failed: status=%d code=%s", e.StatusCode, e.Code)
}
