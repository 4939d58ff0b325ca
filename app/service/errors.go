package service

import (
	"errors"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/provider"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyExists  = errors.New("order already exists")
	ErrAccessDenied        = errors.New("access denied")
	ErrOrderClosed         = errors.New("order is closed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRatingExists        = errors.New("order already rated")
	ErrChannelUnavailable  = errors.New("payment channel unavailable")
	ErrMethodUnsupported   = errors.New("payment method is not supported")
	ErrGateway             = errors.New("payment gateway error")
	ErrCallbackRejected    = errors.New("callback rejected")
	ErrTransactionNotFound = errors.New("payment transaction not found")
)

// GatewayError carries the message the gateway returned so it can be shown verbatim.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrGateway, e.Err}
}

func newGatewayError(err error) error {
	message := "Payment gateway request failed"
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		message = strings.TrimSpace(apiErr.Message)
	}
	return &GatewayError{Message: message, Err: err}
}
