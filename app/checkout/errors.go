package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the order id does not resolve.
	ErrNotFound = errors.New("order not found")
	// ErrAccessDenied means the order exists but the credentials do not grant access to it.
	ErrAccessDenied = errors.New("access denied")
	// ErrClosed means the order can no longer be paid or acted on.
	ErrClosed = errors.New("order is no longer available")
	// ErrChannelUnavailable means the chosen payment channel was disabled.
	ErrChannelUnavailable = errors.New("payment channel unavailable")
	// ErrConflict is any other state conflict reported by the server.
	ErrConflict = errors.New("order state conflict")

	ErrPaymentNotDetected = errors.New("payment not detected yet; please try again in a moment")
	ErrCardTimeout        = errors.New("card payment is taking longer than expected; please try again")
	ErrCardBusy           = errors.New("card payment already in progress")
	ErrCardFinished       = errors.New("card payment already completed")
	ErrCardPending        = errors.New("card payment is still being confirmed")
	ErrStepUpUnavailable  = errors.New("card requires verification but no verification link was provided")
	ErrSessionClosed      = errors.New("session closed")
)

const genericGatewayMessage = "Payment could not be processed. Please try again."

// ValidationError is a local, field-scoped input problem. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GatewayError is a tokenization or charge rejection. Message is shown to the customer as is.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return genericGatewayMessage
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// TransientError wraps network and server failures that are worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("temporary failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable network or server failure.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// GatewayMessage returns the customer-facing message for a failed card or order request.
func GatewayMessage(err error) string {
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Error()
	}
	return genericGatewayMessage
}
