// Package status folds the order record, the latest payment transaction and wall-clock expiry into a
// single effective order status. Everything here is pure: no I/O, no clock reads.
package status

import (
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

// Snapshot is the subset of order and transaction state the normalizer looks at.
// Empty strings and nil times mean "absent".
type Snapshot struct {
	OrderStatus    types.OrderStatus
	PaymentStatus  string
	OrderExpiresAt *time.Time

	TransactionStatus    string
	TransactionExpiresAt *time.Time
}

// EffectiveStatus applies, in order: terminal passthrough, payment-success passthrough,
// expiry-to-cancellation and finally the raw order status.
func EffectiveStatus(s Snapshot, now time.Time) types.OrderStatus {
	if IsTerminal(s.OrderStatus) {
		return s.OrderStatus
	}

	if IsPaymentSuccess(s.paymentStatus()) {
		return s.OrderStatus
	}

	if expiry := s.Expiry(); expiry != nil && !now.Before(*expiry) {
		switch s.OrderStatus {
		case types.OrderStatusPending, types.OrderStatusAwaitingConfirmation:
			return types.OrderStatusCancelledByAdmin
		}
	}

	return s.OrderStatus
}

// Paid reports whether the snapshot carries a successful payment signal.
func (s Snapshot) Paid() bool {
	return IsPaymentSuccess(s.paymentStatus())
}

// Expiry prefers the transaction's expiry over the order's denormalized copy.
func (s Snapshot) Expiry() *time.Time {
	if s.TransactionExpiresAt != nil {
		return s.TransactionExpiresAt
	}
	return s.OrderExpiresAt
}

// Remaining returns the time left until expiry, clamped at zero. ok is false without an expiry.
func (s Snapshot) Remaining(now time.Time) (time.Duration, bool) {
	expiry := s.Expiry()
	if expiry == nil {
		return 0, false
	}
	left := expiry.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s Snapshot) paymentStatus() string {
	if v := strings.TrimSpace(s.PaymentStatus); v != "" {
		return v
	}
	return strings.TrimSpace(s.TransactionStatus)
}

func IsTerminal(st types.OrderStatus) bool {
	raw := string(st)
	switch {
	case st == types.OrderStatusDone, st == types.OrderStatusPaymentInvalid:
		return true
	case strings.HasPrefix(raw, "cancelled"), strings.HasPrefix(raw, "refund"):
		return true
	default:
		return false
	}
}

func IsPaymentSuccess(paymentStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(paymentStatus)) {
	case "paid", "completed", "success", "settled", "succeeded", "captured":
		return true
	default:
		return false
	}
}

func IsRequiresAction(paymentStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(paymentStatus)) {
	case "requires_action", "requires-action", "requiresaction":
		return true
	default:
		return false
	}
}

func IsPaymentFailure(paymentStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(paymentStatus)) {
	case "failed", "failure", "declined", "voided", "rejected":
		return true
	default:
		return false
	}
}

func IsPaymentExpired(paymentStatus string) bool {
	return strings.EqualFold(strings.TrimSpace(paymentStatus), "expired")
}
