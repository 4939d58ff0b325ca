package status

import (
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

// FromOrder builds a snapshot from the wire representation of an order and its latest transaction.
// tx may be nil, in which case order.LatestTransaction is used.
func FromOrder(order *types.Order, tx *types.PaymentTransaction) Snapshot {
	if order == nil {
		return Snapshot{}
	}
	if tx == nil {
		tx = order.LatestTransaction
	}

	s := Snapshot{
		OrderStatus:    order.Status,
		PaymentStatus:  order.PaymentStatus,
		OrderExpiresAt: parseTime(order.PaymentExpiresAt),
	}
	if tx != nil {
		s.TransactionStatus = tx.Status
		s.TransactionExpiresAt = parseTime(tx.ExpiresAt)
	}
	return s
}

// Effective is EffectiveStatus over wire types.
func Effective(order *types.Order, tx *types.PaymentTransaction, now time.Time) types.OrderStatus {
	return EffectiveStatus(FromOrder(order, tx), now)
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}

// IsPaid reports whether the order or its transaction carries a successful payment status.
func IsPaid(order *types.Order, tx *types.PaymentTransaction) bool {
	return FromOrder(order, tx).Paid()
}

func Expiry(order *types.Order, tx *types.PaymentTransaction) *time.Time {
	return FromOrder(order, tx).Expiry()
}

func Remaining(order *types.Order, tx *types.PaymentTransaction, now time.Time) (time.Duration, bool) {
	return FromOrder(order, tx).Remaining(now)
}
