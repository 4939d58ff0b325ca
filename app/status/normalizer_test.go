package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func TestEffectiveStatusIsIdempotent(t *testing.T) {
	snapshots := []Snapshot{
		{OrderStatus: types.OrderStatusPending},
		{OrderStatus: types.OrderStatusPending, TransactionExpiresAt: at(-time.Second)},
		{OrderStatus: types.OrderStatusAwaitingConfirmation, PaymentStatus: "PAID", OrderExpiresAt: at(-time.Hour)},
		{OrderStatus: types.OrderStatusDone, TransactionExpiresAt: at(time.Hour)},
	}

	for _, s := range snapshots {
		first := EffectiveStatus(s, testNow)
		second := EffectiveStatus(s, testNow)
		assert.Equal(t, first, second)
	}
}

func TestEffectiveStatusTerminalStability(t *testing.T) {
	terminal := []types.OrderStatus{
		types.OrderStatusDone,
		types.OrderStatusCancelled,
		types.OrderStatusCancelledByUser,
		types.OrderStatusCancelledByAdmin,
		types.OrderStatusPaymentInvalid,
		types.OrderStatusRefunded,
	}
	expiries := []*time.Time{nil, at(-24 * time.Hour), at(-time.Second), at(time.Second), at(24 * time.Hour)}

	for _, st := range terminal {
		for _, exp := range expiries {
			s := Snapshot{OrderStatus: st, PaymentStatus: "pending", TransactionExpiresAt: exp}
			assert.Equal(t, st, EffectiveStatus(s, testNow), "status %s", st)
		}
	}
}

func TestEffectiveStatusExpiryCancels(t *testing.T) {
	s := Snapshot{
		OrderStatus:          types.OrderStatusPending,
		PaymentStatus:        "pending",
		TransactionExpiresAt: at(-time.Second),
	}
	assert.Equal(t, types.OrderStatusCancelledByAdmin, EffectiveStatus(s, testNow))

	s.OrderStatus = types.OrderStatusAwaitingConfirmation
	assert.Equal(t, types.OrderStatusCancelledByAdmin, EffectiveStatus(s, testNow))

	s.OrderStatus = types.OrderStatusProcessing
	assert.Equal(t, types.OrderStatusProcessing, EffectiveStatus(s, testNow))
}

func TestEffectiveStatusExpiryBoundaryIsInclusive(t *testing.T) {
	s := Snapshot{OrderStatus: types.OrderStatusPending, OrderExpiresAt: at(0)}
	assert.Equal(t, types.OrderStatusCancelledByAdmin, EffectiveStatus(s, testNow))

	s.OrderExpiresAt = at(time.Nanosecond)
	assert.Equal(t, types.OrderStatusPending, EffectiveStatus(s, testNow))
}

func TestEffectiveStatusSuccessShortCircuit(t *testing.T) {
	for _, ps := range []string{"settled", "SETTLED", "Settled", "paid", "Completed", "success", "SUCCEEDED", "captured"} {
		s := Snapshot{
			OrderStatus:          types.OrderStatusPending,
			PaymentStatus:        ps,
			TransactionExpiresAt: at(-time.Hour),
		}
		assert.Equal(t, types.OrderStatusPending, EffectiveStatus(s, testNow), "payment status %s", ps)
	}
}

func TestEffectiveStatusFallsBackToTransactionStatus(t *testing.T) {
	s := Snapshot{
		OrderStatus:          types.OrderStatusPending,
		TransactionStatus:    "PAID",
		TransactionExpiresAt: at(-time.Minute),
	}
	assert.Equal(t, types.OrderStatusPending, EffectiveStatus(s, testNow))
	assert.True(t, s.Paid())
}

func TestExpiryPrefersTransaction(t *testing.T) {
	s := Snapshot{OrderExpiresAt: at(time.Hour), TransactionExpiresAt: at(-time.Second)}
	require.NotNil(t, s.Expiry())
	assert.Equal(t, *at(-time.Second), *s.Expiry())
	assert.Equal(t, types.OrderStatusCancelledByAdmin, EffectiveStatus(Snapshot{
		OrderStatus:          types.OrderStatusPending,
		OrderExpiresAt:       s.OrderExpiresAt,
		TransactionExpiresAt: s.TransactionExpiresAt,
	}, testNow))
}

func TestRemainingClampsAtZero(t *testing.T) {
	left, ok := Snapshot{TransactionExpiresAt: at(90 * time.Second)}.Remaining(testNow)
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, left)

	left, ok = Snapshot{TransactionExpiresAt: at(-90 * time.Second)}.Remaining(testNow)
	require.True(t, ok)
	assert.Zero(t, left)

	_, ok = Snapshot{}.Remaining(testNow)
	assert.False(t, ok)
}

func TestEffectiveOverWireTypes(t *testing.T) {
	order := &types.Order{
		Id:     "ord-1",
		Status: types.OrderStatusPending,
		LatestTransaction: &types.PaymentTransaction{
			Status:    "PENDING",
			ExpiresAt: testNow.Add(-time.Second).Format(time.RFC3339),
		},
	}
	assert.Equal(t, types.OrderStatusCancelledByAdmin, Effective(order, nil, testNow))
	assert.False(t, IsPaid(order, nil))

	order.PaymentStatus = "paid"
	assert.Equal(t, types.OrderStatusPending, Effective(order, nil, testNow))
	assert.True(t, IsPaid(order, nil))

	order.LatestTransaction.ExpiresAt = "not a timestamp"
	assert.Nil(t, Expiry(order, nil))
}

func TestDescribeRefundTones(t *testing.T) {
	assert.Equal(t, ToneWarning, DescribeRefund(types.RefundStatusPending).Tone)
	assert.Equal(t, ToneSuccess, DescribeRefund(types.RefundStatusRefunded).Tone)
	assert.Equal(t, ToneDanger, DescribeRefund(types.RefundStatusRejected).Tone)
	assert.Equal(t, ToneInfo, DescribeRefund(types.RefundStatusNone).Tone)
	assert.Equal(t, ToneInfo, DescribeRefund("unexpected").Tone)
}

func TestStatusClassifiers(t *testing.T) {
	assert.True(t, IsRequiresAction("REQUIRES_ACTION"))
	assert.False(t, IsRequiresAction("PENDING"))
	assert.True(t, IsPaymentFailure("FAILED"))
	assert.True(t, IsPaymentExpired("EXPIRED"))
	assert.False(t, IsTerminal(types.OrderStatusPending))
	assert.False(t, IsTerminal(types.OrderStatusProcessing))
	assert.True(t, IsTerminal(types.OrderStatusRefunded))
}
