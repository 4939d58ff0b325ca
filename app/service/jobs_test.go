package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

func TestRunExpirePendingBatchCancelsUnpaid(t *testing.T) {
	f := newServiceFixture()
	f.seedOrder("ord-exp", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(-time.Minute))
	f.seedOrder("ord-live", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(time.Hour))
	f.seedOrder("ord-paid", types.PaymentMethodQRIS, types.OrderStatusAwaitingConfirmation, time.Now().Add(-time.Minute))
	paid := f.orders.get("ord-paid")
	paid.PaymentStatus = stringPtr(paymentStatusPaid)
	f.orders.put(paid)

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := f.orders.get("ord-exp")
	if expired.Status != string(types.OrderStatusCancelledByAdmin) || derefString(expired.PaymentStatus) != paymentStatusExpired {
		t.Fatalf("expected cancelled_by_admin/expired, got %s/%s", expired.Status, derefString(expired.PaymentStatus))
	}
	if got := f.orders.get("ord-live"); got.Status != string(types.OrderStatusPending) {
		t.Fatalf("live order must stay pending, got %s", got.Status)
	}
	if got := f.orders.get("ord-paid"); got.Status != string(types.OrderStatusAwaitingConfirmation) {
		t.Fatalf("paid order must not expire, got %s", got.Status)
	}

	ev := f.events.last()
	if ev == nil || ev.EventType != "order_expired" || ev.Source != string(types.EventSourceJob) {
		t.Fatalf("unexpected event %+v", ev)
	}

	if err := f.svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("second run must be a no-op, got %v", err)
	}
}

func TestRunReconcileBatchPullsGatewayStatus(t *testing.T) {
	f := newServiceFixture()
	f.seedOrder("ord-a", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(time.Hour))
	f.seedOrder("ord-b", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(time.Hour))
	f.gateway.statusFn = func(_ types.PaymentMethod, reference string) (*provider.TransactionResult, error) {
		if reference == "ref-ord-a" {
			return &provider.TransactionResult{Status: "PAID"}, nil
		}
		return &provider.TransactionResult{Status: "FAILED", FailureReason: "insufficient balance"}, nil
	}

	if err := f.svc.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.orders.get("ord-a"); got.Status != string(types.OrderStatusAwaitingConfirmation) {
		t.Fatalf("expected ord-a awaiting_confirmation, got %s", got.Status)
	}
	if got := f.orders.get("ord-b"); got.Status != string(types.OrderStatusPaymentInvalid) {
		t.Fatalf("expected ord-b payment_invalid, got %s", got.Status)
	}
	tx, _ := f.txs.FindByOrderID(context.Background(), "ord-b")
	if derefString(tx.FailureReason) != "insufficient balance" {
		t.Fatalf("expected failure reason stored, got %v", tx.FailureReason)
	}
}

func TestRunReconcileBatchKeepsGoingAfterFailure(t *testing.T) {
	f := newServiceFixture()
	f.seedOrder("ord-a", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(time.Hour))
	f.seedOrder("ord-b", types.PaymentMethodQRIS, types.OrderStatusPending, time.Now().Add(time.Hour))
	f.gateway.statusFn = func(_ types.PaymentMethod, reference string) (*provider.TransactionResult, error) {
		if reference == "ref-ord-a" {
			return nil, errors.New("gateway timeout")
		}
		return &provider.TransactionResult{Status: "PAID"}, nil
	}

	if err := f.svc.RunReconcileBatch(context.Background()); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected gateway error to be reported, got %v", err)
	}
	if got := f.orders.get("ord-b"); got.Status != string(types.OrderStatusAwaitingConfirmation) {
		t.Fatalf("healthy order must still reconcile, got %s", got.Status)
	}
}

func TestKeepFirstErr(t *testing.T) {
	first := errors.New("first")
	if keepFirstErr(nil, first) != first {
		t.Fatal("expected candidate when current is nil")
	}
	if keepFirstErr(first, errors.New("second")) != first {
		t.Fatal("expected first error to be kept")
	}
}
