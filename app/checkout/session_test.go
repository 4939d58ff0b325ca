package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

var sessionStart = time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)

func qrisOrder(expiresAt time.Time) *types.Order {
	return &types.Order{
		Id:            "ord-qr",
		Status:        types.OrderStatusPending,
		PaymentStatus: "pending",
		Amount:        150000,
		Currency:      "IDR",
		PaymentMethod: types.PaymentMethodQRIS,
		LatestTransaction: &types.PaymentTransaction{
			Method:    types.PaymentMethodQRIS,
			Channel:   "QRIS",
			Status:    "PENDING",
			QrCodeUrl: "https://qr.example.com/ord-qr.png",
			ExpiresAt: expiresAt.Format(time.RFC3339),
		},
	}
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "00:05:00", FormatCountdown(5*time.Minute))
	assert.Equal(t, "00:04:59", FormatCountdown(4*time.Minute+59*time.Second+900*time.Millisecond))
	assert.Equal(t, "25:00:01", FormatCountdown(25*time.Hour+time.Second))
	assert.Equal(t, "00:00:00", FormatCountdown(-time.Second))
}

func TestSessionQRISCountdownThenExpiry(t *testing.T) {
	clock := newFakeClock(sessionStart)
	api := &fakeAPI{getOrderFn: staticOrder(qrisOrder(sessionStart.Add(300 * time.Second)))}

	var mu sync.Mutex
	var ticks []Countdown
	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{
		TickInterval: 5 * time.Millisecond,
		Now:          clock.Now,
		OnCountdown: func(c Countdown) {
			mu.Lock()
			ticks = append(ticks, c)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer s.Close()

	clock.Advance(time.Second)
	first := s.Countdown()
	assert.True(t, strings.HasPrefix(first.Display, "00:04:5"), first.Display)
	_, ok := s.View().Instruction.(QRInstruction)
	assert.True(t, ok)

	clock.Advance(time.Second)
	assert.Equal(t, first.Remaining-time.Second, s.Countdown().Remaining)
	assert.Equal(t, types.OrderStatusPending, s.View().Effective)

	clock.Advance(299 * time.Second)
	assert.Equal(t, types.OrderStatusCancelledByAdmin, s.View().Effective)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ticks) > 0 && ticks[len(ticks)-1].Expired
	}, time.Second, 5*time.Millisecond)
}

func TestSessionOpenNotFoundStartsNothing(t *testing.T) {
	api := &fakeAPI{}

	s, err := Open(context.Background(), api, "missing", SessionOptions{PollInterval: time.Millisecond})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, s)

	time.Sleep(10 * time.Millisecond)
	get, _, _, _, _ := api.calls()
	assert.Equal(t, 1, get)
}

func TestSessionOpenAccessDenied(t *testing.T) {
	api := &fakeAPI{getOrderFn: func(context.Context, string, bool) (*types.Order, error) { return nil, ErrAccessDenied }}

	_, err := Open(context.Background(), api, "ord-1", SessionOptions{})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSessionConfirmPaymentSchedulesRedirect(t *testing.T) {
	clock := newFakeClock(sessionStart)
	pending := qrisOrder(sessionStart.Add(time.Hour))
	paid := qrisOrder(sessionStart.Add(time.Hour))
	paid.Status = types.OrderStatusAwaitingConfirmation
	paid.PaymentStatus = "paid"

	api := &fakeAPI{}
	api.getOrderFn = func(_ context.Context, _ string, sync bool) (*types.Order, error) {
		if sync {
			return paid, nil
		}
		return pending, nil
	}

	confirmed := make(chan *types.Order, 1)
	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{
		Now:                  clock.Now,
		ConfirmRedirectDelay: 10 * time.Millisecond,
		OnConfirmed:          func(o *types.Order) { confirmed <- o },
	})
	require.NoError(t, err)
	defer s.Close()

	view, err := s.ConfirmPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Paid)

	select {
	case o := <-confirmed:
		assert.Equal(t, types.OrderStatusAwaitingConfirmation, o.Status)
	case <-time.After(time.Second):
		t.Fatal("confirmation redirect did not fire")
	}

	_, sync, _, _, _ := api.calls()
	assert.Equal(t, 1, sync)
}

func TestSessionConfirmPaymentNotDetected(t *testing.T) {
	api := &fakeAPI{getOrderFn: staticOrder(qrisOrder(time.Now().Add(time.Hour)))}
	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{})
	require.NoError(t, err)
	defer s.Close()

	view, err := s.ConfirmPayment(context.Background())
	assert.ErrorIs(t, err, ErrPaymentNotDetected)
	assert.Equal(t, types.OrderStatusPending, view.Effective)
}

func TestSessionConfirmPaymentSurfacesNetworkFailure(t *testing.T) {
	order := qrisOrder(time.Now().Add(time.Hour))
	api := &fakeAPI{}
	api.getOrderFn = func(_ context.Context, _ string, sync bool) (*types.Order, error) {
		if sync {
			return nil, errors.New("connection refused")
		}
		return order, nil
	}
	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{})
	require.NoError(t, err)
	defer s.Close()

	view, err := s.ConfirmPayment(context.Background())
	assert.True(t, IsTransient(err))
	assert.Equal(t, order.Id, view.Order.Id)
}

func TestSessionLastWriteWins(t *testing.T) {
	older := qrisOrder(time.Now().Add(time.Hour))
	newer := qrisOrder(time.Now().Add(time.Hour))
	newer.Status = types.OrderStatusAwaitingConfirmation
	newer.PaymentStatus = "paid"

	release := make(chan struct{})
	var calls int32
	api := &fakeAPI{}
	api.getOrderFn = func(context.Context, string, bool) (*types.Order, error) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			return older, nil
		case 2:
			<-release
			return older, nil
		default:
			return newer, nil
		}
	}

	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{})
	require.NoError(t, err)
	defer s.Close()

	slow := make(chan View, 1)
	go func() {
		view, _ := s.Refresh(context.Background())
		slow <- view
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, time.Millisecond)

	fast, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusAwaitingConfirmation, fast.Effective)

	close(release)
	stale := <-slow
	assert.Equal(t, types.OrderStatusAwaitingConfirmation, stale.Effective)
	assert.Equal(t, types.OrderStatusAwaitingConfirmation, s.View().Effective)
}

func TestSessionPollingStopsAtTerminalAndOnClose(t *testing.T) {
	var calls int32
	cancelled := qrisOrder(time.Now().Add(time.Hour))
	cancelled.Status = types.OrderStatusCancelledByUser
	api := &fakeAPI{}
	api.getOrderFn = func(context.Context, string, bool) (*types.Order, error) {
		if atomic.AddInt32(&calls, 1) >= 3 {
			return cancelled, nil
		}
		return qrisOrder(time.Now().Add(time.Hour)), nil
	}

	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{PollInterval: 2 * time.Millisecond, TickInterval: 2 * time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.View().Effective == types.OrderStatusCancelledByUser }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	s.Close()
	s.Close()
	_, err = s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionPollingSwallowsErrors(t *testing.T) {
	var calls int32
	api := &fakeAPI{}
	api.getOrderFn = func(context.Context, string, bool) (*types.Order, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return qrisOrder(time.Now().Add(time.Hour)), nil
		}
		return nil, &TransientError{Err: errors.New("timeout")}
	}

	s, err := Open(context.Background(), api, "ord-qr", SessionOptions{PollInterval: 2 * time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) > 3 }, time.Second, time.Millisecond)
	assert.Equal(t, types.OrderStatusPending, s.View().Effective)
	s.Close()
}
