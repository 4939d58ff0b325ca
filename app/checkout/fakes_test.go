package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeAPI struct {
	mu sync.Mutex

	getOrderFn      func(ctx context.Context, orderID string, sync bool) (*types.Order, error)
	listChannelsFn  func(ctx context.Context) ([]*types.PaymentChannelStatus, error)
	createOrderFn   func(ctx context.Context, req *types.CreateOrderRequest) (*types.CreateOrderResponse, error)
	chargeCardFn    func(ctx context.Context, orderID, tokenID, cardBrand string) (*types.CardChargeResponse, error)
	performActionFn func(ctx context.Context, orderID string, action types.OrderAction, reason string) (*types.Order, error)
	submitRatingFn  func(ctx context.Context, orderID string, rating int32, review string) (*types.Order, error)

	getOrderCalls int
	syncCalls     int
	createCalls   int
	listCalls     int
	actionCalls   int
}

func (f *fakeAPI) GetOrder(ctx context.Context, orderID string, sync bool) (*types.Order, error) {
	f.mu.Lock()
	f.getOrderCalls++
	if sync {
		f.syncCalls++
	}
	fn := f.getOrderFn
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrNotFound
	}
	return fn(ctx, orderID, sync)
}

func (f *fakeAPI) ListPaymentChannels(ctx context.Context) ([]*types.PaymentChannelStatus, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listChannelsFn == nil {
		return nil, nil
	}
	return f.listChannelsFn(ctx)
}

func (f *fakeAPI) CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.CreateOrderResponse, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	return f.createOrderFn(ctx, req)
}

func (f *fakeAPI) ChargeCard(ctx context.Context, orderID, tokenID, cardBrand string) (*types.CardChargeResponse, error) {
	return f.chargeCardFn(ctx, orderID, tokenID, cardBrand)
}

func (f *fakeAPI) PerformAction(ctx context.Context, orderID string, action types.OrderAction, reason string) (*types.Order, error) {
	f.mu.Lock()
	f.actionCalls++
	f.mu.Unlock()
	return f.performActionFn(ctx, orderID, action, reason)
}

func (f *fakeAPI) SubmitRating(ctx context.Context, orderID string, rating int32, review string) (*types.Order, error) {
	f.mu.Lock()
	f.actionCalls++
	f.mu.Unlock()
	return f.submitRatingFn(ctx, orderID, rating, review)
}

func (f *fakeAPI) calls() (get, sync, create, list, action int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getOrderCalls, f.syncCalls, f.createCalls, f.listCalls, f.actionCalls
}

type fakeTokenizer struct {
	tokenizeFn func(ctx context.Context, req TokenizeRequest) (*CardToken, error)
	calls      int
}

func (f *fakeTokenizer) Tokenize(ctx context.Context, req TokenizeRequest) (*CardToken, error) {
	f.calls++
	return f.tokenizeFn(ctx, req)
}

type recordingRedirector struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (r *recordingRedirector) Redirect(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	return r.err
}

func staticOrder(order *types.Order) func(context.Context, string, bool) (*types.Order, error) {
	return func(context.Context, string, bool) (*types.Order, error) {
		copied := *order
		return &copied, nil
	}
}
