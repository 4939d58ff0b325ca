package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/auth"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

type serviceOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func newServiceOrderRepo() *serviceOrderRepo {
	return &serviceOrderRepo{orders: map[string]*entity.Order{}}
}

func (r *serviceOrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.RequestID == order.RequestID {
			return repository.ErrOrderAlreadyExists
		}
	}
	stored := order.Clone()
	stored.LatestTransaction = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *serviceOrderRepo) Update(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	stored := order.Clone()
	stored.LatestTransaction = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *serviceOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Clone(), nil
}

func (r *serviceOrderRepo) FindByRequestID(_ context.Context, requestID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.RequestID == requestID {
			return order.Clone(), nil
		}
	}
	return nil, nil
}

func (r *serviceOrderRepo) FindByCallbackHash(_ context.Context, callbackHash string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.CallbackHash == callbackHash {
			return order.Clone(), nil
		}
	}
	return nil, nil
}

func (r *serviceOrderRepo) WithOrderLock(ctx context.Context, id string, fn func(ctx context.Context, order *entity.Order) error) error {
	order, _ := r.FindByID(ctx, id)
	return fn(ctx, order)
}

func (r *serviceOrderRepo) ListExpirable(_ context.Context, now time.Time, limit int32) ([]*entity.Order, error) {
	return r.filter(limit, func(order *entity.Order) bool {
		open := order.Status == string(types.OrderStatusPending) || order.Status == string(types.OrderStatusAwaitingConfirmation)
		return open && order.PaymentExpiresAt != nil && !order.PaymentExpiresAt.After(now)
	}), nil
}

func (r *serviceOrderRepo) ListForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	return r.filter(limit, func(order *entity.Order) bool {
		open := order.Status == string(types.OrderStatusPending) || order.Status == string(types.OrderStatusAwaitingConfirmation)
		return open && order.PaymentReference != nil && !order.UpdatedAt.After(before)
	}), nil
}

func (r *serviceOrderRepo) filter(limit int32, keep func(*entity.Order) bool) []*entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Order, 0)
	for _, order := range r.orders {
		if keep(order) {
			out = append(out, order.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *serviceOrderRepo) get(id string) *entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Clone()
}

func (r *serviceOrderRepo) put(order *entity.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order.Clone()
}

type serviceTxRepo struct {
	mu    sync.Mutex
	items map[string]*entity.PaymentTransaction
}

func newServiceTxRepo() *serviceTxRepo {
	return &serviceTxRepo{items: map[string]*entity.PaymentTransaction{}}
}

func (r *serviceTxRepo) Upsert(_ context.Context, tx *entity.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[tx.OrderID] = tx.Clone()
	return nil
}

func (r *serviceTxRepo) FindByOrderID(_ context.Context, orderID string) (*entity.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[orderID].Clone(), nil
}

type serviceChannelRepo struct {
	items   []*entity.PaymentChannel
	listed  int
	upserts []*entity.PaymentChannel
}

func (r *serviceChannelRepo) List(context.Context) ([]*entity.PaymentChannel, error) {
	r.listed++
	return r.items, nil
}

func (r *serviceChannelRepo) Find(_ context.Context, category, channel string) (*entity.PaymentChannel, error) {
	for _, item := range r.items {
		if item.Category == category && item.Channel == channel {
			c := *item
			return &c, nil
		}
	}
	return nil, nil
}

func (r *serviceChannelRepo) Upsert(_ context.Context, channel *entity.PaymentChannel) error {
	r.upserts = append(r.upserts, channel)
	return nil
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.OrderEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *serviceEventRepo) last() *entity.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type serviceCallbackRepo struct {
	items []*entity.GatewayCallback
}

func (r *serviceCallbackRepo) Create(_ context.Context, callback *entity.GatewayCallback) error {
	r.items = append(r.items, callback)
	return nil
}

type serviceChannelCache struct {
	items       []*entity.PaymentChannel
	warm        bool
	invalidated int
}

func (c *serviceChannelCache) Get(context.Context) ([]*entity.PaymentChannel, bool, error) {
	return c.items, c.warm, nil
}

func (c *serviceChannelCache) Set(_ context.Context, channels []*entity.PaymentChannel) error {
	c.items = channels
	c.warm = true
	return nil
}

func (c *serviceChannelCache) Invalidate(context.Context) error {
	c.invalidated++
	c.items = nil
	c.warm = false
	return nil
}

type serviceGateway struct {
	mu          sync.Mutex
	createCalls int
	createFn    func(*provider.CreateInput) (*provider.TransactionResult, error)
	chargeFn    func(*provider.ChargeInput) (*provider.TransactionResult, error)
	statusFn    func(method types.PaymentMethod, reference string) (*provider.TransactionResult, error)
	callbackFn  func(payload []byte, token string) (*provider.CallbackEvent, error)
}

func (g *serviceGateway) Code() string { return "fake" }

func (g *serviceGateway) Methods() []types.PaymentMethod {
	return []types.PaymentMethod{
		types.PaymentMethodVirtualAccount,
		types.PaymentMethodEWallet,
		types.PaymentMethodQRIS,
		types.PaymentMethodRetailOutlet,
		types.PaymentMethodPayLater,
		types.PaymentMethodCard,
	}
}

func (g *serviceGateway) CreateTransaction(_ context.Context, input *provider.CreateInput) (*provider.TransactionResult, error) {
	g.mu.Lock()
	g.createCalls++
	g.mu.Unlock()
	if g.createFn != nil {
		return g.createFn(input)
	}
	expiresAt := input.ExpiresAt
	return &provider.TransactionResult{
		ProviderReference: "ref-" + input.ExternalID,
		Status:            "PENDING",
		QRCodeURL:         "https://qr.example.com/" + input.ExternalID,
		ExpiresAt:         &expiresAt,
	}, nil
}

func (g *serviceGateway) ChargeCard(_ context.Context, input *provider.ChargeInput) (*provider.TransactionResult, error) {
	return g.chargeFn(input)
}

func (g *serviceGateway) GetTransactionStatus(_ context.Context, method types.PaymentMethod, reference string) (*provider.TransactionResult, error) {
	if g.statusFn == nil {
		return nil, nil
	}
	return g.statusFn(method, reference)
}

func (g *serviceGateway) VerifyAndParseCallback(_ context.Context, payload []byte, token string) (*provider.CallbackEvent, error) {
	return g.callbackFn(payload, token)
}

type serviceFixture struct {
	svc       *OrderService
	orders    *serviceOrderRepo
	txs       *serviceTxRepo
	channels  *serviceChannelRepo
	events    *serviceEventRepo
	callbacks *serviceCallbackRepo
	cache     *serviceChannelCache
	gateway   *serviceGateway
	tokens    *auth.OrderTokens
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		orders: newServiceOrderRepo(),
		txs:    newServiceTxRepo(),
		channels: &serviceChannelRepo{items: []*entity.PaymentChannel{
			{Category: "QRIS", Channel: "QRIS", Name: "QRIS", Available: true},
			{Category: "CARD", Channel: "CARD", Name: "Card", Available: true},
			{Category: "VIRTUAL_ACCOUNT", Channel: "BCA", Name: "BCA", Available: true},
			{Category: "VIRTUAL_ACCOUNT", Channel: "BNI", Name: "BNI", Available: false, Message: stringPtr("Bank maintenance")},
		}},
		events:    &serviceEventRepo{},
		callbacks: &serviceCallbackRepo{},
		cache:     &serviceChannelCache{},
		gateway:   &serviceGateway{},
		tokens:    auth.NewOrderTokens(auth.OrderTokenConfig{Secret: "test-secret"}),
	}

	f.svc = NewOrderService(
		f.orders,
		f.txs,
		f.channels,
		f.events,
		f.callbacks,
		provider.NewRegistry(f.gateway),
		f.tokens,
		f.cache,
		config.OrdersConfig{PaymentTTL: 15 * time.Minute, DefaultCurrency: "IDR"},
		config.JobsConfig{ReconcileStaleAfter: time.Minute, BatchSize: 10, Concurrency: 2},
	)
	return f
}

// seedOrder stores an order with a transaction and returns a valid access token for it.
func (f *serviceFixture) seedOrder(id string, method types.PaymentMethod, st types.OrderStatus, expiresAt time.Time) string {
	now := time.Now().UTC()
	methodValue := string(method)
	order := &entity.Order{
		ID:               id,
		RequestID:        "req-" + id,
		Status:           string(st),
		Amount:           150000,
		Currency:         "IDR",
		ItemName:         "Ticket",
		Quantity:         1,
		CustomerName:     "Ayu",
		CustomerEmail:    "ayu@example.com",
		PaymentStatus:    stringPtr(paymentStatusPending),
		PaymentMethod:    &methodValue,
		PaymentChannel:   stringPtr(method.Category()),
		PaymentReference: stringPtr("ref-" + id),
		PaymentExpiresAt: &expiresAt,
		CallbackHash:     "hash-" + id,
		CreatedAt:        now.Add(-time.Hour),
		UpdatedAt:        now.Add(-time.Hour),
	}
	f.orders.put(order)
	_ = f.txs.Upsert(context.Background(), &entity.PaymentTransaction{
		ID:                "tx-" + id,
		OrderID:           id,
		Method:            methodValue,
		Channel:           method.Category(),
		Status:            "PENDING",
		Amount:            order.Amount,
		ExternalID:        id,
		ProviderReference: stringPtr("ref-" + id),
		ExpiresAt:         &expiresAt,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	})

	token, err := f.tokens.Mint(id, now)
	if err != nil {
		panic(err)
	}
	return token
}
