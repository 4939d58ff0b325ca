package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/cache"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

const (
	defaultBatchSize   = int32(100)
	defaultConcurrency = 4

	paymentStatusPending        = "pending"
	paymentStatusPaid           = "paid"
	paymentStatusFailed         = "failed"
	paymentStatusExpired        = "expired"
	paymentStatusRequiresAction = "requires_action"
)

type createOrderRequest interface {
	GetRequestId() string
	GetItemName() string
	GetQuantity() int32
	GetAmount() int64
	GetCurrency() string
	GetCustomerName() string
	GetCustomerEmail() string
	GetCustomerPhone() string
	GetNotes() string
	GetPaymentCategory() string
	GetPaymentChannel() string
}

type getOrderRequest interface {
	GetId() string
	GetAccessToken() string
	GetSync() bool
}

type orderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	Update(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByRequestID(ctx context.Context, requestID string) (*entity.Order, error)
	FindByCallbackHash(ctx context.Context, callbackHash string) (*entity.Order, error)
	WithOrderLock(ctx context.Context, id string, fn func(ctx context.Context, order *entity.Order) error) error
	ListExpirable(ctx context.Context, now time.Time, limit int32) ([]*entity.Order, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error)
}

type transactionRepository interface {
	Upsert(ctx context.Context, tx *entity.PaymentTransaction) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.PaymentTransaction, error)
}

type channelRepository interface {
	List(ctx context.Context) ([]*entity.PaymentChannel, error)
	Find(ctx context.Context, category, channel string) (*entity.PaymentChannel, error)
	Upsert(ctx context.Context, channel *entity.PaymentChannel) error
}

type orderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
}

type gatewayCallbackRepository interface {
	Create(ctx context.Context, callback *entity.GatewayCallback) error
}

type channelCache interface {
	Get(ctx context.Context) ([]*entity.PaymentChannel, bool, error)
	Set(ctx context.Context, channels []*entity.PaymentChannel) error
	Invalidate(ctx context.Context) error
}

type orderTokens interface {
	Mint(orderID string, now time.Time) (string, error)
	Verify(token, orderID string) error
}

type OrderService struct {
	orderRepo    orderRepository
	txRepo       transactionRepository
	channelRepo  channelRepository
	eventRepo    orderEventRepository
	callbackRepo gatewayCallbackRepository
	gateways     *provider.Registry
	tokens       orderTokens
	channels     channelCache
	ordersCfg    config.OrdersConfig
	jobsCfg      config.JobsConfig
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewOrderService(
	orderRepo orderRepository,
	txRepo transactionRepository,
	channelRepo channelRepository,
	eventRepo orderEventRepository,
	callbackRepo gatewayCallbackRepository,
	gateways *provider.Registry,
	tokens orderTokens,
	channels channelCache,
	ordersCfg config.OrdersConfig,
	jobsCfg config.JobsConfig,
) *OrderService {
	if ordersCfg.PaymentTTL <= 0 {
		ordersCfg.PaymentTTL = 24 * time.Hour
	}
	if strings.TrimSpace(ordersCfg.DefaultCurrency) == "" {
		ordersCfg.DefaultCurrency = "IDR"
	}
	if channels == nil {
		channels = (*cache.ChannelCache)(nil)
	}

	return &OrderService{
		orderRepo:    orderRepo,
		txRepo:       txRepo,
		channelRepo:  channelRepo,
		eventRepo:    eventRepo,
		callbackRepo: callbackRepo,
		gateways:     gateways,
		tokens:       tokens,
		channels:     channels,
		ordersCfg:    ordersCfg,
		jobsCfg:      jobsCfg,
		logger:       factory.NewModuleLogger("order-service"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder places an order and opens its gateway transaction. Retries with the same request id
// and the same order details return the order created by the first attempt; a different body under a
// known request id is rejected with ErrOrderAlreadyExists.
func (s *OrderService) CreateOrder(ctx context.Context, req createOrderRequest) (*entity.Order, string, error) {
	requestID := strings.TrimSpace(req.GetRequestId())
	if requestID == "" {
		return nil, "", ErrInvalidRequest
	}

	now := s.now()
	existing, err := s.orderRepo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		if !s.sameOrderRequest(existing, req) {
			s.logger.WithField("request_id", requestID).Warn("order request id reused with different details")
			return nil, "", ErrOrderAlreadyExists
		}
		if err := s.attachTransaction(ctx, existing); err != nil {
			return nil, "", err
		}
		token, err := s.tokens.Mint(existing.ID, now)
		if err != nil {
			return nil, "", err
		}
		return existing, token, nil
	}

	method, err := types.MethodFromCategory(req.GetPaymentCategory())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	channelCode := strings.ToUpper(strings.TrimSpace(req.GetPaymentChannel()))
	if err := s.ensureChannelAvailable(ctx, method.Category(), channelCode); err != nil {
		return nil, "", err
	}

	gateway, err := s.gateways.Get(method)
	if err != nil {
		if errors.Is(err, provider.ErrMethodNotSupported) {
			return nil, "", ErrMethodUnsupported
		}
		return nil, "", err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.GetCurrency()))
	if currency == "" {
		currency = s.ordersCfg.DefaultCurrency
	}
	quantity := req.GetQuantity()
	if quantity <= 0 {
		quantity = 1
	}

	orderID := uuid.NewString()
	callbackHash := uuid.NewString()
	expiresAt := now.Add(s.ordersCfg.PaymentTTL)

	result, err := gateway.CreateTransaction(ctx, &provider.CreateInput{
		OrderID:       orderID,
		ExternalID:    orderID,
		CallbackHash:  callbackHash,
		Amount:        req.GetAmount(),
		Currency:      currency,
		Method:        method,
		Channel:       channelCode,
		CustomerName:  strings.TrimSpace(req.GetCustomerName()),
		CustomerEmail: strings.TrimSpace(req.GetCustomerEmail()),
		CustomerPhone: strings.TrimSpace(req.GetCustomerPhone()),
		Description:   strings.TrimSpace(req.GetItemName()),
		ExpiresAt:     expiresAt,
	})
	metrics.ObserveGatewayCall("create_transaction", err)
	if err != nil {
		return nil, "", newGatewayError(err)
	}
	if result.ExpiresAt != nil {
		expiresAt = result.ExpiresAt.UTC()
	}

	paymentStatus := paymentStatusFor(result.Status)
	methodValue := string(method)
	order := &entity.Order{
		ID:               orderID,
		RequestID:        requestID,
		Status:           string(types.OrderStatusPending),
		Amount:           req.GetAmount(),
		Currency:         currency,
		ItemName:         strings.TrimSpace(req.GetItemName()),
		Quantity:         quantity,
		CustomerName:     strings.TrimSpace(req.GetCustomerName()),
		CustomerEmail:    strings.TrimSpace(req.GetCustomerEmail()),
		CustomerPhone:    normalizeOptionalString(req.GetCustomerPhone()),
		Notes:            normalizeOptionalString(req.GetNotes()),
		PaymentStatus:    &paymentStatus,
		PaymentMethod:    &methodValue,
		PaymentChannel:   normalizeOptionalString(channelCode),
		PaymentReference: normalizeOptionalString(result.ProviderReference),
		PaymentExpiresAt: &expiresAt,
		CallbackHash:     callbackHash,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx := &entity.PaymentTransaction{
		ID:                   uuid.NewString(),
		OrderID:              orderID,
		Method:               methodValue,
		Channel:              channelCode,
		Status:               gatewayStatusOrPending(result.Status),
		Amount:               order.Amount,
		ExternalID:           orderID,
		ProviderReference:    normalizeOptionalString(result.ProviderReference),
		VirtualAccountNumber: normalizeOptionalString(result.VirtualAccountNumber),
		QRCodeURL:            normalizeOptionalString(result.QRCodeURL),
		QRString:             normalizeOptionalString(result.QRString),
		PaymentCode:          normalizeOptionalString(result.PaymentCode),
		CheckoutURL:          normalizeOptionalString(result.CheckoutURL),
		InvoiceURL:           normalizeOptionalString(result.InvoiceURL),
		ExpiresAt:            &expiresAt,
		FailureReason:        normalizeOptionalString(result.FailureReason),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			return nil, "", ErrOrderAlreadyExists
		}
		return nil, "", err
	}
	if err := s.txRepo.Upsert(ctx, tx); err != nil {
		return nil, "", err
	}
	order.LatestTransaction = tx

	s.recordEvent(ctx, order, "order_created", types.EventSourceCustomer, nil, nil, now)

	token, err := s.tokens.Mint(order.ID, now)
	if err != nil {
		return nil, "", err
	}

	return order, token, nil
}

// sameOrderRequest reports whether req describes the order already stored under its request id.
func (s *OrderService) sameOrderRequest(existing *entity.Order, req createOrderRequest) bool {
	currency := strings.ToUpper(strings.TrimSpace(req.GetCurrency()))
	if currency == "" {
		currency = s.ordersCfg.DefaultCurrency
	}
	method, err := types.MethodFromCategory(req.GetPaymentCategory())
	if err != nil {
		return false
	}

	return existing.Amount == req.GetAmount() &&
		strings.EqualFold(existing.Currency, currency) &&
		strings.EqualFold(existing.CustomerEmail, strings.TrimSpace(req.GetCustomerEmail())) &&
		derefString(existing.PaymentMethod) == string(method) &&
		strings.EqualFold(derefString(existing.PaymentChannel), strings.TrimSpace(req.GetPaymentChannel()))
}

// GetOrder returns the order with its latest transaction. With sync set, the gateway is asked for the
// current transaction status first; a failed pull still returns the stored order.
func (s *OrderService) GetOrder(ctx context.Context, req getOrderRequest) (*entity.Order, error) {
	order, err := s.authorizedOrder(ctx, req.GetId(), req.GetAccessToken())
	if err != nil {
		return nil, err
	}

	if req.GetSync() && !status.IsTerminal(types.OrderStatus(order.Status)) {
		synced, err := s.syncOrder(ctx, order.ID, types.EventSourceCustomer)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("order sync failed")
		} else if synced != nil {
			return synced, nil
		}
	}

	return order, nil
}

// SyncOrder pulls the gateway status for an order and applies it.
func (s *OrderService) SyncOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	return s.syncOrder(ctx, orderID, types.EventSourceJob)
}

func (s *OrderService) syncOrder(ctx context.Context, orderID string, source types.EventSource) (*entity.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	reference := derefString(order.PaymentReference)
	if reference == "" && order.LatestTransaction != nil {
		reference = derefString(order.LatestTransaction.ProviderReference)
	}
	if reference == "" {
		return order, nil
	}

	method := types.PaymentMethod(derefString(order.PaymentMethod))
	gateway, err := s.gateways.Get(method)
	if err != nil {
		return nil, err
	}

	result, err := gateway.GetTransactionStatus(ctx, method, reference)
	metrics.ObserveGatewayCall("get_transaction_status", err)
	if err != nil {
		return nil, newGatewayError(err)
	}
	if result == nil {
		return order, nil
	}

	return s.applyGatewayUpdate(ctx, order.ID, gatewayUpdate{
		EventType:         "payment_synced",
		Source:            source,
		Status:            result.Status,
		ProviderReference: result.ProviderReference,
		CheckoutURL:       result.CheckoutURL,
		FailureReason:     result.FailureReason,
	})
}

func (s *OrderService) authorizedOrder(ctx context.Context, id, accessToken string) (*entity.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidRequest
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Verify(strings.TrimSpace(accessToken), order.ID); err != nil {
		return nil, ErrAccessDenied
	}
	return order, nil
}

func (s *OrderService) loadOrder(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.attachTransaction(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) attachTransaction(ctx context.Context, order *entity.Order) error {
	tx, err := s.txRepo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	order.LatestTransaction = tx
	return nil
}

// effectiveStatus resolves what the customer currently sees for order.
func (s *OrderService) effectiveStatus(order *entity.Order, now time.Time) types.OrderStatus {
	return status.EffectiveStatus(mapper.OrderSnapshot(order), now)
}

func (s *OrderService) recordEvent(
	ctx context.Context,
	order *entity.Order,
	eventType string,
	source types.EventSource,
	oldStatus *string,
	payload *string,
	now time.Time,
) {
	if oldStatus != nil && *oldStatus == order.Status {
		oldStatus = nil
	}
	_ = s.eventRepo.Create(ctx, &entity.OrderEvent{
		OrderID:     order.ID,
		EventType:   eventType,
		Source:      string(source),
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
		PayloadJSON: payload,
		CreatedAt:   now,
	})
	if oldStatus != nil || eventType == "order_created" {
		metrics.ObserveOrderTransition(string(source), order.Status)
	}
}

func (s *OrderService) batchSize() int32 {
	if s.jobsCfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return s.jobsCfg.BatchSize
}

func (s *OrderService) concurrency() int {
	if s.jobsCfg.Concurrency <= 0 {
		return defaultConcurrency
	}
	return s.jobsCfg.Concurrency
}

// paymentStatusFor folds a raw gateway status into the order's payment_status vocabulary.
func paymentStatusFor(gatewayStatus string) string {
	switch {
	case status.IsPaymentSuccess(gatewayStatus):
		return paymentStatusPaid
	case status.IsRequiresAction(gatewayStatus):
		return paymentStatusRequiresAction
	case status.IsPaymentFailure(gatewayStatus):
		return paymentStatusFailed
	case status.IsPaymentExpired(gatewayStatus):
		return paymentStatusExpired
	default:
		return paymentStatusPending
	}
}

func gatewayStatusOrPending(gatewayStatus string) string {
	gatewayStatus = strings.ToUpper(strings.TrimSpace(gatewayStatus))
	if gatewayStatus == "" {
		return "PENDING"
	}
	return gatewayStatus
}

func normalizeOptionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func stringPtr(v string) *string {
	return &v
}
