package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type cardChargeRequest interface {
	GetOrderId() string
	GetAccessToken() string
	GetTokenId() string
	GetCardBrand() string
}

// ChargeCard charges a tokenized card against a card order. The returned order carries the updated
// transaction; a REQUIRES_ACTION charge leaves the order pending with the verification URL as checkout_url.
func (s *OrderService) ChargeCard(ctx context.Context, req cardChargeRequest) (*entity.Order, error) {
	order, err := s.authorizedOrder(ctx, req.GetOrderId(), req.GetAccessToken())
	if err != nil {
		return nil, err
	}

	if status.IsTerminal(s.effectiveStatus(order, s.now())) {
		return nil, ErrOrderClosed
	}
	if types.PaymentMethod(derefString(order.PaymentMethod)) != types.PaymentMethodCard {
		return nil, fmt.Errorf("%w: order is not a card payment", ErrInvalidRequest)
	}
	if status.IsPaymentSuccess(derefString(order.PaymentStatus)) {
		return nil, fmt.Errorf("%w: order is already paid", ErrOrderClosed)
	}

	tokenID := strings.TrimSpace(req.GetTokenId())
	if tokenID == "" {
		return nil, fmt.Errorf("%w: token_id is required", ErrInvalidRequest)
	}

	gateway, err := s.gateways.Get(types.PaymentMethodCard)
	if err != nil {
		return nil, ErrMethodUnsupported
	}

	result, err := gateway.ChargeCard(ctx, &provider.ChargeInput{
		ExternalID: order.ID,
		TokenID:    tokenID,
		CardBrand:  strings.ToUpper(strings.TrimSpace(req.GetCardBrand())),
		Amount:     order.Amount,
		Currency:   order.Currency,
	})
	metrics.ObserveGatewayCall("charge_card", err)
	if err != nil {
		return nil, newGatewayError(err)
	}

	return s.applyGatewayUpdate(ctx, order.ID, gatewayUpdate{
		EventType:         "card_charged",
		Source:            types.EventSourceCustomer,
		Status:            result.Status,
		ProviderReference: result.ProviderReference,
		CheckoutURL:       result.CheckoutURL,
		FailureReason:     result.FailureReason,
	})
}
