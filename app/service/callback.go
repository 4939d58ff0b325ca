package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type gatewayCallbackRequest interface {
	GetCallbackHash() string
	GetCallbackToken() string
	GetPayload() string
}

// HandleGatewayCallback verifies a gateway webhook addressed to an order's callback hash and applies
// the reported transaction status. Every callback is logged, rejected ones with the reason.
func (s *OrderService) HandleGatewayCallback(ctx context.Context, req gatewayCallbackRequest) (*entity.Order, error) {
	callbackHash := strings.TrimSpace(req.GetCallbackHash())
	order, err := s.orderRepo.FindByCallbackHash(ctx, callbackHash)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.persistRejectedCallback(ctx, nil, req, "", "order not found for callback hash")
		metrics.ObserveGatewayCallback("rejected")
		return nil, ErrOrderNotFound
	}

	orderID := order.ID
	gateway, err := s.gateways.Get(types.PaymentMethod(derefString(order.PaymentMethod)))
	if err != nil {
		gateway, err = s.gateways.Any()
	}
	if err != nil {
		s.persistRejectedCallback(ctx, &orderID, req, "", fmt.Sprintf("no gateway for order: %v", err))
		metrics.ObserveGatewayCallback("rejected")
		return nil, ErrCallbackRejected
	}

	payload := []byte(req.GetPayload())
	event, err := gateway.VerifyAndParseCallback(ctx, payload, strings.TrimSpace(req.GetCallbackToken()))
	if err != nil {
		s.persistRejectedCallback(ctx, &orderID, req, "", fmt.Sprintf("gateway callback validation failed: %v", err))
		metrics.ObserveGatewayCallback("rejected")
		return nil, ErrCallbackRejected
	}
	if event == nil {
		s.persistRejectedCallback(ctx, &orderID, req, "", "gateway callback payload could not be parsed")
		metrics.ObserveGatewayCallback("rejected")
		return nil, ErrCallbackRejected
	}
	if externalID := strings.TrimSpace(event.ExternalID); externalID != "" && externalID != order.ID {
		s.persistRejectedCallback(ctx, &orderID, req, event.EventType, "callback external id does not match order")
		metrics.ObserveGatewayCallback("rejected")
		return nil, ErrCallbackRejected
	}

	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		eventType = "gateway_callback"
	}

	payloadJSON := string(payload)
	updated, err := s.applyGatewayUpdate(ctx, order.ID, gatewayUpdate{
		EventType:         eventType,
		Source:            types.EventSourceGateway,
		Status:            event.Status,
		ProviderReference: event.ProviderReference,
		FailureReason:     event.FailureReason,
		Payload:           &payloadJSON,
	})
	if err != nil {
		metrics.ObserveGatewayCallback("failed")
		return nil, err
	}

	if err := s.callbackRepo.Create(ctx, &entity.GatewayCallback{
		OrderID:      &orderID,
		CallbackHash: callbackHash,
		EventType:    eventType,
		PayloadJSON:  payloadJSON,
		Status:       entity.GatewayCallbackProcessed,
		CreatedAt:    s.now(),
	}); err != nil {
		return nil, err
	}
	metrics.ObserveGatewayCallback("processed")

	return updated, nil
}

func (s *OrderService) persistRejectedCallback(
	ctx context.Context,
	orderID *string,
	req gatewayCallbackRequest,
	eventType string,
	reason string,
) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "callback rejected"
	}
	trimmedErr := truncate(reason, 1024)
	_ = s.callbackRepo.Create(ctx, &entity.GatewayCallback{
		OrderID:      orderID,
		CallbackHash: strings.TrimSpace(req.GetCallbackHash()),
		EventType:    strings.TrimSpace(eventType),
		PayloadJSON:  req.GetPayload(),
		Status:       entity.GatewayCallbackRejected,
		Error:        &trimmedErr,
		CreatedAt:    time.Now().UTC(),
	})
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
