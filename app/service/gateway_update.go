package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

// gatewayUpdate is a transaction status report from any gateway path: webhook, pull or card charge.
type gatewayUpdate struct {
	EventType         string
	Source            types.EventSource
	Status            string
	ProviderReference string
	CheckoutURL       string
	FailureReason     string
	Payload           *string
}

// applyGatewayUpdate writes the reported transaction status and advances the order under its row lock.
// A terminal order keeps its status, and a settled payment is never downgraded.
func (s *OrderService) applyGatewayUpdate(ctx context.Context, orderID string, update gatewayUpdate) (*entity.Order, error) {
	var updated *entity.Order

	err := s.orderRepo.WithOrderLock(ctx, orderID, func(ctx context.Context, order *entity.Order) error {
		if order == nil {
			return ErrOrderNotFound
		}

		tx, err := s.txRepo.FindByOrderID(ctx, order.ID)
		if err != nil {
			return err
		}
		if tx == nil {
			return ErrTransactionNotFound
		}

		now := s.now()
		if raw := strings.ToUpper(strings.TrimSpace(update.Status)); raw != "" {
			tx.Status = raw
		}
		if ref := normalizeOptionalString(update.ProviderReference); ref != nil {
			tx.ProviderReference = ref
			order.PaymentReference = stringPtr(*ref)
		}
		if url := normalizeOptionalString(update.CheckoutURL); url != nil {
			tx.CheckoutURL = url
		}
		if reason := normalizeOptionalString(update.FailureReason); reason != nil {
			tx.FailureReason = reason
		}
		tx.UpdatedAt = now
		if err := s.txRepo.Upsert(ctx, tx); err != nil {
			return err
		}
		order.LatestTransaction = tx

		oldStatus := order.Status
		if !status.IsPaymentSuccess(derefString(order.PaymentStatus)) {
			reported := paymentStatusFor(tx.Status)
			if reported == paymentStatusExpired && !expiryReached(order, tx, now) {
				reported = paymentStatusPending
			}
			order.PaymentStatus = stringPtr(reported)
		}

		current := types.OrderStatus(order.Status)
		if status.IsTerminal(current) {
			if status.IsPaymentSuccess(tx.Status) {
				s.logger.WithField("order_id", order.ID).WithField("status", order.Status).
					Warn("payment settled on a closed order")
			}
		} else {
			order.Status = string(nextStatusForPayment(current, derefString(order.PaymentStatus)))
		}

		order.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return err
		}

		eventType := strings.TrimSpace(update.EventType)
		if eventType == "" {
			eventType = "payment_updated"
		}
		s.recordEvent(ctx, order, eventType, update.Source, &oldStatus, update.Payload, now)

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// expiryReached reports whether the payment window is over. Gateway expiry reports before the stored
// deadline are treated as inconclusive.
func expiryReached(order *entity.Order, tx *entity.PaymentTransaction, now time.Time) bool {
	expiresAt := tx.ExpiresAt
	if expiresAt == nil {
		expiresAt = order.PaymentExpiresAt
	}
	return expiresAt == nil || !now.Before(*expiresAt)
}

func nextStatusForPayment(current types.OrderStatus, paymentStatus string) types.OrderStatus {
	switch paymentStatus {
	case paymentStatusPaid:
		if current == types.OrderStatusPending {
			return types.OrderStatusAwaitingConfirmation
		}
	case paymentStatusFailed:
		return types.OrderStatusPaymentInvalid
	case paymentStatusExpired:
		if current == types.OrderStatusPending || current == types.OrderStatusAwaitingConfirmation {
			return types.OrderStatusCancelledByAdmin
		}
	}
	return current
}
