package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const maxReasonLength = 1000

type orderActionRequest interface {
	GetOrderId() string
	GetAccessToken() string
	GetAction() types.OrderAction
	GetReason() string
}

type submitRatingRequest interface {
	GetOrderId() string
	GetAccessToken() string
	GetRating() int32
	GetReview() string
}

// PerformAction applies a customer cancel or refund request. Cancel is allowed only while the order is
// effectively pending; refund only while it awaits confirmation and no refund was requested before.
func (s *OrderService) PerformAction(ctx context.Context, req orderActionRequest) (*entity.Order, error) {
	reason := strings.TrimSpace(req.GetReason())
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidRequest)
	}
	reason = truncate(reason, maxReasonLength)

	action := req.GetAction()
	if action != types.OrderActionCancel && action != types.OrderActionRefund {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, action)
	}

	authorized, err := s.authorizedOrder(ctx, req.GetOrderId(), req.GetAccessToken())
	if err != nil {
		return nil, err
	}

	return s.withLockedOrder(ctx, authorized.ID, func(ctx context.Context, order *entity.Order) (string, error) {
		effective := s.effectiveStatus(order, s.now())

		switch action {
		case types.OrderActionCancel:
			if effective != types.OrderStatusPending {
				return "", closedOrInvalid(effective, "only pending orders can be cancelled")
			}
			order.Status = string(types.OrderStatusCancelledByUser)
			order.CancelReason = &reason
			return "order_cancelled", nil
		default:
			if effective != types.OrderStatusAwaitingConfirmation {
				return "", closedOrInvalid(effective, "refunds can only be requested while awaiting confirmation")
			}
			if types.RefundStatus(derefString(order.RefundStatus)) != types.RefundStatusNone {
				return "", fmt.Errorf("%w: a refund was already requested", ErrInvalidTransition)
			}
			order.RefundStatus = stringPtr(string(types.RefundStatusPending))
			order.RefundReason = &reason
			return "refund_requested", nil
		}
	}, types.EventSourceCustomer, nil)
}

// SubmitRating records the single rating a completed order accepts.
func (s *OrderService) SubmitRating(ctx context.Context, req submitRatingRequest) (*entity.Order, error) {
	rating := req.GetRating()
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidRequest)
	}

	authorized, err := s.authorizedOrder(ctx, req.GetOrderId(), req.GetAccessToken())
	if err != nil {
		return nil, err
	}

	review := normalizeOptionalString(req.GetReview())
	return s.withLockedOrder(ctx, authorized.ID, func(ctx context.Context, order *entity.Order) (string, error) {
		if types.OrderStatus(order.Status) != types.OrderStatusDone {
			return "", fmt.Errorf("%w: only completed orders can be rated", ErrInvalidTransition)
		}
		if order.RatingValue != nil {
			return "", ErrRatingExists
		}
		order.RatingValue = &rating
		order.RatingReview = review
		return "order_rated", nil
	}, types.EventSourceCustomer, nil)
}

// withLockedOrder reloads the order under its row lock, lets mutate change it, persists it and records
// the event named by mutate.
func (s *OrderService) withLockedOrder(
	ctx context.Context,
	orderID string,
	mutate func(ctx context.Context, order *entity.Order) (string, error),
	source types.EventSource,
	payload *string,
) (*entity.Order, error) {
	var updated *entity.Order

	err := s.orderRepo.WithOrderLock(ctx, orderID, func(ctx context.Context, order *entity.Order) error {
		if order == nil {
			return ErrOrderNotFound
		}
		if err := s.attachTransaction(ctx, order); err != nil {
			return err
		}

		oldStatus := order.Status
		eventType, err := mutate(ctx, order)
		if err != nil {
			return err
		}

		now := s.now()
		order.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return err
		}
		s.recordEvent(ctx, order, eventType, source, &oldStatus, payload, now)

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func closedOrInvalid(effective types.OrderStatus, message string) error {
	if status.IsTerminal(effective) {
		return ErrOrderClosed
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, message)
}
