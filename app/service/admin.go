package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type adminSetOrderStatusRequest interface {
	GetOrderId() string
	GetStatus() types.OrderStatus
	GetNote() string
}

type adminResolveRefundRequest interface {
	GetOrderId() string
	GetDecision() types.RefundDecision
	GetNote() string
}

// AdminSetStatus overwrites the order status. Leaving a terminal status is allowed but logged.
func (s *OrderService) AdminSetStatus(ctx context.Context, req adminSetOrderStatusRequest) (*entity.Order, error) {
	next := req.GetStatus()
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidRequest, next)
	}
	orderID := strings.TrimSpace(req.GetOrderId())
	if orderID == "" {
		return nil, ErrInvalidRequest
	}

	return s.withLockedOrder(ctx, orderID, func(_ context.Context, order *entity.Order) (string, error) {
		current := types.OrderStatus(order.Status)
		if status.IsTerminal(current) && current != next {
			s.logger.WithField("order_id", order.ID).
				WithField("from", string(current)).
				WithField("to", string(next)).
				Warn("admin override leaves a terminal status")
		}
		order.Status = string(next)
		return "admin_status_override", nil
	}, types.EventSourceAdmin, notePayload(req.GetNote()))
}

// AdminResolveRefund approves or rejects a pending refund request.
func (s *OrderService) AdminResolveRefund(ctx context.Context, req adminResolveRefundRequest) (*entity.Order, error) {
	decision := req.GetDecision()
	if decision != types.RefundDecisionApprove && decision != types.RefundDecisionReject {
		return nil, fmt.Errorf("%w: decision must be approve or reject", ErrInvalidRequest)
	}
	orderID := strings.TrimSpace(req.GetOrderId())
	if orderID == "" {
		return nil, ErrInvalidRequest
	}

	return s.withLockedOrder(ctx, orderID, func(_ context.Context, order *entity.Order) (string, error) {
		if types.RefundStatus(derefString(order.RefundStatus)) != types.RefundStatusPending {
			return "", fmt.Errorf("%w: no pending refund", ErrInvalidTransition)
		}
		if decision == types.RefundDecisionApprove {
			order.RefundStatus = stringPtr(string(types.RefundStatusRefunded))
			order.Status = string(types.OrderStatusRefunded)
			return "refund_approved", nil
		}
		order.RefundStatus = stringPtr(string(types.RefundStatusRejected))
		return "refund_rejected", nil
	}, types.EventSourceAdmin, notePayload(req.GetNote()))
}

func notePayload(note string) *string {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	raw, err := json.Marshal(map[string]string{"note": truncate(note, maxReasonLength)})
	if err != nil {
		return nil
	}
	return stringPtr(string(raw))
}
