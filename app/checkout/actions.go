package checkout

import (
	"context"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const maxReasonLength = 1000

// Actions runs customer lifecycle actions against the order held by a session. Guards are checked
// locally first; the local snapshot is never patched, the server's answer replaces it.
type Actions struct {
	api     ActionPerformer
	session *Session
}

func NewActions(api ActionPerformer, session *Session) *Actions {
	return &Actions{api: api, session: session}
}

func (a *Actions) Cancel(ctx context.Context, reason string) (View, error) {
	return a.perform(ctx, types.OrderActionCancel, reason, types.OrderStatusPending, "only pending orders can be cancelled")
}

func (a *Actions) RequestRefund(ctx context.Context, reason string) (View, error) {
	view := a.session.View()
	if view.Order != nil && view.Order.RefundStatus != types.RefundStatusNone {
		return view, newValidationError("refund", "a refund was already requested")
	}
	return a.perform(ctx, types.OrderActionRefund, reason, types.OrderStatusAwaitingConfirmation, "refunds can only be requested while awaiting confirmation")
}

func (a *Actions) perform(ctx context.Context, action types.OrderAction, reason string, required types.OrderStatus, guardMessage string) (View, error) {
	view := a.session.View()
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return view, newValidationError("reason", "reason is required")
	}
	if len(reason) > maxReasonLength {
		return view, newValidationError("reason", "reason must be at most 1000 characters")
	}
	if view.Effective != required {
		if status.IsTerminal(view.Effective) {
			return view, ErrClosed
		}
		return view, newValidationError("status", guardMessage)
	}

	order, err := a.api.PerformAction(ctx, a.session.OrderID(), action, reason)
	if err != nil {
		return view, err
	}
	return a.reconcile(ctx, order), nil
}

// SubmitRating sends the one rating a completed order accepts.
func (a *Actions) SubmitRating(ctx context.Context, rating int32, review string) (View, error) {
	view := a.session.View()
	if rating < 1 || rating > 5 {
		return view, newValidationError("rating", "rating must be between 1 and 5")
	}
	if view.Effective != types.OrderStatusDone {
		return view, newValidationError("status", "only completed orders can be rated")
	}
	if view.Order != nil && view.Order.RatingValue > 0 {
		return view, newValidationError("rating", "this order has already been rated")
	}

	order, err := a.api.SubmitRating(ctx, a.session.OrderID(), rating, strings.TrimSpace(review))
	if err != nil {
		return view, err
	}
	return a.reconcile(ctx, order), nil
}

func (a *Actions) reconcile(ctx context.Context, order *types.Order) View {
	view := a.session.Accept(order)
	if refreshed, err := a.session.Refresh(ctx); err == nil {
		return refreshed
	}
	return view
}
