package service

import (
	"context"
	"sync"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"golang.org/x/sync/errgroup"
)

const (
	jobReconcile     = "reconcile"
	jobExpirePending = "expire_pending"
)

// RunReconcileBatch pulls gateway status for open orders that were not touched recently.
// One failing order does not stop the batch; the first error is returned after all items ran.
func (s *OrderService) RunReconcileBatch(ctx context.Context) error {
	now := s.now()
	before := now.Add(-s.jobsCfg.ReconcileStaleAfter)
	items, err := s.orderRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		firstErr error
		synced   int
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency())
	for _, order := range items {
		if order == nil || derefString(order.PaymentReference) == "" {
			continue
		}
		orderID := order.ID
		g.Go(func() error {
			_, err := s.syncOrder(ctx, orderID, types.EventSourceJob)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WithError(err).WithField("order_id", orderID).Warn("order reconcile failed")
				firstErr = keepFirstErr(firstErr, err)
				return nil
			}
			synced++
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObserveJobItems(jobReconcile, "synced", synced)
	if firstErr != nil {
		metrics.ObserveJobItems(jobReconcile, "failed", 1)
	}

	return firstErr
}

// RunExpirePendingBatch persists cancelled_by_admin for open orders whose payment window closed unpaid.
func (s *OrderService) RunExpirePendingBatch(ctx context.Context) error {
	now := s.now()
	items, err := s.orderRepo.ListExpirable(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	expired := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		changed, err := s.expireOrder(ctx, item.ID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if changed {
			expired++
		}
	}
	metrics.ObserveJobItems(jobExpirePending, "expired", expired)

	return firstErr
}

func (s *OrderService) expireOrder(ctx context.Context, orderID string) (bool, error) {
	changed := false

	err := s.orderRepo.WithOrderLock(ctx, orderID, func(ctx context.Context, order *entity.Order) error {
		if order == nil {
			return nil
		}
		if err := s.attachTransaction(ctx, order); err != nil {
			return err
		}

		now := s.now()
		effective := s.effectiveStatus(order, now)
		if effective != types.OrderStatusCancelledByAdmin || order.Status == string(effective) {
			return nil
		}

		oldStatus := order.Status
		order.Status = string(effective)
		if !status.IsPaymentSuccess(derefString(order.PaymentStatus)) {
			order.PaymentStatus = stringPtr(paymentStatusExpired)
		}
		order.UpdatedAt = now
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return err
		}
		s.recordEvent(ctx, order, "order_expired", types.EventSourceJob, &oldStatus, nil, now)

		changed = true
		return nil
	})

	return changed, err
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
