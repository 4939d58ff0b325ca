package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

const orderColumns = `
		id, request_id, status, amount, currency, item_name, quantity,
		customer_name, customer_email, customer_phone, notes,
		payment_status, payment_method, payment_channel, payment_reference, payment_expires_at,
		refund_status, refund_reason, cancel_reason, rating_value, rating_review,
		callback_hash, created_at, updated_at`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		order.ID,
		order.RequestID,
		order.Status,
		order.Amount,
		order.Currency,
		order.ItemName,
		order.Quantity,
		order.CustomerName,
		order.CustomerEmail,
		nullableStringValue(order.CustomerPhone),
		nullableStringValue(order.Notes),
		nullableStringValue(order.PaymentStatus),
		nullableStringValue(order.PaymentMethod),
		nullableStringValue(order.PaymentChannel),
		nullableStringValue(order.PaymentReference),
		nullableTimeValue(order.PaymentExpiresAt),
		nullableStringValue(order.RefundStatus),
		nullableStringValue(order.RefundReason),
		nullableStringValue(order.CancelReason),
		nullableInt32Value(order.RatingValue),
		nullableStringValue(order.RatingReview),
		order.CallbackHash,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			status = ?,
			customer_phone = ?,
			notes = ?,
			payment_status = ?,
			payment_method = ?,
			payment_channel = ?,
			payment_reference = ?,
			payment_expires_at = ?,
			refund_status = ?,
			refund_reason = ?,
			cancel_reason = ?,
			rating_value = ?,
			rating_review = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		order.Status,
		nullableStringValue(order.CustomerPhone),
		nullableStringValue(order.Notes),
		nullableStringValue(order.PaymentStatus),
		nullableStringValue(order.PaymentMethod),
		nullableStringValue(order.PaymentChannel),
		nullableStringValue(order.PaymentReference),
		nullableTimeValue(order.PaymentExpiresAt),
		nullableStringValue(order.RefundStatus),
		nullableStringValue(order.RefundReason),
		nullableStringValue(order.CancelReason),
		nullableInt32Value(order.RatingValue),
		nullableStringValue(order.RatingReview),
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *OrderRepository) FindByRequestID(ctx context.Context, requestID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE request_id = ? LIMIT 1`
	return r.findOne(ctx, query, requestID)
}

func (r *OrderRepository) FindByCallbackHash(ctx context.Context, callbackHash string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE callback_hash = ? LIMIT 1`
	return r.findOne(ctx, query, callbackHash)
}

// WithOrderLock runs fn inside a transaction holding a row lock on the order.
// Repositories called with the ctx passed to fn join that transaction.
// fn receives nil when the order does not exist.
func (r *OrderRepository) WithOrderLock(ctx context.Context, id string, fn func(ctx context.Context, order *entity.Order) error) error {
	if inTx(ctx) {
		order, err := r.findForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, order)
	}

	starter, ok := r.db.(txStarter)
	if !ok {
		return fmt.Errorf("order lock: connection does not support transactions")
	}

	tx, err := starter.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txCtx := withTx(ctx, tx)

	order, err := r.findForUpdate(txCtx, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := fn(txCtx, order); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) findForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? FOR UPDATE`
	return r.findOne(ctx, query, id)
}

// ListExpirable returns open orders whose denormalized payment expiry is at or before now.
func (r *OrderRepository) ListExpirable(ctx context.Context, now time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN (?, ?)
		  AND payment_expires_at IS NOT NULL
		  AND payment_expires_at <= ?
		ORDER BY payment_expires_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, "pending", "awaiting_confirmation", now, limit)
}

// ListForReconcile returns open orders with a gateway reference that were not touched since before.
func (r *OrderRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN (?, ?)
		  AND payment_reference IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, "pending", "awaiting_confirmation", before, limit)
}

func (r *OrderRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Order, error) {
	order := &entity.Order{}
	if err := scanOrder(conn(ctx, r.db).QueryRowContext(ctx, query, args...), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*entity.Order, 0)
	for rows.Next() {
		item := &entity.Order{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		orders = append(orders, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func scanOrder(scan rowScanner, order *entity.Order) error {
	var customerPhone sql.NullString
	var notes sql.NullString
	var paymentStatus sql.NullString
	var paymentMethod sql.NullString
	var paymentChannel sql.NullString
	var paymentReference sql.NullString
	var paymentExpiresAt sql.NullTime
	var refundStatus sql.NullString
	var refundReason sql.NullString
	var cancelReason sql.NullString
	var ratingValue sql.NullInt32
	var ratingReview sql.NullString

	err := scan.Scan(
		&order.ID,
		&order.RequestID,
		&order.Status,
		&order.Amount,
		&order.Currency,
		&order.ItemName,
		&order.Quantity,
		&order.CustomerName,
		&order.CustomerEmail,
		&customerPhone,
		&notes,
		&paymentStatus,
		&paymentMethod,
		&paymentChannel,
		&paymentReference,
		&paymentExpiresAt,
		&refundStatus,
		&refundReason,
		&cancelReason,
		&ratingValue,
		&ratingReview,
		&order.CallbackHash,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.CustomerPhone = stringPtrFromNull(customerPhone)
	order.Notes = stringPtrFromNull(notes)
	order.PaymentStatus = stringPtrFromNull(paymentStatus)
	order.PaymentMethod = stringPtrFromNull(paymentMethod)
	order.PaymentChannel = stringPtrFromNull(paymentChannel)
	order.PaymentReference = stringPtrFromNull(paymentReference)
	order.PaymentExpiresAt = timePtrFromNull(paymentExpiresAt)
	order.RefundStatus = stringPtrFromNull(refundStatus)
	order.RefundReason = stringPtrFromNull(refundReason)
	order.CancelReason = stringPtrFromNull(cancelReason)
	order.RatingValue = int32PtrFromNull(ratingValue)
	order.RatingReview = stringPtrFromNull(ratingReview)

	return nil
}
