package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

const transactionColumns = `
		id, order_id, method, channel, status, amount, external_id, provider_reference,
		virtual_account_number, qr_code_url, qr_string, payment_code, checkout_url, invoice_url,
		expires_at, failure_reason, created_at, updated_at`

type PaymentTransactionRepository struct {
	db DBTX
}

func NewPaymentTransactionRepository(db DBTX) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

// Upsert stores tx as the single latest transaction of its order, replacing any earlier attempt.
func (r *PaymentTransactionRepository) Upsert(ctx context.Context, tx *entity.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (` + transactionColumns + `
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = VALUES(id),
			method = VALUES(method),
			channel = VALUES(channel),
			status = VALUES(status),
			amount = VALUES(amount),
			external_id = VALUES(external_id),
			provider_reference = VALUES(provider_reference),
			virtual_account_number = VALUES(virtual_account_number),
			qr_code_url = VALUES(qr_code_url),
			qr_string = VALUES(qr_string),
			payment_code = VALUES(payment_code),
			checkout_url = VALUES(checkout_url),
			invoice_url = VALUES(invoice_url),
			expires_at = VALUES(expires_at),
			failure_reason = VALUES(failure_reason),
			updated_at = VALUES(updated_at)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		tx.ID,
		tx.OrderID,
		tx.Method,
		tx.Channel,
		tx.Status,
		tx.Amount,
		tx.ExternalID,
		nullableStringValue(tx.ProviderReference),
		nullableStringValue(tx.VirtualAccountNumber),
		nullableStringValue(tx.QRCodeURL),
		nullableStringValue(tx.QRString),
		nullableStringValue(tx.PaymentCode),
		nullableStringValue(tx.CheckoutURL),
		nullableStringValue(tx.InvoiceURL),
		nullableTimeValue(tx.ExpiresAt),
		nullableStringValue(tx.FailureReason),
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return err
}

func (r *PaymentTransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE order_id = ? LIMIT 1`
	return r.findOne(ctx, query, orderID)
}

func (r *PaymentTransactionRepository) FindByExternalID(ctx context.Context, externalID string) (*entity.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE external_id = ? LIMIT 1`
	return r.findOne(ctx, query, externalID)
}

func (r *PaymentTransactionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.PaymentTransaction, error) {
	tx := &entity.PaymentTransaction{}
	if err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, args...), tx); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return tx, nil
}

func scanTransaction(scan rowScanner, tx *entity.PaymentTransaction) error {
	var providerReference sql.NullString
	var vaNumber sql.NullString
	var qrCodeURL sql.NullString
	var qrString sql.NullString
	var paymentCode sql.NullString
	var checkoutURL sql.NullString
	var invoiceURL sql.NullString
	var expiresAt sql.NullTime
	var failureReason sql.NullString

	err := scan.Scan(
		&tx.ID,
		&tx.OrderID,
		&tx.Method,
		&tx.Channel,
		&tx.Status,
		&tx.Amount,
		&tx.ExternalID,
		&providerReference,
		&vaNumber,
		&qrCodeURL,
		&qrString,
		&paymentCode,
		&checkoutURL,
		&invoiceURL,
		&expiresAt,
		&failureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return err
	}

	tx.ProviderReference = stringPtrFromNull(providerReference)
	tx.VirtualAccountNumber = stringPtrFromNull(vaNumber)
	tx.QRCodeURL = stringPtrFromNull(qrCodeURL)
	tx.QRString = stringPtrFromNull(qrString)
	tx.PaymentCode = stringPtrFromNull(paymentCode)
	tx.CheckoutURL = stringPtrFromNull(checkoutURL)
	tx.InvoiceURL = stringPtrFromNull(invoiceURL)
	tx.ExpiresAt = timePtrFromNull(expiresAt)
	tx.FailureReason = stringPtrFromNull(failureReason)

	return nil
}
