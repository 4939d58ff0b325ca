package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

type PaymentChannelRepository struct {
	db DBTX
}

func NewPaymentChannelRepository(db DBTX) *PaymentChannelRepository {
	return &PaymentChannelRepository{db: db}
}

func (r *PaymentChannelRepository) List(ctx context.Context) ([]*entity.PaymentChannel, error) {
	query := `
		SELECT category, channel, name, available, message, sort_order, updated_at
		FROM payment_channels
		ORDER BY sort_order ASC, category ASC, channel ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := make([]*entity.PaymentChannel, 0)
	for rows.Next() {
		item := &entity.PaymentChannel{}
		if err := scanChannel(rows, item); err != nil {
			return nil, err
		}
		channels = append(channels, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return channels, nil
}

func (r *PaymentChannelRepository) Find(ctx context.Context, category, channel string) (*entity.PaymentChannel, error) {
	query := `
		SELECT category, channel, name, available, message, sort_order, updated_at
		FROM payment_channels
		WHERE category = ? AND channel = ?
		LIMIT 1
	`

	item := &entity.PaymentChannel{}
	if err := scanChannel(conn(ctx, r.db).QueryRowContext(ctx, query, category, channel), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *PaymentChannelRepository) Upsert(ctx context.Context, ch *entity.PaymentChannel) error {
	query := `
		INSERT INTO payment_channels (category, channel, name, available, message, sort_order, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			available = VALUES(available),
			message = VALUES(message),
			updated_at = VALUES(updated_at)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		ch.Category,
		ch.Channel,
		ch.Name,
		ch.Available,
		nullableStringValue(ch.Message),
		ch.SortOrder,
		ch.UpdatedAt,
	)
	return err
}

func scanChannel(scan rowScanner, ch *entity.PaymentChannel) error {
	var message sql.NullString
	if err := scan.Scan(
		&ch.Category,
		&ch.Channel,
		&ch.Name,
		&ch.Available,
		&message,
		&ch.SortOrder,
		&ch.UpdatedAt,
	); err != nil {
		return err
	}
	ch.Message = stringPtrFromNull(message)
	return nil
}
