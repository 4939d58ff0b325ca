package entity

import "time"

type Order struct {
	ID string

	RequestID string

	Status   string
	Amount   int64
	Currency string

	ItemName string
	Quantity int32

	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	Notes         *string

	PaymentStatus    *string
	PaymentMethod    *string
	PaymentChannel   *string
	PaymentReference *string
	PaymentExpiresAt *time.Time

	RefundStatus *string
	RefundReason *string
	CancelReason *string

	RatingValue  *int32
	RatingReview *string

	CallbackHash string

	LatestTransaction *PaymentTransaction

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers never mutate a shared snapshot.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.CustomerPhone = cloneString(o.CustomerPhone)
	c.Notes = cloneString(o.Notes)
	c.PaymentStatus = cloneString(o.PaymentStatus)
	c.PaymentMethod = cloneString(o.PaymentMethod)
	c.PaymentChannel = cloneString(o.PaymentChannel)
	c.PaymentReference = cloneString(o.PaymentReference)
	c.PaymentExpiresAt = cloneTime(o.PaymentExpiresAt)
	c.RefundStatus = cloneString(o.RefundStatus)
	c.RefundReason = cloneString(o.RefundReason)
	c.CancelReason = cloneString(o.CancelReason)
	c.RatingReview = cloneString(o.RatingReview)
	if o.RatingValue != nil {
		v := *o.RatingValue
		c.RatingValue = &v
	}
	c.LatestTransaction = o.LatestTransaction.Clone()
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
