package entity

import "time"

type PaymentTransaction struct {
	ID      string
	OrderID string

	Method  string
	Channel string
	Status  string
	Amount  int64

	ExternalID        string
	ProviderReference *string

	VirtualAccountNumber *string
	QRCodeURL            *string
	QRString             *string
	PaymentCode          *string
	CheckoutURL          *string
	InvoiceURL           *string

	ExpiresAt     *time.Time
	FailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *PaymentTransaction) Clone() *PaymentTransaction {
	if t == nil {
		return nil
	}
	c := *t
	c.ProviderReference = cloneString(t.ProviderReference)
	c.VirtualAccountNumber = cloneString(t.VirtualAccountNumber)
	c.QRCodeURL = cloneString(t.QRCodeURL)
	c.QRString = cloneString(t.QRString)
	c.PaymentCode = cloneString(t.PaymentCode)
	c.CheckoutURL = cloneString(t.CheckoutURL)
	c.InvoiceURL = cloneString(t.InvoiceURL)
	c.ExpiresAt = cloneTime(t.ExpiresAt)
	c.FailureReason = cloneString(t.FailureReason)
	return &c
}
