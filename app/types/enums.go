package types

import (
	"fmt"
	"strings"
)

// OrderStatus is the authoritative lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending              OrderStatus = "pending"
	OrderStatusAwaitingConfirmation OrderStatus = "awaiting_confirmation"
	OrderStatusProcessing           OrderStatus = "processing"
	OrderStatusDone                 OrderStatus = "done"
	OrderStatusCancelled            OrderStatus = "cancelled"
	OrderStatusCancelledByUser      OrderStatus = "cancelled_by_user"
	OrderStatusCancelledByAdmin     OrderStatus = "cancelled_by_admin"
	OrderStatusPaymentInvalid       OrderStatus = "payment_invalid"
	OrderStatusRefunded             OrderStatus = "refunded"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAwaitingConfirmation,
	OrderStatusProcessing,
	OrderStatusDone,
	OrderStatusCancelled,
	OrderStatusCancelledByUser,
	OrderStatusCancelledByAdmin,
	OrderStatusPaymentInvalid,
	OrderStatusRefunded,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// RefundStatus is an independent sub-state of an order. Empty means no refund was requested.
type RefundStatus string

const (
	RefundStatusNone     RefundStatus = ""
	RefundStatusPending  RefundStatus = "refund_pending"
	RefundStatusRefunded RefundStatus = "refunded"
	RefundStatusRejected RefundStatus = "refund_rejected"
)

func (s RefundStatus) String() string {
	return string(s)
}

func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusNone, RefundStatusPending, RefundStatusRefunded, RefundStatusRejected:
		return true
	default:
		return false
	}
}

// PaymentMethod identifies the completion protocol of a payment transaction.
type PaymentMethod string

const (
	PaymentMethodVirtualAccount PaymentMethod = "virtual_account"
	PaymentMethodEWallet        PaymentMethod = "ewallet"
	PaymentMethodQRIS           PaymentMethod = "qris"
	PaymentMethodRetailOutlet   PaymentMethod = "retail_outlet"
	PaymentMethodPayLater       PaymentMethod = "paylater"
	PaymentMethodCard           PaymentMethod = "card"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodVirtualAccount,
	PaymentMethodEWallet,
	PaymentMethodQRIS,
	PaymentMethodRetailOutlet,
	PaymentMethodPayLater,
	PaymentMethodCard,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// Category returns the upper-case payment category code used on the wire.
func (m PaymentMethod) Category() string {
	return strings.ToUpper(string(m))
}

// MethodFromCategory maps a payment category code (e.g. "QRIS", "virtual_account") to its method.
func MethodFromCategory(category string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(category)))
	if method.IsValid() {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment category %q", category)
}

// OrderAction is a customer-initiated lifecycle action.
type OrderAction string

const (
	OrderActionCancel OrderAction = "cancel"
	OrderActionRefund OrderAction = "refund"
)

// RefundDecision is an operator's resolution of a pending refund.
type RefundDecision string

const (
	RefundDecisionApprove RefundDecision = "approve"
	RefundDecisionReject  RefundDecision = "reject"
)

// EventSource records who caused a status write.
type EventSource string

const (
	EventSourceCustomer EventSource = "customer"
	EventSourceAdmin    EventSource = "admin"
	EventSourceGateway  EventSource = "gateway"
	EventSourceJob      EventSource = "job"
)
