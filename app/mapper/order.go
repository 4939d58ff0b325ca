package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

// OrderToDTO maps an order and its attached transaction snapshot, resolving the effective status at now.
func OrderToDTO(item *entity.Order, now time.Time) *types.Order {
	if item == nil {
		return nil
	}

	return &types.Order{
		Id:                item.ID,
		Status:            types.OrderStatus(item.Status),
		EffectiveStatus:   status.EffectiveStatus(OrderSnapshot(item), now),
		Amount:            item.Amount,
		Currency:          item.Currency,
		ItemName:          item.ItemName,
		Quantity:          item.Quantity,
		CustomerName:      item.CustomerName,
		CustomerEmail:     item.CustomerEmail,
		CustomerPhone:     derefString(item.CustomerPhone),
		Notes:             derefString(item.Notes),
		PaymentStatus:     derefString(item.PaymentStatus),
		PaymentMethod:     types.PaymentMethod(derefString(item.PaymentMethod)),
		PaymentChannel:    derefString(item.PaymentChannel),
		PaymentReference:  derefString(item.PaymentReference),
		PaymentExpiresAt:  formatTime(item.PaymentExpiresAt),
		RefundStatus:      types.RefundStatus(derefString(item.RefundStatus)),
		RefundReason:      derefString(item.RefundReason),
		CancelReason:      derefString(item.CancelReason),
		RatingValue:       derefInt32(item.RatingValue),
		RatingReview:      derefString(item.RatingReview),
		LatestTransaction: TransactionToDTO(item.LatestTransaction),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func TransactionToDTO(item *entity.PaymentTransaction) *types.PaymentTransaction {
	if item == nil {
		return nil
	}

	return &types.PaymentTransaction{
		Id:                   item.ID,
		OrderId:              item.OrderID,
		Method:               types.PaymentMethod(item.Method),
		Channel:              item.Channel,
		Status:               item.Status,
		Amount:               item.Amount,
		ExternalId:           item.ExternalID,
		ProviderReference:    derefString(item.ProviderReference),
		VirtualAccountNumber: derefString(item.VirtualAccountNumber),
		QrCodeUrl:            derefString(item.QRCodeURL),
		QrString:             derefString(item.QRString),
		PaymentCode:          derefString(item.PaymentCode),
		CheckoutUrl:          derefString(item.CheckoutURL),
		InvoiceUrl:           derefString(item.InvoiceURL),
		ExpiresAt:            formatTime(item.ExpiresAt),
		FailureReason:        derefString(item.FailureReason),
		CreatedAt:            item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ChannelsToDTO(items []*entity.PaymentChannel) []*types.PaymentChannelStatus {
	result := make([]*types.PaymentChannelStatus, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result = append(result, &types.PaymentChannelStatus{
			Category:  item.Category,
			Channel:   item.Channel,
			Name:      item.Name,
			Available: item.Available,
			Message:   derefString(item.Message),
		})
	}
	return result
}

// OrderSnapshot extracts the normalizer inputs from a stored order and its attached transaction.
func OrderSnapshot(item *entity.Order) status.Snapshot {
	if item == nil {
		return status.Snapshot{}
	}
	s := status.Snapshot{
		OrderStatus:    types.OrderStatus(item.Status),
		PaymentStatus:  derefString(item.PaymentStatus),
		OrderExpiresAt: item.PaymentExpiresAt,
	}
	if tx := item.LatestTransaction; tx != nil {
		s.TransactionStatus = tx.Status
		s.TransactionExpiresAt = tx.ExpiresAt
	}
	return s
}

func formatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
