package status

import "github.com/vibast-solutions/ms-go-checkout/app/types"

type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
)

type RefundInfo struct {
	Tone        Tone
	Title       string
	Description string
}

// DescribeRefund maps the refund sub-state to what the refund panel shows.
func DescribeRefund(st types.RefundStatus) RefundInfo {
	switch st {
	case types.RefundStatusPending:
		return RefundInfo{
			Tone:        ToneWarning,
			Title:       "Refund requested",
			Description: "Your refund request is pending review. We will notify you once it has been processed.",
		}
	case types.RefundStatusRefunded:
		return RefundInfo{
			Tone:        ToneSuccess,
			Title:       "Refund completed",
			Description: "The payment has been refunded to your original payment method.",
		}
	case types.RefundStatusRejected:
		return RefundInfo{
			Tone:        ToneDanger,
			Title:       "Refund rejected",
			Description: "Your refund request was rejected. Contact support if you believe this is a mistake.",
		}
	default:
		return RefundInfo{
			Tone:        ToneInfo,
			Title:       "No refund",
			Description: "No refund has been requested for this order.",
		}
	}
}
