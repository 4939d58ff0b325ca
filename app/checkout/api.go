// Package checkout holds the per-order-view logic of the storefront: channel selection, payment
// instructions, card capture, the reconciliation session and customer lifecycle actions. It talks to
// the checkout service only through the interfaces declared here.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string, sync bool) (*types.Order, error)
}

type ChannelLister interface {
	ListPaymentChannels(ctx context.Context) ([]*types.PaymentChannelStatus, error)
}

type OrderCreator interface {
	ChannelLister
	CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.CreateOrderResponse, error)
}

type CardCharger interface {
	OrderReader
	ChargeCard(ctx context.Context, orderID, tokenID, cardBrand string) (*types.CardChargeResponse, error)
}

type ActionPerformer interface {
	PerformAction(ctx context.Context, orderID string, action types.OrderAction, reason string) (*types.Order, error)
	SubmitRating(ctx context.Context, orderID string, rating int32, review string) (*types.Order, error)
}

// CardToken is the single-use token returned by the gateway's tokenization endpoint.
type CardToken struct {
	ID              string
	Brand           string
	Status          string
	VerificationURL string
}

type TokenizeRequest struct {
	Card   CardDetails
	Amount decimal.Decimal
}

type CardTokenizer interface {
	Tokenize(ctx context.Context, req TokenizeRequest) (*CardToken, error)
}

// Redirector performs the full navigation required by card step-up verification.
type Redirector interface {
	Redirect(ctx context.Context, url string) error
}

type RedirectFunc func(ctx context.Context, url string) error

func (f RedirectFunc) Redirect(ctx context.Context, url string) error {
	return f(ctx, url)
}
