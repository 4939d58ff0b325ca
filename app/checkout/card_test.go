package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

var cardNow = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func validCard() CardDetails {
	return CardDetails{Number: "4111 1111 1111 1111", Expiry: "12/30", CVV: "123"}
}

func TestValidateCardBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(c *CardDetails)
		field string
	}{
		{name: "12 digits", mut: func(c *CardDetails) { c.Number = "411111111111" }, field: "card_number"},
		{name: "13 digits", mut: func(c *CardDetails) { c.Number = "4111111111111" }},
		{name: "19 digits", mut: func(c *CardDetails) { c.Number = "4111111111111111111" }},
		{name: "20 digits", mut: func(c *CardDetails) { c.Number = "41111111111111111111" }, field: "card_number"},
		{name: "letters", mut: func(c *CardDetails) { c.Number = "4111x11111111111" }, field: "card_number"},
		{name: "month 13", mut: func(c *CardDetails) { c.Expiry = "13/30" }, field: "card_expiry"},
		{name: "month 00", mut: func(c *CardDetails) { c.Expiry = "00/30" }, field: "card_expiry"},
		{name: "last month", mut: func(c *CardDetails) { c.Expiry = "09/26" }, field: "card_expiry"},
		{name: "current month", mut: func(c *CardDetails) { c.Expiry = "10/26" }},
		{name: "bad format", mut: func(c *CardDetails) { c.Expiry = "1230" }, field: "card_expiry"},
		{name: "cvv 2", mut: func(c *CardDetails) { c.CVV = "12" }, field: "card_cvv"},
		{name: "cvv 3", mut: func(c *CardDetails) { c.CVV = "123" }},
		{name: "cvv 4", mut: func(c *CardDetails) { c.CVV = "1234" }},
		{name: "cvv 5", mut: func(c *CardDetails) { c.CVV = "12345" }, field: "card_cvv"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := validCard()
			tc.mut(&card)
			err := ValidateCard(card, cardNow)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestDetectBrand(t *testing.T) {
	assert.Equal(t, "VISA", DetectBrand("4111 1111 1111 1111"))
	assert.Equal(t, "MASTERCARD", DetectBrand("5500000000000004"))
	assert.Equal(t, "MASTERCARD", DetectBrand("2221000000000009"))
	assert.Equal(t, "AMEX", DetectBrand("340000000000009"))
	assert.Equal(t, "AMEX", DetectBrand("370000000000002"))
	assert.Equal(t, "JCB", DetectBrand("3530111333300000"))
	assert.Empty(t, DetectBrand("6011000000000004"))
}

func newCardFlowFixture(charge func(ctx context.Context, orderID, tokenID, brand string) (*types.CardChargeResponse, error), refetch *types.Order) (*CardFlow, *fakeAPI, *fakeTokenizer, *recordingRedirector) {
	api := &fakeAPI{chargeCardFn: charge}
	if refetch != nil {
		api.getOrderFn = staticOrder(refetch)
	} else {
		api.getOrderFn = func(context.Context, string, bool) (*types.Order, error) { return nil, &TransientError{Err: errors.New("offline")} }
	}
	tokenizer := &fakeTokenizer{tokenizeFn: func(_ context.Context, req TokenizeRequest) (*CardToken, error) {
		return &CardToken{ID: "tok_1", Brand: ""}, nil
	}}
	redirector := &recordingRedirector{}
	flow := NewCardFlow("ord-1", api, tokenizer, redirector, WithCardClock(func() time.Time { return cardNow }))
	return flow, api, tokenizer, redirector
}

func TestCardFlowStepUpRedirects(t *testing.T) {
	stepUp := &types.PaymentTransaction{Method: types.PaymentMethodCard, Status: "REQUIRES_ACTION", CheckoutUrl: "https://3ds.example.com/ch_1"}
	order := &types.Order{Id: "ord-1", Status: types.OrderStatusPending, PaymentStatus: "requires_action", LatestTransaction: stepUp}

	var gotBrand string
	flow, _, tokenizer, redirector := newCardFlowFixture(func(_ context.Context, orderID, tokenID, brand string) (*types.CardChargeResponse, error) {
		assert.Equal(t, "ord-1", orderID)
		assert.Equal(t, "tok_1", tokenID)
		gotBrand = brand
		return &types.CardChargeResponse{Transaction: stepUp, Order: order}, nil
	}, order)

	card := CardDetails{Number: "4111111111111111", Expiry: "12/30", CVV: "123"}
	result, err := flow.Submit(context.Background(), card, decimal.NewFromInt(150000))
	require.NoError(t, err)
	assert.Equal(t, CardNeedsStepUp, result.State)
	assert.Equal(t, "VISA", gotBrand)
	assert.Equal(t, 1, tokenizer.calls)
	assert.Equal(t, []string{"https://3ds.example.com/ch_1"}, redirector.urls)

	_, err = flow.Submit(context.Background(), card, decimal.NewFromInt(150000))
	assert.ErrorIs(t, err, ErrCardFinished)
}

func TestCardFlowRefetchWinsOverChargeResponse(t *testing.T) {
	chargeResp := &types.CardChargeResponse{Transaction: &types.PaymentTransaction{Status: "PENDING"}}
	settled := &types.Order{
		Id:                "ord-1",
		Status:            types.OrderStatusAwaitingConfirmation,
		PaymentStatus:     "paid",
		LatestTransaction: &types.PaymentTransaction{Status: "CAPTURED"},
	}
	flow, _, _, redirector := newCardFlowFixture(func(context.Context, string, string, string) (*types.CardChargeResponse, error) {
		return chargeResp, nil
	}, settled)

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, CardSettled, result.State)
	assert.Equal(t, CardSettled, flow.State())
	assert.Empty(t, redirector.urls)
}

func TestCardFlowInconclusiveIsPending(t *testing.T) {
	flow, _, _, _ := newCardFlowFixture(func(context.Context, string, string, string) (*types.CardChargeResponse, error) {
		return &types.CardChargeResponse{Transaction: &types.PaymentTransaction{Status: "PENDING"}}, nil
	}, nil)

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, CardPending, result.State)
}

func TestCardFlowRedirectFailureAllowsRetry(t *testing.T) {
	stepUp := &types.PaymentTransaction{Status: "REQUIRES_ACTION", CheckoutUrl: "https://3ds.example.com/ch_1"}
	flow, _, tokenizer, redirector := newCardFlowFixture(func(context.Context, string, string, string) (*types.CardChargeResponse, error) {
		return &types.CardChargeResponse{Transaction: stepUp}, nil
	}, nil)
	redirector.err = errors.New("navigation blocked")

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.Error(t, err)
	assert.Equal(t, CardFailed, result.State)
	assert.Equal(t, CardFailed, flow.State())
	assert.Equal(t, "https://3ds.example.com/ch_1", result.RedirectURL)

	redirector.err = nil
	result, err = flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, CardNeedsStepUp, result.State)
	assert.Equal(t, 2, tokenizer.calls)
}

func TestCardFlowPendingBlocksResubmitUntilRecheck(t *testing.T) {
	flow, api, tokenizer, _ := newCardFlowFixture(func(context.Context, string, string, string) (*types.CardChargeResponse, error) {
		return &types.CardChargeResponse{Transaction: &types.PaymentTransaction{Status: "PENDING"}}, nil
	}, nil)

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.Equal(t, CardPending, result.State)

	_, err = flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrCardPending)
	assert.Equal(t, 1, tokenizer.calls)

	api.getOrderFn = staticOrder(&types.Order{Id: "ord-1", Status: types.OrderStatusPending, PaymentStatus: "pending",
		LatestTransaction: &types.PaymentTransaction{Status: "PENDING"}})
	result, err = flow.Recheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CardPending, result.State)

	api.getOrderFn = staticOrder(&types.Order{Id: "ord-1", Status: types.OrderStatusPending, PaymentStatus: "failed",
		LatestTransaction: &types.PaymentTransaction{Status: "FAILED", FailureReason: "Insufficient funds"}})
	result, err = flow.Recheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CardFailed, result.State)
	assert.Equal(t, "Insufficient funds", result.Message)

	_, err = flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, 2, tokenizer.calls)
}

func TestCardFlowStepUpWithoutURLFails(t *testing.T) {
	flow, _, _, redirector := newCardFlowFixture(func(context.Context, string, string, string) (*types.CardChargeResponse, error) {
		return &types.CardChargeResponse{Transaction: &types.PaymentTransaction{Status: "REQUIRES_ACTION"}}, nil
	}, nil)

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrStepUpUnavailable)
	assert.Equal(t, CardFailed, result.State)
	assert.Empty(t, redirector.urls)
}

func TestCardFlowValidationMakesNoNetworkCall(t *testing.T) {
	flow, _, tokenizer, _ := newCardFlowFixture(nil, nil)

	card := validCard()
	card.CVV = "12"
	result, err := flow.Submit(context.Background(), card, decimal.NewFromInt(1000))
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, CardIdle, result.State)
	assert.Equal(t, CardIdle, flow.State())
	assert.Zero(t, tokenizer.calls)
}

func TestCardFlowSurfacesGatewayMessage(t *testing.T) {
	flow, _, tokenizer, _ := newCardFlowFixture(nil, nil)
	tokenizer.tokenizeFn = func(context.Context, TokenizeRequest) (*CardToken, error) {
		return nil, &GatewayError{Message: "Card number is invalid"}
	}

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	require.Error(t, err)
	assert.Equal(t, CardFailed, result.State)
	assert.Equal(t, "Card number is invalid", result.Message)

	tokenizer.tokenizeFn = func(context.Context, TokenizeRequest) (*CardToken, error) {
		return nil, errors.New("connection reset")
	}
	result, _ = flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	assert.Equal(t, genericGatewayMessage, result.Message)
}

func TestCardFlowTimesOut(t *testing.T) {
	api := &fakeAPI{}
	tokenizer := &fakeTokenizer{tokenizeFn: func(ctx context.Context, _ TokenizeRequest) (*CardToken, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	flow := NewCardFlow("ord-1", api, tokenizer, &recordingRedirector{},
		WithCardTimeout(20*time.Millisecond),
		WithCardClock(func() time.Time { return cardNow }),
	)

	result, err := flow.Submit(context.Background(), validCard(), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, ErrCardTimeout)
	assert.Equal(t, CardFailed, result.State)
	assert.Equal(t, CardFailed, flow.State())
}
