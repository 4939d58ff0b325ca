package checkout

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const DefaultCardTimeout = 30 * time.Second

type CardState string

const (
	CardIdle        CardState = "idle"
	CardValidating  CardState = "validating"
	CardTokenizing  CardState = "tokenizing"
	CardCharging    CardState = "charging"
	CardSettled     CardState = "settled"
	CardNeedsStepUp CardState = "needs_step_up"
	CardPending     CardState = "pending"
	CardFailed      CardState = "failed"
)

type CardDetails struct {
	Number     string
	Expiry     string
	CVV        string
	HolderName string
	Email      string
}

// CardResult is the outcome of one card submission.
type CardResult struct {
	State       CardState
	Order       *types.Order
	Transaction *types.PaymentTransaction
	RedirectURL string
	Message     string
}

type CardFlowOption func(*CardFlow)

func WithCardTimeout(timeout time.Duration) CardFlowOption {
	return func(f *CardFlow) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithCardClock(now func() time.Time) CardFlowOption {
	return func(f *CardFlow) {
		if now != nil {
			f.now = now
		}
	}
}

// CardFlow drives card capture for one order: validate, tokenize, charge, reconcile, and step up.
type CardFlow struct {
	orderID    string
	api        CardCharger
	tokenizer  CardTokenizer
	redirector Redirector
	timeout    time.Duration
	now        func() time.Time
	logger     logrus.FieldLogger

	mu    sync.Mutex
	state CardState
}

func NewCardFlow(orderID string, api CardCharger, tokenizer CardTokenizer, redirector Redirector, opts ...CardFlowOption) *CardFlow {
	f := &CardFlow{
		orderID:    orderID,
		api:        api,
		tokenizer:  tokenizer,
		redirector: redirector,
		timeout:    DefaultCardTimeout,
		now:        time.Now,
		logger:     factory.NewModuleLogger("checkout-card"),
		state:      CardIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *CardFlow) State() CardState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *CardFlow) setState(state CardState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

func (f *CardFlow) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case CardValidating, CardTokenizing, CardCharging:
		return ErrCardBusy
	case CardSettled, CardNeedsStepUp:
		return ErrCardFinished
	case CardPending:
		return ErrCardPending
	}
	f.state = CardValidating
	return nil
}

// Submit runs one capture attempt. Validation errors return the flow to Idle without any network call.
// Gateway and timeout failures leave it Failed, from where it can be retried.
func (f *CardFlow) Submit(ctx context.Context, card CardDetails, amount decimal.Decimal) (*CardResult, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}

	if err := ValidateCard(card, f.now()); err != nil {
		f.setState(CardIdle)
		return &CardResult{State: CardIdle, Message: err.Error()}, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.setState(CardTokenizing)
	token, err := f.tokenizer.Tokenize(attemptCtx, TokenizeRequest{Card: card, Amount: amount})
	if err != nil {
		return f.fail(ctx, attemptCtx, err)
	}

	brand := strings.ToUpper(strings.TrimSpace(token.Brand))
	if brand == "" {
		brand = DetectBrand(card.Number)
	}

	f.setState(CardCharging)
	charged, err := f.api.ChargeCard(attemptCtx, f.orderID, token.ID, brand)
	if err != nil {
		return f.fail(ctx, attemptCtx, err)
	}

	order, tx := f.reconcile(attemptCtx, charged)
	return f.settle(attemptCtx, order, tx, token)
}

// reconcile re-reads the order after a charge; the re-read wins over the charge response.
func (f *CardFlow) reconcile(ctx context.Context, charged *types.CardChargeResponse) (*types.Order, *types.PaymentTransaction) {
	var order *types.Order
	var tx *types.PaymentTransaction
	if charged != nil {
		order, tx = charged.Order, charged.Transaction
	}

	fresh, err := f.api.GetOrder(ctx, f.orderID, false)
	if err != nil {
		f.logger.WithError(err).WithField("order_id", f.orderID).Warn("Card charge reconcile fetch failed")
	} else if fresh != nil {
		order = fresh
		if fresh.LatestTransaction != nil {
			tx = fresh.LatestTransaction
		}
	}
	if tx == nil && order != nil {
		tx = order.LatestTransaction
	}
	return order, tx
}

func (f *CardFlow) settle(ctx context.Context, order *types.Order, tx *types.PaymentTransaction, token *CardToken) (*CardResult, error) {
	result := &CardResult{Order: order, Transaction: tx}
	txStatus := ""
	if tx != nil {
		txStatus = tx.Status
	}

	paidOrder := order
	if paidOrder == nil {
		paidOrder = &types.Order{}
	}

	switch {
	case status.IsPaid(paidOrder, tx):
		result.State = CardSettled
		result.Message = "Payment successful"
	case status.IsRequiresAction(txStatus):
		url := ""
		if tx != nil {
			url = tx.CheckoutUrl
		}
		if url == "" {
			url = token.VerificationURL
		}
		if url == "" {
			f.setState(CardFailed)
			result.State = CardFailed
			result.Message = ErrStepUpUnavailable.Error()
			return result, ErrStepUpUnavailable
		}
		f.setState(CardNeedsStepUp)
		result.State = CardNeedsStepUp
		result.RedirectURL = url
		if err := f.redirector.Redirect(ctx, url); err != nil {
			f.logger.WithError(err).WithField("order_id", f.orderID).Warn("Card step-up redirect failed")
			f.setState(CardFailed)
			result.State = CardFailed
			result.Message = "Could not open card verification. Please try again."
			return result, err
		}
		return result, nil
	case status.IsPaymentFailure(txStatus):
		message := genericGatewayMessage
		if tx != nil && strings.TrimSpace(tx.FailureReason) != "" {
			message = tx.FailureReason
		}
		f.setState(CardFailed)
		result.State = CardFailed
		result.Message = message
		return result, &GatewayError{Message: message}
	default:
		result.State = CardPending
		result.Message = "Payment is awaiting confirmation"
	}

	f.setState(result.State)
	return result, nil
}

// Recheck re-reads a Pending payment. A settled order moves the flow to Settled, a failed charge
// to Failed (from where Submit may retry); anything else stays Pending.
func (f *CardFlow) Recheck(ctx context.Context) (*CardResult, error) {
	if state := f.State(); state != CardPending {
		return &CardResult{State: state}, nil
	}

	order, err := f.api.GetOrder(ctx, f.orderID, true)
	if err != nil {
		return &CardResult{State: CardPending, Message: "Payment is awaiting confirmation"}, err
	}
	var tx *types.PaymentTransaction
	if order != nil {
		tx = order.LatestTransaction
	}
	result := &CardResult{Order: order, Transaction: tx, State: CardPending, Message: "Payment is awaiting confirmation"}

	switch {
	case order != nil && status.IsPaid(order, tx):
		result.State = CardSettled
		result.Message = "Payment successful"
	case tx != nil && status.IsPaymentFailure(tx.Status):
		result.State = CardFailed
		result.Message = genericGatewayMessage
		if strings.TrimSpace(tx.FailureReason) != "" {
			result.Message = tx.FailureReason
		}
	}

	f.mu.Lock()
	if f.state == CardPending {
		f.state = result.State
	}
	f.mu.Unlock()
	return result, nil
}

func (f *CardFlow) fail(parent, attempt context.Context, err error) (*CardResult, error) {
	f.setState(CardFailed)
	if errors.Is(attempt.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return &CardResult{State: CardFailed, Message: ErrCardTimeout.Error()}, ErrCardTimeout
	}
	return &CardResult{State: CardFailed, Message: GatewayMessage(err)}, err
}

// ValidateCard checks number length, MM/YY expiry not before the current month, and CVV length.
func ValidateCard(card CardDetails, now time.Time) error {
	number := DigitsOnly(card.Number)
	if len(number) < 13 || len(number) > 19 || len(number) != countNumberRunes(card.Number) {
		return newValidationError("card_number", "card number must be 13 to 19 digits")
	}

	month, year, err := parseExpiry(card.Expiry)
	if err != nil {
		return newValidationError("card_expiry", err.Error())
	}
	current := now.Year()*12 + int(now.Month())
	if year*12+month < current {
		return newValidationError("card_expiry", "card has expired")
	}

	cvv := strings.TrimSpace(card.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || DigitsOnly(cvv) != cvv {
		return newValidationError("card_cvv", "CVV must be 3 or 4 digits")
	}

	return nil
}

func parseExpiry(raw string) (month, year int, err error) {
	mm, yy, ok := strings.Cut(strings.TrimSpace(raw), "/")
	mm, yy = strings.TrimSpace(mm), strings.TrimSpace(yy)
	if !ok || len(mm) != 2 || len(yy) != 2 {
		return 0, 0, errors.New("expiry must be MM/YY")
	}
	month, err = strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("expiry month must be between 01 and 12")
	}
	year, err = strconv.Atoi(yy)
	if err != nil {
		return 0, 0, errors.New("expiry year is invalid")
	}
	return month, 2000 + year, nil
}

// DigitsOnly strips spaces, dashes and anything else that is not a digit.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// countNumberRunes counts characters other than the formatting separators customers type.
func countNumberRunes(value string) int {
	n := 0
	for _, r := range value {
		if r != ' ' && r != '-' {
			n++
		}
	}
	return n
}

// DetectBrand classifies a card number by prefix. It is for display only.
func DetectBrand(number string) string {
	digits := DigitsOnly(number)
	if len(digits) > 4 {
		digits = digits[:4]
	}
	prefix2 := 0
	if len(digits) >= 2 {
		prefix2, _ = strconv.Atoi(digits[:2])
	}

	switch {
	case strings.HasPrefix(digits, "4"):
		return "VISA"
	case prefix2 >= 51 && prefix2 <= 55, prefix2 >= 22 && prefix2 <= 27:
		return "MASTERCARD"
	case prefix2 == 34, prefix2 == 37:
		return "AMEX"
	case prefix2 == 35:
		return "JCB"
	default:
		return ""
	}
}
