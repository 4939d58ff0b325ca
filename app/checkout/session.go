package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/status"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const DefaultConfirmRedirectDelay = 1500 * time.Millisecond

// View is everything a rendered order page derives from the latest order snapshot.
type View struct {
	Order       *types.Order
	Effective   types.OrderStatus
	Paid        bool
	Instruction Instruction
	Refund      status.RefundInfo
}

// Countdown is the advisory time left on the payment window. It never changes server state.
type Countdown struct {
	Remaining time.Duration
	Display   string
	Expired   bool
	HasExpiry bool
}

type SessionOptions struct {
	// PollInterval enables background polling; zero disables it.
	PollInterval         time.Duration
	TickInterval         time.Duration
	ConfirmRedirectDelay time.Duration
	Now                  func() time.Time

	OnUpdate    func(View)
	OnCountdown func(Countdown)
	OnConfirmed func(*types.Order)
}

// Session owns one open order view: its snapshot, countdown ticker, optional poller and any pending
// confirmation redirect. Close stops all of them.
type Session struct {
	api     OrderReader
	orderID string
	opts    SessionOptions
	logger  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	order      *types.Order
	nextSeq    uint64
	appliedSeq uint64
	closed     bool
}

// Open fetches the order and starts the countdown, plus polling when enabled. A not-found or
// access-denied order returns the error without starting anything.
func Open(ctx context.Context, api OrderReader, orderID string, opts SessionOptions) (*Session, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.ConfirmRedirectDelay <= 0 {
		opts.ConfirmRedirectDelay = DefaultConfirmRedirectDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		api:     api,
		orderID: orderID,
		opts:    opts,
		logger:  factory.NewModuleLogger("checkout-session").WithField("order_id", orderID),
	}

	order, err := api.GetOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	s.order = order

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.runCountdown()
	if opts.PollInterval > 0 {
		s.wg.Add(1)
		go s.runPoller()
	}

	s.publish(s.View())
	return s, nil
}

func (s *Session) OrderID() string {
	return s.orderID
}

// View re-derives the effective status from the held snapshot and the current time.
func (s *Session) View() View {
	s.mu.RLock()
	order := s.order
	s.mu.RUnlock()
	return s.viewOf(order)
}

func (s *Session) viewOf(order *types.Order) View {
	if order == nil {
		return View{Instruction: RenderInstruction(nil), Refund: status.DescribeRefund(types.RefundStatusNone)}
	}
	snapshot := status.FromOrder(order, nil)
	return View{
		Order:       order,
		Effective:   status.EffectiveStatus(snapshot, s.opts.Now()),
		Paid:        snapshot.Paid(),
		Instruction: RenderInstruction(order),
		Refund:      status.DescribeRefund(order.RefundStatus),
	}
}

func (s *Session) Countdown() Countdown {
	s.mu.RLock()
	order := s.order
	s.mu.RUnlock()

	left, ok := status.FromOrder(order, nil).Remaining(s.opts.Now())
	if !ok {
		return Countdown{}
	}
	return Countdown{Remaining: left, Display: FormatCountdown(left), Expired: left <= 0, HasExpiry: true}
}

// FormatCountdown renders a duration as HH:MM:SS, rounding partial seconds down.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Refresh fetches the order and, unless a newer fetch already landed, replaces the snapshot.
func (s *Session) Refresh(ctx context.Context) (View, error) {
	return s.fetch(ctx, false)
}

// ConfirmPayment asks the server to pull the gateway status now. When the payment is detected the
// OnConfirmed callback fires after ConfirmRedirectDelay; otherwise ErrPaymentNotDetected is returned
// with the refreshed view.
func (s *Session) ConfirmPayment(ctx context.Context) (View, error) {
	view, err := s.fetch(ctx, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrSessionClosed) {
			return view, err
		}
		return view, &TransientError{Err: err}
	}
	if !view.Paid {
		return view, ErrPaymentNotDetected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return view, ErrSessionClosed
	}
	s.wg.Add(1)
	go s.confirmAfterDelay(view.Order)
	return view, nil
}

func (s *Session) confirmAfterDelay(order *types.Order) {
	defer s.wg.Done()

	timer := time.NewTimer(s.opts.ConfirmRedirectDelay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
	case <-timer.C:
		if s.opts.OnConfirmed != nil {
			s.opts.OnConfirmed(order)
		}
	}
}

// Accept installs a server response as the new snapshot, ordered with in-flight fetches.
func (s *Session) Accept(order *types.Order) View {
	if order == nil {
		return s.View()
	}
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()
	return s.apply(seq, order)
}

func (s *Session) fetch(ctx context.Context, sync bool) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.View(), ErrSessionClosed
	}
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	order, err := s.api.GetOrder(ctx, s.orderID, sync)
	if err != nil {
		return s.View(), err
	}
	if order == nil {
		return s.View(), ErrNotFound
	}
	return s.apply(seq, order), nil
}

func (s *Session) apply(seq uint64, order *types.Order) View {
	s.mu.Lock()
	if seq <= s.appliedSeq {
		current := s.order
		s.mu.Unlock()
		return s.viewOf(current)
	}
	s.appliedSeq = seq
	s.order = order
	s.mu.Unlock()

	view := s.viewOf(order)
	s.publish(view)
	return view
}

func (s *Session) publish(view View) {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(view)
	}
}

func (s *Session) runCountdown() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	expired := false
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			countdown := s.Countdown()
			if countdown.HasExpiry && s.opts.OnCountdown != nil {
				s.opts.OnCountdown(countdown)
			}
			if countdown.Expired && !expired {
				expired = true
				s.publish(s.View())
			}
			if status.IsTerminal(s.View().Effective) {
				return
			}
		}
	}
}

func (s *Session) runPoller() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			view, err := s.fetch(s.ctx, false)
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				s.logger.WithError(err).Debug("Order poll failed")
				continue
			}
			if status.IsTerminal(view.Effective) {
				return
			}
		}
	}
}

// Close stops every goroutine the session started and waits for them. It is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
