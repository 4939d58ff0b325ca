package checkout

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const DefaultUnavailableMessage = "This payment method is currently unavailable"

type SelectionState int

const (
	NoneSelected SelectionState = iota
	CategorySelected
	ChannelSelected
)

func (s SelectionState) String() string {
	switch s {
	case CategorySelected:
		return "category_selected"
	case ChannelSelected:
		return "channel_selected"
	default:
		return "none_selected"
	}
}

// Option is one selectable entry. Direct categories carry a single option whose channel equals the category.
type Option struct {
	Category  string
	Channel   string
	Name      string
	Available bool
	Tooltip   string
}

type CategoryGroup struct {
	Category  string
	Direct    bool
	Available bool
	Expanded  bool
	Tooltip   string
	Options   []Option
}

// Selector is the payment channel selection state machine. It never holds a selection that references
// an unavailable channel.
type Selector struct {
	mu       sync.RWMutex
	groups   []*CategoryGroup
	state    SelectionState
	category string
	channel  string
}

func NewSelector(channels []*types.PaymentChannelStatus) *Selector {
	s := &Selector{}
	s.groups = groupChannels(channels)
	return s
}

func groupChannels(channels []*types.PaymentChannelStatus) []*CategoryGroup {
	groups := make([]*CategoryGroup, 0)
	index := make(map[string]*CategoryGroup)

	for _, item := range channels {
		if item == nil {
			continue
		}
		category := strings.ToUpper(strings.TrimSpace(item.Category))
		channel := strings.ToUpper(strings.TrimSpace(item.Channel))
		if category == "" {
			continue
		}
		if channel == "" {
			channel = category
		}

		group, ok := index[category]
		if !ok {
			group = &CategoryGroup{Category: category, Direct: types.DirectCategory(category)}
			index[category] = group
			groups = append(groups, group)
		}

		option := Option{Category: category, Channel: channel, Name: item.Name, Available: item.Available}
		if !item.Available {
			option.Tooltip = unavailableMessage(item.Message)
		}
		group.Options = append(group.Options, option)
	}

	for _, group := range groups {
		for _, option := range group.Options {
			if option.Available {
				group.Available = true
				break
			}
		}
		if !group.Available && len(group.Options) > 0 {
			group.Tooltip = group.Options[0].Tooltip
		}
	}

	return groups
}

func unavailableMessage(message string) string {
	if trimmed := strings.TrimSpace(message); trimmed != "" {
		return trimmed
	}
	return DefaultUnavailableMessage
}

// ClickCategory selects a direct category outright or toggles an expandable one open or closed.
// Clicking an unavailable category does nothing.
func (s *Selector) ClickCategory(category string) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.group(category)
	if group == nil || !group.Available {
		return s.state
	}

	if group.Direct {
		option := firstAvailable(group)
		if option == nil {
			return s.state
		}
		s.collapseAll()
		s.state, s.category, s.channel = ChannelSelected, option.Category, option.Channel
		return s.state
	}

	if s.state == CategorySelected && s.category == group.Category {
		group.Expanded = false
		s.state, s.category, s.channel = NoneSelected, "", ""
		return s.state
	}

	s.collapseAll()
	group.Expanded = true
	s.state, s.category, s.channel = CategorySelected, group.Category, ""
	return s.state
}

func firstAvailable(group *CategoryGroup) *Option {
	for i := range group.Options {
		if group.Options[i].Available {
			return &group.Options[i]
		}
	}
	return nil
}

// ClickChannel picks a channel inside an expanded category. Unavailable channels are inert.
func (s *Selector) ClickChannel(category, channel string) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.group(category)
	if group == nil || !group.Available {
		return s.state
	}
	option := findOption(group, channel)
	if option == nil || !option.Available {
		return s.state
	}

	group.Expanded = true
	s.state, s.category, s.channel = ChannelSelected, option.Category, option.Channel
	return s.state
}

// Refresh swaps in a new availability list and clears the selection when it became unavailable.
func (s *Selector) Refresh(channels []*types.PaymentChannelStatus) SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	expanded := ""
	for _, group := range s.groups {
		if group.Expanded {
			expanded = group.Category
		}
	}
	s.groups = groupChannels(channels)

	switch s.state {
	case ChannelSelected:
		group := s.group(s.category)
		if group == nil || !group.Available {
			s.clear()
			break
		}
		if option := findOption(group, s.channel); option == nil || !option.Available {
			s.clear()
		}
	case CategorySelected:
		if group := s.group(s.category); group == nil || !group.Available {
			s.clear()
		}
	}

	if group := s.group(expanded); group != nil && s.state != NoneSelected && group.Category == s.category {
		group.Expanded = true
	}
	return s.state
}

func (s *Selector) clear() {
	s.collapseAll()
	s.state, s.category, s.channel = NoneSelected, "", ""
}

func (s *Selector) collapseAll() {
	for _, group := range s.groups {
		group.Expanded = false
	}
}

func (s *Selector) State() SelectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Selection returns the chosen category and channel. ok is false unless exactly one channel is selected.
func (s *Selector) Selection() (category, channel string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != ChannelSelected {
		return "", "", false
	}
	return s.category, s.channel, true
}

// Tooltip returns the hint shown on an unavailable entry, or "" when the entry is selectable.
func (s *Selector) Tooltip(category, channel string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group := s.group(category)
	if group == nil {
		return ""
	}
	if channel == "" {
		return group.Tooltip
	}
	if option := findOption(group, channel); option != nil {
		return option.Tooltip
	}
	return ""
}

// Groups returns a copy of the current categories for display.
func (s *Selector) Groups() []CategoryGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CategoryGroup, 0, len(s.groups))
	for _, group := range s.groups {
		copied := *group
		copied.Options = append([]Option(nil), group.Options...)
		out = append(out, copied)
	}
	return out
}

func (s *Selector) group(category string) *CategoryGroup {
	category = strings.ToUpper(strings.TrimSpace(category))
	for _, group := range s.groups {
		if group.Category == category {
			return group
		}
	}
	return nil
}

func findOption(group *CategoryGroup, channel string) *Option {
	channel = strings.ToUpper(strings.TrimSpace(channel))
	for i := range group.Options {
		if group.Options[i].Channel == channel {
			return &group.Options[i]
		}
	}
	return nil
}

// Customer is the contact data collected on the checkout form.
type Customer struct {
	Name     string
	Email    string
	Phone    string
	Notes    string
	Quantity int32
}

type OrderItem struct {
	Name     string
	Amount   int64
	Currency string
}

// Checkout submits an order for the selector's current choice.
type Checkout struct {
	api      OrderCreator
	selector *Selector
	validate *validator.Validate
	logger   logrus.FieldLogger
}

func NewCheckout(api OrderCreator, selector *Selector) *Checkout {
	return &Checkout{
		api:      api,
		selector: selector,
		validate: validator.New(),
		logger:   factory.NewModuleLogger("checkout-selector"),
	}
}

// Load fetches channel availability and refreshes the selector with it.
func (c *Checkout) Load(ctx context.Context) error {
	channels, err := c.api.ListPaymentChannels(ctx)
	if err != nil {
		return err
	}
	c.selector.Refresh(channels)
	return nil
}

// Submit validates the form locally, rechecks availability of the chosen channel and creates the order.
// A failed creation refreshes availability so a channel that went away mid-session is deselected.
func (c *Checkout) Submit(ctx context.Context, requestID string, item OrderItem, customer Customer) (*types.CreateOrderResponse, error) {
	if _, _, ok := c.selector.Selection(); !ok {
		return nil, newValidationError("payment_channel", "select a payment method")
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, newValidationError("customer_name", "name is required")
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		return nil, newValidationError("customer_email", "email is required")
	}
	if err := c.validate.Var(email, "email"); err != nil {
		return nil, newValidationError("customer_email", "email is invalid")
	}

	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	category, channel, ok := c.selector.Selection()
	if !ok {
		return nil, ErrChannelUnavailable
	}

	resp, err := c.api.CreateOrder(ctx, &types.CreateOrderRequest{
		RequestId:       requestID,
		ItemName:        item.Name,
		Quantity:        customer.Quantity,
		Amount:          item.Amount,
		Currency:        item.Currency,
		CustomerName:    strings.TrimSpace(customer.Name),
		CustomerEmail:   email,
		CustomerPhone:   strings.TrimSpace(customer.Phone),
		Notes:           strings.TrimSpace(customer.Notes),
		PaymentCategory: category,
		PaymentChannel:  channel,
	})
	if err != nil {
		if loadErr := c.Load(ctx); loadErr != nil {
			c.logger.WithError(loadErr).Warn("Channel availability refresh failed")
		}
		return nil, err
	}
	return resp, nil
}
