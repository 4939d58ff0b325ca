package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const defaultUnavailableMessage = "This payment method is currently unavailable"

type updatePaymentChannelRequest interface {
	GetCategory() string
	GetChannel() string
	GetName() string
	GetAvailable() bool
	GetMessage() string
}

// ListChannelAvailability returns every payment channel with its availability, served from cache when warm.
func (s *OrderService) ListChannelAvailability(ctx context.Context) ([]*entity.PaymentChannel, error) {
	cached, hit, err := s.channels.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("payment channel cache read failed")
	}
	if hit {
		metrics.ObserveChannelCache(true)
		return cached, nil
	}
	metrics.ObserveChannelCache(false)

	items, err := s.channelRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.channels.Set(ctx, items); err != nil {
		s.logger.WithError(err).Warn("payment channel cache write failed")
	}

	return items, nil
}

// UpdateChannel stores an operator's availability toggle and drops the cached list.
func (s *OrderService) UpdateChannel(ctx context.Context, req updatePaymentChannelRequest) (*entity.PaymentChannel, error) {
	method, err := types.MethodFromCategory(req.GetCategory())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	category := method.Category()
	code := strings.ToUpper(strings.TrimSpace(req.GetChannel()))
	if code == "" {
		return nil, fmt.Errorf("%w: channel is required", ErrInvalidRequest)
	}

	current, err := s.channelRepo.Find(ctx, category, code)
	if err != nil {
		return nil, err
	}

	channel := &entity.PaymentChannel{Category: category, Channel: code, Name: code}
	if current != nil {
		channel = current
	}
	if name := strings.TrimSpace(req.GetName()); name != "" {
		channel.Name = name
	}
	channel.Available = req.GetAvailable()
	channel.Message = normalizeOptionalString(req.GetMessage())
	channel.UpdatedAt = s.now()

	if err := s.channelRepo.Upsert(ctx, channel); err != nil {
		return nil, err
	}
	if err := s.channels.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("payment channel cache invalidation failed")
	}

	return channel, nil
}

func (s *OrderService) ensureChannelAvailable(ctx context.Context, category, code string) error {
	if code == "" {
		return fmt.Errorf("%w: payment_channel is required", ErrInvalidRequest)
	}
	channel, err := s.channelRepo.Find(ctx, category, code)
	if err != nil {
		return err
	}
	if channel == nil {
		return fmt.Errorf("%w: %s %s is not offered", ErrChannelUnavailable, category, code)
	}
	if !channel.Available {
		message := derefString(channel.Message)
		if message == "" {
			message = defaultUnavailableMessage
		}
		return fmt.Errorf("%w: %s", ErrChannelUnavailable, message)
	}
	return nil
}
