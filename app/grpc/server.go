package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	orderService *service.OrderService
	now          func() time.Time
}

func NewServer(orderService *service.OrderService) *Server {
	return &Server{
		orderService: orderService,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) GetOrder(ctx context.Context, req *types.GetOrderRequest) (*types.OrderEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orderService.GetOrder(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, err, "Get order failed")
	}

	return &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, s.now())}, nil
}

func (s *Server) ListPaymentChannels(ctx context.Context, _ *types.ListPaymentChannelsRequest) (*types.ListPaymentChannelsResponse, error) {
	items, err := s.orderService.ListChannelAvailability(ctx)
	if err != nil {
		return nil, s.statusError(ctx, err, "List payment channels failed")
	}

	return &types.ListPaymentChannelsResponse{Channels: mapper.ChannelsToDTO(items)}, nil
}

func (s *Server) CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.CreateOrderResponse, error) {
	l := loggerWithContext(ctx)
	if strings.TrimSpace(req.RequestId) == "" {
		req.RequestId = RequestIDFromContext(ctx)
	}
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create order validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, token, err := s.orderService.CreateOrder(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, err, "Create order failed")
	}

	return &types.CreateOrderResponse{Order: mapper.OrderToDTO(order, s.now()), AccessToken: token}, nil
}

func (s *Server) PerformOrderAction(ctx context.Context, req *types.OrderActionRequest) (*types.OrderEnvelopeResponse, error) {
	req.Action = types.OrderAction(strings.ToLower(strings.TrimSpace(string(req.Action))))
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orderService.PerformAction(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, err, "Order action failed")
	}

	return &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, s.now())}, nil
}

func (s *Server) AdminSetOrderStatus(ctx context.Context, req *types.AdminSetOrderStatusRequest) (*types.OrderEnvelopeResponse, error) {
	req.Status = types.OrderStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orderService.AdminSetStatus(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, err, "Admin set status failed")
	}

	return &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, s.now())}, nil
}

func (s *Server) statusError(ctx context.Context, err error, logMessage string) error {
	var gatewayErr *service.GatewayError
	switch {
	case errors.As(err, &gatewayErr):
		return status.Error(codes.Unavailable, gatewayErr.Message)
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrMethodUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, "order not found")
	case errors.Is(err, service.ErrAccessDenied):
		return status.Error(codes.PermissionDenied, "access denied")
	case errors.Is(err, service.ErrOrderAlreadyExists), errors.Is(err, service.ErrRatingExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrChannelUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}
