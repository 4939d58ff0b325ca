package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type OrderController struct {
	orderService *service.OrderService
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
		logger:       factory.NewModuleLogger("orders-controller"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (c *OrderController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *OrderController) ListPaymentChannels(ctx echo.Context) error {
	items, err := c.orderService.ListChannelAvailability(ctx.Request().Context())
	if err != nil {
		return c.writeServiceError(ctx, err, "List payment channels failed")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentChannelsResponse{Channels: mapper.ChannelsToDTO(items)})
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	req, err := types.NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, token, err := c.orderService.CreateOrder(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create order failed")
	}

	return ctx.JSON(http.StatusCreated, &types.CreateOrderResponse{
		Order:       mapper.OrderToDTO(order, c.now()),
		AccessToken: token,
	})
}

func (c *OrderController) GetOrder(ctx echo.Context) error {
	req, err := types.NewGetOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.GetOrder(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Get order failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, c.now())})
}

func (c *OrderController) ChargeCard(ctx echo.Context) error {
	req, err := types.NewCardChargeRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.ChargeCard(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Card charge failed")
	}

	return ctx.JSON(http.StatusOK, &types.CardChargeResponse{
		Transaction: mapper.TransactionToDTO(order.LatestTransaction),
		Order:       mapper.OrderToDTO(order, c.now()),
	})
}

func (c *OrderController) PerformAction(ctx echo.Context) error {
	req, err := types.NewOrderActionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.PerformAction(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Order action failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, c.now())})
}

func (c *OrderController) SubmitRating(ctx echo.Context) error {
	req, err := types.NewSubmitRatingRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.SubmitRating(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Submit rating failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, c.now())})
}

func (c *OrderController) HandleGatewayCallback(ctx echo.Context) error {
	req, err := types.NewGatewayCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if _, err := c.orderService.HandleGatewayCallback(ctx.Request().Context(), req); err != nil {
		return c.writeServiceError(ctx, err, "Handle gateway callback failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Gateway callback processed"})
}

func (c *OrderController) AdminSetStatus(ctx echo.Context) error {
	req, err := types.NewAdminSetOrderStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.AdminSetStatus(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Admin set status failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, c.now())})
}

func (c *OrderController) AdminResolveRefund(ctx echo.Context) error {
	req, err := types.NewAdminResolveRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.orderService.AdminResolveRefund(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Admin resolve refund failed")
	}

	return ctx.JSON(http.StatusOK, &types.OrderEnvelopeResponse{Order: mapper.OrderToDTO(order, c.now())})
}

func (c *OrderController) UpdatePaymentChannel(ctx echo.Context) error {
	req, err := types.NewUpdatePaymentChannelRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	channel, err := c.orderService.UpdateChannel(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Update payment channel failed")
	}

	return ctx.JSON(http.StatusOK, mapper.ChannelsToDTO([]*entity.PaymentChannel{channel})[0])
}

func (c *OrderController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	var gatewayErr *service.GatewayError
	switch {
	case errors.As(err, &gatewayErr):
		factory.LoggerWithContext(c.logger, ctx).WithError(gatewayErr.Err).Warn(logMessage)
		return c.writeError(ctx, http.StatusBadGateway, gatewayErr.Message)
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrMethodUnsupported), errors.Is(err, service.ErrCallbackRejected):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		return c.writeError(ctx, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrAccessDenied):
		return c.writeError(ctx, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRatingExists),
		errors.Is(err, service.ErrOrderAlreadyExists),
		errors.Is(err, service.ErrChannelUnavailable):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *OrderController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
