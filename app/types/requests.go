package types

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

func structValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

func validateStruct(v interface{}) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "email":
		return fmt.Errorf("%s must be a valid email address", fe.Field())
	case "gt", "gte":
		return fmt.Errorf("%s must be >= %s", fe.Field(), minValue(fe))
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Errorf("%s must be %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}

func minValue(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		n, err := strconv.ParseInt(fe.Param(), 10, 64)
		if err == nil {
			return strconv.FormatInt(n+1, 10)
		}
	}
	return fe.Param()
}

// DirectCategory reports whether a payment category has a single implicit channel.
func DirectCategory(category string) bool {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case PaymentMethodQRIS.Category(), PaymentMethodCard.Category():
		return true
	default:
		return false
	}
}

func BearerToken(ctx echo.Context) string {
	header := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(ctx.QueryParam("access_token"))
}

func NewCreateOrderRequestFromContext(ctx echo.Context) (*CreateOrderRequest, error) {
	var body CreateOrderRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.RequestId = strings.TrimSpace(body.RequestId)
	if body.RequestId == "" {
		body.RequestId = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.normalize()

	return &body, nil
}

func (r *CreateOrderRequest) normalize() {
	r.ItemName = strings.TrimSpace(r.ItemName)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.Notes = strings.TrimSpace(r.Notes)
	r.PaymentCategory = strings.ToUpper(strings.TrimSpace(r.PaymentCategory))
	r.PaymentChannel = strings.ToUpper(strings.TrimSpace(r.PaymentChannel))
	if r.PaymentChannel == "" && DirectCategory(r.PaymentCategory) {
		r.PaymentChannel = r.PaymentCategory
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
}

func (r *CreateOrderRequest) Validate() error {
	r.normalize()
	if err := validateStruct(r); err != nil {
		return err
	}
	if _, err := MethodFromCategory(r.PaymentCategory); err != nil {
		return errors.New("payment_category is invalid")
	}
	if r.PaymentChannel == "" {
		return errors.New("payment_channel is required")
	}
	return nil
}

func NewGetOrderRequestFromContext(ctx echo.Context) (*GetOrderRequest, error) {
	id := strings.TrimSpace(ctx.Param("id"))
	syncRequested := false
	if raw := strings.TrimSpace(ctx.QueryParam("sync")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		syncRequested = parsed
	}
	return &GetOrderRequest{Id: id, AccessToken: BearerToken(ctx), Sync: syncRequested}, nil
}

func (r *GetOrderRequest) Validate() error {
	if strings.TrimSpace(r.Id) == "" {
		return errors.New("invalid order id")
	}
	return nil
}

func NewCardChargeRequestFromContext(ctx echo.Context) (*CardChargeRequest, error) {
	var body CardChargeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("id"))
	body.AccessToken = BearerToken(ctx)
	body.TokenId = strings.TrimSpace(body.TokenId)
	body.CardBrand = strings.ToUpper(strings.TrimSpace(body.CardBrand))
	return &body, nil
}

func (r *CardChargeRequest) Validate() error {
	if strings.TrimSpace(r.OrderId) == "" {
		return errors.New("invalid order id")
	}
	return validateStruct(r)
}

func NewOrderActionRequestFromContext(ctx echo.Context) (*OrderActionRequest, error) {
	var body OrderActionRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("id"))
	body.AccessToken = BearerToken(ctx)
	body.Action = OrderAction(strings.ToLower(strings.TrimSpace(string(body.Action))))
	body.Reason = strings.TrimSpace(body.Reason)
	return &body, nil
}

func (r *OrderActionRequest) Validate() error {
	if strings.TrimSpace(r.OrderId) == "" {
		return errors.New("invalid order id")
	}
	if r.Action != OrderActionCancel && r.Action != OrderActionRefund {
		return errors.New("action must be cancel or refund")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("reason is required")
	}
	if len(r.Reason) > 1000 {
		return errors.New("reason must be at most 1000 characters")
	}
	return nil
}

func NewSubmitRatingRequestFromContext(ctx echo.Context) (*SubmitRatingRequest, error) {
	var body SubmitRatingRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("id"))
	body.AccessToken = BearerToken(ctx)
	body.Review = strings.TrimSpace(body.Review)
	return &body, nil
}

func (r *SubmitRatingRequest) Validate() error {
	if strings.TrimSpace(r.OrderId) == "" {
		return errors.New("invalid order id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return validateStruct(r)
}

func NewAdminSetOrderStatusRequestFromContext(ctx echo.Context) (*AdminSetOrderStatusRequest, error) {
	var body AdminSetOrderStatusRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("id"))
	body.Status = OrderStatus(strings.ToLower(strings.TrimSpace(string(body.Status))))
	body.Note = strings.TrimSpace(body.Note)
	return &body, nil
}

func (r *AdminSetOrderStatusRequest) Validate() error {
	if strings.TrimSpace(r.OrderId) == "" {
		return errors.New("invalid order id")
	}
	if !r.Status.IsValid() {
		return errors.New("invalid status")
	}
	return nil
}

func NewAdminResolveRefundRequestFromContext(ctx echo.Context) (*AdminResolveRefundRequest, error) {
	var body AdminResolveRefundRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderId = strings.TrimSpace(ctx.Param("id"))
	body.Decision = RefundDecision(strings.ToLower(strings.TrimSpace(string(body.Decision))))
	body.Note = strings.TrimSpace(body.Note)
	return &body, nil
}

func (r *AdminResolveRefundRequest) Validate() error {
	if strings.TrimSpace(r.OrderId) == "" {
		return errors.New("invalid order id")
	}
	if r.Decision != RefundDecisionApprove && r.Decision != RefundDecisionReject {
		return errors.New("decision must be approve or reject")
	}
	return nil
}

func NewUpdatePaymentChannelRequestFromContext(ctx echo.Context) (*UpdatePaymentChannelRequest, error) {
	var body UpdatePaymentChannelRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.Category = strings.ToUpper(strings.TrimSpace(ctx.Param("category")))
	body.Channel = strings.ToUpper(strings.TrimSpace(ctx.Param("channel")))
	body.Name = strings.TrimSpace(body.Name)
	body.Message = strings.TrimSpace(body.Message)
	return &body, nil
}

func (r *UpdatePaymentChannelRequest) Validate() error {
	if _, err := MethodFromCategory(r.Category); err != nil {
		return errors.New("invalid payment category")
	}
	if strings.TrimSpace(r.Channel) == "" {
		return errors.New("channel is required")
	}
	return nil
}

func NewGatewayCallbackRequestFromContext(ctx echo.Context) (*GatewayCallbackRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &GatewayCallbackRequest{
		RequestId:     strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID)),
		CallbackHash:  strings.TrimSpace(ctx.Param("hash")),
		CallbackToken: strings.TrimSpace(ctx.Request().Header.Get("X-Callback-Token")),
		Payload:       string(rawBody),
	}, nil
}

func (r *GatewayCallbackRequest) Validate() error {
	if strings.TrimSpace(r.CallbackHash) == "" {
		return errors.New("callback hash is required")
	}
	if strings.TrimSpace(r.CallbackToken) == "" {
		return errors.New("callback token is required")
	}
	if strings.TrimSpace(r.Payload) == "" {
		return errors.New("payload is required")
	}
	return nil
}
