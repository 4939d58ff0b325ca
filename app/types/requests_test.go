package types

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewCreateOrderRequestFromContextUsesHeaderRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/orders", bytes.NewBufferString(`{"item_name":" Coffee beans ","amount":150000,"currency":"idr","customer_name":"Ana","customer_email":"Ana@Example.com ","payment_category":"qris"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-from-header")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	parsed, err := NewCreateOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetRequestId() != "req-from-header" {
		t.Fatalf("expected header request id, got %q", parsed.GetRequestId())
	}
	if parsed.Currency != "IDR" || parsed.CustomerEmail != "ana@example.com" || parsed.ItemName != "Coffee beans" {
		t.Fatalf("unexpected normalization: %+v", parsed)
	}
	if parsed.PaymentChannel != "QRIS" {
		t.Fatalf("expected direct category to imply its channel, got %q", parsed.PaymentChannel)
	}
	if parsed.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", parsed.Quantity)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestCreateOrderValidate(t *testing.T) {
	valid := func() *CreateOrderRequest {
		return &CreateOrderRequest{
			RequestId:       "req-1",
			ItemName:        "Coffee",
			Amount:          10000,
			CustomerName:    "Ana",
			CustomerEmail:   "ana@example.com",
			PaymentCategory: "VIRTUAL_ACCOUNT",
			PaymentChannel:  "BCA",
		}
	}

	cases := []struct {
		name    string
		mutate  func(r *CreateOrderRequest)
		wantErr string
	}{
		{name: "missing email", mutate: func(r *CreateOrderRequest) { r.CustomerEmail = "" }, wantErr: "customer_email is required"},
		{name: "bad email", mutate: func(r *CreateOrderRequest) { r.CustomerEmail = "nope" }, wantErr: "customer_email must be a valid email address"},
		{name: "zero amount", mutate: func(r *CreateOrderRequest) { r.Amount = 0 }, wantErr: "amount must be >= 1"},
		{name: "unknown category", mutate: func(r *CreateOrderRequest) { r.PaymentCategory = "CRYPTO" }, wantErr: "payment_category is invalid"},
		{name: "channel required", mutate: func(r *CreateOrderRequest) { r.PaymentChannel = "" }, wantErr: "payment_channel is required"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(req)
			err := req.Validate()
			if err == nil || err.Error() != tc.wantErr {
				t.Fatalf("expected %q, got %v", tc.wantErr, err)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestOrderActionValidate(t *testing.T) {
	req := &OrderActionRequest{OrderId: "ord-1", Action: OrderActionCancel, Reason: "  "}
	if err := req.Validate(); err == nil || err.Error() != "reason is required" {
		t.Fatalf("expected reason error, got %v", err)
	}

	req.Reason = strings.Repeat("a", 1001)
	if err := req.Validate(); err == nil {
		t.Fatal("expected reason length error")
	}

	req.Reason = strings.Repeat("a", 1000)
	if err := req.Validate(); err != nil {
		t.Fatalf("expected 1000 characters to be accepted, got %v", err)
	}

	req.Action = OrderAction("pause")
	if err := req.Validate(); err == nil {
		t.Fatal("expected unknown action error")
	}
}

func TestNewGetOrderRequestFromContextReadsBearerAndSync(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/orders/ord-1?sync=true", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok-1")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("ord-1")

	parsed, err := NewGetOrderRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetAccessToken() != "tok-1" || !parsed.Sync || parsed.Id != "ord-1" {
		t.Fatalf("unexpected parse: %+v", parsed)
	}

	bad := httptest.NewRequest("GET", "/orders/ord-1?sync=maybe", nil)
	if _, err := NewGetOrderRequestFromContext(e.NewContext(bad, httptest.NewRecorder())); err == nil {
		t.Fatal("expected sync parse error")
	}
}

func TestSubmitRatingValidate(t *testing.T) {
	for _, rating := range []int32{0, 6} {
		req := &SubmitRatingRequest{OrderId: "ord-1", Rating: rating}
		if err := req.Validate(); err == nil {
			t.Fatalf("expected rating %d to be rejected", rating)
		}
	}
	req := &SubmitRatingRequest{OrderId: "ord-1", Rating: 5}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid rating, got %v", err)
	}
}

func TestParseOrderStatusAndCategory(t *testing.T) {
	status, err := ParseOrderStatus(" Awaiting_Confirmation ")
	if err != nil || status != OrderStatusAwaitingConfirmation {
		t.Fatalf("unexpected status parse: %v %v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected unknown status error")
	}

	method, err := MethodFromCategory("VIRTUAL_ACCOUNT")
	if err != nil || method != PaymentMethodVirtualAccount {
		t.Fatalf("unexpected method: %v %v", method, err)
	}
	if !DirectCategory("card") || DirectCategory("EWALLET") {
		t.Fatal("unexpected direct category classification")
	}
}
