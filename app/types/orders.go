package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PaymentTransaction struct {
	Id                   string        `json:"id"`
	OrderId              string        `json:"order_id"`
	Method               PaymentMethod `json:"method"`
	Channel              string        `json:"channel"`
	Status               string        `json:"status"`
	Amount               int64         `json:"amount"`
	ExternalId           string        `json:"external_id,omitempty"`
	ProviderReference    string        `json:"provider_reference,omitempty"`
	VirtualAccountNumber string        `json:"virtual_account_number,omitempty"`
	QrCodeUrl            string        `json:"qr_code_url,omitempty"`
	QrString             string        `json:"qr_string,omitempty"`
	PaymentCode          string        `json:"payment_code,omitempty"`
	CheckoutUrl          string        `json:"checkout_url,omitempty"`
	InvoiceUrl           string        `json:"invoice_url,omitempty"`
	ExpiresAt            string        `json:"expires_at,omitempty"`
	FailureReason        string        `json:"failure_reason,omitempty"`
	CreatedAt            string        `json:"created_at,omitempty"`
	UpdatedAt            string        `json:"updated_at,omitempty"`
}

type Order struct {
	Id                string              `json:"id"`
	Status            OrderStatus         `json:"status"`
	EffectiveStatus   OrderStatus         `json:"effective_status,omitempty"`
	Amount            int64               `json:"amount"`
	Currency          string              `json:"currency"`
	ItemName          string              `json:"item_name"`
	Quantity          int32               `json:"quantity"`
	CustomerName      string              `json:"customer_name"`
	CustomerEmail     string              `json:"customer_email"`
	CustomerPhone     string              `json:"customer_phone,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	PaymentStatus     string              `json:"payment_status,omitempty"`
	PaymentMethod     PaymentMethod       `json:"payment_method,omitempty"`
	PaymentChannel    string              `json:"payment_channel,omitempty"`
	PaymentReference  string              `json:"payment_reference,omitempty"`
	PaymentExpiresAt  string              `json:"payment_expires_at,omitempty"`
	RefundStatus      RefundStatus        `json:"refund_status,omitempty"`
	RefundReason      string              `json:"refund_reason,omitempty"`
	CancelReason      string              `json:"cancel_reason,omitempty"`
	RatingValue       int32               `json:"rating_value,omitempty"`
	RatingReview      string              `json:"rating_review,omitempty"`
	LatestTransaction *PaymentTransaction `json:"latest_transaction,omitempty"`
	CreatedAt         string              `json:"created_at,omitempty"`
	UpdatedAt         string              `json:"updated_at,omitempty"`
}

type PaymentChannelStatus struct {
	Category  string `json:"category"`
	Channel   string `json:"channel"`
	Name      string `json:"name,omitempty"`
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

type OrderEnvelopeResponse struct {
	Order *Order `json:"order"`
}

type CreateOrderResponse struct {
	Order       *Order `json:"order"`
	AccessToken string `json:"access_token"`
}

type CardChargeResponse struct {
	Transaction *PaymentTransaction `json:"transaction,omitempty"`
	Order       *Order              `json:"order,omitempty"`
}

type ListPaymentChannelsResponse struct {
	Channels []*PaymentChannelStatus `json:"channels"`
}

type HealthRequest struct{}

type ListPaymentChannelsRequest struct{}

type CreateOrderRequest struct {
	RequestId       string `json:"request_id"`
	ItemName        string `json:"item_name" validate:"required,max=255"`
	Quantity        int32  `json:"quantity" validate:"gte=0,lte=1000"`
	Amount          int64  `json:"amount" validate:"gt=0"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	CustomerName    string `json:"customer_name" validate:"required,max=255"`
	CustomerEmail   string `json:"customer_email" validate:"required,email"`
	CustomerPhone   string `json:"customer_phone" validate:"omitempty,max=32"`
	Notes           string `json:"notes" validate:"max=2000"`
	PaymentCategory string `json:"payment_category" validate:"required"`
	PaymentChannel  string `json:"payment_channel"`
}

type GetOrderRequest struct {
	Id          string `json:"id"`
	AccessToken string `json:"access_token"`
	Sync        bool   `json:"sync"`
}

type CardChargeRequest struct {
	OrderId     string `json:"-"`
	AccessToken string `json:"-"`
	TokenId     string `json:"token_id" validate:"required"`
	CardBrand   string `json:"card_brand"`
}

type OrderActionRequest struct {
	OrderId     string      `json:"order_id"`
	AccessToken string      `json:"access_token"`
	Action      OrderAction `json:"action"`
	Reason      string      `json:"reason"`
}

type SubmitRatingRequest struct {
	OrderId     string `json:"-"`
	AccessToken string `json:"-"`
	Rating      int32  `json:"rating"`
	Review      string `json:"review" validate:"max=2000"`
}

type AdminSetOrderStatusRequest struct {
	OrderId string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Note    string      `json:"note"`
}

type AdminResolveRefundRequest struct {
	OrderId  string         `json:"-"`
	Decision RefundDecision `json:"decision"`
	Note     string         `json:"note"`
}

type UpdatePaymentChannelRequest struct {
	Category  string `json:"-"`
	Channel   string `json:"-"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type GatewayCallbackRequest struct {
	RequestId     string `json:"-"`
	CallbackHash  string `json:"-"`
	CallbackToken string `json:"-"`
	Payload       string `json:"-"`
}
