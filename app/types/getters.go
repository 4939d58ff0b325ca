package types

func (r *CreateOrderRequest) GetRequestId() string       { return r.RequestId }
func (r *CreateOrderRequest) GetItemName() string        { return r.ItemName }
func (r *CreateOrderRequest) GetQuantity() int32         { return r.Quantity }
func (r *CreateOrderRequest) GetAmount() int64           { return r.Amount }
func (r *CreateOrderRequest) GetCurrency() string        { return r.Currency }
func (r *CreateOrderRequest) GetCustomerName() string    { return r.CustomerName }
func (r *CreateOrderRequest) GetCustomerEmail() string   { return r.CustomerEmail }
func (r *CreateOrderRequest) GetCustomerPhone() string   { return r.CustomerPhone }
func (r *CreateOrderRequest) GetNotes() string           { return r.Notes }
func (r *CreateOrderRequest) GetPaymentCategory() string { return r.PaymentCategory }
func (r *CreateOrderRequest) GetPaymentChannel() string  { return r.PaymentChannel }

func (r *GetOrderRequest) GetId() string          { return r.Id }
func (r *GetOrderRequest) GetAccessToken() string { return r.AccessToken }
func (r *GetOrderRequest) GetSync() bool          { return r.Sync }

func (r *CardChargeRequest) GetOrderId() string     { return r.OrderId }
func (r *CardChargeRequest) GetAccessToken() string { return r.AccessToken }
func (r *CardChargeRequest) GetTokenId() string     { return r.TokenId }
func (r *CardChargeRequest) GetCardBrand() string   { return r.CardBrand }

func (r *OrderActionRequest) GetOrderId() string      { return r.OrderId }
func (r *OrderActionRequest) GetAccessToken() string  { return r.AccessToken }
func (r *OrderActionRequest) GetAction() OrderAction  { return r.Action }
func (r *OrderActionRequest) GetReason() string       { return r.Reason }

func (r *SubmitRatingRequest) GetOrderId() string     { return r.OrderId }
func (r *SubmitRatingRequest) GetAccessToken() string { return r.AccessToken }
func (r *SubmitRatingRequest) GetRating() int32       { return r.Rating }
func (r *SubmitRatingRequest) GetReview() string      { return r.Review }

func (r *AdminSetOrderStatusRequest) GetOrderId() string     { return r.OrderId }
func (r *AdminSetOrderStatusRequest) GetStatus() OrderStatus { return r.Status }
func (r *AdminSetOrderStatusRequest) GetNote() string        { return r.Note }

func (r *AdminResolveRefundRequest) GetOrderId() string           { return r.OrderId }
func (r *AdminResolveRefundRequest) GetDecision() RefundDecision  { return r.Decision }
func (r *AdminResolveRefundRequest) GetNote() string              { return r.Note }

func (r *UpdatePaymentChannelRequest) GetCategory() string { return r.Category }
func (r *UpdatePaymentChannelRequest) GetChannel() string  { return r.Channel }
func (r *UpdatePaymentChannelRequest) GetName() string     { return r.Name }
func (r *UpdatePaymentChannelRequest) GetAvailable() bool  { return r.Available }
func (r *UpdatePaymentChannelRequest) GetMessage() string  { return r.Message }

func (r *GatewayCallbackRequest) GetRequestId() string     { return r.RequestId }
func (r *GatewayCallbackRequest) GetCallbackHash() string  { return r.CallbackHash }
func (r *GatewayCallbackRequest) GetCallbackToken() string { return r.CallbackToken }
func (r *GatewayCallbackRequest) GetPayload() string       { return r.Payload }
