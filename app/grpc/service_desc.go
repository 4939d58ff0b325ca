package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"google.golang.org/grpc"
)

const serviceName = "checkout.OrdersService"

type OrdersServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	GetOrder(context.Context, *types.GetOrderRequest) (*types.OrderEnvelopeResponse, error)
	ListPaymentChannels(context.Context, *types.ListPaymentChannelsRequest) (*types.ListPaymentChannelsResponse, error)
	CreateOrder(context.Context, *types.CreateOrderRequest) (*types.CreateOrderResponse, error)
	PerformOrderAction(context.Context, *types.OrderActionRequest) (*types.OrderEnvelopeResponse, error)
	AdminSetOrderStatus(context.Context, *types.AdminSetOrderStatusRequest) (*types.OrderEnvelopeResponse, error)
}

// OrdersServiceDesc describes the orders service for a JSON-coded gRPC transport.
var OrdersServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OrdersServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", OrdersServiceServer.Health)},
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", OrdersServiceServer.GetOrder)},
		{MethodName: "ListPaymentChannels", Handler: unaryHandler("ListPaymentChannels", OrdersServiceServer.ListPaymentChannels)},
		{MethodName: "CreateOrder", Handler: unaryHandler("CreateOrder", OrdersServiceServer.CreateOrder)},
		{MethodName: "PerformOrderAction", Handler: unaryHandler("PerformOrderAction", OrdersServiceServer.PerformOrderAction)},
		{MethodName: "AdminSetOrderStatus", Handler: unaryHandler("AdminSetOrderStatus", OrdersServiceServer.AdminSetOrderStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "checkout/orders",
}

func RegisterOrdersServiceServer(registrar grpc.ServiceRegistrar, srv OrdersServiceServer) {
	registrar.RegisterService(&OrdersServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

func unaryHandler[Req any, Resp any](
	method string,
	call func(OrdersServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(OrdersServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(server, ctx, req.(*Req))
		})
	}
}

// OrdersClient calls the orders service over a connection using the JSON codec.
type OrdersClient struct {
	cc grpc.ClientConnInterface
}

func NewOrdersClient(cc grpc.ClientConnInterface) *OrdersClient {
	return &OrdersClient{cc: cc}
}

func (c *OrdersClient) Health(ctx context.Context, in *types.HealthRequest, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	out := new(types.HealthResponse)
	return out, c.invoke(ctx, "Health", in, out, opts)
}

func (c *OrdersClient) GetOrder(ctx context.Context, in *types.GetOrderRequest, opts ...grpc.CallOption) (*types.OrderEnvelopeResponse, error) {
	out := new(types.OrderEnvelopeResponse)
	return out, c.invoke(ctx, "GetOrder", in, out, opts)
}

func (c *OrdersClient) ListPaymentChannels(ctx context.Context, in *types.ListPaymentChannelsRequest, opts ...grpc.CallOption) (*types.ListPaymentChannelsResponse, error) {
	out := new(types.ListPaymentChannelsResponse)
	return out, c.invoke(ctx, "ListPaymentChannels", in, out, opts)
}

func (c *OrdersClient) CreateOrder(ctx context.Context, in *types.CreateOrderRequest, opts ...grpc.CallOption) (*types.CreateOrderResponse, error) {
	out := new(types.CreateOrderResponse)
	return out, c.invoke(ctx, "CreateOrder", in, out, opts)
}

func (c *OrdersClient) PerformOrderAction(ctx context.Context, in *types.OrderActionRequest, opts ...grpc.CallOption) (*types.OrderEnvelopeResponse, error) {
	out := new(types.OrderEnvelopeResponse)
	return out, c.invoke(ctx, "PerformOrderAction", in, out, opts)
}

func (c *OrdersClient) AdminSetOrderStatus(ctx context.Context, in *types.AdminSetOrderStatusRequest, opts ...grpc.CallOption) (*types.OrderEnvelopeResponse, error) {
	out := new(types.OrderEnvelopeResponse)
	return out, c.invoke(ctx, "AdminSetOrderStatus", in, out, opts)
}

func (c *OrdersClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}
