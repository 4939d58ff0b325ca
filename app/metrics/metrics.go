package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	grpcRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_order_transitions_total",
			Help: "Order status writes by source and target status",
		},
		[]string{"source", "status"},
	)

	gatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_gateway_calls_total",
			Help: "Payment gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_gateway_callbacks_total",
			Help: "Gateway callbacks by processing outcome",
		},
		[]string{"outcome"},
	)

	jobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_job_items_total",
			Help: "Items handled by batch jobs",
		},
		[]string{"job", "outcome"},
	)

	channelCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_channel_cache_lookups_total",
			Help: "Payment channel cache lookups by result",
		},
		[]string{"result"},
	)
)

func ObserveOrderTransition(source, status string) {
	orderTransitions.WithLabelValues(source, status).Inc()
}

func ObserveGatewayCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayCalls.WithLabelValues(operation, outcome).Inc()
}

func ObserveGatewayCallback(outcome string) {
	gatewayCallbacks.WithLabelValues(outcome).Inc()
}

func ObserveJobItems(job, outcome string, count int) {
	if count <= 0 {
		return
	}
	jobRuns.WithLabelValues(job, outcome).Add(float64(count))
}

func ObserveChannelCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	channelCacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the default registry for the /metrics route.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			code := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				}
			}

			httpRequestsTotal.WithLabelValues(route, c.Request().Method, strconv.Itoa(code)).Inc()
			httpRequestDuration.WithLabelValues(route, c.Request().Method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		code := "OK"
		if err != nil {
			st, _ := status.FromError(err)
			code = st.Code().String()
		}
		grpcRequestsTotal.WithLabelValues(info.FullMethod, code).Inc()

		return resp, err
	}
}
