package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-checkout/app/auth"
	"github.com/vibast-solutions/ms-go-checkout/app/cache"
	"github.com/vibast-solutions/ms-go-checkout/app/controller"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	checkoutgrpc "github.com/vibast-solutions/ms-go-checkout/app/grpc"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the checkout service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, orderService, cleanup := mustCreateOrderService()
	defer cleanup()

	orderController := controller.NewOrderController(orderService)
	grpcOrderServer := checkoutgrpc.NewServer(orderService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(orderController, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcOrderServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	orderController *controller.OrderController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			entry := logrus.WithFields(logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(metrics.EchoMiddleware())

	e.GET("/health", orderController.Health)
	e.GET("/metrics", metrics.Handler())

	// Gateway callbacks carry the gateway's own token instead of a request id.
	e.POST("/webhooks/gateway/:hash", orderController.HandleGatewayCallback)

	api := e.Group("", requireRequestID())
	api.GET("/payment-channels", orderController.ListPaymentChannels)

	orders := api.Group("/orders")
	orders.POST("", orderController.CreateOrder)
	orders.GET("/:id", orderController.GetOrder)
	orders.POST("/:id/card-charge", orderController.ChargeCard)
	orders.POST("/:id/actions", orderController.PerformAction)
	orders.POST("/:id/rating", orderController.SubmitRating)

	admin := api.Group("/admin", internalAuthMiddleware.RequireInternalAccess(appServiceName))
	admin.POST("/orders/:id/status", orderController.AdminSetStatus)
	admin.POST("/orders/:id/refund", orderController.AdminResolveRefund)
	admin.PUT("/payment-channels/:category/:channel", orderController.UpdatePaymentChannel)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	orderServer *checkoutgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			checkoutgrpc.RecoveryInterceptor(),
			checkoutgrpc.RequestIDInterceptor(),
			checkoutgrpc.LoggingInterceptor(),
			metrics.UnaryServerInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	checkoutgrpc.RegisterOrdersServiceServer(grpcSrv, orderServer)

	return grpcSrv, lis
}

func mustCreateOrderService() (*config.Config, *service.OrderService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := factory.ConfigureLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}
	var channelCache *cache.ChannelCache
	if redisClient != nil {
		channelCache = cache.NewChannelCache(redisClient, cfg.Cache.ChannelsTTL)
	} else {
		logrus.Info("Redis not configured, payment channel cache disabled")
	}

	xendit := provider.NewXenditGateway(provider.XenditConfig{
		BaseURL:                cfg.Gateway.BaseURL,
		SecretKey:              cfg.Gateway.SecretKey,
		CallbackToken:          cfg.Gateway.CallbackToken,
		GatewayCallbackBaseURL: cfg.Gateway.CallbackBaseURL,
		SuccessRedirectURL:     cfg.Gateway.SuccessRedirectURL,
		HTTPTimeout:            cfg.Gateway.HTTPTimeout,
		RateLimitPerSecond:     cfg.Gateway.RateLimitPerSecond,
	})

	orderService := service.NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewPaymentTransactionRepository(db),
		repository.NewPaymentChannelRepository(db),
		repository.NewOrderEventRepository(db),
		repository.NewGatewayCallbackRepository(db),
		provider.NewRegistry(xendit),
		auth.NewOrderTokens(auth.OrderTokenConfig{
			Secret: cfg.Orders.TokenSecret,
			Issuer: cfg.App.ServiceName,
			TTL:    cfg.Orders.AccessTokenTTL,
		}),
		channelCache,
		cfg.Orders,
		cfg.Jobs,
	)

	cleanup := func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close redis")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, orderService, cleanup
}
