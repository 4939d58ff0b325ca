package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Gateway           GatewayConfig
	Orders            OrdersConfig
	Cache             CacheConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Addr disables the channel cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type GatewayConfig struct {
	BaseURL            string
	SecretKey          string
	PublicKey          string
	CallbackToken      string
	CallbackBaseURL    string
	SuccessRedirectURL string
	HTTPTimeout        time.Duration
	RateLimitPerSecond int
}

type OrdersConfig struct {
	TokenSecret     string
	PaymentTTL      time.Duration
	AccessTokenTTL  time.Duration
	DefaultCurrency string
}

type CacheConfig struct {
	ChannelsTTL time.Duration
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
	ReconcileStaleAfter   time.Duration
	BatchSize             int32
	Concurrency           int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	tokenSecret := os.Getenv("ORDER_TOKEN_SECRET")
	if tokenSecret == "" {
		return nil, errors.New("ORDER_TOKEN_SECRET environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "checkout-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Gateway: GatewayConfig{
			BaseURL:            getEnv("GATEWAY_BASE_URL", "https://api.xendit.co"),
			SecretKey:          getEnv("GATEWAY_SECRET_KEY", ""),
			PublicKey:          getEnv("GATEWAY_PUBLIC_KEY", ""),
			CallbackToken:      getEnv("GATEWAY_CALLBACK_TOKEN", ""),
			CallbackBaseURL:    getEnv("GATEWAY_CALLBACK_BASE_URL", ""),
			SuccessRedirectURL: getEnv("GATEWAY_SUCCESS_REDIRECT_URL", ""),
			HTTPTimeout:        getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			RateLimitPerSecond: getIntEnv("GATEWAY_RATE_LIMIT_RPS", 20),
		},
		Orders: OrdersConfig{
			TokenSecret:     tokenSecret,
			PaymentTTL:      getMinutesEnv("ORDERS_PAYMENT_TTL_MINUTES", 24*time.Hour),
			AccessTokenTTL:  getHoursEnv("ORDERS_ACCESS_TOKEN_TTL_HOURS", 72*time.Hour),
			DefaultCurrency: strings.ToUpper(getEnv("ORDERS_DEFAULT_CURRENCY", "IDR")),
		},
		Cache: CacheConfig{
			ChannelsTTL: getSecondsEnv("CACHE_CHANNELS_TTL_SECONDS", 30*time.Second),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("JOBS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("JOBS_EXPIRE_PENDING_INTERVAL_MINUTES", time.Minute),
			ReconcileStaleAfter:   getMinutesEnv("JOBS_RECONCILE_STALE_AFTER_MINUTES", 5*time.Minute),
			BatchSize:             int32(getIntEnv("JOBS_BATCH_SIZE", 100)),
			Concurrency:           getIntEnv("JOBS_CONCURRENCY", 4),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Minute, defaultValue)
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Second, defaultValue)
}

func getHoursEnv(key string, defaultValue time.Duration) time.Duration {
	return getDurationEnv(key, time.Hour, defaultValue)
}

func getDurationEnv(key string, unit, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * unit
		}
	}
	return defaultValue
}
