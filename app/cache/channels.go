package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

const channelsKey = "checkout:payment_channels:v1"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// NewRedisClient connects and pings. It returns nil, nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ChannelCache holds the payment channel availability list. A nil cache misses every lookup.
type ChannelCache struct {
	store cmdable
	ttl   time.Duration
}

func NewChannelCache(store cmdable, ttl time.Duration) *ChannelCache {
	if store == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ChannelCache{store: store, ttl: ttl}
}

func (c *ChannelCache) Get(ctx context.Context) ([]*entity.PaymentChannel, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	raw, err := c.store.Get(ctx, channelsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var channels []*entity.PaymentChannel
	if err := json.Unmarshal([]byte(raw), &channels); err != nil {
		return nil, false, err
	}
	return channels, true, nil
}

func (c *ChannelCache) Set(ctx context.Context, channels []*entity.PaymentChannel) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(channels)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, channelsKey, payload, c.ttl).Err()
}

func (c *ChannelCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Del(ctx, channelsKey).Err()
}

func (c *ChannelCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.store.Ping(ctx).Err()
}
