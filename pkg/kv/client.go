package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourflorist/storefront/pkg/config"
	"github.com/yourflorist/storefront/pkg/logger"
)

const (
	keyNamespace      = "yf"
	sessionPrefix     = "session"
	cartKey           = "cart"
	promotionKey      = "promotion"
	authTokenKey      = "auth_token"
	profileKey        = "profile"
	customizationKey  = "customize"
	customizationTTL  = 2 * time.Hour
	defaultSessionTTL = 30 * 24 * time.Hour
)

// ErrNotFound reports a missing key without leaking the redis sentinel to
// callers.
var ErrNotFound = errors.New("kv: key not found")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client is the storefront's persistent key-value store. It plays the role
// the browser's localStorage played for the SPA: cart lines, the applied
// promotion, the upstream bearer token and the cached profile are stored
// per shopper session.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies
// connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// SetJSON marshals value and stores it at key with the given TTL.
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("kv client not initialized")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw, ttl).Err()
}

// GetJSON loads key and unmarshals it into dest. Missing keys return
// ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) error {
	if c.store == nil {
		return errors.New("kv client not initialized")
	}
	raw, err := c.store.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("kv client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("kv client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// SessionTTL is the retention window for per-session state.
func (c *Client) SessionTTL() time.Duration {
	return defaultSessionTTL
}

// CustomizationTTL bounds how long an in-progress bouquet customization
// survives between requests. Expiry reproduces the SPA discarding the state
// when the detail view unmounted.
func (c *Client) CustomizationTTL() time.Duration {
	return customizationTTL
}

// CartKey returns the per-session key holding cart line items.
func (c *Client) CartKey(sessionID string) string {
	return c.buildKey(sessionPrefix, sessionID, cartKey)
}

// PromotionKey returns the per-session key holding the applied promotion.
func (c *Client) PromotionKey(sessionID string) string {
	return c.buildKey(sessionPrefix, sessionID, promotionKey)
}

// AuthTokenKey returns the per-session key holding the upstream bearer token.
func (c *Client) AuthTokenKey(sessionID string) string {
	return c.buildKey(sessionPrefix, sessionID, authTokenKey)
}

// ProfileKey returns the per-session key holding the cached user profile.
func (c *Client) ProfileKey(sessionID string) string {
	return c.buildKey(sessionPrefix, sessionID, profileKey)
}

// CustomizationKey returns the per-session key for a bouquet customization.
func (c *Client) CustomizationKey(sessionID, bouquetID string) string {
	return c.buildKey(sessionPrefix, sessionID, customizationKey, bouquetID)
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
