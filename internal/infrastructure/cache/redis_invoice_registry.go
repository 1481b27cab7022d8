package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/gst/internal/domain/tax"
	"github.com/redis/go-redis/v9"
)

// DefaultInvoiceNumberKeyPrefix namespaces reservation keys in Redis.
const DefaultInvoiceNumberKeyPrefix = "gst:invoice_number:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisInvoiceNumberRegistry implements tax.InvoiceNumberRegistry on Redis so that
// every service instance sees the same set of issued numbers.
type RedisInvoiceNumberRegistry struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisInvoiceNumberRegistry connects to Redis and verifies the connection with PING.
func NewRedisInvoiceNumberRegistry(cfg RedisConfig, ttl time.Duration) (*RedisInvoiceNumberRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisInvoiceNumberRegistryWithClient(client, "", ttl), nil
}

// NewRedisInvoiceNumberRegistryWithClient creates a registry with an existing Redis client.
func NewRedisInvoiceNumberRegistryWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisInvoiceNumberRegistry {
	if keyPrefix == "" {
		keyPrefix = DefaultInvoiceNumberKeyPrefix
	}
	if ttl <= 0 {
		ttl = tax.DefaultReservationTTL
	}
	return &RedisInvoiceNumberRegistry{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Reserve claims number with SETNX. It returns false if the key already exists.
func (r *RedisInvoiceNumberRegistry) Reserve(ctx context.Context, number string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.keyPrefix+number, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve invoice number: %w", err)
	}
	return ok, nil
}

// IsReserved reports whether number is currently reserved.
func (r *RedisInvoiceNumberRegistry) IsReserved(ctx context.Context, number string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keyPrefix+number).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check invoice number: %w", err)
	}
	return n > 0, nil
}

// Ping checks that Redis is reachable
func (r *RedisInvoiceNumberRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (r *RedisInvoiceNumberRegistry) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client
func (r *RedisInvoiceNumberRegistry) Client() *redis.Client {
	return r.client
}

var _ tax.InvoiceNumberRegistry = (*RedisInvoiceNumberRegistry)(nil)
