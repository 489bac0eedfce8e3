package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orderstack/fulfillment/order"
)

// RedisConfig configures the Redis-backed order repository.
type RedisConfig struct {
	// Addr is the Redis host:port. Defaults to "localhost:6379".
	Addr string

	// Password is optional.
	Password string

	// DB selects the Redis logical database.
	DB int

	// KeyPrefix namespaces every key this repository writes.
	// Defaults to "fulfillment".
	KeyPrefix string
}

// Redis stores orders as JSON values keyed by order ID, with a per-customer
// sorted set (scored by creation time) serving as the listing index.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed repository and verifies connectivity.
func NewRedis(ctx context.Context, config RedisConfig) (*Redis, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "fulfillment"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &Redis{client: client, prefix: config.KeyPrefix}, nil
}

func (r *Redis) orderKey(id string) string {
	return r.prefix + ":order:" + id
}

func (r *Redis) customerKey(customerID string) string {
	return r.prefix + ":customer:" + customerID
}

// Create persists a new order and indexes it under its customer.
func (r *Redis) Create(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("store: marshal order %s: %w", o.ID, err)
	}

	ok, err := r.client.SetNX(ctx, r.orderKey(o.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: create order %s: %w", o.ID, err)
	}
	if !ok {
		return order.ErrAlreadyExists
	}

	err = r.client.ZAdd(ctx, r.customerKey(o.CustomerID), redis.Z{
		Score:  float64(o.CreatedAt.UnixNano()),
		Member: o.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("store: index order %s: %w", o.ID, err)
	}
	return nil
}

// Get returns the order with the given ID.
func (r *Redis) Get(ctx context.Context, id string) (*order.Order, error) {
	data, err := r.client.Get(ctx, r.orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get order %s: %w", id, err)
	}

	var o order.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("store: unmarshal order %s: %w", id, err)
	}
	return &o, nil
}

// Update overwrites an existing order.
func (r *Redis) Update(ctx context.Context, o *order.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("store: marshal order %s: %w", o.ID, err)
	}

	ok, err := r.client.SetXX(ctx, r.orderKey(o.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: update order %s: %w", o.ID, err)
	}
	if !ok {
		return order.ErrNotFound
	}
	return nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *Redis) ListByCustomer(ctx context.Context, customerID string, offset, limit int) ([]*order.Order, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}

	ids, err := r.client.ZRevRange(ctx, r.customerKey(customerID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list orders for customer %s: %w", customerID, err)
	}

	orders := make([]*order.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if errors.Is(err, order.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ order.Repository = (*Redis)(nil)
