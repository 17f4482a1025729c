package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wikimedia/klaxon/pkg/logger"
)

// RedisClient handles all Redis operations for page-request bookkeeping.
type RedisClient struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisClient creates a new Redis client with the provided configuration.
// It initializes the connection and validates connectivity.
func NewRedisClient(config RedisConfig) (*RedisClient, error) {
	if !config.Enabled {
		return nil, fmt.Errorf("Redis storage is disabled")
	}
	if config.Address == "" {
		return nil, fmt.Errorf("Redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.Database,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Redis storage client connected successfully to %s", config.Address)

	return &RedisClient{
		client:    rdb,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// buildKey efficiently builds Redis keys using strings.Builder
func (r *RedisClient) buildKey(parts ...string) string {
	var builder strings.Builder
	builder.WriteString(r.keyPrefix)
	for _, part := range parts {
		builder.WriteByte(':')
		builder.WriteString(part)
	}
	return builder.String()
}

// Reserve atomically claims a key in the given namespace for the TTL.
// It returns false when the key was already claimed and is still live.
func (r *RedisClient) Reserve(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error) {
	fullKey := r.buildKey(namespace, "reserved", key)

	fresh, err := r.client.SetNX(ctx, fullKey, "reserved", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve key: %w", err)
	}
	if fresh {
		logger.Debugf("Reserved %s for %v", fullKey, ttl)
	}
	return fresh, nil
}

// SetJSON stores a JSON-encoded value under the key with the given TTL.
func (r *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	fullKey := r.buildKey(key)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := r.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store value: %w", err)
	}
	return nil
}

// GetJSON retrieves a JSON-encoded value. It returns false when the key does
// not exist.
func (r *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	fullKey := r.buildKey(key)

	data, err := r.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get value: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return true, nil
}
