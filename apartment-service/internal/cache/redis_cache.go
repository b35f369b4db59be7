package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manyalawy/nawy/apartment-service/internal/config"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
)

type RedisApartmentCache struct {
	client *redis.Client
	prefix string
}

var _ ApartmentCache = (*RedisApartmentCache)(nil)

func NewRedisApartmentCache(cfg config.RedisConfig, prefix string) (*RedisApartmentCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisApartmentCache{
		client: client,
		prefix: prefix,
	}, nil
}

// BuildKey returns the redis key of an apartment.
func BuildKey(prefix, id string) string {
	return fmt.Sprintf("%s:id:%s", prefix, id)
}

func (c *RedisApartmentCache) Get(ctx context.Context, id string) (*domain.ApartmentResponse, error) {
	data, err := c.client.Get(ctx, BuildKey(c.prefix, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var apt domain.ApartmentResponse
	if err := json.Unmarshal(data, &apt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &apt, nil
}

func (c *RedisApartmentCache) Set(ctx context.Context, id string, apt *domain.ApartmentResponse, ttl time.Duration) error {
	data, err := json.Marshal(apt)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, BuildKey(c.prefix, id), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisApartmentCache) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BuildKey(c.prefix, id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisApartmentCache) Close() error {
	return c.client.Close()
}
