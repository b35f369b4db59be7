package cache

import (
	"context"
	"errors"
	"time"

	"github.com/manyalawy/nawy/apartment-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ApartmentCache caches apartment detail responses by apartment id.
type ApartmentCache interface {
	Get(ctx context.Context, id string) (*domain.ApartmentResponse, error)
	Set(ctx context.Context, id string, apt *domain.ApartmentResponse, ttl time.Duration) error
	Delete(ctx context.Context, ids ...string) error
	Close() error
}

// NoopCache never stores anything. Used when caching is disabled.
type NoopCache struct{}

var _ ApartmentCache = NoopCache{}

func (NoopCache) Get(ctx context.Context, id string) (*domain.ApartmentResponse, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(ctx context.Context, id string, apt *domain.ApartmentResponse, ttl time.Duration) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, ids ...string) error { return nil }

func (NoopCache) Close() error { return nil }
