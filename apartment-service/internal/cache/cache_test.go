package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manyalawy/nawy/apartment-service/internal/cache"
	"github.com/manyalawy/nawy/apartment-service/internal/config"
	"github.com/manyalawy/nawy/apartment-service/internal/domain"
)

func TestNoopCache(t *testing.T) {
	var c cache.ApartmentCache = cache.NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a1", &domain.ApartmentResponse{ID: "a1"}, time.Minute))
	_, err := c.Get(ctx, "a1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "a1"))
	assert.NoError(t, c.Close())
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "apartment:id:a1", cache.BuildKey("apartment", "a1"))
}

func TestNewRedisApartmentCache_Unreachable(t *testing.T) {
	_, err := cache.NewRedisApartmentCache(config.RedisConfig{Address: "127.0.0.1:1"}, "apartment")
	assert.Error(t, err)
}
