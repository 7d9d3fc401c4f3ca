package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisCache_NilClientAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(nil)

	c.SetBytes(ctx, "cache:frc:1", []byte("x"), time.Minute)
	_, ok := c.GetBytes(ctx, "cache:frc:1")
	assert.False(t, ok)
	c.Delete(ctx, "cache:frc:1")

	var nilCache *RedisCache
	_, ok = nilCache.GetBytes(ctx, "k")
	assert.False(t, ok)
}
