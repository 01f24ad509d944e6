package mpesa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenCache(t *testing.T) {
	t.Run("empty cache misses", func(t *testing.T) {
		cache := NewTokenCache()
		_, ok := cache.Get(tokenSafetyMargin)
		require.False(t, ok)
	})

	t.Run("token with plenty of life is reused", func(t *testing.T) {
		cache := NewTokenCache()
		cache.Put("tok-1", time.Now().Add(time.Hour))

		got, ok := cache.Get(tokenSafetyMargin)
		require.True(t, ok)
		require.Equal(t, "tok-1", got)
	})

	t.Run("token inside the safety margin misses", func(t *testing.T) {
		cache := NewTokenCache()
		cache.Put("tok-1", time.Now().Add(4*time.Minute))

		_, ok := cache.Get(tokenSafetyMargin)
		require.False(t, ok)
	})

	t.Run("put overwrites", func(t *testing.T) {
		cache := NewTokenCache()
		cache.Put("tok-1", time.Now().Add(time.Hour))
		cache.Put("tok-2", time.Now().Add(time.Hour))

		got, ok := cache.Get(tokenSafetyMargin)
		require.True(t, ok)
		require.Equal(t, "tok-2", got)
	})
}
