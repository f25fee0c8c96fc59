package collab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowforge/reactor/cache"
	"github.com/flowforge/reactor/collab"
)

func TestCacheableAdapterDelegatesToLoadingCache(t *testing.T) {
	lc := cache.New[string, int]().BuildLoading(func(key string) (int, error) {
		return len(key), nil
	})
	var c collab.Cacheable[string, int] = collab.NewCacheable(lc)

	v, err := c.Get(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, 5, v)
}
