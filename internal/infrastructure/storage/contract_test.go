package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsite/backend/internal/application/sitedata"
)

// runBackendContract checks the behaviour every ShardBackend must share
func runBackendContract(t *testing.T, newBackend func(t *testing.T) sitedata.ShardBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key reads as not found", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Read(ctx, "settings")
		assert.True(t, errors.Is(err, sitedata.ErrShardNotFound))
	})

	t.Run("write then read returns the same bytes", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write(ctx, "products/p1", []byte(`{"id":"p1"}`)))
		data, err := b.Read(ctx, "products/p1")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"p1"}`, string(data))
	})

	t.Run("overwrite replaces the payload", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write(ctx, "defaultLocale", []byte("en")))
		require.NoError(t, b.Write(ctx, "defaultLocale", []byte("zh")))
		data, err := b.Read(ctx, "defaultLocale")
		require.NoError(t, err)
		assert.Equal(t, "zh", string(data))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write(ctx, "hero", []byte(`{}`)))
		require.NoError(t, b.Delete(ctx, "hero"))
		require.NoError(t, b.Delete(ctx, "hero"))
		_, err := b.Read(ctx, "hero")
		assert.True(t, errors.Is(err, sitedata.ErrShardNotFound))
	})

	t.Run("list filters by prefix", func(t *testing.T) {
		b := newBackend(t)
		for _, key := range []string{"products/index", "products/p_1", "products/p2", "inquiries/q1", "settings"} {
			require.NoError(t, b.Write(ctx, key, []byte(`{}`)))
		}
		keys, err := b.List(ctx, "products/")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"products/index", "products/p2", "products/p_1"}, keys)

		keys, err = b.List(ctx, "orders/")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("rejects traversal keys", func(t *testing.T) {
		b := newBackend(t)
		for _, key := range []string{"../etc/passwd", "products/../../x", "", "a//b", "/abs"} {
			assert.Error(t, b.Write(ctx, key, []byte("x")), key)
		}
	})

	t.Run("concurrent writes to distinct keys", func(t *testing.T) {
		b := newBackend(t)
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key := "products/c" + string(rune('a'+i))
				assert.NoError(t, b.Write(ctx, key, []byte(`{}`)))
			}()
		}
		wg.Wait()
		keys, err := b.List(ctx, "products/")
		require.NoError(t, err)
		assert.Len(t, keys, 20)
	})
}
