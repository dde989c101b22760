package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty directory is rejected", func(t *testing.T) {
		_, err := NewFileStore("", 0, nil)
		require.Error(t, err)
	})

	t.Run("get set delete", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir(), 0, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = store.Get(ctx, "site_data")
		assert.ErrorIs(t, err, ErrMiss)

		require.NoError(t, store.Set(ctx, "site_data", []byte(`{"a":1}`)))
		got, err := store.Get(ctx, "site_data")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))

		require.NoError(t, store.Delete(ctx, "site_data"))
		_, err = store.Get(ctx, "site_data")
		assert.ErrorIs(t, err, ErrMiss)
		require.NoError(t, store.Delete(ctx, "site_data"))
	})

	t.Run("invalid keys are rejected", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir(), 0, nil)
		require.NoError(t, err)
		for _, key := range []string{"", "../escape", "a/b", "a.b"} {
			assert.Error(t, store.Set(ctx, key, []byte("x")), key)
		}
	})

	t.Run("no temp files are left behind", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir, 0, nil)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, "site_data", []byte("one")))
		require.NoError(t, store.Set(ctx, "site_data", []byte("two")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "site_data.json", entries[0].Name())
	})

	t.Run("quota counts other keys but not the replaced value", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir(), 10, nil)
		require.NoError(t, err)

		require.NoError(t, store.Set(ctx, "a", []byte("123456")))
		// Replacing a with the same size fits.
		require.NoError(t, store.Set(ctx, "a", []byte("abcdef")))
		// b would take the total to 11 bytes.
		err = store.Set(ctx, "b", []byte("12345"))
		assert.ErrorIs(t, err, ErrQuotaExceeded)

		_, err = store.Get(ctx, "b")
		assert.ErrorIs(t, err, ErrMiss)
		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "abcdef", string(got))
	})
}

func TestFileStore_OversizedDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, 64*1024, nil)
	require.NoError(t, err)
	c := New(store)

	small := site.Skeleton()
	require.NoError(t, c.SaveDocument(ctx, small))

	big := site.Skeleton()
	big.About.Content = site.Text("en", strings.Repeat("x", 128*1024))
	err = c.SaveDocument(ctx, big)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageQuota)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	got, ok := c.LoadDocument(ctx)
	require.True(t, ok)
	assert.Empty(t, got.About.Content["en"])

	_, err = os.Stat(filepath.Join(dir, KeyDocument+".json"))
	assert.NoError(t, err)
}
