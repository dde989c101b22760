package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

func TestProvider_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("remote data is used and mirrored", func(t *testing.T) {
		f := newFixture(t)
		inq, err := site.NewInquiry(site.InquiryInput{Name: "A", Email: "a@x.com", Message: "hello!"}, time.Now())
		require.NoError(t, err)
		f.remote.inquiries = []site.Inquiry{inq}

		snap := f.provider.Load(ctx)
		assert.Equal(t, TierRemote, snap.DocumentTier)
		assert.Equal(t, TierRemote, snap.InquiriesTier)
		assert.Empty(t, snap.Warning)
		assert.False(t, snap.Loading)
		assert.Equal(t, "Remote Co", snap.Document.Settings.Name["en"])

		cached, ok := f.cache.LoadDocument(ctx)
		require.True(t, ok)
		assert.Equal(t, "Remote Co", cached.Settings.Name["en"])
		list, ok := f.cache.LoadInquiries(ctx)
		require.True(t, ok)
		assert.Len(t, list, 1)
	})

	t.Run("empty remote document falls back to cache", func(t *testing.T) {
		f := newFixture(t)
		f.remote.doc = site.Skeleton()
		f.remote.doc.Contact.Phone = "+1 555"

		cached := site.Skeleton()
		cached.Settings.Name = site.Text("en", "Cached Co")
		require.NoError(t, f.cache.SaveDocument(ctx, cached))

		snap := f.provider.Load(ctx)
		assert.Equal(t, TierCache, snap.DocumentTier)
		assert.Equal(t, "Cached Co", snap.Document.Settings.Name["en"])
		assert.Contains(t, snap.Warning, "local cache")
		assert.Contains(t, snap.Warning, "no content")
	})

	t.Run("network failure with empty cache uses defaults and caches them", func(t *testing.T) {
		f := newFixture(t)
		f.remote.docErr = shared.ErrNetwork.WithMessage("connection refused")
		f.remote.inqErr = shared.ErrNetwork.WithMessage("connection refused")

		snap := f.provider.Load(ctx)
		assert.Equal(t, TierDefault, snap.DocumentTier)
		assert.Equal(t, TierDefault, snap.InquiriesTier)
		assert.Equal(t, "Bundled Co", snap.Document.Settings.Name["en"])
		assert.Contains(t, snap.Warning, "bundled defaults")
		assert.Contains(t, snap.Warning, "connection refused")
		assert.Empty(t, f.provider.Inquiries())

		cached, ok := f.cache.LoadDocument(ctx)
		require.True(t, ok)
		assert.Equal(t, "Bundled Co", cached.Settings.Name["en"])

		// A second provider now loads the mirrored default from cache.
		second := New(f.remote, f.cache, testDefaults, nil)
		assert.Equal(t, TierCache, second.Load(ctx).DocumentTier)
	})

	t.Run("empty cached document is skipped", func(t *testing.T) {
		f := newFixture(t)
		f.remote.docErr = shared.ErrNetwork
		require.NoError(t, f.cache.SaveDocument(ctx, site.Skeleton()))

		snap := f.provider.Load(ctx)
		assert.Equal(t, TierDefault, snap.DocumentTier)
	})

	t.Run("inquiries fall back to cache independently", func(t *testing.T) {
		f := newFixture(t)
		f.remote.inqErr = shared.ErrNetwork
		inq, err := site.NewInquiry(site.InquiryInput{Name: "B", Email: "b@x.com", Message: "cached"}, time.Now())
		require.NoError(t, err)
		require.NoError(t, f.cache.SaveInquiries(ctx, []site.Inquiry{inq}))

		snap := f.provider.Load(ctx)
		assert.Equal(t, TierRemote, snap.DocumentTier)
		assert.Equal(t, TierCache, snap.InquiriesTier)
		assert.Contains(t, snap.Warning, "inquiries loaded from local cache")
		require.Len(t, f.provider.Inquiries(), 1)
	})

	t.Run("load does not refetch, reload does", func(t *testing.T) {
		f := newFixture(t)
		f.provider.Load(ctx)
		f.provider.Load(ctx)
		assert.Equal(t, int32(1), f.remote.getCalls.Load())
		f.provider.Reload(ctx)
		assert.Equal(t, int32(2), f.remote.getCalls.Load())
	})
}

func TestProvider_Load_ConfigurationErrorIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t)
	f.remote.docErr = shared.ErrConfiguration
	f.remote.inqErr = shared.ErrConfiguration
	p := New(f.remote, f.cache, testDefaults, zap.New(core))

	snap := p.Load(context.Background())
	assert.Equal(t, TierDefault, snap.DocumentTier)
	assert.NotEmpty(t, snap.Warning)
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("Site data loaded without remote API").Len())
}

func TestProvider_Reload_Collapsed(t *testing.T) {
	f := newFixture(t)
	f.remote.getGate = make(chan struct{})

	var wg sync.WaitGroup
	snaps := make([]Snapshot, 5)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i] = f.provider.Reload(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.remote.getCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return f.provider.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	// Let the other callers join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(f.remote.getGate)
	wg.Wait()

	assert.Equal(t, int32(1), f.remote.getCalls.Load())
	for _, s := range snaps {
		assert.Equal(t, TierRemote, s.DocumentTier)
	}
}

func TestProvider_SnapshotIsACopy(t *testing.T) {
	f := newFixture(t)
	snap := f.provider.Load(context.Background())
	snap.Document.Settings.Name["en"] = "mutated"
	assert.Equal(t, "Remote Co", f.provider.Snapshot().Document.Settings.Name["en"])
}
