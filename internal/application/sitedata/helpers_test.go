package sitedata_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/storage"
)

// recordingBackend wraps a backend, records mutating calls and injects read failures
type recordingBackend struct {
	sitedata.ShardBackend
	mu       sync.Mutex
	ops      []string
	readErrs map[string]error
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{
		ShardBackend: storage.NewMemoryBackend(),
		readErrs:     map[string]error{},
	}
}

func (b *recordingBackend) failReads(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErrs[key] = err
}

func (b *recordingBackend) Read(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	err := b.readErrs[key]
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.ShardBackend.Read(ctx, key)
}

func (b *recordingBackend) Write(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	b.ops = append(b.ops, "write "+key)
	b.mu.Unlock()
	return b.ShardBackend.Write(ctx, key, data)
}

func (b *recordingBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	b.ops = append(b.ops, "delete "+key)
	b.mu.Unlock()
	return b.ShardBackend.Delete(ctx, key)
}

func (b *recordingBackend) resetOps() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
}

func (b *recordingBackend) recorded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

// testClock returns increasing timestamps one second apart
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) (*sitedata.Store, *recordingBackend, *testClock) {
	t.Helper()
	backend := newRecordingBackend()
	clock := newTestClock()
	store := sitedata.NewStore(backend,
		sitedata.WithLogger(zaptest.NewLogger(t)),
		sitedata.WithClock(clock.Now),
	)
	return store, backend, clock
}

func testProduct(id string) site.Product {
	return site.Product{
		ID:          id,
		SKU:         "SKU-" + id,
		CategoryID:  "valves",
		Name:        site.Text("en", "Ball valve "+id, "zh", "球阀 "+id),
		Description: site.Text("en", "Forged brass", "zh", "锻造黄铜"),
		Price: site.Price{
			Amount:   decimal.RequireFromString("12.5"),
			Currency: "USD",
			Unit:     site.Text("en", "piece", "zh", "个"),
			MOQ:      100,
		},
		Images: []string{"/img/" + id + ".jpg"},
	}
}

func readRaw(t *testing.T, b sitedata.ShardBackend, key string) string {
	t.Helper()
	data, err := b.Read(context.Background(), key)
	require.NoError(t, err)
	return string(data)
}

func readIndex(t *testing.T, b sitedata.ShardBackend, prefix string) []string {
	t.Helper()
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(readRaw(t, b, prefix+"index")), &ids))
	return ids
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
