// Package cache implements the admin console's local cache: the last known site document and
// inquiry list, kept under two fixed keys so the console works offline.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

// Fixed cache keys
const (
	KeyDocument  = "site_data"
	KeyInquiries = "site_inquiries"
)

// ErrMiss is returned by Store.Get for keys that hold no value
var ErrMiss = errors.New("cache miss")

// Store holds opaque values by key
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache stores the document and inquiries as JSON on top of a Store.
// A value that does not decode reads as absent.
type Cache struct {
	store  Store
	logger *zap.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps store
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get returns the raw value of key, or nil when absent or unreadable
func (c *Cache) get(ctx context.Context, key string) []byte {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil
	}
	if err != nil {
		c.logger.Warn("Local cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return data
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return shared.ErrStorageQuota.WithMessage(fmt.Sprintf("could not persist %s locally", key)).WithCause(err)
	}
	return nil
}

// LoadDocument returns the cached document. ok is false when nothing usable is cached.
// Older cache formats are upgraded on read.
func (c *Cache) LoadDocument(ctx context.Context) (site.Document, bool) {
	data := c.get(ctx, KeyDocument)
	if data == nil {
		return site.Document{}, false
	}
	doc, err := site.UpgradeLegacy(data)
	if err != nil {
		c.logger.Warn("Corrupt cached document ignored", zap.String("key", KeyDocument), zap.Error(err))
		return site.Document{}, false
	}
	return doc, true
}

// SaveDocument replaces the cached document
func (c *Cache) SaveDocument(ctx context.Context, doc site.Document) error {
	return c.set(ctx, KeyDocument, doc)
}

// LoadInquiries returns the cached inquiries. ok is false when nothing usable is cached.
func (c *Cache) LoadInquiries(ctx context.Context) ([]site.Inquiry, bool) {
	data := c.get(ctx, KeyInquiries)
	if data == nil {
		return nil, false
	}
	var list []site.Inquiry
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.Warn("Corrupt cached inquiries ignored", zap.String("key", KeyInquiries), zap.Error(err))
		return nil, false
	}
	if list == nil {
		list = []site.Inquiry{}
	}
	return list, true
}

// SaveInquiries replaces the cached inquiries
func (c *Cache) SaveInquiries(ctx context.Context, list []site.Inquiry) error {
	if list == nil {
		list = []site.Inquiry{}
	}
	return c.set(ctx, KeyInquiries, list)
}

// Clear removes both keys
func (c *Cache) Clear(ctx context.Context) error {
	for _, key := range []string{KeyDocument, KeyInquiries} {
		if err := c.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// Close releases the underlying store
func (c *Cache) Close() error {
	return c.store.Close()
}
