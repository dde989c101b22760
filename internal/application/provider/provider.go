// Package provider is the admin console's view of the site. It holds the working copy of the
// document and inquiries in memory and reconciles three tiers: the remote API, the local cache
// and the bundled default dataset. Reads never fail; writes are committed locally first and then
// pushed to the server.
package provider

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// RemoteGateway is the site data API as seen by the provider
type RemoteGateway interface {
	GetDocument(ctx context.Context) (site.Document, error)
	ReplaceDocument(ctx context.Context, doc site.Document) error
	PatchSection(ctx context.Context, section string, value any) (json.RawMessage, error)
	UploadDocument(ctx context.Context, filename string, raw []byte) error
	UpsertProduct(ctx context.Context, p site.Product) (site.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	BatchUpsertProducts(ctx context.Context, products []site.Product, reset bool) (sitedata.BatchResult, error)
	ListInquiries(ctx context.Context) ([]site.Inquiry, error)
	CreateInquiry(ctx context.Context, in site.InquiryInput) (site.Inquiry, error)
	UpdateInquiryStatus(ctx context.Context, id string, status site.InquiryStatus) (site.Inquiry, error)
}

// LocalCache keeps the last known document and inquiries on this machine.
// Load methods report ok=false when nothing usable is stored.
type LocalCache interface {
	LoadDocument(ctx context.Context) (site.Document, bool)
	SaveDocument(ctx context.Context, doc site.Document) error
	LoadInquiries(ctx context.Context) ([]site.Inquiry, bool)
	SaveInquiries(ctx context.Context, list []site.Inquiry) error
}

// DefaultsFunc returns a fresh copy of the bundled document
type DefaultsFunc func() site.Document

// Tier names where a resource currently comes from
type Tier string

const (
	TierUnloaded Tier = "UNLOADED"
	TierLoading  Tier = "LOADING"
	TierRemote   Tier = "LOADED_REMOTE"
	TierCache    Tier = "LOADED_CACHE"
	TierDefault  Tier = "LOADED_DEFAULT"
)

// SyncStatus is the outcome of pushing a write to the server
type SyncStatus string

const (
	// SyncSynced means the server accepted the write
	SyncSynced SyncStatus = "SYNCED"
	// SyncLocalOnly means the server was unreachable or not configured; the write is cached locally
	SyncLocalOnly SyncStatus = "LOCAL_ONLY"
	// SyncFailedPermanently means the server rejected the write
	SyncFailedPermanently SyncStatus = "FAILED_PERMANENTLY"
	// SyncPending means the push runs in the background
	SyncPending SyncStatus = "PENDING"
)

// WriteResult describes how far a write got
type WriteResult struct {
	Status SyncStatus `json:"status"`
	// Chunked is set when a document had to be sent section by section
	Chunked bool `json:"chunked,omitempty"`
	// Err is the remote error behind a non-synced status
	Err error `json:"-"`
}

// Snapshot is a consistent copy of the provider state
type Snapshot struct {
	Document      site.Document
	Loading       bool
	Warning       string
	DocumentTier  Tier
	InquiriesTier Tier
}

// Provider reconciles the remote API, the local cache and the default dataset
type Provider struct {
	remote   RemoteGateway
	local    LocalCache
	defaults DefaultsFunc
	logger   *zap.Logger
	metrics  *telemetry.SiteMetrics
	now      func() time.Time

	asyncSync      bool
	largeThreshold int64
	batchSize      int

	mu        sync.RWMutex
	doc       site.Document
	inquiries []site.Inquiry
	docTier   Tier
	inqTier   Tier
	loading   bool
	warning   string

	loads singleflight.Group
	syncs sync.WaitGroup
}

// Option configures a Provider
type Option func(*Provider)

// WithAsyncSync pushes writes to the server in background goroutines; Wait drains them
func WithAsyncSync(enabled bool) Option {
	return func(p *Provider) {
		p.asyncSync = enabled
	}
}

// WithLargeDocumentThreshold sets the encoded size above which documents are uploaded as a file
func WithLargeDocumentThreshold(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.largeThreshold = n
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMetrics sets the metric instruments
func WithMetrics(m *telemetry.SiteMetrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// New creates a Provider. Nothing is fetched until Load.
func New(remote RemoteGateway, local LocalCache, defaults DefaultsFunc, logger *zap.Logger, opts ...Option) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		remote:         remote,
		local:          local,
		defaults:       defaults,
		logger:         logger,
		now:            time.Now,
		largeThreshold: 1 << 20,
		batchSize:      10,
		docTier:        TierUnloaded,
		inqTier:        TierUnloaded,
		inquiries:      []site.Inquiry{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of the current state
func (p *Provider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *Provider) snapshotLocked() Snapshot {
	return Snapshot{
		Document:      p.doc.Clone(),
		Loading:       p.loading,
		Warning:       p.warning,
		DocumentTier:  p.docTier,
		InquiriesTier: p.inqTier,
	}
}

// Inquiries returns a copy of the inquiry list, newest first
func (p *Provider) Inquiries() []site.Inquiry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := site.CloneInquiries(p.inquiries)
	if out == nil {
		out = []site.Inquiry{}
	}
	return out
}

// Wait blocks until all background syncs have finished
func (p *Provider) Wait() {
	p.syncs.Wait()
}
