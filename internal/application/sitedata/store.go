package sitedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// Shard keys
const (
	KeySupportedLocales = "supportedLocales"
	KeyDefaultLocale    = "defaultLocale"
	ProductsPrefix      = "products/"
	InquiriesPrefix     = "inquiries/"
	indexName           = "index"
	fanOutLimit         = 16
)

// Shard kinds reported through metrics
const (
	kindSection = "section"
	kindProduct = "product"
	kindInquiry = "inquiry"
	kindIndex   = "index"
)

// documentSections are the sections persisted one shard each, keyed by the section name.
// Locales are stored separately as supportedLocales + defaultLocale.
var documentSections = []site.Section{
	site.SectionSettings,
	site.SectionHero,
	site.SectionAdvantages,
	site.SectionPartners,
	site.SectionTradeRegions,
	site.SectionCategories,
	site.SectionFeaturedProducts,
	site.SectionAbout,
	site.SectionContact,
	site.SectionSEO,
}

// Store persists the site document as independent shards.
// Reads merge every shard over the typed skeleton; writes touch the smallest set of shards.
type Store struct {
	backend ShardBackend
	logger  *zap.Logger
	metrics *telemetry.SiteMetrics
	now     func() time.Time
	locks   *keyedMutex
	// docMu is held exclusively by whole-document operations and shared by per-entity ones
	docMu sync.RWMutex
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for createdAt/updatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metric instruments
func WithMetrics(m *telemetry.SiteMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a store over backend
func NewStore(backend ShardBackend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   newKeyedMutex(),
	}
	s.metrics = telemetry.DefaultSiteMetrics()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func productKey(id string) string { return ProductsPrefix + id }
func inquiryKey(id string) string { return InquiriesPrefix + id }

// readShard returns nil data for a missing shard
func (s *Store) readShard(ctx context.Context, key string) ([]byte, error) {
	data, err := s.backend.Read(ctx, key)
	if errors.Is(err, ErrShardNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) writeShard(ctx context.Context, kind, key string, data []byte) error {
	if err := s.backend.Write(ctx, key, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return shared.ErrStorageFailure.WithMessage(fmt.Sprintf("write shard %s", key)).WithCause(err)
	}
	s.metrics.Write(ctx, kind)
	return nil
}

func (s *Store) writeJSON(ctx context.Context, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode shard %s: %w", key, err)
	}
	return s.writeShard(ctx, kind, key, data)
}

func (s *Store) deleteShard(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return shared.ErrStorageFailure.WithMessage(fmt.Sprintf("delete shard %s", key)).WithCause(err)
	}
	return nil
}

// unreadable records a shard that had to be replaced by its default
func (s *Store) unreadable(ctx context.Context, kind, key string, err error) {
	s.metrics.ReadFailure(ctx, kind)
	s.logger.Warn("Unreadable shard replaced by default",
		zap.String("key", key),
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// localeState is the stored locale configuration plus what had to be fixed to read it
type localeState struct {
	config       site.LocaleConfig
	legacyScalar bool
	unreadable   []string
}

func (s *Store) readLocales(ctx context.Context) (localeState, error) {
	st := localeState{config: site.Skeleton().Locales}

	data, err := s.readShard(ctx, KeySupportedLocales)
	if err != nil {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.unreadable(ctx, kindSection, KeySupportedLocales, err)
		st.unreadable = append(st.unreadable, KeySupportedLocales)
	} else if data != nil {
		var supported []string
		if err := json.Unmarshal(data, &supported); err != nil {
			s.unreadable(ctx, kindSection, KeySupportedLocales, err)
			st.unreadable = append(st.unreadable, KeySupportedLocales)
		} else {
			st.config.Supported = supported
		}
	}

	data, err = s.readShard(ctx, KeyDefaultLocale)
	if err != nil {
		if ctx.Err() != nil {
			return st, ctx.Err()
		}
		s.unreadable(ctx, kindSection, KeyDefaultLocale, err)
		st.unreadable = append(st.unreadable, KeyDefaultLocale)
	} else if data != nil {
		raw := strings.TrimSpace(string(data))
		value := site.UnwrapScalar(raw)
		if value != raw {
			st.legacyScalar = true
			s.logger.Debug("Legacy encoded scalar shard",
				zap.String("key", KeyDefaultLocale),
				zap.String("raw", raw),
			)
		}
		st.config.Default = value
	}
	return st, nil
}

// GetDocument assembles the document from its shards.
// Missing shards read as defaults; unreadable ones are logged, counted and reported.
func (s *Store) GetDocument(ctx context.Context) (site.Document, RepairReport, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_document")
	defer span.End()

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	report := newReport()
	raw := make([][]byte, len(documentSections))
	failed := make([]error, len(documentSections))
	var (
		locales  localeState
		products []site.Product
		prodRep  RepairReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locales, err = s.readLocales(gctx)
		return err
	})
	for i, section := range documentSections {
		g.Go(func() error {
			data, err := s.readShard(gctx, section.String())
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			raw[i], failed[i] = data, err
			return nil
		})
	}
	g.Go(func() error {
		var err error
		products, prodRep, err = loadCollection[site.Product](gctx, s, ProductsPrefix, kindProduct)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return site.Document{}, RepairReport{}, err
	}

	doc := site.Skeleton()
	doc.Locales = locales.config
	if locales.legacyScalar {
		report.LegacyScalars = append(report.LegacyScalars, KeyDefaultLocale)
	}
	report.UnreadableShards = append(report.UnreadableShards, locales.unreadable...)

	for i, section := range documentSections {
		key := section.String()
		if failed[i] != nil {
			s.unreadable(ctx, kindSection, key, failed[i])
			report.UnreadableShards = append(report.UnreadableShards, key)
			continue
		}
		if raw[i] == nil {
			continue
		}
		// Decode over a scratch copy so a partially decoded payload never leaks into the result.
		scratch := doc.Clone()
		if err := scratch.DecodeSection(section, raw[i]); err != nil {
			s.unreadable(ctx, kindSection, key, err)
			report.UnreadableShards = append(report.UnreadableShards, key)
			continue
		}
		doc = scratch
	}

	doc.Products = products
	doc.Normalize()
	report.merge(prodRep)
	report.sort()

	telemetry.SetAttributes(span, telemetry.SpanAttrShardCount, len(documentSections)+2+len(products))
	return doc, report, nil
}

// UpdateSection replaces one section. The payload is decoded over the skeleton, so keys it
// omits fall back to defaults rather than to the previously stored value.
// It returns the normalized section as stored.
func (s *Store) UpdateSection(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "update_section",
		telemetry.WithAttribute(telemetry.SpanAttrSection, name))
	defer span.End()

	section, err := site.ParseSection(name)
	if err != nil {
		return nil, err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(section.String())
	defer unlock()

	stored, err := s.readLocales(ctx)
	if err != nil {
		return nil, err
	}
	doc := site.Skeleton()
	doc.Locales = stored.config

	switch section {
	case site.SectionDefaultLocale:
		// Accept both a JSON string and a bare code.
		value := site.UnwrapScalar(strings.TrimSpace(string(raw)))
		if _, err := site.CanonicalLocale(value); err != nil {
			return nil, shared.ErrValidation.WithMessage(fmt.Sprintf("invalid locale %q", value))
		}
		doc.Locales.Default = value
	case site.SectionLocales:
		doc.Locales = site.LocaleConfig{}
		if err := doc.DecodeSection(section, raw); err != nil {
			return nil, err
		}
	default:
		if err := doc.DecodeSection(section, raw); err != nil {
			return nil, err
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.Normalize()

	switch section {
	case site.SectionLocales, site.SectionDefaultLocale:
		if section == site.SectionLocales {
			if err := s.writeJSON(ctx, kindSection, KeySupportedLocales, doc.Locales.Supported); err != nil {
				return nil, err
			}
		}
		// Scalar shard: the raw code, never JSON-encoded.
		if err := s.writeShard(ctx, kindSection, KeyDefaultLocale, []byte(doc.Locales.Default)); err != nil {
			return nil, err
		}
	default:
		data, err := doc.EncodeSection(section)
		if err != nil {
			return nil, fmt.Errorf("encode section %s: %w", section, err)
		}
		if err := s.writeShard(ctx, kindSection, section.String(), data); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.logger.Info("Section updated", zap.String("section", section.String()))
	return doc.SectionValue(section), nil
}

// ReplaceDocument validates doc and overwrites every shard with it.
// Products are written before the index, and records the new index no longer
// references are deleted last.
func (s *Store) ReplaceDocument(ctx context.Context, doc site.Document) (site.Document, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "replace_document")
	defer span.End()

	next := doc.Clone()
	next.Normalize()
	if err := next.Validate(); err != nil {
		return site.Document{}, err
	}
	now := s.now()
	for i := range next.Products {
		next.Products[i].KeepOrTouch(now)
	}

	s.docMu.Lock()
	defer s.docMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	g.Go(func() error {
		return s.writeJSON(gctx, kindSection, KeySupportedLocales, next.Locales.Supported)
	})
	g.Go(func() error {
		return s.writeShard(gctx, kindSection, KeyDefaultLocale, []byte(next.Locales.Default))
	})
	for _, section := range documentSections {
		g.Go(func() error {
			data, err := next.EncodeSection(section)
			if err != nil {
				return fmt.Errorf("encode section %s: %w", section, err)
			}
			return s.writeShard(gctx, kindSection, section.String(), data)
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return site.Document{}, err
	}

	if err := s.replaceProducts(ctx, next.Products); err != nil {
		telemetry.RecordError(span, err)
		return site.Document{}, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrShardCount, len(documentSections)+2+len(next.Products))
	s.logger.Info("Document replaced", zap.Int("products", len(next.Products)))
	return next, nil
}

// replaceProducts makes the stored product set exactly products. Caller holds docMu.
func (s *Store) replaceProducts(ctx context.Context, products []site.Product) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, p := range products {
		g.Go(func() error {
			return s.writeJSON(gctx, kindProduct, productKey(p.ID), p)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ids := site.ProductIDs(products)
	if err := s.writeJSON(ctx, kindIndex, ProductsPrefix+indexName, ids); err != nil {
		return err
	}
	return s.deleteUnreferenced(ctx, ProductsPrefix, ids)
}

// deleteUnreferenced removes records under prefix whose id is not in keep
func (s *Store) deleteUnreferenced(ctx context.Context, prefix string, keep []string) error {
	keys, err := s.backend.List(ctx, prefix)
	if err != nil {
		return shared.ErrStorageFailure.WithMessage("list " + prefix).WithCause(err)
	}
	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}
	for _, key := range keys {
		id, ok := recordID(prefix, key)
		if !ok || wanted[id] {
			continue
		}
		if err := s.deleteShard(ctx, key); err != nil {
			return err
		}
		s.logger.Debug("Deleted unreferenced record", zap.String("key", key))
	}
	return nil
}

// recordID extracts the record id from a full key under prefix; indexes are not records
func recordID(prefix, key string) (string, bool) {
	id, ok := strings.CutPrefix(key, prefix)
	if !ok || id == "" || id == indexName || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// readIndex returns the stored id list of a collection; nil when absent
func (s *Store) readIndex(ctx context.Context, prefix string) ([]string, error) {
	key := prefix + indexName
	data, err := s.readShard(ctx, key)
	if err != nil {
		return nil, shared.ErrStorageFailure.WithMessage("read " + key).WithCause(err)
	}
	if data == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, shared.ErrStorageFailure.WithMessage("decode " + key).WithCause(err)
	}
	return ids, nil
}

// loadCollection reads an index and its records concurrently.
// Index entries whose record is missing or unreadable are skipped and reported as dangling;
// records outside the index are reported as orphans.
func loadCollection[T any](ctx context.Context, s *Store, prefix, kind string) ([]T, RepairReport, error) {
	report := newReport()

	ids, err := s.readIndex(ctx, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, report, ctx.Err()
		}
		// An unreadable index hides the whole collection until repaired.
		s.unreadable(ctx, kindIndex, prefix+indexName, err)
		report.UnreadableShards = append(report.UnreadableShards, prefix+indexName)
		ids = nil
	}

	keys, err := s.backend.List(ctx, prefix)
	if err != nil {
		if ctx.Err() != nil {
			return nil, report, ctx.Err()
		}
		s.logger.Warn("List shards failed", zap.String("prefix", prefix), zap.Error(err))
		keys = nil
	}

	records := make([]*T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			key := prefix + id
			data, err := s.readShard(gctx, key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.unreadable(gctx, kind, key, err)
				return nil
			}
			if data == nil {
				return nil
			}
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				s.unreadable(gctx, kind, key, err)
				return nil
			}
			records[i] = &v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}

	out := make([]T, 0, len(ids))
	indexed := make(map[string]bool, len(ids))
	for i, id := range ids {
		indexed[id] = true
		if records[i] == nil {
			report.DanglingIDs = append(report.DanglingIDs, prefix+id)
			continue
		}
		out = append(out, *records[i])
	}
	for _, key := range keys {
		if id, ok := recordID(prefix, key); ok && !indexed[id] {
			report.OrphanIDs = append(report.OrphanIDs, key)
		}
	}
	return out, report, nil
}
