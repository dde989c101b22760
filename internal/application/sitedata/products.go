package sitedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// BatchResult summarizes a BatchUpsertProducts call
type BatchResult struct {
	Upserted int      `json:"upserted"`
	Deleted  int      `json:"deleted"`
	IDs      []string `json:"ids"`
}

func validateRecordID(id string) error {
	if id == indexName {
		return shared.ErrValidation.WithMessage(fmt.Sprintf("id %q is reserved", id))
	}
	return site.ValidateShardKey(id)
}

// supportedLocales returns the stored supported locales, normalized
func (s *Store) supportedLocales(ctx context.Context) ([]string, error) {
	st, err := s.readLocales(ctx)
	if err != nil {
		return nil, err
	}
	doc := site.Document{Locales: st.config}
	doc.Normalize()
	return doc.Locales.Supported, nil
}

// readProduct returns the stored product, or ok=false when absent
func (s *Store) readProduct(ctx context.Context, id string) (site.Product, bool, error) {
	key := productKey(id)
	data, err := s.readShard(ctx, key)
	if err != nil {
		return site.Product{}, false, shared.ErrStorageFailure.WithMessage("read " + key).WithCause(err)
	}
	if data == nil {
		return site.Product{}, false, nil
	}
	var p site.Product
	if err := json.Unmarshal(data, &p); err != nil {
		s.unreadable(ctx, kindProduct, key, err)
		return site.Product{}, false, shared.ErrStorageFailure.WithMessage("decode " + key).WithCause(err)
	}
	return p, true, nil
}

// ListProducts returns the products in index order. Dangling index entries are skipped.
func (s *Store) ListProducts(ctx context.Context) ([]site.Product, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "list_products")
	defer span.End()

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	locales, err := s.supportedLocales(ctx)
	if err != nil {
		return nil, err
	}
	products, _, err := loadCollection[site.Product](ctx, s, ProductsPrefix, kindProduct)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for i := range products {
		products[i].Normalize(locales)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrShardCount, len(products))
	return products, nil
}

// GetProduct returns one product
func (s *Store) GetProduct(ctx context.Context, id string) (site.Product, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id))
	defer span.End()

	if err := validateRecordID(id); err != nil {
		return site.Product{}, err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	p, ok, err := s.readProduct(ctx, id)
	if err != nil {
		return site.Product{}, err
	}
	if !ok {
		return site.Product{}, shared.ErrNotFound.WithMessage(fmt.Sprintf("product %s not found", id))
	}
	locales, err := s.supportedLocales(ctx)
	if err != nil {
		return site.Product{}, err
	}
	p.Normalize(locales)
	return p, nil
}

// UpsertProduct writes the record, then the index. A new id is prepended to the index.
// createdAt survives updates; updatedAt is always refreshed.
func (s *Store) UpsertProduct(ctx context.Context, p site.Product) (site.Product, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "upsert_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, p.ID))
	defer span.End()

	if err := validateRecordID(p.ID); err != nil {
		return site.Product{}, err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(productKey(p.ID))
	defer unlock()

	stored, err := s.putProduct(ctx, p, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return site.Product{}, err
	}
	if _, err := s.updateIndex(ctx, ProductsPrefix, func(ids []string) ([]string, bool) {
		return site.UpsertID(ids, stored.ID)
	}); err != nil {
		telemetry.RecordError(span, err)
		return site.Product{}, err
	}

	s.logger.Info("Product upserted", zap.String("product_id", stored.ID))
	return stored, nil
}

// putProduct normalizes, validates and writes one record. Caller holds the record lock.
// With imported the supplied timestamps are stored as given, like ReplaceDocument does.
func (s *Store) putProduct(ctx context.Context, p site.Product, imported bool) (site.Product, error) {
	locales, err := s.supportedLocales(ctx)
	if err != nil {
		return site.Product{}, err
	}
	next := p.Clone()
	next.Normalize(locales)
	if err := next.Validate(); err != nil {
		return site.Product{}, err
	}

	if imported {
		next.KeepOrTouch(s.now())
	} else {
		existing, ok, err := s.readProduct(ctx, next.ID)
		if err != nil && !errors.Is(err, shared.ErrStorageFailure) {
			return site.Product{}, err
		}
		if ok && !existing.CreatedAt.IsZero() {
			next.CreatedAt = existing.CreatedAt
		}
		next.Touch(s.now())
	}

	if err := s.writeJSON(ctx, kindProduct, productKey(next.ID), next); err != nil {
		return site.Product{}, err
	}
	return next, nil
}

// updateIndex applies fn to the index of a collection under the index lock and writes it back
// when fn reports a change.
func (s *Store) updateIndex(ctx context.Context, prefix string, fn func([]string) ([]string, bool)) ([]string, error) {
	key := prefix + indexName
	unlock := s.locks.Lock(key)
	defer unlock()

	ids, err := s.readIndex(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	next, changed := fn(ids)
	if !changed {
		return next, nil
	}
	if err := s.writeJSON(ctx, kindIndex, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// PatchProduct merges patch over the stored record. The id cannot be changed.
func (s *Store) PatchProduct(ctx context.Context, id string, patch json.RawMessage) (site.Product, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "patch_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id))
	defer span.End()

	if err := validateRecordID(id); err != nil {
		return site.Product{}, err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(productKey(id))
	defer unlock()

	existing, ok, err := s.readProduct(ctx, id)
	if err != nil {
		return site.Product{}, err
	}
	if !ok {
		return site.Product{}, shared.ErrNotFound.WithMessage(fmt.Sprintf("product %s not found", id))
	}
	if err := json.Unmarshal(patch, &existing); err != nil {
		return site.Product{}, shared.ErrValidation.WithMessage(fmt.Sprintf("invalid product patch: %v", err)).WithCause(err)
	}
	existing.ID = id

	stored, err := s.putProduct(ctx, existing, false)
	if err != nil {
		return site.Product{}, err
	}
	// A record without an index entry is an orphan; patching adopts it.
	if _, err := s.updateIndex(ctx, ProductsPrefix, func(ids []string) ([]string, bool) {
		return site.UpsertID(ids, id)
	}); err != nil {
		return site.Product{}, err
	}
	return stored, nil
}

// DeleteProduct removes the id from the index first, then the record, then from featuredProducts.
// A crash in between leaves an orphan record, never a dangling index entry.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := telemetry.StartStoreSpan(ctx, "delete_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, id))
	defer span.End()

	if err := validateRecordID(id); err != nil {
		return err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(productKey(id))
	defer unlock()

	_, hasRecord, err := s.readProduct(ctx, id)
	if err != nil && !errors.Is(err, shared.ErrStorageFailure) {
		return err
	}
	if err != nil {
		// Corrupt record: still deletable.
		hasRecord = true
	}

	removed := false
	if _, err := s.updateIndex(ctx, ProductsPrefix, func(ids []string) ([]string, bool) {
		next, ok := site.RemoveID(ids, id)
		removed = ok
		return next, ok
	}); err != nil {
		return err
	}
	if !removed && !hasRecord {
		return shared.ErrNotFound.WithMessage(fmt.Sprintf("product %s not found", id))
	}

	if err := s.deleteShard(ctx, productKey(id)); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.removeFeatured(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// removeFeatured drops id from the featuredProducts section
func (s *Store) removeFeatured(ctx context.Context, id string) error {
	key := site.SectionFeaturedProducts.String()
	unlock := s.locks.Lock(key)
	defer unlock()

	data, err := s.readShard(ctx, key)
	if err != nil {
		return shared.ErrStorageFailure.WithMessage("read " + key).WithCause(err)
	}
	if data == nil {
		return nil
	}
	var featured []string
	if err := json.Unmarshal(data, &featured); err != nil {
		s.unreadable(ctx, kindSection, key, err)
		return nil
	}
	next, changed := site.RemoveID(featured, id)
	if !changed {
		return nil
	}
	return s.writeJSON(ctx, kindSection, key, next)
}

// BatchUpsertProducts writes many products at once. With reset the stored product set becomes
// exactly the batch, in batch order; otherwise ids not yet indexed are appended in batch order.
// Supplied createdAt/updatedAt are kept so a chunked import stores what ReplaceDocument would.
func (s *Store) BatchUpsertProducts(ctx context.Context, products []site.Product, reset bool) (BatchResult, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "batch_upsert_products",
		telemetry.WithAttribute(telemetry.SpanAttrShardCount, len(products)))
	defer span.End()

	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if err := validateRecordID(p.ID); err != nil {
			return BatchResult{}, fmt.Errorf("products[%d]: %w", i, err)
		}
		if seen[p.ID] {
			return BatchResult{}, shared.ErrValidation.WithMessage(fmt.Sprintf("duplicate product id %q", p.ID))
		}
		seen[p.ID] = true
	}

	if reset {
		s.docMu.Lock()
		defer s.docMu.Unlock()
	} else {
		s.docMu.RLock()
		defer s.docMu.RUnlock()
	}

	stored := make([]site.Product, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, p := range products {
		g.Go(func() error {
			unlock := s.locks.Lock(productKey(p.ID))
			defer unlock()
			out, err := s.putProduct(gctx, p, true)
			if err != nil {
				return fmt.Errorf("products[%d]: %w", i, err)
			}
			stored[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return BatchResult{}, err
	}

	ids := site.ProductIDs(stored)
	result := BatchResult{Upserted: len(stored), IDs: ids}

	if reset {
		before, err := s.backend.List(ctx, ProductsPrefix)
		if err != nil {
			return BatchResult{}, shared.ErrStorageFailure.WithMessage("list products").WithCause(err)
		}
		if err := s.writeJSON(ctx, kindIndex, ProductsPrefix+indexName, ids); err != nil {
			return BatchResult{}, err
		}
		if err := s.deleteUnreferenced(ctx, ProductsPrefix, ids); err != nil {
			return BatchResult{}, err
		}
		for _, key := range before {
			if id, ok := recordID(ProductsPrefix, key); ok && !seen[id] {
				result.Deleted++
			}
		}
	} else if _, err := s.updateIndex(ctx, ProductsPrefix, func(current []string) ([]string, bool) {
		indexed := make(map[string]bool, len(current))
		for _, id := range current {
			indexed[id] = true
		}
		next := current
		changed := false
		for _, id := range ids {
			if !indexed[id] {
				next = append(next, id)
				changed = true
			}
		}
		return next, changed
	}); err != nil {
		return BatchResult{}, err
	}

	s.logger.Info("Products batch upserted",
		zap.Int("upserted", result.Upserted),
		zap.Int("deleted", result.Deleted),
		zap.Bool("reset", reset),
	)
	return result, nil
}
