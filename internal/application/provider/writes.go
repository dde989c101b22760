package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

// remoteOp is the server half of a write
type remoteOp func(ctx context.Context) (chunked bool, err error)

// ensureLoaded loads the provider before its first write
func (p *Provider) ensureLoaded(ctx context.Context) {
	p.mu.RLock()
	unloaded := p.docTier == TierUnloaded
	p.mu.RUnlock()
	if unloaded {
		p.Load(ctx)
	}
}

// commitDocument applies mutate to a copy of the current document, installs the result and
// writes it to the local cache. The in-memory commit stands even when the cache write fails.
func (p *Provider) commitDocument(ctx context.Context, mutate func(doc *site.Document) error) (site.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.doc.Clone()
	if err := mutate(&next); err != nil {
		return site.Document{}, err
	}
	p.doc = next
	if err := p.local.SaveDocument(ctx, next); err != nil {
		p.logger.Error("Failed to persist document locally", zap.Error(err))
		return next.Clone(), err
	}
	return next.Clone(), nil
}

// commitInquiries is commitDocument for the inquiry list
func (p *Provider) commitInquiries(ctx context.Context, mutate func(list []site.Inquiry) ([]site.Inquiry, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := mutate(site.CloneInquiries(p.inquiries))
	if err != nil {
		return err
	}
	p.inquiries = next
	if err := p.local.SaveInquiries(ctx, next); err != nil {
		p.logger.Error("Failed to persist inquiries locally", zap.Error(err))
		return err
	}
	return nil
}

// classify maps a remote error to the status reported to the caller
func classify(err error) SyncStatus {
	switch {
	case err == nil:
		return SyncSynced
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrInvalidSection):
		return SyncFailedPermanently
	}
	return SyncLocalOnly
}

// sync pushes a committed write to the server, in the foreground unless async sync is enabled
func (p *Provider) sync(ctx context.Context, operation string, op remoteOp) WriteResult {
	if !p.asyncSync {
		return p.runSync(ctx, operation, op)
	}
	p.syncs.Add(1)
	go func() {
		defer p.syncs.Done()
		p.runSync(context.WithoutCancel(ctx), operation, op)
	}()
	return WriteResult{Status: SyncPending}
}

func (p *Provider) runSync(ctx context.Context, operation string, op remoteOp) WriteResult {
	chunked, err := op(ctx)
	status := classify(err)
	p.metrics.Sync(ctx, operation, string(status))

	switch {
	case err == nil:
		p.logger.Debug("Write synced", zap.String("operation", operation), zap.Bool("chunked", chunked))
	case errors.Is(err, shared.ErrConfiguration):
		p.logger.Debug("Write kept locally, no remote API configured", zap.String("operation", operation))
	default:
		p.logger.Warn("Remote sync failed",
			zap.String("operation", operation),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	return WriteResult{Status: status, Chunked: chunked, Err: err}
}

// prepareDocument normalizes and validates a caller supplied document
func prepareDocument(doc site.Document) (site.Document, error) {
	doc = doc.Clone()
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return site.Document{}, err
	}
	return doc, nil
}

// ReplaceDocument swaps the whole document
func (p *Provider) ReplaceDocument(ctx context.Context, doc site.Document) (WriteResult, error) {
	p.ensureLoaded(ctx)
	next, err := prepareDocument(doc)
	if err != nil {
		return WriteResult{}, err
	}
	committed, err := p.commitDocument(ctx, func(d *site.Document) error {
		*d = next
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return p.sync(ctx, "replace_document", func(ctx context.Context) (bool, error) {
		return p.pushDocument(ctx, committed, nil)
	}), nil
}

// UpsertProduct replaces the product with the same id in place, or prepends a new one
func (p *Provider) UpsertProduct(ctx context.Context, product site.Product) (site.Product, WriteResult, error) {
	p.ensureLoaded(ctx)
	var saved site.Product
	_, err := p.commitDocument(ctx, func(d *site.Document) error {
		next := product.Clone()
		next.Normalize(d.Locales.Supported)
		if existing, ok := d.Product(next.ID); ok {
			next.CreatedAt = existing.CreatedAt
		}
		next.Touch(p.now().UTC())
		if err := next.Validate(); err != nil {
			return err
		}
		d.Products = site.UpsertProduct(d.Products, next)
		saved = next
		return nil
	})
	if err != nil {
		return site.Product{}, WriteResult{}, err
	}
	result := p.sync(ctx, "upsert_product", func(ctx context.Context) (bool, error) {
		_, err := p.remote.UpsertProduct(ctx, saved)
		return false, err
	})
	return saved.Clone(), result, nil
}

// DeleteProduct removes a product and its featured entry
func (p *Provider) DeleteProduct(ctx context.Context, id string) (WriteResult, error) {
	p.ensureLoaded(ctx)
	_, err := p.commitDocument(ctx, func(d *site.Document) error {
		if !d.DeleteProduct(id) {
			return shared.ErrNotFound.WithMessage("product " + id + " not found")
		}
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return p.sync(ctx, "delete_product", func(ctx context.Context) (bool, error) {
		return false, p.remote.DeleteProduct(ctx, id)
	}), nil
}

// CreateInquiry submits an inquiry to the server first. When that fails the inquiry is created
// locally with a generated id. Either way it is inserted at the top of the list.
func (p *Provider) CreateInquiry(ctx context.Context, in site.InquiryInput) (site.Inquiry, WriteResult, error) {
	p.ensureLoaded(ctx)
	local, err := site.NewInquiry(in, p.now().UTC())
	if err != nil {
		return site.Inquiry{}, WriteResult{}, err
	}

	result := p.runSync(ctx, "create_inquiry", func(ctx context.Context) (bool, error) {
		remote, err := p.remote.CreateInquiry(ctx, in)
		if err == nil {
			local = remote
		}
		return false, err
	})

	err = p.commitInquiries(ctx, func(list []site.Inquiry) ([]site.Inquiry, error) {
		out := make([]site.Inquiry, 0, len(list)+1)
		out = append(out, local)
		return append(out, list...), nil
	})
	if err != nil {
		return local.Clone(), WriteResult{}, err
	}
	return local.Clone(), result, nil
}

// SetInquiryStatus changes the status of an inquiry
func (p *Provider) SetInquiryStatus(ctx context.Context, id string, status site.InquiryStatus) (WriteResult, error) {
	p.ensureLoaded(ctx)
	if !status.IsValid() {
		return WriteResult{}, shared.ErrValidation.WithMessage("invalid inquiry status " + string(status))
	}
	err := p.commitInquiries(ctx, func(list []site.Inquiry) ([]site.Inquiry, error) {
		i := site.IndexOfInquiry(list, id)
		if i < 0 {
			return nil, shared.ErrNotFound.WithMessage("inquiry " + id + " not found")
		}
		list[i].Status = status
		return list, nil
	})
	if err != nil {
		return WriteResult{}, err
	}
	return p.sync(ctx, "set_inquiry_status", func(ctx context.Context) (bool, error) {
		_, err := p.remote.UpdateInquiryStatus(ctx, id, status)
		return false, err
	}), nil
}
