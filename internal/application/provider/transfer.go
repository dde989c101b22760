package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
)

const uploadFilename = "site-data.json"

// ExportDocumentAsText returns the current document as indented JSON
func (p *Provider) ExportDocumentAsText() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, err := json.MarshalIndent(p.doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// ImportDocument replaces the document with an exported file, including files written by older
// versions. The raw bytes are uploaded as a file so large imports avoid request size limits.
func (p *Provider) ImportDocument(ctx context.Context, raw []byte) (WriteResult, error) {
	doc, err := site.UpgradeLegacy(raw)
	if err != nil {
		return WriteResult{}, err
	}
	return p.importDocument(ctx, doc, raw)
}

// ImportDocumentValue is ImportDocument for an already decoded document
func (p *Provider) ImportDocumentValue(ctx context.Context, doc site.Document) (WriteResult, error) {
	return p.importDocument(ctx, doc, nil)
}

func (p *Provider) importDocument(ctx context.Context, doc site.Document, raw []byte) (WriteResult, error) {
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
	p.logger.Info("Document imported",
		zap.Int("products", len(committed.Products)),
		zap.Bool("raw", raw != nil),
	)
	return p.sync(ctx, "import_document", func(ctx context.Context) (bool, error) {
		return p.pushDocument(ctx, committed, raw)
	}), nil
}

// pushDocument sends a whole document: as a file upload when raw bytes are given or the encoded
// document is large, inline otherwise. A payload-too-large answer switches to per-section patches
// plus product batches.
func (p *Provider) pushDocument(ctx context.Context, doc site.Document, raw []byte) (bool, error) {
	var err error
	switch {
	case raw != nil:
		err = p.remote.UploadDocument(ctx, uploadFilename, raw)
	default:
		encoded, encErr := json.Marshal(doc)
		if encErr != nil {
			return false, fmt.Errorf("encode document: %w", encErr)
		}
		if int64(len(encoded)) > p.largeThreshold {
			err = p.remote.UploadDocument(ctx, uploadFilename, encoded)
		} else {
			err = p.remote.ReplaceDocument(ctx, doc)
		}
	}
	if !errors.Is(err, shared.ErrPayloadTooLarge) {
		return false, err
	}

	p.logger.Info("Document too large for one request, sending in chunks",
		zap.Int("products", len(doc.Products)),
		zap.Int("batch_size", p.batchSize),
	)
	return true, p.pushChunked(ctx, doc)
}

// pushChunked patches every section and then sends the products in batches. The first batch
// resets the server catalog so products missing from doc are removed.
func (p *Provider) pushChunked(ctx context.Context, doc site.Document) error {
	for _, section := range site.Sections() {
		// The locales section carries the default locale too.
		if section == site.SectionDefaultLocale {
			continue
		}
		if _, err := p.remote.PatchSection(ctx, section.String(), doc.SectionValue(section)); err != nil {
			return fmt.Errorf("patch section %s: %w", section, err)
		}
	}

	products := doc.Products
	if len(products) == 0 {
		if _, err := p.remote.BatchUpsertProducts(ctx, []site.Product{}, true); err != nil {
			return fmt.Errorf("reset products: %w", err)
		}
		return nil
	}
	for start := 0; start < len(products); start += p.batchSize {
		end := min(start+p.batchSize, len(products))
		if _, err := p.remote.BatchUpsertProducts(ctx, products[start:end], start == 0); err != nil {
			return fmt.Errorf("products batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}
