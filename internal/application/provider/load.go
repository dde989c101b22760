package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

var errRemoteEmpty = errors.New("remote document has no content")

// Load fills the provider on first use and returns the resulting snapshot. Later calls return
// the current state without refetching; use Reload for that.
func (p *Provider) Load(ctx context.Context) Snapshot {
	p.mu.RLock()
	loaded := p.docTier != TierUnloaded && p.docTier != TierLoading
	p.mu.RUnlock()
	if loaded {
		return p.Snapshot()
	}
	return p.Reload(ctx)
}

// Reload fetches document and inquiries again, falling back tier by tier. Concurrent calls
// share one fetch.
func (p *Provider) Reload(ctx context.Context) Snapshot {
	v, _, _ := p.loads.Do("load", func() (any, error) {
		return p.reload(ctx), nil
	})
	return v.(Snapshot)
}

type loadOutcome struct {
	doc       site.Document
	docTier   Tier
	docErr    error
	inquiries []site.Inquiry
	inqTier   Tier
	inqErr    error
}

func (p *Provider) reload(ctx context.Context) Snapshot {
	ctx, span := telemetry.StartProviderSpan(ctx, "load")
	defer span.End()

	p.mu.Lock()
	p.loading = true
	if p.docTier == TierUnloaded {
		p.docTier = TierLoading
	}
	if p.inqTier == TierUnloaded {
		p.inqTier = TierLoading
	}
	p.mu.Unlock()

	var (
		out       loadOutcome
		remoteDoc site.Document
		remoteInq []site.Inquiry
	)
	var g errgroup.Group
	g.Go(func() error {
		remoteDoc, out.docErr = p.remote.GetDocument(ctx)
		return nil
	})
	g.Go(func() error {
		remoteInq, out.inqErr = p.remote.ListInquiries(ctx)
		return nil
	})
	_ = g.Wait()

	p.resolveDocument(ctx, &out, remoteDoc)
	p.resolveInquiries(ctx, &out, remoteInq)

	warning := loadWarning(out)
	p.logLoad(out, warning)
	p.metrics.Load(ctx, string(out.docTier))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentTier, string(out.docTier),
		telemetry.SpanAttrInquiryTier, string(out.inqTier),
	)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = out.doc
	p.docTier = out.docTier
	p.inquiries = out.inquiries
	p.inqTier = out.inqTier
	p.warning = warning
	p.loading = false
	return p.snapshotLocked()
}

func (p *Provider) resolveDocument(ctx context.Context, out *loadOutcome, remoteDoc site.Document) {
	if out.docErr == nil && remoteDoc.IsEmpty() {
		out.docErr = errRemoteEmpty
	}
	if out.docErr == nil {
		remoteDoc.Normalize()
		out.doc, out.docTier = remoteDoc, TierRemote
		p.mirrorDocument(ctx, remoteDoc)
		return
	}

	span := trace.SpanFromContext(ctx)
	if cached, ok := p.local.LoadDocument(ctx); ok && !cached.IsEmpty() {
		out.doc, out.docTier = cached, TierCache
		telemetry.TierFallback(span, "document", string(TierCache), out.docErr)
		return
	}

	def := p.defaults()
	out.doc, out.docTier = def, TierDefault
	telemetry.TierFallback(span, "document", string(TierDefault), out.docErr)
	p.mirrorDocument(ctx, def)
}

func (p *Provider) resolveInquiries(ctx context.Context, out *loadOutcome, remoteInq []site.Inquiry) {
	if out.inqErr == nil {
		if remoteInq == nil {
			remoteInq = []site.Inquiry{}
		}
		site.SortInquiries(remoteInq)
		out.inquiries, out.inqTier = remoteInq, TierRemote
		if err := p.local.SaveInquiries(ctx, remoteInq); err != nil {
			p.logger.Warn("Failed to mirror inquiries into local cache", zap.Error(err))
		}
		return
	}
	span := trace.SpanFromContext(ctx)
	if cached, ok := p.local.LoadInquiries(ctx); ok {
		out.inquiries, out.inqTier = cached, TierCache
		telemetry.TierFallback(span, "inquiries", string(TierCache), out.inqErr)
		return
	}
	out.inquiries, out.inqTier = []site.Inquiry{}, TierDefault
	telemetry.TierFallback(span, "inquiries", string(TierDefault), out.inqErr)
}

func (p *Provider) mirrorDocument(ctx context.Context, doc site.Document) {
	if err := p.local.SaveDocument(ctx, doc); err != nil {
		p.logger.Warn("Failed to mirror document into local cache", zap.Error(err))
	}
}

func loadWarning(out loadOutcome) string {
	var parts []string
	switch out.docTier {
	case TierCache:
		parts = append(parts, fmt.Sprintf("site data loaded from local cache: %v", out.docErr))
	case TierDefault:
		parts = append(parts, fmt.Sprintf("site data loaded from bundled defaults: %v", out.docErr))
	}
	switch out.inqTier {
	case TierCache:
		parts = append(parts, fmt.Sprintf("inquiries loaded from local cache: %v", out.inqErr))
	case TierDefault:
		parts = append(parts, fmt.Sprintf("inquiries unavailable: %v", out.inqErr))
	}
	return strings.Join(parts, "; ")
}

func (p *Provider) logLoad(out loadOutcome, warning string) {
	fields := []zap.Field{
		zap.String("document_tier", string(out.docTier)),
		zap.String("inquiries_tier", string(out.inqTier)),
	}
	switch {
	case warning == "":
		p.logger.Info("Site data loaded", fields...)
	case errors.Is(out.docErr, shared.ErrConfiguration) && (out.inqErr == nil || errors.Is(out.inqErr, shared.ErrConfiguration)):
		// Static deployment without a server
		p.logger.Debug("Site data loaded without remote API", append(fields, zap.String("warning", warning))...)
	default:
		p.logger.Warn("Site data loaded from fallback", append(fields, zap.String("warning", warning))...)
	}
}
