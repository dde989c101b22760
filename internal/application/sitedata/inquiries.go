package sitedata

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// CreateInquiry stores a new inquiry. The id, createdAt and status are assigned here;
// the new id is prepended to the index.
func (s *Store) CreateInquiry(ctx context.Context, in site.InquiryInput) (site.Inquiry, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "create_inquiry")
	defer span.End()

	inq, err := site.NewInquiry(in, s.now())
	if err != nil {
		return site.Inquiry{}, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInquiryID, inq.ID)

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(inquiryKey(inq.ID))
	defer unlock()

	if err := s.writeJSON(ctx, kindInquiry, inquiryKey(inq.ID), inq); err != nil {
		telemetry.RecordError(span, err)
		return site.Inquiry{}, err
	}
	if _, err := s.updateIndex(ctx, InquiriesPrefix, func(ids []string) ([]string, bool) {
		return site.UpsertID(ids, inq.ID)
	}); err != nil {
		telemetry.RecordError(span, err)
		return site.Inquiry{}, err
	}

	s.logger.Info("Inquiry created",
		zap.String("inquiry_id", inq.ID),
		zap.String("product_id", inq.ProductID),
	)
	return inq, nil
}

func (s *Store) readInquiry(ctx context.Context, id string) (site.Inquiry, bool, error) {
	key := inquiryKey(id)
	data, err := s.readShard(ctx, key)
	if err != nil {
		return site.Inquiry{}, false, shared.ErrStorageFailure.WithMessage("read " + key).WithCause(err)
	}
	if data == nil {
		return site.Inquiry{}, false, nil
	}
	var inq site.Inquiry
	if err := json.Unmarshal(data, &inq); err != nil {
		s.unreadable(ctx, kindInquiry, key, err)
		return site.Inquiry{}, false, shared.ErrStorageFailure.WithMessage("decode " + key).WithCause(err)
	}
	return inq, true, nil
}

// GetInquiry returns one inquiry
func (s *Store) GetInquiry(ctx context.Context, id string) (site.Inquiry, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "get_inquiry",
		telemetry.WithAttribute(telemetry.SpanAttrInquiryID, id))
	defer span.End()

	if err := validateRecordID(id); err != nil {
		return site.Inquiry{}, err
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	inq, ok, err := s.readInquiry(ctx, id)
	if err != nil {
		return site.Inquiry{}, err
	}
	if !ok {
		return site.Inquiry{}, shared.ErrNotFound.WithMessage(fmt.Sprintf("inquiry %s not found", id))
	}
	return inq, nil
}

// ListInquiries returns every indexed inquiry, newest first
func (s *Store) ListInquiries(ctx context.Context) ([]site.Inquiry, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "list_inquiries")
	defer span.End()

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	list, _, err := loadCollection[site.Inquiry](ctx, s, InquiriesPrefix, kindInquiry)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	site.SortInquiries(list)
	return list, nil
}

// UpdateInquiryStatus changes the status of an inquiry, the only field that mutates after creation
func (s *Store) UpdateInquiryStatus(ctx context.Context, id string, status site.InquiryStatus) (site.Inquiry, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "update_inquiry_status",
		telemetry.WithAttribute(telemetry.SpanAttrInquiryID, id))
	defer span.End()

	if err := validateRecordID(id); err != nil {
		return site.Inquiry{}, err
	}
	if !status.IsValid() {
		return site.Inquiry{}, shared.ErrValidation.WithMessage(fmt.Sprintf("invalid inquiry status %q", status))
	}

	s.docMu.RLock()
	defer s.docMu.RUnlock()
	unlock := s.locks.Lock(inquiryKey(id))
	defer unlock()

	inq, ok, err := s.readInquiry(ctx, id)
	if err != nil {
		return site.Inquiry{}, err
	}
	if !ok {
		return site.Inquiry{}, shared.ErrNotFound.WithMessage(fmt.Sprintf("inquiry %s not found", id))
	}
	if inq.Status == status {
		return inq, nil
	}
	inq.Status = status
	if err := s.writeJSON(ctx, kindInquiry, inquiryKey(id), inq); err != nil {
		telemetry.RecordError(span, err)
		return site.Inquiry{}, err
	}

	s.logger.Info("Inquiry status updated",
		zap.String("inquiry_id", id),
		zap.String("status", string(status)),
	)
	return inq, nil
}
