package sitedata

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

// collectionScan is the drift found in one index/record collection
type collectionScan struct {
	prefix   string
	ids      []string
	dangling map[string]bool
	report   RepairReport
}

// scanCollection compares an index with the records actually stored under prefix
func (s *Store) scanCollection(ctx context.Context, prefix, kind string) (collectionScan, error) {
	scan := collectionScan{prefix: prefix, dangling: map[string]bool{}}

	var (
		err    error
		report RepairReport
	)
	switch kind {
	case kindProduct:
		_, report, err = loadCollection[site.Product](ctx, s, prefix, kind)
	default:
		_, report, err = loadCollection[site.Inquiry](ctx, s, prefix, kind)
	}
	if err != nil {
		return scan, err
	}
	scan.report = report

	ids, err := s.readIndex(ctx, prefix)
	if err != nil {
		// Reported as unreadable by loadCollection; nothing to rewrite from.
		return scan, nil
	}
	scan.ids = ids
	for _, key := range report.DanglingIDs {
		scan.dangling[strings.TrimPrefix(key, prefix)] = true
	}
	return scan, nil
}

func (s *Store) scanAll(ctx context.Context) (RepairReport, []collectionScan, error) {
	report := newReport()

	locales, err := s.readLocales(ctx)
	if err != nil {
		return report, nil, err
	}
	if locales.legacyScalar {
		report.LegacyScalars = append(report.LegacyScalars, KeyDefaultLocale)
	}
	report.UnreadableShards = append(report.UnreadableShards, locales.unreadable...)

	var scans []collectionScan
	for _, c := range []struct{ prefix, kind string }{
		{ProductsPrefix, kindProduct},
		{InquiriesPrefix, kindInquiry},
	} {
		scan, err := s.scanCollection(ctx, c.prefix, c.kind)
		if err != nil {
			return report, nil, err
		}
		report.merge(scan.report)
		scans = append(scans, scan)
	}
	report.sort()
	return report, scans, nil
}

// Report inspects the stored shards for index/record drift and legacy scalar encodings
// without changing anything.
func (s *Store) Report(ctx context.Context) (RepairReport, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "report")
	defer span.End()

	s.docMu.RLock()
	defer s.docMu.RUnlock()

	report, _, err := s.scanAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return RepairReport{}, err
	}
	return report, nil
}

// Repair drops dangling ids from the indexes and rewrites legacy scalar shards raw.
// Orphan records are reported, not adopted. The returned report lists what was found.
func (s *Store) Repair(ctx context.Context) (RepairReport, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "repair")
	defer span.End()

	s.docMu.Lock()
	defer s.docMu.Unlock()

	report, scans, err := s.scanAll(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return RepairReport{}, err
	}

	for _, scan := range scans {
		if len(scan.dangling) == 0 {
			continue
		}
		kept := make([]string, 0, len(scan.ids))
		for _, id := range scan.ids {
			if !scan.dangling[id] {
				kept = append(kept, id)
			}
		}
		if err := s.writeJSON(ctx, kindIndex, scan.prefix+indexName, kept); err != nil {
			telemetry.RecordError(span, err)
			return RepairReport{}, err
		}
		s.logger.Info("Index repaired",
			zap.String("index", scan.prefix+indexName),
			zap.Int("dropped", len(scan.ids)-len(kept)),
		)
	}

	if len(report.LegacyScalars) > 0 {
		locales, err := s.readLocales(ctx)
		if err != nil {
			return RepairReport{}, err
		}
		if err := s.writeShard(ctx, kindSection, KeyDefaultLocale, []byte(locales.config.Default)); err != nil {
			telemetry.RecordError(span, err)
			return RepairReport{}, err
		}
		s.logger.Info("Scalar shard rewritten raw", zap.String("key", KeyDefaultLocale))
	}

	report.Repaired = true
	return report, nil
}
