package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // Default: 60s
	ServiceName       string
	Insecure          bool
}

// MeterProvider owns the SDK meter provider and its periodic reader.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   MetricsConfig
}

// NewMeterProvider builds an OTLP/gRPC meter provider and installs it globally.
// If metrics are disabled, meters come from the global no-op provider.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{
		logger: logger,
		config: cfg,
	}

	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	exportInterval := cfg.ExportInterval
	if exportInterval == 0 {
		exportInterval = 60 * time.Second
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval)),
		),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", exportInterval),
		zap.String("service_name", cfg.ServiceName),
	)

	return mp, nil
}

// Shutdown flushes pending metrics and stops the reader.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	mp.logger.Info("OpenTelemetry MeterProvider shutdown complete")
	return nil
}

// Meter returns a named meter from the provider.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled returns whether metrics are exported.
func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.provider != nil
}

// ForceFlush exports all metrics that have not been exported yet.
func (mp *MeterProvider) ForceFlush(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.ForceFlush(ctx)
}

// Counter wraps a monotonically increasing int64 instrument.
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new Counter metric.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by the given value with optional attributes.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1 with optional attributes.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Attribute keys shared by site metrics
var (
	AttrShardKind  = attribute.Key("shard.kind")
	AttrSyncStatus = attribute.Key("sync.status")
	AttrOperation  = attribute.Key("operation")
	AttrTier       = attribute.Key("tier")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
)

// Metric names
const (
	MetricShardReadFailures = "site.shard.read_failures"
	MetricShardWrites       = "site.shard.writes"
	MetricProviderSync      = "site.provider.sync"
	MetricProviderLoad      = "site.provider.load"
)

// SiteMetrics holds the counters recorded by the store and the provider.
// A nil *SiteMetrics records nothing.
type SiteMetrics struct {
	ShardReadFailures *Counter
	ShardWrites       *Counter
	ProviderSync      *Counter
	ProviderLoad      *Counter
}

// NewSiteMetrics registers the site counters on meter.
func NewSiteMetrics(meter metric.Meter) (*SiteMetrics, error) {
	var (
		m   SiteMetrics
		err error
	)
	if m.ShardReadFailures, err = NewCounter(meter, MetricShardReadFailures,
		"Shard reads that failed or returned undecodable data", "{read}"); err != nil {
		return nil, err
	}
	if m.ShardWrites, err = NewCounter(meter, MetricShardWrites, "Shard writes", "{write}"); err != nil {
		return nil, err
	}
	if m.ProviderSync, err = NewCounter(meter, MetricProviderSync,
		"Remote synchronisations of local writes by outcome", "{sync}"); err != nil {
		return nil, err
	}
	if m.ProviderLoad, err = NewCounter(meter, MetricProviderLoad, "Document loads by source tier", "{load}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// DefaultSiteMetrics registers the site counters on the global meter provider.
func DefaultSiteMetrics() *SiteMetrics {
	m, err := NewSiteMetrics(otel.Meter(TracerName))
	if err != nil {
		return nil
	}
	return m
}

// ReadFailure records a failed shard read.
func (m *SiteMetrics) ReadFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ShardReadFailures.Inc(ctx, AttrShardKind.String(kind))
}

// Write records a shard write.
func (m *SiteMetrics) Write(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ShardWrites.Inc(ctx, AttrShardKind.String(kind))
}

// Sync records the outcome of a remote synchronisation.
func (m *SiteMetrics) Sync(ctx context.Context, operation, status string) {
	if m == nil {
		return
	}
	m.ProviderSync.Inc(ctx, AttrOperation.String(operation), AttrSyncStatus.String(status))
}

// Load records which tier a document load was served from.
func (m *SiteMetrics) Load(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.ProviderLoad.Inc(ctx, AttrTier.String(tier))
}
