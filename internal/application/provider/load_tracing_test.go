package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/catalogsite/backend/internal/domain/shared"
	"github.com/catalogsite/backend/internal/domain/site"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
)

type fallbackEvent struct {
	resource string
	tier     string
}

func TestProvider_Load_RecordsTierFallbacks(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		setup         func(t *testing.T, f *fixture)
		wantFallbacks []fallbackEvent
	}{
		{
			name:  "remote load records no fallback",
			setup: func(t *testing.T, f *fixture) {},
		},
		{
			name: "document from cache",
			setup: func(t *testing.T, f *fixture) {
				f.remote.docErr = shared.ErrNetwork
				cached := site.Skeleton()
				cached.Settings.Name = site.Text("en", "Cached Co")
				require.NoError(t, f.cache.SaveDocument(ctx, cached))
			},
			wantFallbacks: []fallbackEvent{{resource: "document", tier: string(TierCache)}},
		},
		{
			name: "both from defaults",
			setup: func(t *testing.T, f *fixture) {
				f.remote.docErr = shared.ErrNetwork
				f.remote.inqErr = shared.ErrNetwork
			},
			wantFallbacks: []fallbackEvent{
				{resource: "document", tier: string(TierDefault)},
				{resource: "inquiries", tier: string(TierDefault)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
			original := otel.GetTracerProvider()
			otel.SetTracerProvider(tp)
			t.Cleanup(func() {
				otel.SetTracerProvider(original)
				_ = tp.Shutdown(context.Background())
			})

			f := newFixture(t)
			tt.setup(t, f)
			f.provider.Load(ctx)

			var load sdktrace.ReadOnlySpan
			for _, s := range sr.Ended() {
				if s.Name() == "provider.load" {
					load = s
				}
			}
			require.NotNil(t, load)

			var got []fallbackEvent
			for _, e := range load.Events() {
				if e.Name != telemetry.EventTierFallback {
					continue
				}
				var ev fallbackEvent
				for _, kv := range e.Attributes {
					switch string(kv.Key) {
					case telemetry.SpanAttrResource:
						ev.resource = kv.Value.AsString()
					case telemetry.SpanAttrTier:
						ev.tier = kv.Value.AsString()
					}
				}
				got = append(got, ev)
			}
			assert.Equal(t, tt.wantFallbacks, got)
		})
	}
}
