package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func setupTelemetryDisabled(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := Init(ctx, &Config{Enabled: false, ServiceName: "test-service"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(ctx) })
}

func TestCounter_Disabled(t *testing.T) {
	setupTelemetryDisabled(t)
	ctx := context.Background()

	counter, err := NewCounter(MetricOpts{Name: "test_counter", Description: "A test counter", Unit: "1"})
	require.NoError(t, err)
	require.NotNil(t, counter)

	counter.Add(ctx, 5)
	counter.Inc(ctx, attribute.String("key", "value"))
}

func TestHistogram_Disabled(t *testing.T) {
	setupTelemetryDisabled(t)
	ctx := context.Background()

	h, err := NewHistogram(MetricOpts{Name: "test_histogram", Unit: "ms"})
	require.NoError(t, err)
	h.Record(ctx, 12.5)
	h.Since(ctx, time.Now().Add(-time.Millisecond), EventIDAttr("e1"))

	bucketed, err := NewHistogramWithBuckets(MetricOpts{Name: "test_bucketed", Unit: "ms"}, []float64{1, 10, 100})
	require.NoError(t, err)
	bucketed.Record(ctx, 50)
}

func TestUpDownCounter_Disabled(t *testing.T) {
	setupTelemetryDisabled(t)
	ctx := context.Background()

	c, err := NewUpDownCounter(MetricOpts{Name: "test_updown", Unit: "1"})
	require.NoError(t, err)
	c.Add(ctx, 3)
	c.Inc(ctx)
	c.Dec(ctx)
}

func TestNewMetrics(t *testing.T) {
	setupTelemetryDisabled(t)

	m, err := NewMetrics()
	require.NoError(t, err)

	assert.NotNil(t, m.TicketsPurchased)
	assert.NotNil(t, m.SoldOutRejections)
	assert.NotNil(t, m.PurchaseRetries)
	assert.NotNil(t, m.PurchaseLatency)
	assert.NotNil(t, m.FeedPageLatency)
	assert.NotNil(t, m.PostsCreated)
	assert.NotNil(t, m.FollowsCreated)
	assert.NotNil(t, m.ActiveRequests)

	m.TicketsPurchased.Inc(context.Background(), EventIDAttr("e1"), ClubIDAttr("c1"))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name     string
		got      attribute.KeyValue
		expected attribute.KeyValue
	}{
		{"ServiceAttr", ServiceAttr("noctra-api"), attribute.String(AttrServiceName, "noctra-api")},
		{"EnvironmentAttr", EnvironmentAttr("production"), attribute.String(AttrEnvironment, "production")},
		{"MethodAttr", MethodAttr("GET"), attribute.String(AttrMethod, "GET")},
		{"PathAttr", PathAttr("/api/v1/feed"), attribute.String(AttrPath, "/api/v1/feed")},
		{"StatusCodeAttr", StatusCodeAttr(409), attribute.Int(AttrStatusCode, 409)},
		{"ErrorKindAttr", ErrorKindAttr("sold_out"), attribute.String(AttrErrorKind, "sold_out")},
		{"EventIDAttr", EventIDAttr("evt_1"), attribute.String(AttrEventID, "evt_1")},
		{"ClubIDAttr", ClubIDAttr("club_1"), attribute.String(AttrClubID, "club_1")},
		{"PostIDAttr", PostIDAttr("post_1"), attribute.String(AttrPostID, "post_1")},
		{"ProfileIDAttr", ProfileIDAttr("prof_1"), attribute.String(AttrProfileID, "prof_1")},
		{"ContentTypeAttr", ContentTypeAttr("promo"), attribute.String(AttrContentType, "promo")},
		{"OwnerKindAttr", OwnerKindAttr("club"), attribute.String(AttrOwnerKind, "club")},
		{"OutcomeAttr", OutcomeAttr("ok"), attribute.String(AttrOutcome, "ok")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected.Key, tt.got.Key)
			assert.Equal(t, tt.expected.Value, tt.got.Value)
		})
	}
}
