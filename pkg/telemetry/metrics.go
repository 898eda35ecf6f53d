package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter for easier use
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new counter metric
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Add increments the counter by the given value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps an OTel histogram for easier use
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a new histogram metric
func NewHistogram(opts MetricOpts) (*Histogram, error) {
	return NewHistogramWithBuckets(opts, nil)
}

// NewHistogramWithBuckets creates a histogram with explicit bucket boundaries; nil keeps the SDK defaults
func NewHistogramWithBuckets(opts MetricOpts, boundaries []float64) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	histogram, err := GetMeter().Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// Since records the milliseconds elapsed since start
func (h *Histogram) Since(ctx context.Context, start time.Time, attrs ...attribute.KeyValue) {
	h.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs...)
}

// UpDownCounter wraps an OTel up-down counter for values that can increase and decrease
type UpDownCounter struct {
	counter metric.Int64UpDownCounter
}

// NewUpDownCounter creates a new up-down counter metric
func NewUpDownCounter(opts MetricOpts) (*UpDownCounter, error) {
	counter, err := GetMeter().Int64UpDownCounter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &UpDownCounter{counter: counter}, nil
}

// Add adds the given value to the counter (can be negative)
func (c *UpDownCounter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

func (c *UpDownCounter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (c *UpDownCounter) Dec(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, -1, metric.WithAttributes(attrs...))
}

var latencyBucketsMs = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Metrics is the instrument set recorded by the services
type Metrics struct {
	TicketsPurchased  *Counter
	SoldOutRejections *Counter
	PurchaseRetries   *Counter
	PurchaseLatency   *Histogram
	FeedPageLatency   *Histogram
	PostsCreated      *Counter
	FollowsCreated    *Counter
	ActiveRequests    *UpDownCounter
}

// NewMetrics registers every instrument on the global meter.
// Call after Init so the instruments bind to the configured provider.
func NewMetrics() (*Metrics, error) {
	var errs []error
	counter := func(name, desc string) *Counter {
		c, err := NewCounter(MetricOpts{Name: name, Description: desc, Unit: "1"})
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) *Histogram {
		h, err := NewHistogramWithBuckets(MetricOpts{Name: name, Description: desc, Unit: "ms"}, latencyBucketsMs)
		errs = append(errs, err)
		return h
	}

	m := &Metrics{
		TicketsPurchased:  counter("noctra.tickets.purchased", "Tickets issued"),
		SoldOutRejections: counter("noctra.tickets.sold_out", "Purchases rejected because the event is sold out"),
		PurchaseRetries:   counter("noctra.tickets.purchase_retries", "Purchase transactions retried after a serialization failure or code collision"),
		PurchaseLatency:   histogram("noctra.tickets.purchase_latency", "End to end ticket purchase latency"),
		FeedPageLatency:   histogram("noctra.feed.page_latency", "Time to assemble one feed page"),
		PostsCreated:      counter("noctra.posts.created", "Posts created"),
		FollowsCreated:    counter("noctra.follows.created", "Follow edges created"),
	}
	active, err := NewUpDownCounter(MetricOpts{Name: "noctra.http.active_requests", Description: "In-flight HTTP requests", Unit: "1"})
	errs = append(errs, err)
	m.ActiveRequests = active

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Common metric attribute keys
const (
	AttrServiceName = "service.name"
	AttrEnvironment = "environment"
	AttrMethod      = "http.method"
	AttrPath        = "http.path"
	AttrStatusCode  = "http.status_code"
	AttrErrorKind   = "error.kind"
	AttrEventID     = "event.id"
	AttrClubID      = "club.id"
	AttrPostID      = "post.id"
	AttrProfileID   = "profile.id"
	AttrContentType = "post.content_type"
	AttrOwnerKind   = "owner.kind"
	AttrOutcome     = "outcome"
)

func ServiceAttr(name string) attribute.KeyValue {
	return attribute.String(AttrServiceName, name)
}

func EnvironmentAttr(env string) attribute.KeyValue {
	return attribute.String(AttrEnvironment, env)
}

func MethodAttr(method string) attribute.KeyValue {
	return attribute.String(AttrMethod, method)
}

func PathAttr(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

func StatusCodeAttr(code int) attribute.KeyValue {
	return attribute.Int(AttrStatusCode, code)
}

func ErrorKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

func EventIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrEventID, id)
}

func ClubIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrClubID, id)
}

func PostIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrPostID, id)
}

func ProfileIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrProfileID, id)
}

func ContentTypeAttr(ct string) attribute.KeyValue {
	return attribute.String(AttrContentType, ct)
}

func OwnerKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrOwnerKind, kind)
}

// OutcomeAttr labels an operation result, "ok" or an error kind
func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}
