// ABOUTME: OpenTelemetry SDK provider implementing Telemetry with meter and tracer providers
// ABOUTME: Handles provider lifecycle, resource attributes, sampling and cached instruments

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/KevoDB/blockstore"

// TelemetryProvider implements the Telemetry interface using the OpenTelemetry SDK.
type TelemetryProvider struct {
	config         Config
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          metric.Meter
	tracer         oteltrace.Tracer
	resource       *sdkresource.Resource

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
}

// New creates a Telemetry for cfg. A disabled config yields a no-op
// implementation; an invalid one yields an error.
func New(cfg Config, opts ...Option) (Telemetry, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	res := sdkresource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	registerer := &trackingRegisterer{Registerer: o.registerer}
	o.registerer = registerer

	readers, err := createMetricReaders(cfg, o)
	if err != nil {
		registerer.release()
		return nil, err
	}

	ctx := context.Background()
	spanExporters, err := createTraceExporters(ctx, cfg, o)
	if err != nil {
		shutdownReaders(ctx, readers)
		registerer.release()
		return nil, err
	}

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		meterOpts = append(meterOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(meterOpts...)

	tracerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}
	for _, exp := range spanExporters {
		tracerOpts = append(tracerOpts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithExportTimeout(cfg.ExportTimeout),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
		))
	}
	tp := sdktrace.NewTracerProvider(tracerOpts...)

	return &TelemetryProvider{
		config:         cfg,
		meterProvider:  mp,
		tracerProvider: tp,
		meter:          mp.Meter(instrumentationName),
		tracer:         tp.Tracer(instrumentationName),
		resource:       res,
		histograms:     make(map[string]metric.Float64Histogram),
		counters:       make(map[string]metric.Int64Counter),
	}, nil
}

// RecordHistogram records value in the histogram called name, creating it on first use.
func (p *TelemetryProvider) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	h, err := p.histogram(name)
	if err != nil {
		return
	}
	h.Record(contextOrBackground(ctx), value, metric.WithAttributes(attrs...))
}

// RecordCounter adds value to the counter called name, creating it on first use.
func (p *TelemetryProvider) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	c, err := p.counter(name)
	if err != nil {
		return
	}
	c.Add(contextOrBackground(ctx), value, metric.WithAttributes(attrs...))
}

// StartSpan starts a span on the provider's tracer.
func (p *TelemetryProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return p.tracer.Start(contextOrBackground(ctx), name, oteltrace.WithAttributes(attrs...))
}

// Shutdown flushes and stops both providers.
func (p *TelemetryProvider) Shutdown(ctx context.Context) error {
	ctx = contextOrBackground(ctx)
	return errors.Join(
		p.meterProvider.Shutdown(ctx),
		p.tracerProvider.Shutdown(ctx),
	)
}

func (p *TelemetryProvider) histogram(name string) (metric.Float64Histogram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[name]; ok {
		return h, nil
	}
	h, err := p.meter.Float64Histogram(name)
	if err != nil {
		return nil, err
	}
	p.histograms[name] = h
	return h, nil
}

func (p *TelemetryProvider) counter(name string) (metric.Int64Counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c, nil
	}
	c, err := p.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	p.counters[name] = c
	return c, nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
