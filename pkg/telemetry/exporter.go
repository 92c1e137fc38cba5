// ABOUTME: OpenTelemetry exporter factory for metric readers and span exporters (Prometheus, OTLP, stdout)
// ABOUTME: Translates the configured exporter names into SDK readers and exporters

package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option adjusts where exporters send their data.
type Option func(*options)

type options struct {
	writer     io.Writer
	registerer prometheus.Registerer
}

func defaultOptions() options {
	return options{
		writer:     os.Stdout,
		registerer: prometheus.DefaultRegisterer,
	}
}

// WithWriter sets the destination of the stdout exporters.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithRegisterer sets the Prometheus registerer the prometheus exporter
// registers its collector with.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// createMetricReaders creates one SDK reader per configured metric exporter.
// Exporters without metric support (otlp) are skipped.
func createMetricReaders(cfg Config, o options) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case "prometheus":
			exporter, err := otelprom.New(otelprom.WithRegisterer(o.registerer))
			if err != nil {
				shutdownReaders(context.Background(), readers)
				return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
			}
			readers = append(readers, exporter)

		case "stdout":
			exporter, err := stdoutmetric.New(
				stdoutmetric.WithWriter(o.writer),
				stdoutmetric.WithPrettyPrint(),
			)
			if err != nil {
				shutdownReaders(context.Background(), readers)
				return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(cfg.BatchTimeout),
				sdkmetric.WithTimeout(cfg.ExportTimeout),
			))
		}
	}

	return readers, nil
}

// createTraceExporters creates span exporters for the configured exporters.
// Exporters without trace support (prometheus) are skipped.
func createTraceExporters(ctx context.Context, cfg Config, o options) ([]sdktrace.SpanExporter, error) {
	var exporters []sdktrace.SpanExporter

	for _, exporterName := range cfg.Exporters {
		switch exporterName {
		case "otlp":
			exporter, err := otlptracegrpc.New(ctx,
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithTimeout(cfg.ExportTimeout),
			)
			if err != nil {
				shutdownExporters(ctx, exporters)
				return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)

		case "stdout":
			exporter, err := stdouttrace.New(
				stdouttrace.WithWriter(o.writer),
				stdouttrace.WithPrettyPrint(),
			)
			if err != nil {
				shutdownExporters(ctx, exporters)
				return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
			}
			exporters = append(exporters, exporter)
		}
	}

	return exporters, nil
}

func shutdownExporters(ctx context.Context, exporters []sdktrace.SpanExporter) {
	for _, exp := range exporters {
		_ = exp.Shutdown(ctx)
	}
}

func shutdownReaders(ctx context.Context, readers []sdkmetric.Reader) {
	for _, r := range readers {
		_ = r.Shutdown(ctx)
	}
}

// trackingRegisterer remembers the collectors it registered so a failed
// setup can take them back off the caller's registry.
type trackingRegisterer struct {
	prometheus.Registerer
	collectors []prometheus.Collector
}

func (r *trackingRegisterer) Register(c prometheus.Collector) error {
	if err := r.Registerer.Register(c); err != nil {
		return err
	}
	r.collectors = append(r.collectors, c)
	return nil
}

func (r *trackingRegisterer) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

func (r *trackingRegisterer) release() {
	for _, c := range r.collectors {
		r.Registerer.Unregister(c)
	}
	r.collectors = nil
}
