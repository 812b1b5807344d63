// Package observability initializes OpenTelemetry tracing for the
// orchestrator and exposes a small span helper used around engine
// execution and agent invocation.
package observability

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// DefaultServiceName is the service name reported on traces.
const DefaultServiceName = "agent-workshop"

var (
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
)

// Config holds tracing configuration
type Config struct {
	// ServiceName is the name of the service (defaults to "agent-workshop")
	ServiceName string

	// Enabled controls whether tracing is enabled (defaults to true)
	Enabled bool

	// ExporterType specifies the exporter: "otlp", "stdout", or "none"
	ExporterType string

	// OTLPEndpoint is the OTLP endpoint URL
	OTLPEndpoint string

	// OTLPHeaders are additional headers for OTLP requests (e.g., authorization)
	OTLPHeaders map[string]string
}

// InitFromEnv initializes tracing from standard OpenTelemetry environment
// variables:
//   - OTEL_SERVICE_NAME: service name (default: "agent-workshop")
//   - OTEL_TRACES_EXPORTER: "otlp", "stdout", or "none" (default: "stdout")
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint
//   - OTEL_EXPORTER_OTLP_HEADERS: headers in "key1=value1,key2=value2" format
func InitFromEnv() error {
	config := Config{
		ServiceName:  getEnv("OTEL_SERVICE_NAME", DefaultServiceName),
		Enabled:      getEnv("OTEL_TRACES_ENABLED", "true") == "true",
		ExporterType: getEnv("OTEL_TRACES_EXPORTER", "stdout"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPHeaders:  parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
	}

	return Init(config)
}

// Init initializes tracing with the given configuration
func Init(config Config) error {
	if !config.Enabled || config.ExporterType == "none" {
		log.Println("Tracing disabled")
		tracer = otel.GetTracerProvider().Tracer(config.ServiceName)
		return nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch config.ExporterType {
	case "otlp":
		exporter, err = createOTLPExporter(config)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Tracing initialized with OTLP exporter (endpoint: %s)", config.OTLPEndpoint)

	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		log.Println("Tracing initialized with stdout exporter")

	default:
		return fmt.Errorf("unknown exporter type: %s", config.ExporterType)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = tracerProvider.Tracer(config.ServiceName)

	return nil
}

// Shutdown flushes and stops the tracer provider
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	return tracerProvider.Shutdown(ctx)
}

// StartSpan creates a new span with the given name and options.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	tr := tracer
	if tr == nil {
		tr = otel.GetTracerProvider().Tracer(DefaultServiceName)
	}
	return tr.Start(ctx, name, opts...)
}

func createOTLPExporter(config Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.OTLPEndpoint),
	}
	if len(config.OTLPHeaders) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(config.OTLPHeaders))
	}

	client := otlptracehttp.NewClient(opts...)
	return otlptrace.New(context.Background(), client)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseHeaders(headerStr string) map[string]string {
	if headerStr == "" {
		return nil
	}

	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			headers[k] = v
		}
	}
	return headers
}
