package telemetry

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// InitTracer installs the global tracer provider exporting to rawEndpoint,
// either a full URL or host:port. An empty endpoint leaves the no-op provider
// in place. The returned func flushes and shuts down the provider.
func InitTracer(serviceName, rawEndpoint string) func() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if strings.TrimSpace(rawEndpoint) == "" {
		log.Printf("OpenTelemetry disabled for service: %s", serviceName)
		return func() {}
	}

	ctx := context.Background()
	endpoint, path, insecure := parseEndpoint(rawEndpoint)

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithURLPath(path),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		log.Printf("Failed to create OTLP exporter, tracing disabled: %v", err)
		return func() {}
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		log.Printf("Failed to create resource: %v", err)
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	log.Printf("OpenTelemetry initialized for service: %s (%s%s)", serviceName, endpoint, path)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}
}

// parseEndpoint accepts http(s)://host:port/path or host:port.
func parseEndpoint(raw string) (endpoint, path string, insecure bool) {
	endpoint, path, insecure = strings.TrimSpace(raw), "/v1/traces", true
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return endpoint, path, insecure
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint, path, insecure
	}
	if u.Host != "" {
		endpoint = u.Host
	}
	if u.Path != "" && u.Path != "/" {
		path = u.Path
	}
	return endpoint, path, u.Scheme == "http"
}
