package apm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/flashloan-deployer/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "empty"
)

// ParseProvider maps a config string to a Provider. Unknown values map to EmptyProvider.
func ParseProvider(s string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ZipkinProvider, OTLPGRPCProvider, OTLPHTTPProvider, ConsoleProvider:
		return p
	default:
		return EmptyProvider
	}
}

type TraceProvider interface {
	Stop() error
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// Options configures the exporter behind a TraceProvider.
type Options struct {
	Provider    Provider
	ServiceName string
	Endpoint    string
	Headers     string // comma separated key=value pairs
	Insecure    bool
	Console     io.Writer
}

// NewTraceProvider builds the global tracer provider for the configured
// exporter. EmptyProvider installs nothing and leaves otel's no-op tracer in place.
func NewTraceProvider(ctx context.Context, log logger.LoggerInterface, opts Options) (TraceProvider, error) {
	if opts.Provider == EmptyProvider || opts.Provider == "" {
		return emptyTraceProvider{}, nil
	}

	exp, err := newExporter(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("apm: %s exporter: %w", opts.Provider, err)
	}

	log.Info(ctx, "trace exporter initialized", "provider", string(opts.Provider), "endpoint", opts.Endpoint)

	rsrc := resource.NewSchemaless(
		semconv.ServiceNameKey.String(opts.ServiceName),
		attribute.String("otel.provider", string(opts.Provider)),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp}, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Provider {
	case ConsoleProvider:
		w := opts.Console
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case ZipkinProvider:
		return zipkin.New(opts.Endpoint)
	case OTLPGRPCProvider:
		grpcOpts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(opts.Endpoint),
			otlptracegrpc.WithHeaders(ParseHeaders(opts.Headers)),
		}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case OTLPHTTPProvider:
		httpOpts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(opts.Endpoint),
			otlptracehttp.WithHeaders(ParseHeaders(opts.Headers)),
		}
		if opts.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", opts.Provider)
	}
}

// ParseHeaders parses "k1=v1,k2=v2" as used by OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		headers[k] = v
	}
	return headers
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
