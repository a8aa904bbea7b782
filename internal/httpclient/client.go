package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Default connection pool settings
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 30 * time.Second
	defaultMaxIdleConns          = 0
	defaultMaxConnsPerHost       = 5
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	// Metric names
	metricRequestCounter  = "http_client_requests_total"
	metricRequestDuration = "http_client_request_duration_seconds"
)

// New builds an *http.Client whose transport is traced with otelhttp and
// counted per provider. It is meant to be handed to clients that own their
// own request encoding, such as the go-ethereum JSON-RPC client.
func New(opts ...ClientOption) (*http.Client, error) {
	options := NewClientOptions(opts...)

	base := options.roundTripper
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}

	meter := meterProvider.Meter(
		"instrumented_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	counting := &countingTransport{
		next:     base,
		provider: providerName,
		headers:  copyHeaders(options.headers),
		counter:  requestCounter,
		duration: requestDuration,
	}

	transportOpts := []otelhttp.Option{
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	}
	if options.tracerProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithTracerProvider(options.tracerProvider))
	}

	timeout := defaultRequestTimeout
	if options.requestTimeout != nil {
		timeout = *options.requestTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(counting, transportOpts...),
	}, nil
}

// countingTransport injects default headers and records request metrics.
type countingTransport struct {
	next     http.RoundTripper
	provider string
	headers  map[string]string
	counter  metric.Int64Counter
	duration metric.Float64Histogram
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	status := "error"
	success := false
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
		success = resp.StatusCode < http.StatusBadRequest
	}

	attrs := metric.WithAttributes(
		attribute.String("provider", t.provider),
		attribute.String("method", req.Method),
		attribute.String("status", status),
		attribute.Bool("success", success),
	)
	t.counter.Add(req.Context(), 1, attrs)
	t.duration.Record(req.Context(), time.Since(start).Seconds(), attrs)

	return resp, err
}

// copyHeaders creates a copy of a headers map.
func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
