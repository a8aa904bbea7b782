package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metric2 "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/flashloan-deployer/internal/logger"
)

const defaultPromPort = "2223"

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config) ([]metric2.Reader, error) {
	var readers []metric2.Reader

	for _, provider := range cfg.Provider {
		switch provider.Provider {
		case PrometheusProvider:
			promExporter, err := prometheus.New()
			if err != nil {
				return nil, fmt.Errorf("prometheus exporter: %w", err)
			}

			readers = append(readers, promExporter)
		case OtelCollector:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(provider.Endpoint),
				otlpmetricgrpc.WithHeaders(provider.Headers),
			}

			if provider.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("otlp metric exporter: %w", err)
			}

			var readerOpts []metric2.PeriodicReaderOption
			if provider.Interval > 0 {
				readerOpts = append(readerOpts, metric2.WithInterval(provider.Interval))
			}
			readers = append(readers, metric2.NewPeriodicReader(exp, readerOpts...))
		default:
			return nil, fmt.Errorf("unknown metric provider %q", provider.Provider)
		}
	}

	return readers, nil
}

// NewMetricProvider builds the meter provider and installs it globally.
// With no reader configured the provider still records, it just never exports.
func NewMetricProvider(ctx context.Context, options ...OptionFn) (MetricProvider, error) {
	var cfg Config

	for _, opt := range options {
		cfg = opt(cfg)
	}

	readers, err := getReaders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var metricsOps []metric2.Option

	for _, reader := range readers {
		metricsOps = append(metricsOps, metric2.WithReader(reader))
	}

	metricsOps = append(metricsOps, metric2.WithResource(
		resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName)),
	))

	meterProvider := metric2.NewMeterProvider(metricsOps...)

	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// PromServer exposes /metrics for the lifetime of a run.
type PromServer struct {
	srv *http.Server
	ln  net.Listener
}

// StartPrometheusServer listens on the configured port and serves the default
// Prometheus registry in the background.
func StartPrometheusServer(ctx context.Context, log logger.LoggerInterface, opt ...PromOptionFn) (*PromServer, error) {
	var cfg PromServerConfig

	for _, o := range opt {
		cfg = o(cfg)
	}

	port := defaultPromPort
	if cfg.port != "" {
		port = cfg.port
	}

	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &PromServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}

	log.Info(ctx, "serving metrics", "addr", ln.Addr().String(), "path", "/metrics")

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "metrics server stopped", "error", err)
		}
	}()

	return s, nil
}

// Addr returns the listen address.
func (s *PromServer) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *PromServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
