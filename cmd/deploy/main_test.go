package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/config"
	"github.com/fd1az/flashloan-deployer/internal/metrics"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"deployment error", &domain.DeploymentError{Reason: domain.ReasonNoSigner, Step: domain.StepSigner}, exitDeployment},
		{"wrapped deployment error", fmt.Errorf("run: %w", &domain.DeploymentError{Reason: domain.ReasonConfirmationTimeout}), exitDeployment},
		{"io error", &domain.IOError{Op: "write", Path: "config/deployment.json", Err: errors.New("denied")}, exitIO},
		{"anything else", errors.New("dial failed"), exitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestMetricReaders(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TelemetryConfig
		want []metrics.Provider
	}{
		{
			name: "prometheus only by default",
			cfg:  config.TelemetryConfig{TraceProvider: "empty"},
			want: []metrics.Provider{metrics.PrometheusProvider},
		},
		{
			name: "otlp grpc traces add the collector",
			cfg:  config.TelemetryConfig{TraceProvider: "otlp-grpc", OTLPEndpoint: "http://collector:4317"},
			want: []metrics.Provider{metrics.PrometheusProvider, metrics.OtelCollector},
		},
		{
			name: "otlp grpc without endpoint",
			cfg:  config.TelemetryConfig{TraceProvider: "otlp-grpc"},
			want: []metrics.Provider{metrics.PrometheusProvider},
		},
		{
			name: "otlp http traces keep prometheus only",
			cfg:  config.TelemetryConfig{TraceProvider: "otlp-http", OTLPEndpoint: "http://collector:4318"},
			want: []metrics.Provider{metrics.PrometheusProvider},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readers := metricReaders(tt.cfg)

			var got []metrics.Provider
			for _, r := range readers {
				got = append(got, r.Provider)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricReaders_CollectorSettings(t *testing.T) {
	readers := metricReaders(config.TelemetryConfig{
		TraceProvider: "OTLP-GRPC",
		OTLPEndpoint:  "http://collector:4317",
		OTLPHeaders:   "api-key=abc",
		Insecure:      true,
	})

	assert.Len(t, readers, 2)
	collector := readers[1]
	assert.Equal(t, "http://collector:4317", collector.Endpoint)
	assert.Equal(t, map[string]string{"api-key": "abc"}, collector.Headers)
	assert.True(t, collector.Insecure)
}
