// Package main is the entry point for the FlashLoanArbitrage deployer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/flashloan-deployer/business/deployment"
	deploymentDI "github.com/fd1az/flashloan-deployer/business/deployment/di"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apm"
	"github.com/fd1az/flashloan-deployer/internal/config"
	"github.com/fd1az/flashloan-deployer/internal/logger"
	"github.com/fd1az/flashloan-deployer/internal/metrics"
	"github.com/fd1az/flashloan-deployer/internal/monolith"
	"github.com/fd1az/flashloan-deployer/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK         = 0
	exitConfig     = 1
	exitDeployment = 2
	exitIO         = 3
)

type options struct {
	configPath string
	network    string
	outputPath string
	verifyOnly bool
	tuiMode    bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.network, "network", "", "Target network (mainnet, sepolia, polygon, arbitrum, localhost)")
	flag.StringVar(&opts.outputPath, "out", "", "Deployment record path")
	flag.BoolVar(&opts.verifyOnly, "verify", false, "Re-run the verification reads against an existing record")
	flag.BoolVar(&opts.tuiMode, "tui", false, "Show progress in a terminal UI")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flashloan-deployer %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(exitOK)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !opts.tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	code := run(ctx, opts)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, opts options) int {
	// Load configuration
	cfg, err := config.LoadWithOverrides(opts.configPath, config.Overrides{
		Network:    opts.network,
		OutputPath: opts.outputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return exitConfig
	}

	// Set TUI mode in config so modules know
	cfg.Deployment.TUIMode = opts.tuiMode

	// Setup logger (only log to stderr in CLI mode)
	var log *logger.Logger
	if opts.tuiMode {
		// In TUI mode, suppress logs (discard output)
		log = logger.New(io.Discard, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	} else {
		log = logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
		log.Info(ctx, "starting flashloan deployer",
			"version", version,
			"environment", cfg.App.Environment,
			"network", cfg.Network.Name,
		)
	}

	shutdown, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitConfig
	}
	defer shutdown()

	// Create monolith (application container)
	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create monolith: %v\n", err)
		return exitConfig
	}
	defer mono.Close()

	modules := []monolith.Module{
		&deployment.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to register modules: %v\n", err)
		return exitConfig
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to start modules: %v\n", err)
		return exitConfig
	}

	svc := deploymentDI.GetDeploymentService(mono.Services())
	req := deployment.NewRequest(cfg)

	job := func(ctx context.Context) error {
		if opts.verifyOnly {
			_, _, err := svc.VerifyExisting(ctx, req, cfg.Deployment.OutputPath)
			return err
		}
		_, err := svc.Run(ctx, req, cfg.Deployment.OutputPath)
		return err
	}

	if opts.tuiMode {
		title := fmt.Sprintf("%s on %s", cfg.Contract.Name, cfg.Network.Name)
		err = runTUI(ctx, title, job)
	} else {
		err = job(ctx)
	}

	code := exitCode(err)
	if err != nil && !opts.tuiMode {
		log.Error(ctx, "deployment run failed", "error", err, "exit_code", code)
	}
	return code
}

// exitCode maps a run error onto the process exit status.
func exitCode(err error) int {
	var depErr *domain.DeploymentError
	var ioErr *domain.IOError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &depErr):
		return exitDeployment
	case errors.As(err, &ioErr):
		return exitIO
	default:
		return exitConfig
	}
}

// setupTelemetry installs the trace and metric providers when enabled and
// returns a function flushing them.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(ctx, log, apm.Options{
		Provider:    apm.ParseProvider(cfg.Telemetry.TraceProvider),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	meterOpts := []metrics.OptionFn{metrics.WithServiceName(cfg.Telemetry.ServiceName)}
	for _, reader := range metricReaders(cfg.Telemetry) {
		meterOpts = append(meterOpts, metrics.WithProviderConfig(reader))
	}

	meterProvider, err := metrics.NewMetricProvider(ctx, meterOpts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	var promServer *metrics.PromServer
	if port := cfg.Telemetry.PrometheusPort; port > 0 {
		promServer, err = metrics.StartPrometheusServer(ctx, log, metrics.WithPort(strconv.Itoa(port)))
		if err != nil {
			log.Warn(ctx, "failed to start metrics server", "error", err)
		}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if promServer != nil {
			_ = promServer.Shutdown(shutdownCtx)
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "failed to flush metrics", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(shutdownCtx, "failed to flush traces", "error", err)
		}
	}, nil
}

// metricReaders always exposes Prometheus instruments. Metrics are also pushed
// to the collector when traces go there over OTLP gRPC.
func metricReaders(t config.TelemetryConfig) []metrics.ProviderCfg {
	readers := []metrics.ProviderCfg{metrics.NewPrometheusConfig()}

	if t.OTLPEndpoint != "" && apm.ParseProvider(t.TraceProvider) == apm.OTLPGRPCProvider {
		readers = append(readers, metrics.NewOtelCollectorConfig(
			t.OTLPEndpoint,
			apm.ParseHeaders(t.OTLPHeaders),
			t.Insecure,
		))
	}

	return readers
}

func runTUI(ctx context.Context, title string, job func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to receive the welcome-complete signal
	startSignal := make(chan struct{}, 1)
	ui.OnStart = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Create and start the TUI program IMMEDIATELY (shows welcome screen)
	p := tea.NewProgram(ui.New(title), tea.WithAltScreen())
	ui.Program = p

	// Run the deployment in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- &domain.DeploymentError{Reason: domain.ReasonInterrupted, Step: domain.StepSigner, Err: ctx.Err()}
			return
		}

		err := job(ctx)
		ui.Send(ui.FinishedMsg{Err: err})
		errCh <- err
	}()

	// Run TUI (blocking) - shows immediately with welcome screen
	_, tuiErr := p.Run()

	// Quitting the UI abandons a deployment still in flight
	cancel()
	err := <-errCh

	if tuiErr != nil && err == nil {
		return fmt.Errorf("TUI error: %w", tuiErr)
	}
	return err
}
