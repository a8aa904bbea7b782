package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/circuitbreaker"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	GasPrice    *big.Int // Fixed gas price from the network preset, nil asks the node
	GasLimit    uint64   // Fixed gas limit from the network preset, 0 estimates
	MaxGasPrice *big.Int // Upper bound for node-suggested prices, nil disables
	MarginPct   uint64   // Safety margin added to estimates, in percent
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	maxGas := new(big.Int)
	maxGas.SetString("500000000000", 10) // 500 gwei max

	return GasOracleConfig{
		MaxGasPrice: maxGas,
		MarginPct:   10,
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	estimateGas     metric.Int64Counter
}

// GasOracle picks gas price and limit for creation transactions.
type GasOracle struct {
	config  GasOracleConfig
	backend Backend
	logger  logger.LoggerInterface

	priceCB    *circuitbreaker.CircuitBreaker[*big.Int]
	estimateCB *circuitbreaker.CircuitBreaker[uint64]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(backend Backend, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		backend:    backend,
		logger:     log,
		priceCB:    circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("gas-price")),
		estimateCB: circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("gas-estimate")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Gas price chosen for the creation tx"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimateGas, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GasPrice returns the suggested gas price, capped at MaxGasPrice.
func (g *GasOracle) GasPrice(ctx context.Context) (*big.Int, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price")
	defer span.End()

	g.metrics.gasPriceFetches.Add(ctx, 1)

	wei, err := g.priceCB.Execute(func() (*big.Int, error) {
		return g.backend.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	// Safety check
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max, capping",
			"suggested", asset.FormatGwei(wei),
			"max", asset.FormatGwei(g.config.MaxGasPrice),
		)
		wei = new(big.Int).Set(g.config.MaxGasPrice)
	}

	span.SetAttributes(attribute.String("wei", wei.String()))
	span.SetStatus(codes.Ok, "fetched")

	return wei, nil
}

// EstimateGas estimates the gas of msg and adds the safety margin.
func (g *GasOracle) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(attribute.Int("data_len", len(msg.Data))),
	)
	defer span.End()

	g.metrics.estimateGas.Add(ctx, 1)

	gas, err := g.estimateCB.Execute(func() (uint64, error) {
		return g.backend.EstimateGas(ctx, msg)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, apperror.New(apperror.CodeGasEstimationFailed, apperror.WithCause(err))
	}

	gas += gas * g.config.MarginPct / 100

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	span.SetStatus(codes.Ok, "estimated")

	return gas, nil
}

// Quote chooses price and limit for msg. Preset values win over node values.
func (g *GasOracle) Quote(ctx context.Context, msg ethereum.CallMsg) (domain.GasQuote, error) {
	ctx, span := g.tracer.Start(ctx, "gas.quote")
	defer span.End()

	q := domain.GasQuote{
		Price:       g.config.GasPrice,
		Limit:       g.config.GasLimit,
		PriceSource: domain.GasFromConfig,
		LimitSource: domain.GasFromConfig,
	}

	if q.Price == nil || q.Price.Sign() == 0 {
		price, err := g.GasPrice(ctx)
		if err != nil {
			return domain.GasQuote{}, err
		}
		q.Price = price
		q.PriceSource = domain.GasFromNode
	}

	if q.Limit == 0 {
		msg.GasPrice = q.Price
		limit, err := g.EstimateGas(ctx, msg)
		if err != nil {
			return domain.GasQuote{}, err
		}
		q.Limit = limit
		q.LimitSource = domain.GasFromNode
	}

	gwei, _ := decimal.NewFromBigInt(q.Price, -asset.GweiDecimals).Float64()
	g.metrics.gasPriceGwei.Record(ctx, gwei)

	span.SetAttributes(
		attribute.Int64("gas_limit", int64(q.Limit)),
		attribute.String("price_source", string(q.PriceSource)),
		attribute.String("limit_source", string(q.LimitSource)),
	)
	span.SetStatus(codes.Ok, "quoted")

	return q, nil
}
