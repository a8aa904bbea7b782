package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/asset"
	"github.com/fd1az/flashloan-deployer/internal/circuitbreaker"
	"github.com/fd1az/flashloan-deployer/internal/logger"
	"github.com/fd1az/flashloan-deployer/internal/ratelimit"
)

// ChainConfig holds configuration for the chain adapter.
type ChainConfig struct {
	PrivateKey   string        // Hex encoded, with or without 0x
	ChainID      uint64        // Expected chain id, 0 trusts the node
	PollInterval time.Duration // Receipt and head polling pace
}

// chainMetrics holds OTEL metric instruments.
type chainMetrics struct {
	rpcCalls     metric.Int64Counter
	rpcErrors    metric.Int64Counter
	rpcDuration  metric.Float64Histogram
	receiptPolls metric.Int64Counter
}

// Chain implements app.Chain with go-ethereum.
type Chain struct {
	config  ChainConfig
	backend Backend
	gas     *GasOracle
	logger  logger.LoggerInterface

	key    *ecdsa.PrivateKey
	from   common.Address
	keyErr error

	chainMu sync.Mutex
	chainID *big.Int

	abiMu sync.Mutex
	views map[string]abi.ABI

	readCB *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *chainMetrics
}

var _ app.Chain = (*Chain)(nil)

// NewChain creates the chain adapter. A missing or malformed key is not an
// error here; it surfaces from Signer.
func NewChain(backend Backend, gas *GasOracle, cfg ChainConfig, log logger.LoggerInterface) (*Chain, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	c := &Chain{
		config:  cfg,
		backend: backend,
		gas:     gas,
		logger:  log,
		views:   make(map[string]abi.ABI),
		readCB:  circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("contract-read")),
		tracer:  otel.Tracer(tracerName),
	}

	c.key, c.keyErr = parseKey(cfg.PrivateKey)
	if c.keyErr == nil {
		c.from = crypto.PubkeyToAddress(c.key.PublicKey)
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, apperror.Validation(apperror.CodeSignerNotConfigured, "PRIVATE_KEY is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		// the cause is dropped so key material never reaches a log line
		return nil, apperror.Validation(apperror.CodeInvalidPrivateKey, "PRIVATE_KEY is not a valid secp256k1 key")
	}
	return key, nil
}

func (c *Chain) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &chainMetrics{}

	c.metrics.rpcCalls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("JSON-RPC calls made by the chain adapter"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcErrors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Failed JSON-RPC calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcDuration, err = meter.Float64Histogram(
		"chain_rpc_duration_seconds",
		metric.WithDescription("JSON-RPC call latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	c.metrics.receiptPolls, err = meter.Int64Counter(
		"chain_receipt_polls_total",
		metric.WithDescription("Receipt polling attempts"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// observe records one RPC call.
func (c *Chain) observe(ctx context.Context, method string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("method", method))
	c.metrics.rpcCalls.Add(ctx, 1, attrs)
	c.metrics.rpcDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		c.metrics.rpcErrors.Add(ctx, 1, attrs)
	}
}

// Signer returns the deploying account derived from the configured key.
func (c *Chain) Signer(ctx context.Context) (common.Address, error) {
	if c.keyErr != nil {
		return common.Address{}, c.keyErr
	}
	return c.from, nil
}

// Balance returns the latest balance of addr in wei.
func (c *Chain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "chain.balance",
		trace.WithAttributes(attribute.String("account", addr.Hex())),
	)
	defer span.End()

	start := time.Now()
	wei, err := c.backend.BalanceAt(ctx, addr, nil)
	c.observe(ctx, "eth_getBalance", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance failed")
		return nil, apperror.External(apperror.CodeEthereumRPCError, "failed to read balance", err)
	}

	span.SetStatus(codes.Ok, "")
	return wei, nil
}

// resolveChainID returns the chain id to sign for, checking the node once.
func (c *Chain) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}

	start := time.Now()
	id, err := c.backend.ChainID(ctx)
	c.observe(ctx, "eth_chainId", start, err)
	if err != nil {
		return nil, apperror.External(apperror.CodeEthereumConnectionFailed, "failed to read chain id", err)
	}

	if c.config.ChainID != 0 && id.Uint64() != c.config.ChainID {
		return nil, apperror.Validation(apperror.CodeChainIDMismatch, fmt.Sprintf("configured %d, node reports %s", c.config.ChainID, id))
	}

	c.chainID = id
	return id, nil
}

// Deploy signs and sends a legacy contract-creation transaction carrying the
// bytecode followed by the ABI-encoded constructor arguments.
func (c *Chain) Deploy(ctx context.Context, contract *app.Contract, args ...any) (*domain.Submission, error) {
	ctx, span := c.tracer.Start(ctx, "chain.deploy",
		trace.WithAttributes(attribute.String("contract", contract.Name)),
	)
	defer span.End()

	if c.keyErr != nil {
		span.RecordError(c.keyErr)
		return nil, c.keyErr
	}

	packed, err := contract.Pack(args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pack failed")
		return nil, apperror.Wrap(err, apperror.CodeInvalidConstructorArgs, contract.Name)
	}
	data := append(append([]byte{}, contract.Bytecode...), packed...)

	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id")
		return nil, err
	}

	start := time.Now()
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	c.observe(ctx, "eth_getTransactionCount", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nonce failed")
		return nil, apperror.External(apperror.CodeEthereumRPCError, "failed to read pending nonce", err)
	}

	quote, err := c.gas.Quote(ctx, ethereum.CallMsg{From: c.from, Data: data})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas quote failed")
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: quote.Price,
		Gas:      quote.Limit,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign failed")
		return nil, apperror.New(apperror.CodeInvalidPrivateKey, apperror.WithCause(err))
	}

	start = time.Now()
	err = c.backend.SendTransaction(ctx, signed)
	c.observe(ctx, "eth_sendRawTransaction", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return nil, apperror.External(apperror.CodeTransactionRejected, fmt.Sprintf("nonce %d, gas %d at %s", nonce, quote.Limit, asset.FormatGwei(quote.Price)), err)
	}

	sub := &domain.Submission{
		From:     c.from,
		Address:  crypto.CreateAddress(c.from, nonce),
		TxHash:   signed.Hash(),
		Nonce:    nonce,
		GasLimit: quote.Limit,
		GasPrice: quote.Price,
	}

	c.logger.Debug(ctx, "creation tx accepted by node",
		"tx", sub.TxHash.Hex(),
		"address", sub.Address.Hex(),
		"gas_price_source", string(quote.PriceSource),
		"gas_limit_source", string(quote.LimitSource),
	)

	span.SetAttributes(
		attribute.String("tx_hash", sub.TxHash.Hex()),
		attribute.String("contract_address", sub.Address.Hex()),
		attribute.Int64("nonce", int64(nonce)),
	)
	span.SetStatus(codes.Ok, "sent")

	return sub, nil
}

// WaitConfirmed polls for the receipt, then for enough blocks on top of it.
// A reverted receipt fails with TRANSACTION_REVERTED and the replayed reason.
func (c *Chain) WaitConfirmed(ctx context.Context, sub *domain.Submission, confirmations uint64) (*domain.Confirmation, error) {
	ctx, span := c.tracer.Start(ctx, "chain.wait_confirmed",
		trace.WithAttributes(
			attribute.String("tx_hash", sub.TxHash.Hex()),
			attribute.Int64("confirmations", int64(confirmations)),
		),
	)
	defer span.End()

	if confirmations == 0 {
		confirmations = 1
	}

	var receipt *types.Receipt
	poll := ratelimit.Every(c.config.PollInterval)

	err := poll.Poll(ctx, func(ctx context.Context) (bool, error) {
		c.metrics.receiptPolls.Add(ctx, 1)

		start := time.Now()
		r, err := c.backend.TransactionReceipt(ctx, sub.TxHash)
		c.observe(ctx, "eth_getTransactionReceipt", start, err)
		switch {
		case errors.Is(err, ethereum.NotFound):
			return false, nil
		case err != nil:
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			c.logger.Warn(ctx, "receipt poll failed, retrying", "tx", sub.TxHash.Hex(), "error", err)
			return false, nil
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt wait failed")
		return nil, apperror.External(apperror.CodeEthereumRPCError, "waiting for receipt of "+sub.TxHash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := c.revertReason(ctx, sub, receipt.BlockNumber)
		err := apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(fmt.Sprintf("tx %s in block %s: %s", sub.TxHash.Hex(), receipt.BlockNumber, reason)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reverted")
		return nil, err
	}

	if receipt.ContractAddress != (common.Address{}) && receipt.ContractAddress != sub.Address {
		c.logger.Warn(ctx, "receipt contract address differs from derived address",
			"receipt", receipt.ContractAddress.Hex(),
			"derived", sub.Address.Hex(),
		)
	}

	mined := receipt.BlockNumber.Uint64()
	if confirmations > 1 {
		target := mined + confirmations - 1
		err := poll.Poll(ctx, func(ctx context.Context) (bool, error) {
			start := time.Now()
			head, err := c.backend.BlockNumber(ctx)
			c.observe(ctx, "eth_blockNumber", start, err)
			if err != nil {
				if ctx.Err() != nil {
					return false, ctx.Err()
				}
				return false, nil
			}
			return head >= target, nil
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "confirmation wait failed")
			return nil, apperror.External(apperror.CodeEthereumRPCError, fmt.Sprintf("waiting for block %d", target), err)
		}
	}

	conf := &domain.Confirmation{
		BlockNumber:       mined,
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
	}
	if conf.EffectiveGasPrice == nil {
		conf.EffectiveGasPrice = sub.GasPrice
	}

	span.SetAttributes(
		attribute.Int64("block", int64(mined)),
		attribute.Int64("gas_used", int64(receipt.GasUsed)),
	)
	span.SetStatus(codes.Ok, "confirmed")

	return conf, nil
}

// revertReason replays the creation call on the parent of the mined block to
// recover the revert message. It returns "unknown reason" when the replay succeeds.
func (c *Chain) revertReason(ctx context.Context, sub *domain.Submission, block *big.Int) string {
	// the receipt carries no data, so the call needs the original input
	tx, err := c.lookupTx(ctx, sub)
	if err != nil {
		return "unknown reason"
	}

	msg := ethereum.CallMsg{
		From:     sub.From,
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	parent := new(big.Int).Set(block)
	if parent.Sign() > 0 {
		parent.Sub(parent, big.NewInt(1))
	}

	start := time.Now()
	_, callErr := c.backend.CallContract(ctx, msg, parent)
	c.observe(ctx, "eth_call", start, callErr)
	if callErr == nil {
		return "unknown reason"
	}

	var dataErr rpc.DataError
	if errors.As(callErr, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if reason, err := abi.UnpackRevert(common.FromHex(hexData)); err == nil {
				return reason
			}
		}
	}
	return callErr.Error()
}

// txLookup is implemented by backends able to fetch a transaction by hash.
type txLookup interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

func (c *Chain) lookupTx(ctx context.Context, sub *domain.Submission) (*types.Transaction, error) {
	tl, ok := c.backend.(txLookup)
	if !ok {
		return nil, errors.New("backend cannot fetch transactions")
	}
	start := time.Now()
	tx, _, err := tl.TransactionByHash(ctx, sub.TxHash)
	c.observe(ctx, "eth_getTransactionByHash", start, err)
	return tx, err
}

// Read calls a zero-argument view method that returns an address.
func (c *Chain) Read(ctx context.Context, contract common.Address, method string) (common.Address, error) {
	ctx, span := c.tracer.Start(ctx, "chain.read",
		trace.WithAttributes(
			attribute.String("contract", contract.Hex()),
			attribute.String("method", method),
		),
	)
	defer span.End()

	parsed, err := c.addressView(method)
	if err != nil {
		span.RecordError(err)
		return common.Address{}, err
	}

	input, err := parsed.Pack(method)
	if err != nil {
		span.RecordError(err)
		return common.Address{}, apperror.External(apperror.CodeContractCallFailed, method, err)
	}

	out, err := c.readCB.Execute(func() ([]byte, error) {
		start := time.Now()
		out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
		c.observe(ctx, "eth_call", start, err)
		return out, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return common.Address{}, apperror.External(apperror.CodeContractCallFailed, method, err)
	}

	values, err := parsed.Unpack(method, out)
	if err != nil || len(values) != 1 {
		if err == nil {
			err = fmt.Errorf("expected one return value, got %d", len(values))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return common.Address{}, apperror.External(apperror.CodeContractCallFailed, method+" returned unexpected data", err)
	}

	addr, ok := values[0].(common.Address)
	if !ok {
		err := apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("%s returned %T", method, values[0])))
		span.RecordError(err)
		return common.Address{}, err
	}

	span.SetAttributes(attribute.String("result", addr.Hex()))
	span.SetStatus(codes.Ok, "")
	return addr, nil
}

// addressView returns a cached single-method ABI for `method() view returns (address)`.
func (c *Chain) addressView(method string) (abi.ABI, error) {
	c.abiMu.Lock()
	defer c.abiMu.Unlock()

	if parsed, ok := c.views[method]; ok {
		return parsed, nil
	}

	def := fmt.Sprintf(`[{"type":"function","name":%q,"inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}]`, method)
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		return abi.ABI{}, apperror.Wrap(err, apperror.CodeInvalidInput, "method "+method)
	}

	c.views[method] = parsed
	return parsed, nil
}
