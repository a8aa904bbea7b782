package domain

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-deployer/internal/asset"
)

func TestRecord_JSONKeyOrder(t *testing.T) {
	rec := Record{
		ContractAddress:     "0xABC",
		Deployer:            "0xDEF",
		Network:             "sepolia",
		ConstructorArgument: "0x012b",
		DeploymentTime:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		TransactionHash:     "0x999",
	}

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	keys := []string{"contractAddress", "deployer", "network", "constructorArgument", "deploymentTime", "transactionHash"}
	last := -1
	for _, k := range keys {
		idx := strings.Index(string(raw), `"`+k+`"`)
		require.NotEqual(t, -1, idx, "missing key %s", k)
		assert.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}

	// Supplementary keys are omitted when unset.
	assert.NotContains(t, string(raw), "chainId")
	assert.NotContains(t, string(raw), "gasUsed")
	assert.Contains(t, string(raw), `"deploymentTime":"2024-05-01T12:00:00Z"`)
}

func TestNewRecord(t *testing.T) {
	from := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	contract := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	provider := common.HexToAddress("0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A")
	hash := common.HexToHash("0x01")
	at := time.Date(2024, 5, 1, 14, 0, 0, 123456789, time.FixedZone("X", 2*3600))

	req := Request{Network: "sepolia", ChainID: 11155111, ContractName: "FlashLoanArbitrage", PoolAddressProvider: provider}
	sub := &Submission{From: from, Address: contract, TxHash: hash}
	conf := &Confirmation{BlockNumber: 42, GasUsed: 1_200_000}

	rec := NewRecord(req, sub, conf, at)

	assert.Equal(t, contract.Hex(), rec.ContractAddress)
	assert.Equal(t, from.Hex(), rec.Deployer)
	assert.Equal(t, "sepolia", rec.Network)
	assert.Equal(t, provider.Hex(), rec.ConstructorArgument)
	assert.Equal(t, hash.Hex(), rec.TransactionHash)
	assert.Equal(t, time.UTC, rec.DeploymentTime.Location())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.UTC), rec.DeploymentTime)
	assert.Equal(t, uint64(42), rec.BlockNumber)
	assert.Equal(t, uint64(1_200_000), rec.GasUsed)
	assert.NoError(t, rec.Validate())
}

func TestRecord_Validate(t *testing.T) {
	var nilRec *Record
	assert.Error(t, nilRec.Validate())

	rec := &Record{ContractAddress: "0xABC", Deployer: "0xDEF", Network: "sepolia", ConstructorArgument: "0x1", TransactionHash: "0x9"}
	assert.ErrorContains(t, rec.Validate(), "deploymentTime")

	rec.DeploymentTime = time.Now()
	rec.TransactionHash = ""
	assert.ErrorContains(t, rec.Validate(), "transactionHash")
}

func TestDeploymentError_Unwraps(t *testing.T) {
	cause := errors.New("insufficient funds for gas * price + value")
	err := error(&DeploymentError{Reason: ReasonRejected, Step: StepSubmit, Err: cause})

	var depErr *DeploymentError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, ReasonRejected, depErr.Reason)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "network/contract rejection")
	assert.Contains(t, err.Error(), "submit creation tx")
}

func TestIOError(t *testing.T) {
	cause := errors.New("read-only file system")
	err := &IOError{Op: "write", Path: "config/deployment.json", Err: cause}

	assert.Equal(t, "write config/deployment.json: read-only file system", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestRequest_Validate(t *testing.T) {
	req := Request{
		Network:             "sepolia",
		ContractName:        "FlashLoanArbitrage",
		PoolAddressProvider: common.HexToAddress("0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A"),
		ConfirmationTimeout: time.Minute,
	}
	require.NoError(t, req.Validate())

	zero := req
	zero.PoolAddressProvider = common.Address{}
	assert.NoError(t, zero.Validate())

	bad := req
	bad.ConfirmationTimeout = 0
	assert.Error(t, bad.Validate())
}

func TestGasCosts(t *testing.T) {
	quote := GasQuote{Price: big.NewInt(20_000_000_000), Limit: 6_000_000}
	assert.Equal(t, "0.12 ETH", quote.MaxCost(asset.ETH).String())

	conf := &Confirmation{GasUsed: 1_500_000, EffectiveGasPrice: big.NewInt(10_000_000_000)}
	assert.Equal(t, "0.015 ETH", conf.ActualCost(asset.ETH).String())

	var none *Confirmation
	assert.True(t, none.ActualCost(asset.ETH).IsZero())
}

func TestVerification_OK(t *testing.T) {
	var v *Verification
	assert.False(t, v.OK())
	assert.True(t, (&Verification{}).OK())
	assert.False(t, (&Verification{PoolErr: errors.New("revert")}).OK())
}

func TestStepStrings(t *testing.T) {
	assert.Len(t, Steps, 6)
	assert.Equal(t, "wait for confirmation", StepConfirm.String())
	assert.Equal(t, "warning", StatusWarning.String())
}
