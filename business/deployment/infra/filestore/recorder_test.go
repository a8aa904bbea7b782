package filestore

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

func stubRecord() *domain.Record {
	return &domain.Record{
		ContractAddress:     "0xABC",
		Deployer:            "0xDEF",
		Network:             "sepolia",
		ConstructorArgument: "0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A",
		DeploymentTime:      time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		TransactionHash:     "0x999",
	}
}

func TestRecorder_CreatesMissingDirectories(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRecorder(fsys, logger.NewDiscard())

	path := "config/nested/deeper/deployment.json"
	require.NoError(t, r.Record(context.Background(), path, stubRecord()))

	ok, err := afero.DirExists(fsys, "config/nested/deeper")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = afero.Exists(fsys, path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecorder_SecondCallOverwrites(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRecorder(fsys, logger.NewDiscard())
	path := "config/deployment.json"

	require.NoError(t, r.Record(context.Background(), path, stubRecord()))

	second := stubRecord()
	second.ContractAddress = "0x123"
	require.NoError(t, r.Record(context.Background(), path, second))

	got, err := r.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "0x123", got.ContractAddress)

	// no temp files left behind
	entries, err := afero.ReadDir(fsys, "config")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deployment.json", entries[0].Name())
}

func TestRecorder_RoundTripsStubRecord(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRecorder(fsys, logger.NewDiscard())
	path := "out/deployment.json"
	in := stubRecord()

	require.NoError(t, r.Record(context.Background(), path, in))

	raw, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))

	assert.Equal(t, "0xABC", parsed["contractAddress"])
	assert.Equal(t, "0xDEF", parsed["deployer"])
	assert.Equal(t, "sepolia", parsed["network"])
	assert.Equal(t, "0x012bAC54348C0E635dCAc9D5FB99f06F24136C9A", parsed["constructorArgument"])
	assert.Equal(t, "0x999", parsed["transactionHash"])

	ts, ok := parsed["deploymentTime"].(string)
	require.True(t, ok)
	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, err)
	assert.True(t, parsedTime.Equal(in.DeploymentTime))

	out, err := r.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, in.ContractAddress, out.ContractAddress)
	assert.True(t, in.DeploymentTime.Equal(out.DeploymentTime))
}

func TestRecorder_FormatIsStable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRecorder(fsys, logger.NewDiscard())
	path := "deployment.json"

	require.NoError(t, r.Record(context.Background(), path, stubRecord()))

	raw, err := afero.ReadFile(fsys, path)
	require.NoError(t, err)
	text := string(raw)

	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, "\n  \"contractAddress\": \"0xABC\",\n")

	order := []string{"contractAddress", "deployer", "network", "constructorArgument", "deploymentTime", "transactionHash"}
	last := -1
	for _, key := range order {
		idx := strings.Index(text, `"`+key+`"`)
		require.Greater(t, idx, last, "key %s out of order", key)
		last = idx
	}

	// optional fields stay out when unset
	assert.NotContains(t, text, "blockNumber")
}

func TestRecorder_UnwritablePath(t *testing.T) {
	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	r := NewRecorder(fsys, logger.NewDiscard())

	err := r.Record(context.Background(), "config/deployment.json", stubRecord())

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "mkdir", ioErr.Op)
}

func TestRecorder_RejectsIncompleteRecord(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRecorder(fsys, logger.NewDiscard())

	rec := stubRecord()
	rec.TransactionHash = ""

	err := r.Record(context.Background(), "deployment.json", rec)

	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "validate", ioErr.Op)

	ok, _ := afero.Exists(fsys, "deployment.json")
	assert.False(t, ok)
}

func TestRecorder_LoadErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "bad.json", []byte("{not json"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "partial.json", []byte(`{"contractAddress":"0x1"}`), 0o644))
	r := NewRecorder(fsys, logger.NewDiscard())

	tests := []struct {
		path string
		op   string
	}{
		{"missing.json", "read"},
		{"bad.json", "decode"},
		{"partial.json", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := r.Load(context.Background(), tt.path)
			var ioErr *domain.IOError
			require.ErrorAs(t, err, &ioErr)
			assert.Equal(t, tt.op, ioErr.Op)
			assert.Equal(t, tt.path, ioErr.Path)
		})
	}
}
