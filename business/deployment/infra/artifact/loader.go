// Package artifact loads compiled contracts from Hardhat build output.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/internal/apperror"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

const tracerName = "github.com/fd1az/flashloan-deployer/business/deployment/infra/artifact"

// linkPlaceholder marks an unlinked library reference in Hardhat bytecode.
const linkPlaceholder = "__$"

// Config holds artifact lookup settings.
type Config struct {
	Root string // Hardhat artifacts directory
	Path string // Explicit artifact file, overrides the search
}

// hardhatArtifact is the subset of a Hardhat artifact file we read.
type hardhatArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// Loader resolves contracts by name and caches them.
type Loader struct {
	fs     afero.Fs
	config Config
	logger logger.LoggerInterface
	tracer trace.Tracer

	mu    sync.Mutex
	cache map[string]*app.Contract
}

var _ app.Artifacts = (*Loader)(nil)

// NewLoader creates a Loader over fsys.
func NewLoader(fsys afero.Fs, cfg Config, log logger.LoggerInterface) *Loader {
	if cfg.Root == "" {
		cfg.Root = "artifacts"
	}
	return &Loader{
		fs:     fsys,
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
		cache:  make(map[string]*app.Contract),
	}
}

// Load returns the compiled contract called name.
func (l *Loader) Load(ctx context.Context, name string) (*app.Contract, error) {
	ctx, span := l.tracer.Start(ctx, "artifact.load",
		trace.WithAttributes(attribute.String("contract", name)),
	)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cache[name]; ok {
		span.AddEvent("cache_hit")
		return c, nil
	}

	path, err := l.resolve(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	c, err := l.parse(path, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid artifact")
		return nil, err
	}

	l.cache[name] = c
	l.logger.Debug(ctx, "contract artifact loaded", "contract", name, "path", path, "bytecode_bytes", len(c.Bytecode))
	span.SetAttributes(attribute.String("path", path))
	span.SetStatus(codes.Ok, "")

	return c, nil
}

// resolve finds the artifact file: the explicit path, the conventional
// <root>/contracts/<name>.sol/<name>.json, or a search under root.
func (l *Loader) resolve(name string) (string, error) {
	if l.config.Path != "" {
		if ok, _ := afero.Exists(l.fs, l.config.Path); !ok {
			return "", apperror.New(apperror.CodeArtifactNotFound,
				apperror.WithContext(l.config.Path))
		}
		return l.config.Path, nil
	}

	conventional := filepath.Join(l.config.Root, "contracts", name+".sol", name+".json")
	if ok, _ := afero.Exists(l.fs, conventional); ok {
		return conventional, nil
	}

	var matches []string
	err := afero.Walk(l.fs, l.config.Root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// build-info holds compiler I/O, not artifacts
			if info.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == name+".json" {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperror.New(apperror.CodeArtifactNotFound,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("artifacts directory %s (run the Hardhat compile first)", l.config.Root)))
		}
		return "", apperror.New(apperror.CodeArtifactNotFound,
			apperror.WithCause(err),
			apperror.WithContext(l.config.Root))
	}

	switch len(matches) {
	case 0:
		return "", apperror.New(apperror.CodeArtifactNotFound,
			apperror.WithContext(fmt.Sprintf("%s under %s", name, l.config.Root)))
	case 1:
		return matches[0], nil
	default:
		return "", apperror.New(apperror.CodeInvalidArtifact,
			apperror.WithContext(fmt.Sprintf("%s is ambiguous: %s", name, strings.Join(matches, ", "))))
	}
}

func (l *Loader) parse(path, name string) (*app.Contract, error) {
	raw, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, apperror.New(apperror.CodeArtifactNotFound,
			apperror.WithCause(err),
			apperror.WithContext(path))
	}

	var art hardhatArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, invalid(path, "malformed JSON", err)
	}

	if art.ContractName != "" && art.ContractName != name {
		return nil, invalid(path, fmt.Sprintf("holds %s, not %s", art.ContractName, name), nil)
	}

	code := strings.TrimSpace(art.Bytecode)
	if code == "" || code == "0x" {
		return nil, invalid(path, "empty bytecode (abstract contract or interface)", nil)
	}
	if strings.Contains(code, linkPlaceholder) {
		return nil, invalid(path, "bytecode has unlinked library references", nil)
	}

	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, invalid(path, "bytecode is not hex", err)
	}

	if len(art.ABI) == 0 {
		return nil, invalid(path, "missing abi", nil)
	}
	parsed, err := abi.JSON(bytes.NewReader(art.ABI))
	if err != nil {
		return nil, invalid(path, "bad abi", err)
	}

	return &app.Contract{
		Name:     name,
		Bytecode: bytecode,
		Pack: func(args ...any) ([]byte, error) {
			return parsed.Pack("", args...)
		},
	}, nil
}

func invalid(path, what string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(path + ": " + what)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeInvalidArtifact, opts...)
}
