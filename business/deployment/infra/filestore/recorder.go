// Package filestore persists deployment records as JSON files.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-deployer/business/deployment/app"
	"github.com/fd1az/flashloan-deployer/business/deployment/domain"
	"github.com/fd1az/flashloan-deployer/internal/logger"
)

const tracerName = "github.com/fd1az/flashloan-deployer/business/deployment/infra/filestore"

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Recorder writes records with two-space indentation and a trailing newline.
type Recorder struct {
	fs     afero.Fs
	logger logger.LoggerInterface
	tracer trace.Tracer
}

var _ app.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder over fsys.
func NewRecorder(fsys afero.Fs, log logger.LoggerInterface) *Recorder {
	return &Recorder{
		fs:     fsys,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Record writes rec to path, creating parent directories and replacing any
// existing file. The write goes through a temp file renamed over path.
func (r *Recorder) Record(ctx context.Context, path string, rec *domain.Record) error {
	ctx, span := r.tracer.Start(ctx, "record.write",
		trace.WithAttributes(attribute.String("path", path)),
	)
	defer span.End()

	if err := r.write(path, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Op)
		return err
	}

	r.logger.Debug(ctx, "deployment record written", "path", path)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *Recorder) write(path string, rec *domain.Record) *domain.IOError {
	if err := rec.Validate(); err != nil {
		return &domain.IOError{Op: "validate", Path: path, Err: err}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &domain.IOError{Op: "encode", Path: path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := r.fs.MkdirAll(dir, dirPerm); err != nil {
		return &domain.IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := afero.TempFile(r.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &domain.IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = r.fs.Remove(tmpName)
		return &domain.IOError{Op: "write", Path: path, Err: werr}
	}

	if err := r.fs.Chmod(tmpName, filePerm); err != nil {
		_ = r.fs.Remove(tmpName)
		return &domain.IOError{Op: "write", Path: path, Err: err}
	}

	if err := r.fs.Rename(tmpName, path); err != nil {
		_ = r.fs.Remove(tmpName)
		return &domain.IOError{Op: "rename", Path: path, Err: err}
	}

	return nil
}

// Load reads the record at path.
func (r *Recorder) Load(ctx context.Context, path string) (*domain.Record, error) {
	_, span := r.tracer.Start(ctx, "record.read",
		trace.WithAttributes(attribute.String("path", path)),
	)
	defer span.End()

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read")
		return nil, &domain.IOError{Op: "read", Path: path, Err: err}
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return nil, &domain.IOError{Op: "decode", Path: path, Err: err}
	}

	if err := rec.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate")
		return nil, &domain.IOError{Op: "decode", Path: path, Err: fmt.Errorf("incomplete record: %w", err)}
	}

	span.SetStatus(codes.Ok, "")
	return &rec, nil
}
