// Package shell runs rrdb commands: one from flags, or a stream of them in
// pipe mode.
//
// Each command resolves its file against the data directory, takes the
// advisory lock (exclusive for create and update, shared otherwise) and
// runs one storage operation. Results go to the output writer; diagnostics
// go to the logger.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/lockfile"
	"github.com/xtxerr/rrdb/internal/logging"
	"github.com/xtxerr/rrdb/internal/storage"
	"github.com/xtxerr/rrdb/internal/storage/parquet"
	"github.com/xtxerr/rrdb/internal/storage/types"
	"github.com/xtxerr/rrdb/internal/validation"
)

var log = logging.Component("shell")

// =============================================================================
// Handler
// =============================================================================

// Handler executes requests against a storage service.
type Handler struct {
	svc     *storage.Service
	dir     string
	out     io.Writer
	parquet parquet.Options
}

// NewHandler creates a handler resolving files in dir and writing results
// to out.
func NewHandler(svc *storage.Service, dir string, out io.Writer) *Handler {
	return &Handler{
		svc:     svc,
		dir:     dir,
		out:     out,
		parquet: parquet.DefaultOptions(),
	}
}

// SetParquetOptions sets the options used by export.
func (h *Handler) SetParquetOptions(opts parquet.Options) {
	h.parquet = opts
}

// Path resolves a file name against the data directory.
func (h *Handler) Path(file string) string {
	return h.svc.Config().DatabasePath(h.dir, file)
}

// Execute runs one request under the file's advisory lock.
func (h *Handler) Execute(ctx context.Context, req *Request) error {
	if err := validation.ValidateFilename(req.File); err != nil {
		return &CommandError{Command: req.Command, File: req.File, Cause: err}
	}
	path := h.Path(req.File)

	mode := lockfile.Shared
	if req.Command.Writes() {
		mode = lockfile.Exclusive
	}
	if req.Command == CmdCreate {
		if err := h.svc.Config().EnsureDatabaseDir(path); err != nil {
			return &CommandError{Command: req.Command, File: req.File, Cause: err}
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		// Only create may bring a database (and its lock file) into being.
		return &CommandError{Command: req.Command, File: req.File, Cause: errors.NewNotFound("database", path)}
	}

	err := lockfile.With(ctx, path, mode, h.svc.Config().Lock.Timeout, func() error {
		switch req.Command {
		case CmdCreate:
			return h.handleCreate(path, req)
		case CmdUpdate:
			return h.handleUpdate(path, req)
		case CmdFetch:
			return h.handleFetch(path, req)
		case CmdInfo:
			return h.handleInfo(path)
		case CmdExport:
			return h.handleExport(ctx, path, req)
		default:
			return errors.Wrapf(errors.ErrUnknownCommand, "%q", req.Command)
		}
	})
	if err != nil {
		return &CommandError{Command: req.Command, File: req.File, Cause: err}
	}
	return nil
}

func (h *Handler) handleCreate(path string, req *Request) error {
	_, err := h.svc.Create(path, storage.CreateParams{
		DatasetCount:   req.DatasetCount,
		SampleCapacity: req.SampleCount,
		Transforms:     req.Transforms,
		Retention:      req.Retention,
	})
	return err
}

func (h *Handler) handleUpdate(path string, req *Request) error {
	values, err := types.ParseValues(req.Values)
	if err != nil {
		return err
	}
	return h.svc.Update(path, values)
}

func (h *Handler) handleFetch(path string, req *Request) error {
	if !req.HasIndex {
		samples, err := h.svc.FetchRaw(path)
		if err != nil {
			return err
		}
		return WriteSamples(h.out, samples)
	}

	results, err := h.svc.Fetch(path, req.Index)
	if err != nil {
		return err
	}
	return WriteResults(h.out, results)
}

func (h *Handler) handleInfo(path string) error {
	info, err := h.svc.Info(path)
	if err != nil {
		return err
	}
	data, err := info.YAML()
	if err != nil {
		return fmt.Errorf("render info: %w", err)
	}
	_, err = h.out.Write(data)
	return err
}

func (h *Handler) handleExport(ctx context.Context, path string, req *Request) error {
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	res, err := h.svc.Export(ctx, path, outDir, h.parquet)
	if err != nil {
		return err
	}
	return WriteExport(h.out, res)
}

// =============================================================================
// Errors
// =============================================================================

// CommandError is a failed command. Its exit code follows the cause.
type CommandError struct {
	Command Command
	File    string
	Cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, e.File, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Code returns the process exit code for the error.
func (e *CommandError) Code() int {
	return errors.ExitCode(e.Cause)
}
