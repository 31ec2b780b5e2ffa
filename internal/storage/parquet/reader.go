package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// reader is the file handling shared by the typed readers.
type reader[T any] struct {
	file   *os.File
	reader *parquet.GenericReader[T]
	path   string
}

func newReader[T any](path string) (*reader[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &reader[T]{
		file:   f,
		reader: parquet.NewGenericReader[T](f),
		path:   path,
	}, nil
}

// readAll reads every remaining row. io.EOF after the last row is not an
// error.
func (r *reader[T]) readAll() ([]T, error) {
	rows := make([]T, r.reader.NumRows())
	n, err := r.reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *reader[T]) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *reader[T]) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *reader[T]) Path() string {
	return r.path
}

// SampleReader reads raw samples from a Parquet file.
type SampleReader struct {
	*reader[SampleRow]
}

// NewSampleReader creates a new sample Parquet reader.
func NewSampleReader(path string) (*SampleReader, error) {
	r, err := newReader[SampleRow](path)
	if err != nil {
		return nil, err
	}
	return &SampleReader{r}, nil
}

// ReadAll reads all samples from the file.
func (r *SampleReader) ReadAll() ([]types.Sample, error) {
	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}

	samples := make([]types.Sample, len(rows))
	for i := range rows {
		samples[i] = RowToSample(&rows[i])
	}
	return samples, nil
}

// ResultReader reads evaluated transform buckets from a Parquet file.
type ResultReader struct {
	*reader[ResultRow]
}

// NewResultReader creates a new result Parquet reader.
func NewResultReader(path string) (*ResultReader, error) {
	r, err := newReader[ResultRow](path)
	if err != nil {
		return nil, err
	}
	return &ResultReader{r}, nil
}

// ReadAll reads all rows from the file.
func (r *ResultReader) ReadAll() ([]ResultRow, error) {
	return r.readAll()
}

// FileInfo holds information about a Parquet file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
}

// GetFileInfo returns information about a Parquet file.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	return &FileInfo{
		Path:    path,
		Size:    stat.Size(),
		NumRows: pf.NumRows(),
	}, nil
}
