package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Options configures the Parquet writers.
type Options struct {
	// Compression algorithm
	Compression CompressionType
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionSnappy,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "snappy", "":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "gzip":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	default:
		return CompressionNone, errors.NewValidation("parquet compression", s)
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// SampleRow represents a raw sample in Parquet format.
type SampleRow struct {
	TimestampMs int64     `parquet:"timestamp_ms"`
	Values      []float64 `parquet:"values"`
}

// ResultRow represents one evaluated transform bucket in Parquet format.
type ResultRow struct {
	Transform   int32   `parquet:"transform"`
	Token       string  `parquet:"token,dict"`
	Granularity string  `parquet:"granularity,dict"`
	BucketStart int64   `parquet:"bucket_start"`
	BucketEnd   int64   `parquet:"bucket_end"`
	Open        bool    `parquet:"open"`
	Value       float64 `parquet:"value"`
}

// SampleToRow converts a Sample to a SampleRow.
func SampleToRow(s *types.Sample) SampleRow {
	return SampleRow{
		TimestampMs: s.TimestampMs,
		Values:      append([]float64(nil), s.Values...),
	}
}

// RowToSample converts a SampleRow to a Sample.
func RowToSample(r *SampleRow) types.Sample {
	return types.Sample{
		TimestampMs: r.TimestampMs,
		Values:      append([]float64(nil), r.Values...),
	}
}

// ResultToRow converts one bucket of a transform to a ResultRow.
func ResultToRow(t types.Transform, r *types.Result) ResultRow {
	return ResultRow{
		Transform:   int32(t.Index),
		Token:       t.Token(),
		Granularity: t.Granularity.String(),
		BucketStart: r.Start,
		BucketEnd:   r.Start + t.Granularity.DurationMs(),
		Open:        r.Open,
		Value:       r.Value,
	}
}

// RowToResult converts a ResultRow back to a Result.
func RowToResult(r *ResultRow) types.Result {
	return types.Result{
		Start: r.BucketStart,
		Open:  r.Open,
		Value: r.Value,
	}
}

// writer is the file handling shared by the typed writers.
type writer[T any] struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[T]
	rowCount int64
	closed   bool
}

func newWriter[T any](path string, opts Options) (*writer[T], error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	return &writer[T]{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[T](f, writerOpts...),
	}, nil
}

func (w *writer[T]) write(rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close flushes and closes the file.
func (w *writer[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *writer[T]) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *writer[T]) Path() string {
	return w.path
}

// SampleWriter writes raw samples to a Parquet file.
type SampleWriter struct {
	*writer[SampleRow]
}

// NewSampleWriter creates a new sample Parquet writer.
func NewSampleWriter(path string, opts Options) (*SampleWriter, error) {
	w, err := newWriter[SampleRow](path, opts)
	if err != nil {
		return nil, err
	}
	return &SampleWriter{w}, nil
}

// Write writes samples to the Parquet file.
func (w *SampleWriter) Write(samples []types.Sample) error {
	rows := make([]SampleRow, len(samples))
	for i := range samples {
		rows[i] = SampleToRow(&samples[i])
	}
	return w.write(rows)
}

// ResultWriter writes evaluated transform buckets to a Parquet file.
type ResultWriter struct {
	*writer[ResultRow]
}

// NewResultWriter creates a new result Parquet writer.
func NewResultWriter(path string, opts Options) (*ResultWriter, error) {
	w, err := newWriter[ResultRow](path, opts)
	if err != nil {
		return nil, err
	}
	return &ResultWriter{w}, nil
}

// Write writes the buckets of one series to the Parquet file.
func (w *ResultWriter) Write(series types.Series) error {
	rows := make([]ResultRow, len(series.Results))
	for i := range series.Results {
		rows[i] = ResultToRow(series.Transform, &series.Results[i])
	}
	return w.write(rows)
}
