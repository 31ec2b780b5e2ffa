package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

func testSamples(n int) []types.Sample {
	samples := make([]types.Sample, n)
	for i := range samples {
		samples[i] = types.Sample{
			TimestampMs: 1700000000000 + int64(i)*1000,
			Values:      []float64{float64(i), float64(i) * 0.5},
		}
	}
	return samples
}

func TestSampleWriterBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.parquet")

	w, err := NewSampleWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewSampleWriter: %v", err)
	}

	if err := w.Write(testSamples(2)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.RowCount() != 2 {
		t.Errorf("expected 2 rows, got %d", w.RowCount())
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Verify file exists
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if stat.Size() == 0 {
		t.Error("file should not be empty")
	}
}

func TestSampleWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "samples.parquet")
	samples := testSamples(50)

	w, err := NewSampleWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewSampleWriter: %v", err)
	}
	if err := w.Write(samples); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewSampleReader(path)
	if err != nil {
		t.Fatalf("NewSampleReader: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 50 {
		t.Errorf("expected 50 rows, got %d", r.NumRows())
	}

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i].TimestampMs != samples[i].TimestampMs {
			t.Errorf("sample %d: timestamp %d, want %d", i, got[i].TimestampMs, samples[i].TimestampMs)
		}
		if len(got[i].Values) != 2 || got[i].Values[1] != samples[i].Values[1] {
			t.Errorf("sample %d: values %v, want %v", i, got[i].Values, samples[i].Values)
		}
	}
}

func TestResultWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.parquet")
	tr := types.NewTransform(3, types.Sum, types.FiveMinute, 1)
	series := types.Series{
		Transform: tr,
		Results: []types.Result{
			{Start: 0, Value: 12.5},
			{Start: 300000, Open: true, Value: 1},
		},
	}

	w, err := NewResultWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}
	if err := w.Write(series); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewResultReader(path)
	if err != nil {
		t.Fatalf("NewResultReader: %v", err)
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Transform != 3 || first.Token != "RRDBSUM:FIVEMINUTE:1" || first.Granularity != "FIVEMINUTE" {
		t.Errorf("unexpected identity %+v", first)
	}
	if first.BucketEnd != 300000 || first.Open || first.Value != 12.5 {
		t.Errorf("unexpected bucket %+v", first)
	}

	last := RowToResult(&rows[1])
	if !last.Open || last.Start != 300000 || last.Value != 1 {
		t.Errorf("unexpected result %+v", last)
	}
}

func TestCompressionTypes(t *testing.T) {
	for _, name := range []string{"none", "snappy", "zstd", "lz4", "gzip"} {
		t.Run(name, func(t *testing.T) {
			ct, err := ParseCompressionType(name)
			if err != nil {
				t.Fatalf("ParseCompressionType: %v", err)
			}

			path := filepath.Join(t.TempDir(), fmt.Sprintf("samples-%s.parquet", name))
			w, err := NewSampleWriter(path, Options{Compression: ct})
			if err != nil {
				t.Fatalf("NewSampleWriter: %v", err)
			}
			if err := w.Write(testSamples(100)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			info, err := GetFileInfo(path)
			if err != nil {
				t.Fatalf("GetFileInfo: %v", err)
			}
			if info.NumRows != 100 {
				t.Errorf("expected 100 rows, got %d", info.NumRows)
			}
		})
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		input    string
		expected CompressionType
	}{
		{"", CompressionSnappy},
		{"snappy", CompressionSnappy},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
		{"gzip", CompressionGzip},
		{"none", CompressionNone},
	}

	for _, tt := range tests {
		got, err := ParseCompressionType(tt.input)
		if err != nil || got != tt.expected {
			t.Errorf("ParseCompressionType(%q) = %v, %v; want %v", tt.input, got, err, tt.expected)
		}
	}

	if _, err := ParseCompressionType("brotli9000"); !errors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEmptyWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")

	w, err := NewSampleWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewSampleWriter: %v", err)
	}
	if err := w.Write(nil); err != nil {
		t.Errorf("empty write should succeed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewSampleReader(path)
	if err != nil {
		t.Fatalf("NewSampleReader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no samples, got %d", len(got))
	}
}

func TestWriteToClosedWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.parquet")

	w, err := NewSampleWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("NewSampleWriter: %v", err)
	}

	w.Close()

	err = w.Write(testSamples(1))
	if !errors.Is(err, errors.ErrWriterClosed) {
		t.Errorf("expected ErrWriterClosed, got %v", err)
	}
}

func BenchmarkSampleWriteBatch1000(b *testing.B) {
	dir := b.TempDir()
	samples := testSamples(1000)

	w, err := NewSampleWriter(filepath.Join(dir, "bench.parquet"), DefaultOptions())
	if err != nil {
		b.Fatalf("NewSampleWriter: %v", err)
	}
	defer w.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Write(samples)
	}
}
