package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/rrdb/internal/storage/parquet"
	"github.com/xtxerr/rrdb/internal/storage/query"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// ExportFile is one written Parquet file.
type ExportFile struct {
	Path string
	Rows int64

	// Transform is the exported transform index, -1 for the raw samples.
	Transform int
}

// ExportResult lists the files written by Export, raw samples first.
type ExportResult struct {
	Files []ExportFile
}

// Rows returns the total number of rows written.
func (r *ExportResult) Rows() int64 {
	var n int64
	for _, f := range r.Files {
		n += f.Rows
	}
	return n
}

// ExportPaths returns the file names Export writes for a database at path
// with n transforms.
func ExportPaths(path, outDir string, n int) (samples string, transforms []string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	samples = filepath.Join(outDir, base+".samples.parquet")
	transforms = make([]string, n)
	for i := range transforms {
		transforms[i] = filepath.Join(outDir, fmt.Sprintf("%s.xform%d.parquet", base, i))
	}
	return samples, transforms
}

// Export writes the raw ring and every transform, evaluated as of the
// current time, to Parquet files in outDir. Files are written concurrently.
// The database file is not modified.
func (s *Service) Export(ctx context.Context, path, outDir string, opts parquet.Options) (*ExportResult, error) {
	db, err := s.Open(path)
	if err != nil {
		return nil, err
	}

	series, err := query.EvaluateAll(db, s.now().UnixMilli())
	if err != nil {
		return nil, err
	}
	samples := db.Ring().Samples()

	samplesPath, transformPaths := ExportPaths(path, outDir, len(series))
	result := &ExportResult{Files: make([]ExportFile, len(series)+1)}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := writeSamples(ctx, samplesPath, samples, opts)
		result.Files[0] = ExportFile{Path: samplesPath, Rows: n, Transform: -1}
		return err
	})

	for i := range series {
		g.Go(func() error {
			n, err := writeSeries(ctx, transformPaths[i], series[i], opts)
			result.Files[i+1] = ExportFile{Path: transformPaths[i], Rows: n, Transform: series[i].Transform.Index}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("export %s: %w", path, err)
	}

	log.Info("exported database", "path", path, "dir", outDir, "files", len(result.Files), "rows", result.Rows())
	return result, nil
}

func writeSamples(ctx context.Context, path string, samples []types.Sample, opts parquet.Options) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w, err := parquet.NewSampleWriter(path, opts)
	if err != nil {
		return 0, err
	}
	if err := w.Write(samples); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.RowCount(), nil
}

func writeSeries(ctx context.Context, path string, series types.Series, opts parquet.Options) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w, err := parquet.NewResultWriter(path, opts)
	if err != nil {
		return 0, err
	}
	if err := w.Write(series); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return w.RowCount(), nil
}
