package storage

import (
	"fmt"
	"os"
	"time"

	defaults "github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
	"github.com/xtxerr/rrdb/internal/storage/aggregate"
	"github.com/xtxerr/rrdb/internal/storage/buffer"
	"github.com/xtxerr/rrdb/internal/storage/codec"
	"github.com/xtxerr/rrdb/internal/storage/config"
	"github.com/xtxerr/rrdb/internal/storage/query"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

var log = logging.Component("storage")

// Service runs the database operations. Every operation is a complete
// load, mutate and save cycle against one file; nothing is cached between
// calls.
type Service struct {
	config *config.Config
	save   codec.Options
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used to stamp samples and to evaluate
// windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a storage service.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		config: cfg,
		save: codec.Options{
			Compression: cfg.Persistence.Compression,
			Fsync:       cfg.Persistence.Fsync,
			FileMode:    defaults.DefaultFileMode,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// CreateParams describes a new database.
type CreateParams struct {
	// DatasetCount is the number of values per sample.
	DatasetCount int

	// SampleCapacity is the number of raw samples kept.
	SampleCapacity int

	// Transforms is the colon-separated transform declaration.
	Transforms string

	// Retention overrides the configured closed-bucket history of every
	// window. Zero uses the configuration.
	Retention int
}

// Validate checks the parameters and returns the parsed transforms.
func (p *CreateParams) Validate() ([]types.Transform, error) {
	v := errors.NewValidationErrors()

	if p.DatasetCount < 1 || p.DatasetCount > defaults.MaxDatasets {
		v.AddField("setcount", fmt.Sprintf("%d not in [1,%d]", p.DatasetCount, defaults.MaxDatasets))
	}
	if p.SampleCapacity < 1 || p.SampleCapacity > defaults.MaxSampleCapacity {
		v.AddField("samplecount", fmt.Sprintf("%d not in [1,%d]", p.SampleCapacity, defaults.MaxSampleCapacity))
	}
	if p.Retention < 0 || p.Retention > defaults.MaxRetention {
		v.AddField("retention", fmt.Sprintf("%d not in [0,%d]", p.Retention, defaults.MaxRetention))
	}

	transforms, err := types.ParseTransforms(p.Transforms)
	if err != nil {
		v.Add(err)
		return nil, v.Err()
	}
	if len(transforms) > defaults.MaxTransforms {
		v.AddField("xform", fmt.Sprintf("%d transforms, at most %d", len(transforms), defaults.MaxTransforms))
	}
	if p.DatasetCount >= 1 {
		for _, t := range transforms {
			v.Add(t.Validate(p.DatasetCount))
		}
	}

	if err := v.Err(); err != nil {
		return nil, err
	}
	return transforms, nil
}

// Create writes a new, empty database to path, replacing any file there.
// Windows open with the bucket containing the current time.
func (s *Service) Create(path string, p CreateParams) (*Database, error) {
	transforms, err := p.Validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	st := &codec.State{
		Version:            defaults.FileVersion,
		DatasetCount:       p.DatasetCount,
		SampleCapacity:     p.SampleCapacity,
		CreationTimeMs:     now.UnixMilli(),
		PercentileAccuracy: s.config.Percentile.Accuracy,
		Transforms:         transforms,
		Ring:               buffer.New(p.SampleCapacity),
	}

	m := aggregate.NewManager(st.Layout())
	for _, g := range types.Granularities(transforms) {
		retention := p.Retention
		if retention == 0 {
			retention = s.config.Retention.For(g, p.SampleCapacity)
		}
		if _, err := m.AddWindow(g, retention, now.UnixMilli()); err != nil {
			return nil, err
		}
	}
	st.Windows = m.Windows()

	if err := codec.Save(path, st, s.save); err != nil {
		return nil, err
	}

	db, err := fromState(st)
	if err != nil {
		return nil, err
	}

	req := db.Requirements()
	log.Info("created database",
		"path", path,
		"datasets", p.DatasetCount,
		"capacity", p.SampleCapacity,
		"transforms", types.FormatTransforms(transforms),
		"full_size", config.FormatBytes(req.TotalBytes))

	return db, nil
}

// Open loads the database at path.
func (s *Service) Open(path string) (*Database, error) {
	st, err := codec.Load(path)
	if err != nil {
		return nil, err
	}
	db, err := fromState(st)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return db, nil
}

// Update records one sample stamped with the current time. The file is
// rewritten only when the sample was accepted.
func (s *Service) Update(path string, values []float64) error {
	db, err := s.Open(path)
	if err != nil {
		return err
	}

	sample := types.NewSample(s.now(), values)
	if err := db.Append(sample); err != nil {
		return err
	}

	if err := codec.Save(path, db.state(), s.save); err != nil {
		return err
	}

	log.Debug("updated database",
		"path", path,
		"samples", db.Ring().Len(),
		"buckets_closed", db.Stats().BucketsClosed)
	return nil
}

// Fetch evaluates transform index as of the current time. The database
// file is not modified.
func (s *Service) Fetch(path string, index int) ([]types.Result, error) {
	db, err := s.Open(path)
	if err != nil {
		return nil, err
	}
	return query.Evaluate(db, index, s.now().UnixMilli())
}

// FetchRaw returns the raw samples in the ring, oldest first.
func (s *Service) FetchRaw(path string) ([]types.Sample, error) {
	db, err := s.Open(path)
	if err != nil {
		return nil, err
	}
	return db.Ring().Samples(), nil
}

// fileSize returns the size of path, or zero when it cannot be read.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
