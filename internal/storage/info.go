package storage

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/rrdb/internal/storage/config"
)

// Info describes a database file.
type Info struct {
	Path               string          `yaml:"path"`
	Version            uint32          `yaml:"version"`
	Created            time.Time       `yaml:"created"`
	Datasets           int             `yaml:"datasets"`
	SampleCapacity     int             `yaml:"sample_capacity"`
	Samples            int             `yaml:"samples"`
	Position           int             `yaml:"position"`
	Full               bool            `yaml:"full"`
	Oldest             *time.Time      `yaml:"oldest,omitempty"`
	Newest             *time.Time      `yaml:"newest,omitempty"`
	Span               string          `yaml:"span,omitempty"`
	PercentileAccuracy float64         `yaml:"percentile_accuracy,omitempty"`
	Transforms         []TransformInfo `yaml:"transforms"`
	Windows            []WindowInfo    `yaml:"windows"`
	FileBytes          int64           `yaml:"file_bytes"`
	Requirements       RequirementInfo `yaml:"requirements"`
}

// TransformInfo describes one declared transform.
type TransformInfo struct {
	Index       int    `yaml:"index"`
	Token       string `yaml:"token"`
	Granularity string `yaml:"granularity"`
	Target      string `yaml:"target"`
}

// WindowInfo describes one consolidation window.
type WindowInfo struct {
	Granularity string    `yaml:"granularity"`
	Retention   int       `yaml:"retention"`
	History     int       `yaml:"history"`
	OpenStart   time.Time `yaml:"open_start"`
	Arrivals    int64     `yaml:"open_arrivals"`
}

// RequirementInfo is the estimated uncompressed size of the file once the
// ring and all windows are full.
type RequirementInfo struct {
	Ring    string `yaml:"ring"`
	Windows string `yaml:"windows"`
	Buckets int64  `yaml:"buckets"`
	Total   string `yaml:"total"`
	Summary string `yaml:"summary"`
}

// YAML renders the info document.
func (i *Info) YAML() ([]byte, error) {
	return yaml.Marshal(i)
}

// Info loads path and describes it.
func (s *Service) Info(path string) (*Info, error) {
	db, err := s.Open(path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:           path,
		Version:        db.version,
		Created:        db.CreationTime().UTC(),
		Datasets:       db.DatasetCount(),
		SampleCapacity: db.SampleCapacity(),
		Samples:        db.Ring().Len(),
		Position:       db.Ring().Position(),
		Full:           db.Ring().IsFull(),
		FileBytes:      fileSize(path),
	}

	if info.Samples > 0 {
		oldest, newest := db.Ring().TimeRange()
		o, n := time.UnixMilli(oldest).UTC(), time.UnixMilli(newest).UTC()
		info.Oldest, info.Newest = &o, &n
		info.Span = db.Ring().Duration().String()
	}

	if db.SketchDatasets() > 0 {
		info.PercentileAccuracy = db.PercentileAccuracy()
	}

	for _, t := range db.Transforms() {
		info.Transforms = append(info.Transforms, TransformInfo{
			Index:       t.Index,
			Token:       t.Token(),
			Granularity: t.Granularity.String(),
			Target:      t.Target.String(),
		})
	}

	for _, w := range db.Windows() {
		info.Windows = append(info.Windows, WindowInfo{
			Granularity: w.Granularity.String(),
			Retention:   w.Retention,
			History:     len(w.History),
			OpenStart:   time.UnixMilli(w.Open.Start).UTC(),
			Arrivals:    w.Open.Arrivals,
		})
	}

	req := db.Requirements()
	info.Requirements = RequirementInfo{
		Ring:    config.FormatBytes(req.RingBytes),
		Windows: config.FormatBytes(req.WindowBytes),
		Buckets: req.BucketsTotal,
		Total:   config.FormatBytes(req.TotalBytes),
		Summary: req.FormatRequirements(),
	}

	return info, nil
}
