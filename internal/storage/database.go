package storage

import (
	"time"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/aggregate"
	"github.com/xtxerr/rrdb/internal/storage/buffer"
	"github.com/xtxerr/rrdb/internal/storage/codec"
	"github.com/xtxerr/rrdb/internal/storage/config"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Database is one loaded database file: its immutable configuration, the
// raw sample ring and one consolidation window per referenced granularity.
type Database struct {
	datasetCount   int
	sampleCapacity int
	creationTimeMs int64
	accuracy       float64
	transforms     []types.Transform
	version        uint32

	ring    *buffer.SampleRing
	windows *aggregate.Manager
}

// fromState builds a Database around decoded state.
func fromState(st *codec.State) (*Database, error) {
	m := aggregate.NewManager(st.Layout())
	for _, w := range st.Windows {
		if err := m.Attach(w); err != nil {
			return nil, err
		}
	}
	for _, g := range types.Granularities(st.Transforms) {
		if _, ok := m.Window(g); !ok {
			return nil, errors.NewCorrupt("no window for granularity %s", g)
		}
	}

	return &Database{
		datasetCount:   st.DatasetCount,
		sampleCapacity: st.SampleCapacity,
		creationTimeMs: st.CreationTimeMs,
		accuracy:       st.PercentileAccuracy,
		transforms:     st.Transforms,
		version:        st.Version,
		ring:           st.Ring,
		windows:        m,
	}, nil
}

// state snapshots the database for the codec.
func (db *Database) state() *codec.State {
	return &codec.State{
		Version:            db.version,
		DatasetCount:       db.datasetCount,
		SampleCapacity:     db.sampleCapacity,
		CreationTimeMs:     db.creationTimeMs,
		PercentileAccuracy: db.accuracy,
		Transforms:         db.transforms,
		Ring:               db.ring,
		Windows:            db.windows.Windows(),
	}
}

// Append validates sample arity, then records it in the ring and every
// window. Nothing is touched when the arity is wrong.
func (db *Database) Append(sample types.Sample) error {
	if err := db.windows.Ingest(sample); err != nil {
		return err
	}
	db.ring.Push(sample)
	return nil
}

// Transforms returns the declared transforms in index order.
func (db *Database) Transforms() []types.Transform {
	return db.transforms
}

// View returns the buckets of granularity g as they stand at tMs, without
// mutating the database.
func (db *Database) View(g types.Granularity, tMs int64) ([]aggregate.Bucket, error) {
	return db.windows.View(g, tMs)
}

// DatasetCount returns the number of values per sample.
func (db *Database) DatasetCount() int { return db.datasetCount }

// SampleCapacity returns the ring capacity.
func (db *Database) SampleCapacity() int { return db.sampleCapacity }

// CreationTime returns when the database was created.
func (db *Database) CreationTime() time.Time { return time.UnixMilli(db.creationTimeMs) }

// PercentileAccuracy returns the DDSketch accuracy of percentile transforms.
func (db *Database) PercentileAccuracy() float64 { return db.accuracy }

// Ring returns the raw sample ring.
func (db *Database) Ring() *buffer.SampleRing { return db.ring }

// Windows returns the windows in first-reference order.
func (db *Database) Windows() []*aggregate.Window { return db.windows.Windows() }

// Stats returns consolidation counters for this invocation.
func (db *Database) Stats() aggregate.ManagerStats { return db.windows.Stats() }

// SketchDatasets returns the number of datasets that carry a percentile
// sketch.
func (db *Database) SketchDatasets() int {
	n := 0
	for d := 0; d < db.datasetCount; d++ {
		if types.UsesPercentiles(db.transforms, d) {
			n++
		}
	}
	return n
}

// Requirements estimates the file size once the ring and every window are
// full, using the retention each window was created with.
func (db *Database) Requirements() config.Requirements {
	retention := make(map[types.Granularity]int)
	for _, w := range db.windows.Windows() {
		retention[w.Granularity] = w.Retention
	}
	return config.CalculateRequirements(db.datasetCount, db.sampleCapacity, db.SketchDatasets(), db.transforms,
		func(g types.Granularity) int { return retention[g] })
}
