// Package aggregate implements the window consolidation engine: running
// per-dataset accumulators, buckets, and one rolling window per granularity.
package aggregate

import (
	"fmt"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
)

// Accumulator maintains running statistics for one dataset in one bucket.
// It optionally carries a DDSketch for percentile functions.
type Accumulator struct {
	Count int64
	Sum   float64
	Min   float64 // Valid only when Count > 0
	Max   float64 // Valid only when Count > 0

	// DDSketch for percentiles (nil if not tracked)
	sketch *ddsketch.DDSketch
}

// CheckAccuracy reports whether accuracy can back a percentile sketch.
func CheckAccuracy(accuracy float64) error {
	if !(accuracy >= config.MinPercentileAccuracy && accuracy <= config.MaxPercentileAccuracy) {
		return errors.NewInvalidValue("percentile accuracy", accuracy,
			fmt.Sprintf("must be between %g and %g", config.MinPercentileAccuracy, config.MaxPercentileAccuracy))
	}
	return nil
}

// NewAccumulator creates an empty accumulator. A zero accuracy creates a
// plain accumulator; any other value attaches a sketch with that relative
// accuracy and must pass CheckAccuracy.
func NewAccumulator(accuracy float64) (Accumulator, error) {
	var a Accumulator
	if accuracy == 0 {
		return a, nil
	}
	if err := CheckAccuracy(accuracy); err != nil {
		return a, err
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return a, fmt.Errorf("create sketch: %w", err)
	}
	a.sketch = sketch
	return a, nil
}

// Add adds a value to the accumulator.
func (a *Accumulator) Add(value float64) {
	if a.Count == 0 {
		a.Min = value
		a.Max = value
	} else {
		if value < a.Min {
			a.Min = value
		}
		if value > a.Max {
			a.Max = value
		}
	}
	a.Count++
	a.Sum += value

	if a.sketch != nil {
		// Only NaN and out-of-range values are rejected; they still count.
		_ = a.sketch.Add(value)
	}
}

// IsEmpty returns true if no values have been added.
func (a *Accumulator) IsEmpty() bool {
	return a.Count == 0
}

// Mean returns Sum/Count, or ErrDivisionUndefined when empty.
func (a *Accumulator) Mean() (float64, error) {
	if a.Count == 0 {
		return 0, errors.ErrDivisionUndefined
	}
	return a.Sum / float64(a.Count), nil
}

// MaxOrZero returns the maximum, or 0 when empty.
func (a *Accumulator) MaxOrZero() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Max
}

// MinOrZero returns the minimum, or 0 when empty.
func (a *Accumulator) MinOrZero() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Min
}

// Quantile returns the sketch estimate for q, or 0 when empty or untracked.
func (a *Accumulator) Quantile(q float64) float64 {
	if a.sketch == nil || a.sketch.IsEmpty() {
		return 0
	}
	v, err := a.sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0
	}
	return v
}

// Sketch returns the attached sketch, or nil.
func (a *Accumulator) Sketch() *ddsketch.DDSketch {
	return a.sketch
}

// SetSketch attaches a decoded sketch.
func (a *Accumulator) SetSketch(s *ddsketch.DDSketch) {
	a.sketch = s
}

// Clone returns a deep copy, including the sketch.
func (a Accumulator) Clone() Accumulator {
	if a.sketch != nil {
		a.sketch = a.sketch.Copy()
	}
	return a
}

// Bucket is one aggregation period of a window. Arrivals counts ingests
// regardless of dataset; Datasets holds one accumulator per dataset.
type Bucket struct {
	Start    int64 // Unix milliseconds
	Arrivals int64
	Datasets []Accumulator
}

// IsEmpty returns true if nothing arrived in the bucket.
func (b *Bucket) IsEmpty() bool {
	return b.Arrivals == 0
}

// Clone returns a deep copy of the bucket.
func (b Bucket) Clone() Bucket {
	ds := make([]Accumulator, len(b.Datasets))
	for i := range b.Datasets {
		ds[i] = b.Datasets[i].Clone()
	}
	b.Datasets = ds
	return b
}

// Layout describes the accumulators every bucket of a database carries.
type Layout struct {
	// Datasets is the number of values per sample.
	Datasets int

	// Sketches marks the datasets that feed a percentile transform.
	// A nil slice means no sketches.
	Sketches []bool

	// Accuracy is the relative accuracy of the sketches.
	Accuracy float64
}

// TracksSketch reports whether dataset i carries a sketch.
func (l Layout) TracksSketch(i int) bool {
	return i >= 0 && i < len(l.Sketches) && l.Sketches[i]
}

// Validate checks that every tracked sketch can be built.
func (l Layout) Validate() error {
	for i := 0; i < l.Datasets; i++ {
		if l.TracksSketch(i) {
			return CheckAccuracy(l.Accuracy)
		}
	}
	return nil
}

// NewBucket returns an empty bucket starting at start.
func (l Layout) NewBucket(start int64) (Bucket, error) {
	b := Bucket{Start: start, Datasets: make([]Accumulator, l.Datasets)}
	for i := range b.Datasets {
		if !l.TracksSketch(i) {
			continue
		}
		acc, err := NewAccumulator(l.Accuracy)
		if err != nil {
			return Bucket{}, fmt.Errorf("dataset %d: %w", i, err)
		}
		b.Datasets[i] = acc
	}
	return b, nil
}
