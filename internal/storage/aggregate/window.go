package aggregate

import (
	"fmt"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

var log = logging.Component("aggregate")

// Window keeps the open bucket of one granularity and a bounded history of
// closed buckets, oldest first.
//
// After Advance(t) or Ingest(t), Open.Start <= t < Open.Start+duration
// unless t precedes Open.Start. Closed buckets are never reopened.
type Window struct {
	Granularity types.Granularity
	Retention   int
	Open        Bucket
	History     []Bucket

	layout Layout
}

// NewWindow creates a window whose open bucket contains nowMs.
func NewWindow(g types.Granularity, retention int, layout Layout, nowMs int64) (*Window, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("window %s: %w", g, err)
	}
	open, err := layout.NewBucket(g.TruncateMs(nowMs))
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", g, err)
	}
	return &Window{
		Granularity: g,
		Retention:   retention,
		Open:        open,
		layout:      layout,
	}, nil
}

// RestoreWindow rebuilds a window from decoded state.
func RestoreWindow(g types.Granularity, retention int, layout Layout, open Bucket, history []Bucket) (*Window, error) {
	w := &Window{
		Granularity: g,
		Retention:   retention,
		Open:        open,
		History:     history,
		layout:      layout,
	}
	if err := w.check(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) check() error {
	d := w.Granularity.DurationMs()
	if d <= 0 {
		return errors.NewCorrupt("window: unknown granularity %d", w.Granularity)
	}
	if err := w.layout.Validate(); err != nil {
		return errors.NewCorrupt("window %s: %v", w.Granularity, err)
	}
	if w.Retention < 0 || len(w.History) > w.Retention {
		return errors.NewCorrupt("window %s: history %d exceeds retention %d",
			w.Granularity, len(w.History), w.Retention)
	}
	if w.Open.Start%d != 0 {
		return errors.NewCorrupt("window %s: misaligned bucket start %d", w.Granularity, w.Open.Start)
	}

	prev := w.Open.Start
	for i := len(w.History) - 1; i >= 0; i-- {
		if w.History[i].Start >= prev || w.History[i].Start%d != 0 {
			return errors.NewCorrupt("window %s: history out of order at %d", w.Granularity, i)
		}
		prev = w.History[i].Start
	}

	for _, b := range append([]Bucket{w.Open}, w.History...) {
		if len(b.Datasets) != w.layout.Datasets {
			return errors.NewCorrupt("window %s: bucket at %d has %d datasets, want %d",
				w.Granularity, b.Start, len(b.Datasets), w.layout.Datasets)
		}
	}
	return nil
}

// Advance closes the open bucket while tMs has reached its end, opening
// the following bucket each time. Gaps produce empty buckets. When the gap
// is longer than the retention only the buckets that would survive eviction
// are built. Returns the number of buckets closed. On error the window is
// left unchanged.
func (w *Window) Advance(tMs int64) (int64, error) {
	d := w.Granularity.DurationMs()
	if d <= 0 || tMs < w.Open.Start+d {
		return 0, nil
	}

	steps := (tMs - w.Open.Start) / d

	next, err := w.layout.NewBucket(w.Open.Start + steps*d)
	if err != nil {
		return 0, err
	}

	first := int64(0)
	if r := int64(w.Retention); steps > r {
		first = steps - r
	}
	closed := make([]Bucket, 0, steps-first)
	for k := first; k < steps; k++ {
		if k == 0 {
			closed = append(closed, w.Open)
			continue
		}
		b, err := w.layout.NewBucket(w.Open.Start + k*d)
		if err != nil {
			return 0, err
		}
		closed = append(closed, b)
	}

	if first > 0 {
		w.History = nil
	}
	for _, b := range closed {
		w.push(b)
	}
	w.Open = next

	return steps, nil
}

func (w *Window) push(b Bucket) {
	w.History = append(w.History, b)
	if over := len(w.History) - w.Retention; over > 0 {
		w.History = w.History[over:]
	}
}

// Ingest advances the window to tMs and counts values in the open bucket.
func (w *Window) Ingest(tMs int64, values []float64) error {
	if len(values) != w.layout.Datasets {
		return fmt.Errorf("window %s: got %d values for %d datasets: %w",
			w.Granularity, len(values), w.layout.Datasets, errors.ErrArityMismatch)
	}

	if _, err := w.Advance(tMs); err != nil {
		return err
	}
	if tMs < w.Open.Start {
		log.Warn("sample precedes open bucket, counting it in the open bucket",
			"granularity", w.Granularity.String(),
			"sample_ms", tMs,
			"bucket_start_ms", w.Open.Start)
	}

	w.Open.Arrivals++
	for i, v := range values {
		w.Open.Datasets[i].Add(v)
	}
	return nil
}

// View returns History ++ [Open] as it would be after Advance(tMs), oldest
// first, without modifying the window.
func (w *Window) View(tMs int64) ([]Bucket, error) {
	v := *w
	v.History = append([]Bucket(nil), w.History...)
	if _, err := v.Advance(tMs); err != nil {
		return nil, err
	}
	return append(v.History, v.Open), nil
}

// Clone returns a deep copy of the window.
func (w *Window) Clone() *Window {
	c := *w
	c.Open = w.Open.Clone()
	c.History = make([]Bucket, len(w.History))
	for i := range w.History {
		c.History[i] = w.History[i].Clone()
	}
	return &c
}

// Layout returns the bucket layout of the window.
func (w *Window) Layout() Layout {
	return w.layout
}
