package aggregate

import (
	"fmt"
	"sync"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Manager holds one window per granularity, in order of first reference,
// and feeds every sample to all of them.
type Manager struct {
	mu sync.RWMutex

	layout  Layout
	order   []types.Granularity
	windows map[types.Granularity]*Window

	// Statistics
	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	SamplesProcessed int64
	BucketsClosed    int64
	SkewedSamples    int64
}

// NewManager creates a manager with no windows.
func NewManager(layout Layout) *Manager {
	return &Manager{
		layout:  layout,
		windows: make(map[types.Granularity]*Window),
	}
}

// AddWindow opens a window for g whose open bucket contains nowMs.
// Adding an existing granularity is a no-op.
func (m *Manager) AddWindow(g types.Granularity, retention int, nowMs int64) (*Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.windows[g]; ok {
		return w, nil
	}
	w, err := NewWindow(g, retention, m.layout, nowMs)
	if err != nil {
		return nil, err
	}
	m.order = append(m.order, g)
	m.windows[g] = w
	return w, nil
}

// Attach adds a decoded window.
func (m *Manager) Attach(w *Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[w.Granularity]; ok {
		return errors.NewCorrupt("duplicate window %s", w.Granularity)
	}
	if w.layout.Datasets != m.layout.Datasets {
		return errors.NewCorrupt("window %s has %d datasets, want %d",
			w.Granularity, w.layout.Datasets, m.layout.Datasets)
	}
	m.order = append(m.order, w.Granularity)
	m.windows[w.Granularity] = w
	return nil
}

// Ingest feeds one sample to every window.
func (m *Manager) Ingest(sample types.Sample) error {
	if len(sample.Values) != m.layout.Datasets {
		return fmt.Errorf("got %d values for %d datasets: %w",
			len(sample.Values), m.layout.Datasets, errors.ErrArityMismatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.order {
		w := m.windows[g]
		before := w.Open.Start
		if err := w.Ingest(sample.TimestampMs, sample.Values); err != nil {
			return err
		}
		if w.Open.Start != before {
			m.stats.BucketsClosed += (w.Open.Start - before) / g.DurationMs()
		}
		if sample.TimestampMs < w.Open.Start {
			m.stats.SkewedSamples++
		}
	}
	m.stats.SamplesProcessed++
	return nil
}

// View returns the buckets of granularity g as of tMs, oldest first; the
// last bucket is the open one.
func (m *Manager) View(g types.Granularity, tMs int64) ([]Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.windows[g]
	if !ok {
		return nil, errors.NewNotFound("window", g.String())
	}
	return w.View(tMs)
}

// Window returns the window for g.
func (m *Manager) Window(g types.Granularity) (*Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[g]
	return w, ok
}

// Windows returns all windows in order of first reference.
func (m *Manager) Windows() []*Window {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Window, len(m.order))
	for i, g := range m.order {
		out[i] = m.windows[g]
	}
	return out
}

// Layout returns the bucket layout shared by all windows.
func (m *Manager) Layout() Layout {
	return m.layout
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}
