// Package buffer provides the fixed-capacity sample ring kept by every
// database file.
package buffer

import (
	"sync"
	"time"

	"github.com/xtxerr/rrdb/internal/storage/types"
)

// SampleRing is a circular buffer of the most recent raw samples.
// When full, Push overwrites the oldest sample.
type SampleRing struct {
	mu       sync.RWMutex
	data     []types.Sample
	head     int64 // Total pushes; next write position is head % capacity
	count    int64 // Current number of elements
	capacity int64
}

// New creates a SampleRing with the given capacity.
// A non-positive capacity is treated as 1.
func New(capacity int) *SampleRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleRing{
		data:     make([]types.Sample, capacity),
		capacity: int64(capacity),
	}
}

// Push appends a sample, overwriting the oldest one if the ring is full.
// It reports whether a sample was evicted.
func (r *SampleRing) Push(sample types.Sample) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := false
	if r.count >= r.capacity {
		r.count--
		evicted = true
	}

	r.data[r.head%r.capacity] = sample
	r.head++
	r.count++

	return evicted
}

// Len returns the current number of samples.
func (r *SampleRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int(r.count)
}

// Cap returns the capacity of the ring.
func (r *SampleRing) Cap() int {
	return int(r.capacity)
}

// Pushed returns the number of samples ever pushed.
func (r *SampleRing) Pushed() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.head
}

// Position returns the slot index of the last write, or -1 when empty.
func (r *SampleRing) Position() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return -1
	}
	return int((r.head - 1) % r.capacity)
}

// IsFull returns true if the next push evicts a sample.
func (r *SampleRing) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count >= r.capacity
}

// Samples returns a copy of the held samples, oldest first.
func (r *SampleRing) Samples() []types.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Sample, r.count)
	tail := r.head - r.count
	for i := int64(0); i < r.count; i++ {
		out[i] = r.data[(tail+i)%r.capacity].Clone()
	}
	return out
}

// TimeRange returns the timestamps of the oldest and newest samples.
// Returns (0, 0) if the ring is empty.
func (r *SampleRing) TimeRange() (oldest, newest int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return 0, 0
	}
	tail := r.head - r.count
	return r.data[tail%r.capacity].TimestampMs, r.data[(r.head-1)%r.capacity].TimestampMs
}

// Duration returns the time span covered by the ring.
func (r *SampleRing) Duration() time.Duration {
	oldest, newest := r.TimeRange()
	return time.Duration(newest-oldest) * time.Millisecond
}

// Restore rebuilds a ring from decoded state. samples are oldest first and
// pushed is the lifetime push count; the slot layout is reproduced so that
// Position survives a save/load cycle. Only the newest capacity samples are
// kept.
func Restore(capacity int, samples []types.Sample, pushed int64) *SampleRing {
	r := New(capacity)
	if len(samples) > capacity {
		samples = samples[len(samples)-capacity:]
	}
	if pushed < int64(len(samples)) {
		pushed = int64(len(samples))
	}

	tail := pushed - int64(len(samples))
	for i, s := range samples {
		r.data[(tail+int64(i))%r.capacity] = s.Clone()
	}
	r.head = pushed
	r.count = int64(len(samples))
	return r
}

// Stats returns ring statistics.
func (r *SampleRing) Stats() RingStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	evicted := r.head - r.count
	return RingStats{
		Capacity:   int(r.capacity),
		Count:      int(r.count),
		Position:   int((r.head - 1 + r.capacity) % r.capacity),
		UsageRatio: float64(r.count) / float64(r.capacity),
		PushCount:  r.head,
		DropCount:  evicted,
	}
}

// RingStats holds ring statistics.
type RingStats struct {
	Capacity   int
	Count      int
	Position   int
	UsageRatio float64
	PushCount  int64
	DropCount  int64
}
