package config

import (
	"fmt"

	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Requirements is the uncompressed size a database reaches once its ring
// and every window history are full.
type Requirements struct {
	RingBytes    int64
	WindowBytes  int64
	HeaderBytes  int64
	TotalBytes   int64
	BucketsTotal int64
}

// Constants for calculations
const (
	// File header plus fixed configuration fields
	bytesFixed = 24 + 28

	// Per-sample timestamp and per-value float64
	bytesPerTimestamp = 8
	bytesPerValue     = 8

	// Bucket start + arrivals, then count/sum/min/max/sketch flag per dataset
	bytesPerBucket      = 16
	bytesPerAccumulator = 33

	// Rough serialized DDSketch size at 1% accuracy
	bytesPerSketch = 512
)

// CalculateRequirements estimates the full-size database for the given
// shape. Sketch-tracked datasets are counted in sketchDatasets and retention
// returns the closed-bucket history kept for each granularity.
func CalculateRequirements(datasets, sampleCapacity, sketchDatasets int, transforms []types.Transform, retention func(types.Granularity) int) Requirements {
	r := Requirements{HeaderBytes: bytesFixed + int64(len(types.FormatTransforms(transforms)))}

	r.RingBytes = int64(sampleCapacity) * (bytesPerTimestamp + int64(datasets)*bytesPerValue)

	perBucket := int64(bytesPerBucket) +
		int64(datasets)*bytesPerAccumulator +
		int64(sketchDatasets)*bytesPerSketch
	for _, g := range types.Granularities(transforms) {
		// History plus the open bucket
		buckets := int64(retention(g)) + 1
		r.BucketsTotal += buckets
		r.WindowBytes += buckets * perBucket
	}

	r.TotalBytes = r.HeaderBytes + r.RingBytes + r.WindowBytes
	return r
}

// FormatRequirements returns a one-line human-readable summary.
func (r *Requirements) FormatRequirements() string {
	return fmt.Sprintf("ring %s, windows %s (%s buckets), total %s",
		FormatBytes(r.RingBytes),
		FormatBytes(r.WindowBytes),
		formatNumber(r.BucketsTotal),
		FormatBytes(r.TotalBytes),
	)
}

// FormatBytes formats bytes as a human-readable string.
func FormatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}
