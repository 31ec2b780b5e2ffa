package types

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/rrdb/internal/errors"
)

// Sample represents a single multi-valued observation.
// Values holds one number per dataset, in dataset order.
type Sample struct {
	// TimestampMs is the Unix timestamp in milliseconds.
	TimestampMs int64

	// Values are the dataset values, len == dataset count.
	Values []float64
}

// NewSample creates a sample stamped at ts. The values slice is copied.
func NewSample(ts time.Time, values []float64) Sample {
	v := make([]float64, len(values))
	copy(v, values)
	return Sample{TimestampMs: ts.UnixMilli(), Values: v}
}

// TimestampTime returns the timestamp as a time.Time.
func (s *Sample) TimestampTime() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// Len returns the number of dataset values.
func (s *Sample) Len() int {
	return len(s.Values)
}

// Clone returns a deep copy of the sample.
func (s Sample) Clone() Sample {
	return Sample{TimestampMs: s.TimestampMs, Values: append([]float64(nil), s.Values...)}
}

// ParseValues parses colon-separated sample values ("1.5:2:-3").
// Empty fields are skipped. Values must be finite.
func ParseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ':' })

	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.NewInvalidValue("value", f, "not a number")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewInvalidValue("value", f, "not finite")
		}
		values = append(values, v)
	}
	return values, nil
}
