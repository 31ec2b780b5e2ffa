package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xtxerr/rrdb/internal/errors"
)

// Function is a consolidation function applied to every bucket of a window.
type Function uint8

const (
	// Count reports the number of samples that arrived in the bucket.
	Count Function = iota + 1
	Sum
	Max
	Min
	Mean
	P50
	P90
	P95
	P99
)

// functionPrefix is the historical prefix of function tokens.
const functionPrefix = "RRDB"

// Name returns the bare function name (COUNT, SUM, ...).
func (f Function) Name() string {
	switch f {
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	case Max:
		return "MAX"
	case Min:
		return "MIN"
	case Mean:
		return "MEAN"
	case P50:
		return "P50"
	case P90:
		return "P90"
	case P95:
		return "P95"
	case P99:
		return "P99"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// String returns the canonical token (RRDBCOUNT, RRDBSUM, ...).
func (f Function) String() string {
	if !f.Valid() {
		return f.Name()
	}
	return functionPrefix + f.Name()
}

// Valid reports whether f is a defined function.
func (f Function) Valid() bool {
	return f >= Count && f <= P99
}

// NeedsDataset reports whether the function reads one dataset.
// Only Count is dataset-agnostic.
func (f Function) NeedsDataset() bool {
	return f.Valid() && f != Count
}

// IsPercentile reports whether the function is answered from a sketch.
func (f Function) IsPercentile() bool {
	return f.Quantile() > 0
}

// Quantile returns the quantile for percentile functions, 0 otherwise.
func (f Function) Quantile() float64 {
	switch f {
	case P50:
		return 0.50
	case P90:
		return 0.90
	case P95:
		return 0.95
	case P99:
		return 0.99
	default:
		return 0
	}
}

// ParseFunction parses a function token. The RRDB prefix is optional and
// matching is case-insensitive.
func ParseFunction(s string) (Function, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, functionPrefix)
	for _, f := range AllFunctions() {
		if f.Name() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown function %q: %w", s, errors.ErrInvalidToken)
}

// AllFunctions returns all functions in token order.
func AllFunctions() []Function {
	return []Function{Count, Sum, Max, Min, Mean, P50, P90, P95, P99}
}

// =============================================================================
// Target
// =============================================================================

// Target selects what a transform reads from a bucket: the dataset-agnostic
// arrival counter or one dataset's accumulator.
type Target interface {
	isTarget()
	String() string
}

// Arrivals targets the bucket-level arrival counter (COUNT only).
type Arrivals struct{}

func (Arrivals) isTarget() {}

func (Arrivals) String() string { return "arrivals" }

// Dataset targets one dataset's accumulator.
type Dataset struct {
	Index int
}

func (Dataset) isTarget() {}

func (d Dataset) String() string { return "dataset " + strconv.Itoa(d.Index) }

// =============================================================================
// Transform
// =============================================================================

// Transform is a declared consolidation pipeline. Transforms are fixed at
// creation; Index is the declaration order and the identity used by fetch.
type Transform struct {
	Index       int
	Function    Function
	Granularity Granularity
	Target      Target
}

// NewTransform builds a transform, choosing the target from the function.
// dataset is ignored for Count.
func NewTransform(index int, fn Function, g Granularity, dataset int) Transform {
	t := Transform{Index: index, Function: fn, Granularity: g}
	if fn.NeedsDataset() {
		t.Target = Dataset{Index: dataset}
	} else {
		t.Target = Arrivals{}
	}
	return t
}

// DatasetIndex returns the dataset read by the transform, or -1 for the
// arrival counter.
func (t Transform) DatasetIndex() int {
	if d, ok := t.Target.(Dataset); ok {
		return d.Index
	}
	return -1
}

// Token returns the canonical textual form, e.g. RRDBSUM:FIVEMINUTE:0.
func (t Transform) Token() string {
	s := t.Function.String() + ":" + t.Granularity.String()
	if d, ok := t.Target.(Dataset); ok {
		s += ":" + strconv.Itoa(d.Index)
	}
	return s
}

// String implements fmt.Stringer.
func (t Transform) String() string {
	return t.Token()
}

// Validate checks the transform against a database with datasetCount datasets.
func (t Transform) Validate(datasetCount int) error {
	if !t.Function.Valid() {
		return errors.NewValidation("transform function", t.Function.Name())
	}
	if !t.Granularity.Valid() {
		return errors.NewValidation("transform granularity", t.Granularity.String())
	}
	switch target := t.Target.(type) {
	case Arrivals:
		if t.Function.NeedsDataset() {
			return errors.NewValidation("transform "+t.Token(), "function requires a dataset index")
		}
	case Dataset:
		if !t.Function.NeedsDataset() {
			return errors.NewValidation("transform "+t.Token(), "function takes no dataset index")
		}
		if target.Index < 0 || target.Index >= datasetCount {
			return errors.NewValidation("transform "+t.Token(),
				fmt.Sprintf("dataset index %d out of range [0,%d)", target.Index, datasetCount))
		}
	default:
		return errors.NewValidation("transform "+t.Function.Name(), "missing target")
	}
	return nil
}

// ParseTransforms parses colon-separated FUNCTION:GRANULARITY[:DATASET]
// groups left to right. Empty fields are skipped, so "a::b" reads as "a:b".
// An empty string yields no transforms.
func ParseTransforms(s string) ([]Transform, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ':' })

	var out []Transform
	for i := 0; i < len(fields); {
		fn, err := ParseFunction(fields[i])
		if err != nil {
			return nil, err
		}
		i++

		if i >= len(fields) {
			return nil, fmt.Errorf("%s: missing granularity: %w", fn, errors.ErrInvalidToken)
		}
		g, err := ParseGranularity(fields[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", fn, err, errors.ErrInvalidToken)
		}
		i++

		dataset := 0
		if fn.NeedsDataset() {
			if i >= len(fields) {
				return nil, fmt.Errorf("%s:%s: missing dataset index: %w", fn, g, errors.ErrInvalidToken)
			}
			dataset, err = strconv.Atoi(strings.TrimSpace(fields[i]))
			if err != nil || dataset < 0 {
				return nil, fmt.Errorf("%s:%s: bad dataset index %q: %w", fn, g, fields[i], errors.ErrInvalidToken)
			}
			i++
		}

		out = append(out, NewTransform(len(out), fn, g, dataset))
	}
	return out, nil
}

// FormatTransforms renders transforms in canonical form. The result parses
// back to the same transforms.
func FormatTransforms(ts []Transform) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.Token()
	}
	return strings.Join(parts, ":")
}

// Granularities returns the distinct granularities referenced by ts, in
// order of first reference.
func Granularities(ts []Transform) []Granularity {
	var out []Granularity
	seen := make(map[Granularity]bool)
	for _, t := range ts {
		if !seen[t.Granularity] {
			seen[t.Granularity] = true
			out = append(out, t.Granularity)
		}
	}
	return out
}

// UsesPercentiles reports whether any transform reads dataset d from a sketch.
func UsesPercentiles(ts []Transform, d int) bool {
	for _, t := range ts {
		if t.Function.IsPercentile() && t.DatasetIndex() == d {
			return true
		}
	}
	return false
}
