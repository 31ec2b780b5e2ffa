package types

import "time"

// Result is one evaluated bucket of a transform.
type Result struct {
	// Start is the bucket start, Unix milliseconds.
	Start int64

	// Open is true for the bucket still accepting samples. Only the last
	// result of an evaluation is open.
	Open bool

	// Value is the consolidated value.
	Value float64
}

// StartTime returns the bucket start as a time.Time.
func (r Result) StartTime() time.Time {
	return time.UnixMilli(r.Start).UTC()
}

// StartSeconds returns the bucket start in whole Unix seconds.
func (r Result) StartSeconds() int64 {
	return r.Start / 1000
}

// Series is the evaluated history of one transform, oldest first.
type Series struct {
	Transform Transform
	Results   []Result
}

// Len returns the number of buckets in the series.
func (s *Series) Len() int {
	return len(s.Results)
}

// Current returns the open bucket, if any.
func (s *Series) Current() (Result, bool) {
	if len(s.Results) == 0 {
		return Result{}, false
	}
	return s.Results[len(s.Results)-1], true
}
