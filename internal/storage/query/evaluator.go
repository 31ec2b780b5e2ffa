// Package query evaluates declared transforms against the windows of a
// database.
package query

import (
	"fmt"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/storage/aggregate"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// Source is the read side of a database as seen by the evaluator.
type Source interface {
	Transforms() []types.Transform
	View(g types.Granularity, tMs int64) ([]aggregate.Bucket, error)
}

// Evaluate renders transform index as one result per bucket, oldest first.
// The buckets are those of its window as of nowMs; the last one is open.
func Evaluate(src Source, index int, nowMs int64) ([]types.Result, error) {
	transforms := src.Transforms()
	if index < 0 || index >= len(transforms) {
		return nil, fmt.Errorf("transform %d (have %d): %w", index, len(transforms), errors.ErrUnknownTransform)
	}
	return evaluate(src, transforms[index], nowMs)
}

// EvaluateAll evaluates every transform in declaration order.
func EvaluateAll(src Source, nowMs int64) ([]types.Series, error) {
	transforms := src.Transforms()
	out := make([]types.Series, 0, len(transforms))
	for _, t := range transforms {
		results, err := evaluate(src, t, nowMs)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Series{Transform: t, Results: results})
	}
	return out, nil
}

func evaluate(src Source, t types.Transform, nowMs int64) ([]types.Result, error) {
	buckets, err := src.View(t.Granularity, nowMs)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", t, err)
	}

	results := make([]types.Result, len(buckets))
	for i := range buckets {
		v, err := Value(t, &buckets[i])
		if err != nil {
			return nil, err
		}
		results[i] = types.Result{
			Start: buckets[i].Start,
			Open:  i == len(buckets)-1,
			Value: v,
		}
	}
	return results, nil
}

// Value computes the transform's function over one bucket. Empty buckets
// report 0 for every function.
func Value(t types.Transform, b *aggregate.Bucket) (float64, error) {
	switch target := t.Target.(type) {
	case types.Arrivals:
		if t.Function != types.Count {
			return 0, errors.NewValidation("transform "+t.Token(), "only COUNT reads arrivals")
		}
		return float64(b.Arrivals), nil

	case types.Dataset:
		if target.Index < 0 || target.Index >= len(b.Datasets) {
			return 0, errors.NewCorrupt("transform %s: dataset %d not in bucket", t, target.Index)
		}
		acc := &b.Datasets[target.Index]

		switch t.Function {
		case types.Sum:
			return acc.Sum, nil
		case types.Max:
			return acc.MaxOrZero(), nil
		case types.Min:
			return acc.MinOrZero(), nil
		case types.Mean:
			mean, err := acc.Mean()
			if errors.Is(err, errors.ErrDivisionUndefined) {
				return 0, nil
			}
			return mean, err
		case types.P50, types.P90, types.P95, types.P99:
			return acc.Quantile(t.Function.Quantile()), nil
		}
	}
	return 0, errors.NewValidation("transform "+t.Token(), "unsupported function or target")
}
