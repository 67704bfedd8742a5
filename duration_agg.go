package temporal

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// ============================================================================
// Column Reductions
//
// Reductions run on the physical values. Duration results are truncated
// back to Int64 counts and tagged with the column dtype; plain numeric
// columns return the physical result.
// ============================================================================

// SumReduce returns the sum of the column. The sum of no values is 0.
func (s *Series) SumReduce() (Scalar, error) {
	sc := reduceSum(s.arr, nil)
	switch {
	case s.dtype.kind == Duration:
		return NewScalar(s.dtype, sc.value), nil
	case s.dtype.IsNumeric() || s.dtype.kind == Bool:
		return sc, nil
	default:
		return Scalar{}, unsupported("sum", s.dtype, s.dtype)
	}
}

// MinReduce returns the smallest value, null when there is none.
func (s *Series) MinReduce() (Scalar, error) {
	return s.extremeReduce("min", reduceMin)
}

// MaxReduce returns the largest value, null when there is none.
func (s *Series) MaxReduce() (Scalar, error) {
	return s.extremeReduce("max", reduceMax)
}

func (s *Series) extremeReduce(op string, reduce func(arr arrow.Array, rows []int) Scalar) (Scalar, error) {
	switch {
	case s.dtype.IsNumeric() || s.dtype.kind == Bool || s.dtype.IsTemporal():
		sc := reduce(s.arr, nil)
		return NewScalar(s.dtype, sc.value), nil
	default:
		return Scalar{}, unsupported(op, s.dtype, s.dtype)
	}
}

// MeanReduce returns the mean. A duration mean is truncated to whole ticks.
func (s *Series) MeanReduce() (Scalar, error) {
	return s.floatReduce("mean", s.dtype, func() (float64, bool) {
		return reduceMean(s.arr, nil)
	})
}

// MedianReduce returns the median with linear interpolation.
func (s *Series) MedianReduce() (Scalar, error) {
	return s.floatReduce("median", s.dtype, func() (float64, bool) {
		return reduceMedian(s.arr, nil)
	})
}

// StdReduce returns the standard deviation with ddof delta degrees of
// freedom, keeping the column unit.
func (s *Series) StdReduce(ddof uint8) (Scalar, error) {
	return s.floatReduce("std", s.dtype, func() (float64, bool) {
		return reduceStd(s.arr, nil, ddof)
	})
}

// VarReduce returns the variance with ddof delta degrees of freedom.
//
// A duration column is converted to milliseconds first and the result is
// tagged duration[ms] whatever the column unit was. Mean and std keep the
// column unit; existing callers depend on this difference.
func (s *Series) VarReduce(ddof uint8) (Scalar, error) {
	if s.dtype.kind != Duration {
		return s.floatReduce("var", s.dtype, func() (float64, bool) {
			return reduceVar(s.arr, nil, ddof)
		})
	}

	ms, err := s.Cast(DurationType(Milliseconds), CastStrict)
	if err != nil {
		return Scalar{}, err
	}
	defer ms.Release()
	if s.dtype.unit != Milliseconds {
		log().Debug("variance computed in milliseconds", "series", s.name, "unit", s.dtype.unit.String())
	}
	return ms.floatReduce("var", ms.dtype, func() (float64, bool) {
		return reduceVar(ms.arr, nil, ddof)
	})
}

// QuantileReduce returns the q-th quantile resolved with method.
func (s *Series) QuantileReduce(q float64, method QuantileMethod) (Scalar, error) {
	if !s.dtype.IsNumeric() && s.dtype.kind != Duration {
		return Scalar{}, unsupported("quantile", s.dtype, s.dtype)
	}
	sc, err := reduceQuantile(s.arr, nil, q, method)
	if err != nil {
		return Scalar{}, &OpError{Op: "quantile", Left: s.dtype, Right: s.dtype, Err: err}
	}
	if s.dtype.kind != Duration {
		return sc, nil
	}
	return retagCount(sc, s.dtype), nil
}

// floatReduce evaluates a float statistic and tags it: Float64 for numeric
// columns, truncated counts of dt for durations.
func (s *Series) floatReduce(op string, dt DataType, reduce func() (float64, bool)) (Scalar, error) {
	switch {
	case s.dtype.kind == Duration:
		v, ok := reduce()
		if !ok {
			return NullScalar(dt), nil
		}
		return retagCount(NewScalar(Float64Type, v), dt), nil
	case s.dtype.IsNumeric() || s.dtype.kind == Bool:
		v, ok := reduce()
		if !ok {
			return NullScalar(Float64Type), nil
		}
		return NewScalar(Float64Type, v), nil
	default:
		return Scalar{}, unsupported(op, s.dtype, s.dtype)
	}
}

// retagCount truncates a physical scalar to an Int64 count and tags it with
// dt. Values that do not fit an int64 become null.
func retagCount(sc Scalar, dt DataType) Scalar {
	count, err := sc.CastTo(Int64Type, CastNonStrict)
	invariant(err, fmt.Sprintf("reduce %s to i64", sc.dtype))
	return NewScalar(dt, count.value)
}

// ============================================================================
// Raw Float Statistics
// ============================================================================

// Mean returns the mean of the physical values.
func (s *Series) Mean() (float64, bool) {
	return reduceMean(s.arr, nil)
}

// Median returns the median of the physical values.
func (s *Series) Median() (float64, bool) {
	return reduceMedian(s.arr, nil)
}

// Std returns the standard deviation of the physical values.
func (s *Series) Std(ddof uint8) (float64, bool) {
	return reduceStd(s.arr, nil, ddof)
}

// Var returns the variance of the physical values.
func (s *Series) Var(ddof uint8) (float64, bool) {
	return reduceVar(s.arr, nil, ddof)
}

// SumAsFloat64 returns the sum of the physical values as a float64.
func (s *Series) SumAsFloat64() float64 {
	v, _ := reduceSum(s.arr, nil).Float64()
	return v
}
