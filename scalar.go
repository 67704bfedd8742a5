package temporal

import (
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// Scalar is a single value with its logical dtype. The value holds the
// physical representation (int64 counts for durations, int32 days for
// dates) or nil for null.
type Scalar struct {
	dtype DataType
	value any
}

// NewScalar pairs a physical value with a dtype. value must be one of
// int64, int32, uint64, uint32, float64, float32, bool or nil.
func NewScalar(dtype DataType, value any) Scalar {
	return Scalar{dtype: dtype, value: value}
}

// NullScalar returns a null of the given dtype.
func NullScalar(dtype DataType) Scalar {
	return Scalar{dtype: dtype}
}

// DurationScalar returns a duration scalar of count ticks in unit tu.
func DurationScalar(count int64, tu TimeUnit) Scalar {
	return Scalar{dtype: DurationType(tu), value: count}
}

func (sc Scalar) DType() DataType { return sc.dtype }
func (sc Scalar) IsNull() bool    { return sc.value == nil }
func (sc Scalar) Value() any      { return sc.value }

// Int64 returns the value as int64. Floats truncate toward zero; NaN and
// out-of-range floats report false.
func (sc Scalar) Int64() (int64, bool) {
	switch v := sc.value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		i, err := floatToInt64(v)
		return i, err == nil
	case float32:
		i, err := floatToInt64(float64(v))
		return i, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Float64 returns the value as float64.
func (sc Scalar) Float64() (float64, bool) {
	switch v := sc.value.(type) {
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Duration returns a duration scalar as a time.Duration.
func (sc Scalar) Duration() (time.Duration, bool) {
	if sc.dtype.kind != Duration {
		return 0, false
	}
	v, ok := sc.value.(int64)
	if !ok {
		return 0, false
	}
	return time.Duration(v * sc.dtype.unit.nanos()), true
}

// CastTo converts the scalar with the same rules as Series.Cast.
func (sc Scalar) CastTo(to DataType, opts CastOptions) (Scalar, error) {
	if sc.dtype.Equal(to) {
		return sc, nil
	}
	s, err := ScalarSeries("", sc, 1)
	if err != nil {
		return Scalar{}, err
	}
	defer s.Release()
	out, err := s.Cast(to, opts)
	if err != nil {
		return Scalar{}, err
	}
	defer out.Release()
	return out.scalarAt(0), nil
}

func (sc Scalar) String() string {
	if sc.value == nil {
		return fmt.Sprintf("null (%s)", sc.dtype)
	}
	if d, ok := sc.Duration(); ok {
		return fmt.Sprintf("%s (%s)", d, sc.dtype)
	}
	return fmt.Sprintf("%v (%s)", sc.value, sc.dtype)
}

// ScalarSeries broadcasts sc into a series of length n.
func ScalarSeries(name string, sc Scalar, n int) (*Series, error) {
	phys, err := arrowPhysicalType(sc.dtype)
	if err != nil {
		return nil, err
	}
	b := array.NewBuilder(allocator(), phys)
	defer b.Release()
	b.Reserve(n)

	if sc.value == nil {
		b.AppendNulls(n)
		return newSeries(name, sc.dtype, b.NewArray()), nil
	}

	for i := 0; i < n; i++ {
		if err := appendValue(b, sc.value); err != nil {
			return nil, fmt.Errorf("scalar %s: %w", sc, err)
		}
	}
	return newSeries(name, sc.dtype, b.NewArray()), nil
}

func appendValue(b array.Builder, v any) error {
	switch b := b.(type) {
	case *array.Int64Builder:
		if x, ok := v.(int64); ok {
			b.Append(x)
			return nil
		}
	case *array.Int32Builder:
		if x, ok := v.(int32); ok {
			b.Append(x)
			return nil
		}
	case *array.Uint64Builder:
		if x, ok := v.(uint64); ok {
			b.Append(x)
			return nil
		}
	case *array.Uint32Builder:
		if x, ok := v.(uint32); ok {
			b.Append(x)
			return nil
		}
	case *array.Float64Builder:
		if x, ok := v.(float64); ok {
			b.Append(x)
			return nil
		}
	case *array.Float32Builder:
		if x, ok := v.(float32); ok {
			b.Append(x)
			return nil
		}
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			b.Append(x)
			return nil
		}
	}
	return fmt.Errorf("%w: %T does not match %s", ErrDtypeMismatch, v, b.Type())
}

// scalarAt returns element i as a Scalar of the series dtype.
func (s *Series) scalarAt(i int) Scalar {
	return Scalar{dtype: s.dtype, value: s.Get(i)}
}
