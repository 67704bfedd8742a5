package temporal

import (
	"fmt"
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// QuantileMethod selects how a quantile between two observations is
// resolved.
type QuantileMethod uint8

const (
	Nearest QuantileMethod = iota
	Lower
	Higher
	Midpoint
	Linear
	Equiprobable
)

func (m QuantileMethod) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Lower:
		return "lower"
	case Higher:
		return "higher"
	case Midpoint:
		return "midpoint"
	case Linear:
		return "linear"
	case Equiprobable:
		return "equiprobable"
	default:
		return fmt.Sprintf("QuantileMethod(%d)", m)
	}
}

// interpolates reports whether the method can produce a value that is not
// one of the observations.
func (m QuantileMethod) interpolates() bool {
	return m == Midpoint || m == Linear
}

// ============================================================================
// Physical Reductions
//
// Every reduction takes a row subset; nil means all rows. Nulls are
// skipped.
// ============================================================================

func forEachValid(arr arrow.Array, rows []int, fn func(i int)) {
	if rows == nil {
		for i := 0; i < arr.Len(); i++ {
			if arr.IsValid(i) {
				fn(i)
			}
		}
		return
	}
	for _, i := range rows {
		if arr.IsValid(i) {
			fn(i)
		}
	}
}

// reduceSum returns the sum in the widened physical type: Int64 for signed
// integers and booleans, UInt64 for unsigned, Float64 for floats. The sum of
// no values is 0.
func reduceSum(arr arrow.Array, rows []int) Scalar {
	switch arr.(type) {
	case *array.Float64, *array.Float32:
		var sum float64
		forEachValid(arr, rows, func(i int) {
			v, _ := floatAt(arr, i)
			sum += v
		})
		return NewScalar(Float64Type, sum)
	case *array.Uint64, *array.Uint32:
		var sum uint64
		forEachValid(arr, rows, func(i int) {
			v, _ := uint64At(arr, i)
			sum += v
		})
		return NewScalar(UInt64Type, sum)
	default:
		var sum int64
		forEachValid(arr, rows, func(i int) {
			v, _ := int64At(arr, i)
			sum += v
		})
		return NewScalar(Int64Type, sum)
	}
}

// reduceMin returns the smallest value in the array's own physical type, or
// null when there are no valid values.
func reduceMin(arr arrow.Array, rows []int) Scalar {
	return reduceExtreme(arr, rows, -1)
}

// reduceMax returns the largest value in the array's own physical type.
func reduceMax(arr arrow.Array, rows []int) Scalar {
	return reduceExtreme(arr, rows, 1)
}

func reduceExtreme(arr arrow.Array, rows []int, sign int) Scalar {
	dt, err := dataTypeFromArrow(arr.DataType())
	if err != nil {
		return NullScalar(NullType)
	}
	best := -1
	forEachValid(arr, rows, func(i int) {
		if best < 0 || sign*compareValues(arr, i, best) > 0 {
			best = i
		}
	})
	if best < 0 {
		return NullScalar(dt)
	}
	return NewScalar(dt, valueAt(arr, best))
}

// reduceMean returns the arithmetic mean as a float64.
func reduceMean(arr arrow.Array, rows []int) (float64, bool) {
	var (
		sum   float64
		count int
	)
	forEachValid(arr, rows, func(i int) {
		v, _ := floatAt(arr, i)
		sum += v
		count++
	})
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// reduceVar returns the variance with ddof delta degrees of freedom. Null
// when there are no more values than ddof.
func reduceVar(arr arrow.Array, rows []int, ddof uint8) (float64, bool) {
	mean, ok := reduceMean(arr, rows)
	if !ok {
		return 0, false
	}
	var (
		ss    float64
		count int
	)
	forEachValid(arr, rows, func(i int) {
		v, _ := floatAt(arr, i)
		d := v - mean
		ss += d * d
		count++
	})
	if count <= int(ddof) {
		return 0, false
	}
	return ss / float64(count-int(ddof)), true
}

// reduceStd returns the standard deviation with ddof delta degrees of freedom.
func reduceStd(arr arrow.Array, rows []int, ddof uint8) (float64, bool) {
	v, ok := reduceVar(arr, rows, ddof)
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// reduceQuantile returns the q-th quantile. Integer inputs with a
// non-interpolating method yield an exact Int64 scalar; everything else
// yields Float64.
func reduceQuantile(arr arrow.Array, rows []int, q float64, method QuantileMethod) (Scalar, error) {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return Scalar{}, fmt.Errorf("%w: got %v", ErrInvalidQuantile, q)
	}

	isFloat := false
	switch arr.(type) {
	case *array.Float64, *array.Float32:
		isFloat = true
	}

	if !isFloat && !method.interpolates() {
		vals := make([]int64, 0, arr.Len())
		forEachValid(arr, rows, func(i int) {
			v, _ := int64At(arr, i)
			vals = append(vals, v)
		})
		if len(vals) == 0 {
			return NullScalar(Int64Type), nil
		}
		slices.Sort(vals)
		lo, _, _ := quantileIndex(len(vals), q, method)
		return NewScalar(Int64Type, vals[lo]), nil
	}

	vals := make([]float64, 0, arr.Len())
	forEachValid(arr, rows, func(i int) {
		v, _ := floatAt(arr, i)
		vals = append(vals, v)
	})
	if len(vals) == 0 {
		return NullScalar(Float64Type), nil
	}
	slices.Sort(vals)

	lo, hi, frac := quantileIndex(len(vals), q, method)
	switch method {
	case Midpoint:
		if hi == lo {
			return NewScalar(Float64Type, vals[lo]), nil
		}
		return NewScalar(Float64Type, (vals[lo]+vals[hi])/2), nil
	case Linear:
		if hi == lo {
			return NewScalar(Float64Type, vals[lo]), nil
		}
		return NewScalar(Float64Type, vals[lo]+(vals[hi]-vals[lo])*frac), nil
	default:
		return NewScalar(Float64Type, vals[lo]), nil
	}
}

// reduceMedian is the 0.5 quantile with linear interpolation.
func reduceMedian(arr arrow.Array, rows []int) (float64, bool) {
	sc, err := reduceQuantile(arr, rows, 0.5, Linear)
	if err != nil || sc.IsNull() {
		return 0, false
	}
	return sc.Float64()
}

// quantileIndex returns the base index, the upper neighbour index and the
// fractional position between them for n sorted values.
func quantileIndex(n int, q float64, method QuantileMethod) (lo, hi int, frac float64) {
	floatIdx := float64(n-1) * q
	var idx int
	switch method {
	case Nearest:
		idx = int(math.Round(floatIdx))
	case Higher:
		idx = int(math.Ceil(floatIdx))
	case Equiprobable:
		idx = int(math.Ceil(float64(n)*q)) - 1
	default:
		idx = int(math.Floor(floatIdx))
	}
	idx = max(0, min(idx, n-1))

	hi = min(int(math.Ceil(floatIdx)), n-1)
	if hi < idx {
		hi = idx
	}
	return idx, hi, floatIdx - float64(idx)
}

// ============================================================================
// Element Access
// ============================================================================

// valueAt returns the physical value at i as an interface.
func valueAt(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Uint64:
		return a.Value(i)
	case *array.Uint32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	default:
		return nil
	}
}

// compareValues orders two valid elements of the same array. NaN sorts
// after every other float.
func compareValues(arr arrow.Array, i, j int) int {
	switch a := arr.(type) {
	case *array.Int64:
		return cmpOrdered(a.Value(i), a.Value(j))
	case *array.Int32:
		return cmpOrdered(a.Value(i), a.Value(j))
	case *array.Uint64:
		return cmpOrdered(a.Value(i), a.Value(j))
	case *array.Uint32:
		return cmpOrdered(a.Value(i), a.Value(j))
	case *array.Float64:
		return cmpFloat(a.Value(i), a.Value(j))
	case *array.Float32:
		return cmpFloat(float64(a.Value(i)), float64(a.Value(j)))
	case *array.Boolean:
		x, y := a.Value(i), a.Value(j)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	default:
		return 0
	}
}

func cmpOrdered[T int64 | int32 | uint64 | uint32](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func cmpFloat(x, y float64) int {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn:
		return 1
	case yn:
		return -1
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
