package temporal

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// ============================================================================
// Physical Arithmetic
// ============================================================================

type arithOp uint8

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opRem
)

func (op arithOp) String() string {
	switch op {
	case opAdd:
		return "add"
	case opSub:
		return "subtract"
	case opMul:
		return "multiply"
	case opDiv:
		return "divide"
	case opRem:
		return "remainder"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

type arithKernel func(ctx context.Context, opts compute.ArithmeticOptions, left, right compute.Datum) (compute.Datum, error)

func (op arithOp) kernel() arithKernel {
	switch op {
	case opAdd:
		return compute.Add
	case opSub:
		return compute.Subtract
	case opMul:
		return compute.Multiply
	case opDiv:
		return compute.Divide
	default:
		return nil
	}
}

// wrapping arithmetic, matching two's complement integer semantics
var arithOpts = compute.ArithmeticOptions{NoCheckOverflow: true}

// physArith applies op to two physical arrays of the same arrow type.
// A length-1 operand broadcasts to the other operand's length. Nulls
// propagate: an output slot is null when either input slot is. An integer
// zero divisor yields null. Errors are left for the caller to attribute.
func physArith(op arithOp, left, right arrow.Array) (arrow.Array, error) {
	if !arrow.TypeEqual(left.DataType(), right.DataType()) {
		return nil, fmt.Errorf("physical types differ: %s vs %s", left.DataType(), right.DataType())
	}

	left, right, err := broadcast(left, right)
	if err != nil {
		return nil, err
	}
	defer left.Release()
	defer right.Release()

	if op == opRem {
		return remainderKernel(left, right)
	}
	if op == opDiv {
		masked, err := maskZeroDivisors(right)
		if err != nil {
			return nil, err
		}
		defer masked.Release()
		right = masked
	}

	ld, rd := compute.NewDatum(left), compute.NewDatum(right)
	defer ld.Release()
	defer rd.Release()

	out, err := op.kernel()(kernelCtx(), arithOpts, ld, rd)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	return out.(*compute.ArrayDatum).MakeArray(), nil
}

// broadcast returns retained arrays of equal length, expanding a length-1
// side when the lengths differ.
func broadcast(left, right arrow.Array) (arrow.Array, arrow.Array, error) {
	switch {
	case left.Len() == right.Len():
		left.Retain()
		right.Retain()
		return left, right, nil
	case right.Len() == 1:
		r, err := repeatValue(right, left.Len())
		if err != nil {
			return nil, nil, err
		}
		left.Retain()
		return left, r, nil
	case left.Len() == 1:
		l, err := repeatValue(left, right.Len())
		if err != nil {
			return nil, nil, err
		}
		right.Retain()
		return l, right, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, left.Len(), right.Len())
	}
}

// repeatValue materializes element 0 of arr n times. A null element
// yields an all-null array.
func repeatValue(arr arrow.Array, n int) (arrow.Array, error) {
	sc, err := scalar.GetScalar(arr, 0)
	if err != nil {
		return nil, err
	}
	if r, ok := sc.(scalar.Releasable); ok {
		defer r.Release()
	}
	return scalar.MakeArrayFromScalar(sc, n, allocator())
}

// maskZeroDivisors returns a new reference to right with every integer
// zero replaced by null, so integer division by zero yields null as the
// remainder kernel does. Float divisors are returned as they are.
func maskZeroDivisors(right arrow.Array) (arrow.Array, error) {
	var isZero func(i int) bool
	switch r := right.(type) {
	case *array.Int64:
		isZero = func(i int) bool { return r.Value(i) == 0 }
	case *array.Int32:
		isZero = func(i int) bool { return r.Value(i) == 0 }
	case *array.Uint64:
		isZero = func(i int) bool { return r.Value(i) == 0 }
	case *array.Uint32:
		isZero = func(i int) bool { return r.Value(i) == 0 }
	default:
		right.Retain()
		return right, nil
	}

	n := right.Len()
	first := -1
	for i := 0; i < n; i++ {
		if right.IsValid(i) && isZero(i) {
			first = i
			break
		}
	}
	if first < 0 {
		right.Retain()
		return right, nil
	}

	b := array.NewBuilder(allocator(), right.DataType())
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		if i >= first && right.IsValid(i) && isZero(i) {
			b.AppendNull()
			continue
		}
		if err := appendElement(b, right, i); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

// remainderKernel computes the truncated remainder left % right. A zero
// integer divisor produces null; float remainders follow math.Mod.
func remainderKernel(left, right arrow.Array) (arrow.Array, error) {
	n := left.Len()
	switch l := left.(type) {
	case *array.Int64:
		r := right.(*array.Int64)
		b := array.NewInt64Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) || r.Value(i) == 0 {
				b.AppendNull()
				continue
			}
			// MinInt64 % -1 overflows on some platforms
			if r.Value(i) == -1 {
				b.Append(0)
				continue
			}
			b.Append(l.Value(i) % r.Value(i))
		}
		return b.NewArray(), nil
	case *array.Int32:
		r := right.(*array.Int32)
		b := array.NewInt32Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) || r.Value(i) == 0 {
				b.AppendNull()
				continue
			}
			if r.Value(i) == -1 {
				b.Append(0)
				continue
			}
			b.Append(l.Value(i) % r.Value(i))
		}
		return b.NewArray(), nil
	case *array.Uint64:
		r := right.(*array.Uint64)
		b := array.NewUint64Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) || r.Value(i) == 0 {
				b.AppendNull()
				continue
			}
			b.Append(l.Value(i) % r.Value(i))
		}
		return b.NewArray(), nil
	case *array.Uint32:
		r := right.(*array.Uint32)
		b := array.NewUint32Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) || r.Value(i) == 0 {
				b.AppendNull()
				continue
			}
			b.Append(l.Value(i) % r.Value(i))
		}
		return b.NewArray(), nil
	case *array.Float64:
		r := right.(*array.Float64)
		b := array.NewFloat64Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(math.Mod(l.Value(i), r.Value(i)))
		}
		return b.NewArray(), nil
	case *array.Float32:
		r := right.(*array.Float32)
		b := array.NewFloat32Builder(allocator())
		defer b.Release()
		b.Reserve(n)
		for i := 0; i < n; i++ {
			if l.IsNull(i) || r.IsNull(i) {
				b.AppendNull()
				continue
			}
			b.Append(float32(math.Mod(float64(l.Value(i)), float64(r.Value(i)))))
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("remainder: unsupported physical type %s", left.DataType())
	}
}

// ============================================================================
// Physical Casts
// ============================================================================

// castPhysical converts arr to the arrow type to. The result is always a
// new reference; the caller releases it.
func castPhysical(arr arrow.Array, to arrow.DataType, opts CastOptions) (arrow.Array, error) {
	if arrow.TypeEqual(arr.DataType(), to) {
		arr.Retain()
		return arr, nil
	}

	switch opts {
	case CastNonStrict:
		out, nulled, err := nonStrictCast(arr, to)
		if err != nil {
			return nil, err
		}
		if nulled > 0 {
			log().Debug("non-strict cast produced nulls",
				"from", arr.DataType().String(), "to", to.String(), "nulled", nulled)
		}
		return out, nil
	case CastOverflowing:
		out, err := compute.CastArray(kernelCtx(), arr, compute.UnsafeCastOptions(to))
		if err != nil {
			return nil, fmt.Errorf("%w: %s to %s: %v", ErrCastFailure, arr.DataType(), to, err)
		}
		return out, nil
	default:
		out, err := compute.CastArray(kernelCtx(), arr, compute.SafeCastOptions(to))
		if err != nil {
			return nil, fmt.Errorf("%w: %s to %s: %v", ErrCastFailure, arr.DataType(), to, err)
		}
		return out, nil
	}
}

var errNotRepresentable = errors.New("value not representable")

// nonStrictCast converts element by element; values that do not fit the
// target become null. Returns the number of values nulled.
func nonStrictCast(arr arrow.Array, to arrow.DataType) (arrow.Array, int, error) {
	switch to.ID() {
	case arrow.INT64, arrow.INT32, arrow.UINT64, arrow.UINT32,
		arrow.FLOAT64, arrow.FLOAT32, arrow.BOOL:
	default:
		return nil, 0, fmt.Errorf("%w: %s to %s", ErrCastFailure, arr.DataType(), to)
	}
	switch arr.DataType().ID() {
	case arrow.INT64, arrow.INT32, arrow.UINT64, arrow.UINT32,
		arrow.FLOAT64, arrow.FLOAT32, arrow.BOOL:
	default:
		return nil, 0, fmt.Errorf("%w: %s to %s", ErrCastFailure, arr.DataType(), to)
	}

	b := array.NewBuilder(allocator(), to)
	defer b.Release()
	b.Reserve(arr.Len())

	nulled := 0
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		if err := appendConverted(b, arr, i); err != nil {
			b.AppendNull()
			nulled++
		}
	}
	return b.NewArray(), nulled, nil
}

func appendConverted(b array.Builder, arr arrow.Array, i int) error {
	switch b := b.(type) {
	case *array.Int64Builder:
		v, err := int64At(arr, i)
		if err != nil {
			return err
		}
		b.Append(v)
	case *array.Int32Builder:
		v, err := int64At(arr, i)
		if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
			return errNotRepresentable
		}
		b.Append(int32(v))
	case *array.Uint64Builder:
		v, err := uint64At(arr, i)
		if err != nil {
			return err
		}
		b.Append(v)
	case *array.Uint32Builder:
		v, err := uint64At(arr, i)
		if err != nil || v > math.MaxUint32 {
			return errNotRepresentable
		}
		b.Append(uint32(v))
	case *array.Float64Builder:
		v, _ := floatAt(arr, i)
		b.Append(v)
	case *array.Float32Builder:
		v, _ := floatAt(arr, i)
		b.Append(float32(v))
	case *array.BooleanBuilder:
		v, _ := floatAt(arr, i)
		b.Append(v != 0)
	default:
		return errNotRepresentable
	}
	return nil
}

// int64At reads element i as an int64, truncating floats toward zero.
func int64At(arr arrow.Array, i int) (int64, error) {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Uint64:
		if a.Value(i) > math.MaxInt64 {
			return 0, errNotRepresentable
		}
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Boolean:
		if a.Value(i) {
			return 1, nil
		}
		return 0, nil
	default:
		f, ok := floatAt(arr, i)
		if !ok {
			return 0, errNotRepresentable
		}
		return floatToInt64(f)
	}
}

func uint64At(arr arrow.Array, i int) (uint64, error) {
	switch a := arr.(type) {
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Uint32:
		return uint64(a.Value(i)), nil
	case *array.Int64:
		if a.Value(i) < 0 {
			return 0, errNotRepresentable
		}
		return uint64(a.Value(i)), nil
	case *array.Int32:
		if a.Value(i) < 0 {
			return 0, errNotRepresentable
		}
		return uint64(a.Value(i)), nil
	case *array.Boolean:
		if a.Value(i) {
			return 1, nil
		}
		return 0, nil
	default:
		f, ok := floatAt(arr, i)
		if !ok || math.IsNaN(f) || f <= -1 || f >= math.MaxUint64 {
			return 0, errNotRepresentable
		}
		return uint64(f), nil
	}
}

// floatToInt64 truncates f toward zero; NaN and values outside the int64
// range are not representable.
func floatToInt64(f float64) (int64, error) {
	// 2^63 is exactly representable as a float64; MaxInt64 is not.
	if math.IsNaN(f) || f < math.MinInt64 || f >= 1<<63 {
		return 0, errNotRepresentable
	}
	return int64(f), nil
}
