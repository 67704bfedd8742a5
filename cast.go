package temporal

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// CastOptions selects how values that do not fit the target dtype are
// handled.
type CastOptions uint8

const (
	// CastStrict fails the whole cast when any value does not fit.
	CastStrict CastOptions = iota
	// CastNonStrict turns values that do not fit into nulls.
	CastNonStrict
	// CastOverflowing wraps integers and truncates floats.
	CastOverflowing
)

func (o CastOptions) String() string {
	switch o {
	case CastStrict:
		return "strict"
	case CastNonStrict:
		return "non-strict"
	case CastOverflowing:
		return "overflowing"
	default:
		return fmt.Sprintf("CastOptions(%d)", o)
	}
}

// Cast converts the series to dtype to. Re-tagging between a temporal
// dtype and its physical integer type shares the buffers.
func (s *Series) Cast(to DataType, opts CastOptions) (*Series, error) {
	out, err := castSeries(s, to, opts)
	if err != nil {
		return nil, &OpError{Op: "cast", Left: s.dtype, Right: to, Err: err}
	}
	return out, nil
}

// CastTimeUnit converts a Duration or Datetime series to another unit,
// scaling the counts. Converting to a coarser unit truncates.
func (s *Series) CastTimeUnit(tu TimeUnit) (*Series, error) {
	switch s.dtype.kind {
	case Duration:
		return s.Cast(DurationType(tu), CastStrict)
	case Datetime:
		return s.Cast(DatetimeType(tu, s.dtype.tz), CastStrict)
	default:
		return nil, unsupported("cast_time_unit", s.dtype, DurationType(tu))
	}
}

// mustCast is for casts that type dispatch has already proven valid.
func mustCast(s *Series, to DataType, opts CastOptions) *Series {
	out, err := castSeries(s, to, opts)
	invariant(err, fmt.Sprintf("cast %s to %s", s.dtype, to))
	return out
}

func castSeries(s *Series, to DataType, opts CastOptions) (*Series, error) {
	from := s.dtype
	if from.Equal(to) {
		return s.retag(to), nil
	}

	if from.kind == Null {
		phys, err := arrowPhysicalType(to)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCastFailure, err)
		}
		return newSeries(s.name, to, array.MakeArrayOfNull(allocator(), phys, s.Len())), nil
	}

	if to.kind == List || from.kind == List {
		if to.kind != List || from.kind != List {
			return nil, ErrCastFailure
		}
		return castList(s, to, opts)
	}

	switch to.kind {
	case Duration:
		switch {
		case from.kind == Duration:
			return rescale(s, from.unit, to.unit, to)
		case from.IsNumeric() || from.kind == Bool:
			return castViaPhysical(s, Int64Type, to, opts)
		}
	case Datetime:
		switch {
		case from.kind == Datetime:
			return rescale(s, from.unit, to.unit, to)
		case from.kind == Date:
			days, err := castViaPhysical(s, Int64Type, Int64Type, opts)
			if err != nil {
				return nil, err
			}
			out, err := days.scaleCounts(opMul, to.unit.TicksPerDay())
			if err != nil {
				return nil, err
			}
			return out.into(to), nil
		case from.IsNumeric() || from.kind == Bool:
			return castViaPhysical(s, Int64Type, to, opts)
		}
	case Date:
		switch {
		case from.kind == Datetime:
			return datetimeToDate(s)
		case from.IsNumeric() || from.kind == Bool:
			return castViaPhysical(s, Int32Type, to, opts)
		}
	case Float64, Float32, Int64, Int32, UInt64, UInt32, Bool:
		if from.IsNumeric() || from.kind == Bool || from.IsTemporal() {
			return castViaPhysical(s, to, to, opts)
		}
	}
	return nil, ErrCastFailure
}

// castViaPhysical casts the physical values of s to the physical type phys
// and tags the result with to.
func castViaPhysical(s *Series, phys, to DataType, opts CastOptions) (*Series, error) {
	target, err := arrowPhysicalType(phys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCastFailure, err)
	}
	arr, err := castPhysical(s.arr, target, opts)
	if err != nil {
		return nil, err
	}
	return newSeries(s.name, to, arr), nil
}

// rescale converts counts between time units and tags the result with to.
func rescale(s *Series, from, to TimeUnit, dt DataType) (*Series, error) {
	if from == to {
		return s.retag(dt), nil
	}
	var (
		out *Series
		err error
	)
	if from.nanos() > to.nanos() {
		out, err = s.physical().scaleCounts(opMul, from.nanos()/to.nanos())
	} else {
		out, err = s.physical().scaleCounts(opDiv, to.nanos()/from.nanos())
	}
	if err != nil {
		return nil, err
	}
	return out.into(dt), nil
}

// scaleCounts multiplies or divides an Int64 series by a constant factor.
// The receiver is released.
func (s *Series) scaleCounts(op arithOp, factor int64) (*Series, error) {
	defer s.Release()
	f := array.NewInt64Builder(allocator())
	defer f.Release()
	f.Append(factor)
	fa := f.NewArray()
	defer fa.Release()

	arr, err := physArith(op, s.arr, fa)
	if err != nil {
		return nil, err
	}
	return newSeries(s.name, Int64Type, arr), nil
}

// datetimeToDate floors each datetime to its day since the epoch.
func datetimeToDate(s *Series) (*Series, error) {
	ticks, ok := s.arr.(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("%w: datetime storage is %s", ErrCastFailure, s.arr.DataType())
	}
	perDay := s.dtype.unit.TicksPerDay()

	b := array.NewInt32Builder(allocator())
	defer b.Release()
	b.Reserve(ticks.Len())
	for i := 0; i < ticks.Len(); i++ {
		if ticks.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(int32(floorDiv(ticks.Value(i), perDay)))
	}
	return newSeries(s.name, DateType, b.NewArray()), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// castList casts the child values of a list series as a whole and
// rebuilds the list over the original offsets and validity.
func castList(s *Series, to DataType, opts CastOptions) (*Series, error) {
	list, ok := s.arr.(*array.List)
	if !ok {
		return nil, fmt.Errorf("%w: list storage is %s", ErrCastFailure, s.arr.DataType())
	}
	fromInner, _ := s.dtype.Inner()
	toInner, _ := to.Inner()

	values := list.ListValues()
	values.Retain()
	child, err := castSeries(newSeries("", fromInner, values), toInner, opts)
	if err != nil {
		values.Release()
		return nil, err
	}
	values.Release()
	defer child.Release()

	phys, err := arrowPhysicalType(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCastFailure, err)
	}
	data := list.Data()
	out := array.NewData(phys, data.Len(), data.Buffers(),
		[]arrow.ArrayData{child.arr.Data()}, data.NullN(), data.Offset())
	defer out.Release()
	return newSeries(s.name, to, array.MakeFromData(out)), nil
}
