package temporal

import (
	"errors"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCast_PhysicalRoundTrip(t *testing.T) {
	withCheckedAllocator(t)

	for _, tu := range []TimeUnit{Milliseconds, Microseconds, Nanoseconds} {
		d := durations("d", tu, 1, nil, -3, math.MaxInt32)

		phys, err := d.Cast(Int64Type, CastStrict)
		require.NoError(t, err)
		assert.Equal(t, Int64Type, phys.DType())
		assert.Same(t, d.Array(), phys.Array(), "re-tag shares the array")

		back, err := phys.Cast(d.DType(), CastStrict)
		require.NoError(t, err)
		assert.Equal(t, d.DType(), back.DType())
		assert.Equal(t, values(d), values(back))

		back.Release()
		phys.Release()
		d.Release()
	}
}

func TestCast_TimeUnit(t *testing.T) {
	tests := []struct {
		name string
		from TimeUnit
		to   TimeUnit
		in   []any
		want []any
	}{
		{"ms to us", Milliseconds, Microseconds, []any{1, nil, -3}, []any{int64(1000), nil, int64(-3000)}},
		{"ms to ns", Milliseconds, Nanoseconds, []any{2}, []any{int64(2_000_000)}},
		{"us to ms truncates", Microseconds, Milliseconds, []any{1500, -1500, 999}, []any{int64(1), int64(-1), int64(0)}},
		{"ns to us", Nanoseconds, Microseconds, []any{123_456}, []any{int64(123)}},
		{"same unit", Nanoseconds, Nanoseconds, []any{7, nil}, []any{int64(7), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := durations("d", tt.from, tt.in...)
			defer d.Release()

			out, err := d.CastTimeUnit(tt.to)
			require.NoError(t, err)
			defer out.Release()

			assert.Equal(t, DurationType(tt.to), out.DType())
			assert.Equal(t, tt.want, values(out))
			assert.Equal(t, "d", out.Name())
		})
	}
}

func TestCast_TimeUnitRejectsNonTemporal(t *testing.T) {
	s := NewSeriesInt64("i", []int64{1})
	defer s.Release()
	_, err := s.CastTimeUnit(Milliseconds)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestCast_NumericToDuration(t *testing.T) {
	f := NewSeriesFloat64WithNulls("f", []float64{1, 2, 0}, []bool{true, true, false})
	defer f.Release()

	d, err := f.Cast(DurationType(Microseconds), CastStrict)
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, DurationType(Microseconds), d.DType())
	assert.Equal(t, []any{int64(1), int64(2), nil}, values(d))
}

func TestCast_Strictness(t *testing.T) {
	f := NewSeriesFloat64("f", []float64{1.5, math.NaN(), 4})
	defer f.Release()

	_, err := f.Cast(Int64Type, CastStrict)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCastFailure)
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "cast", opErr.Op)

	lenient, err := f.Cast(Int64Type, CastNonStrict)
	require.NoError(t, err)
	defer lenient.Release()
	assert.Equal(t, []any{int64(1), nil, int64(4)}, values(lenient))
}

func TestCast_Overflow(t *testing.T) {
	big := NewSeriesInt64("i", []int64{1<<32 + 5, 7})
	defer big.Release()

	_, err := big.Cast(Int32Type, CastStrict)
	assert.ErrorIs(t, err, ErrCastFailure)

	nulled, err := big.Cast(Int32Type, CastNonStrict)
	require.NoError(t, err)
	defer nulled.Release()
	assert.Equal(t, []any{nil, int32(7)}, values(nulled))

	wrapped, err := big.Cast(Int32Type, CastOverflowing)
	require.NoError(t, err)
	defer wrapped.Release()
	assert.Equal(t, []any{int32(5), int32(7)}, values(wrapped))
}

func TestCast_DateDatetime(t *testing.T) {
	dates := NewSeriesDate("d", []int32{1, 0, -1}, []bool{true, false, true})
	defer dates.Release()

	ts, err := dates.Cast(DatetimeType(Milliseconds, ""), CastStrict)
	require.NoError(t, err)
	defer ts.Release()
	assert.Equal(t, []any{int64(86_400_000), nil, int64(-86_400_000)}, values(ts))

	stamps := NewSeriesDatetime("t", []int64{-1, 86_400_001, 0}, nil, Milliseconds, "")
	defer stamps.Release()
	days, err := stamps.Cast(DateType, CastStrict)
	require.NoError(t, err)
	defer days.Release()
	assert.Equal(t, []any{int32(-1), int32(1), int32(0)}, values(days))
}

func TestCast_DurationToFloat(t *testing.T) {
	d := durations("d", Nanoseconds, 3, nil)
	defer d.Release()

	f, err := d.Cast(Float64Type, CastStrict)
	require.NoError(t, err)
	defer f.Release()
	assert.Equal(t, []any{float64(3), nil}, values(f))
}

func TestCast_Unsupported(t *testing.T) {
	d := durations("d", Milliseconds, 1)
	defer d.Release()

	_, err := d.Cast(DateType, CastStrict)
	assert.ErrorIs(t, err, ErrCastFailure)

	_, err = d.Cast(ListType(Int64Type), CastStrict)
	assert.ErrorIs(t, err, ErrCastFailure)
}

func TestCast_NullSeries(t *testing.T) {
	arr := array.NewNull(3)
	defer arr.Release()
	s, err := NewSeriesFromArrow("n", arr)
	require.NoError(t, err)
	defer s.Release()
	assert.Equal(t, NullType, s.DType())

	d, err := s.Cast(DurationType(Milliseconds), CastStrict)
	require.NoError(t, err)
	defer d.Release()
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 3, d.NullCount())
}

func TestCast_List(t *testing.T) {
	b := array.NewListBuilder(memory.DefaultAllocator, arrow.PrimitiveTypes.Int64)
	defer b.Release()
	vb := b.ValueBuilder().(*array.Int64Builder)
	b.Append(true)
	vb.AppendValues([]int64{1, 2}, nil)
	b.AppendNull()
	b.Append(true)
	vb.Append(3)
	arr := b.NewArray()
	defer arr.Release()

	s, err := NewSeriesFromArrow("l", arr)
	require.NoError(t, err)
	defer s.Release()

	want := ListType(DurationType(Microseconds))
	out, err := s.Cast(want, CastStrict)
	require.NoError(t, err)
	defer out.Release()

	assert.True(t, out.DType().Equal(want))
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 1, out.NullCount())

	list := out.Array().(*array.List)
	assert.Equal(t, []int64{1, 2, 3}, list.ListValues().(*array.Int64).Int64Values())
}

func TestScalar_CastTo(t *testing.T) {
	sc := DurationScalar(1500, Microseconds)
	ms, err := sc.CastTo(DurationType(Milliseconds), CastStrict)
	require.NoError(t, err)
	assert.Equal(t, DurationType(Milliseconds), ms.DType())
	assert.Equal(t, int64(1), ms.Value())

	null, err := NullScalar(DurationType(Nanoseconds)).CastTo(Float64Type, CastStrict)
	require.NoError(t, err)
	assert.True(t, null.IsNull())
	assert.Equal(t, Float64Type, null.DType())

	f, err := NewScalar(Float64Type, math.NaN()).CastTo(Int64Type, CastNonStrict)
	require.NoError(t, err)
	assert.True(t, f.IsNull())
}
