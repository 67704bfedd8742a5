package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Slicing
// ============================================================================

func TestSeries_Slice(t *testing.T) {
	s := durations("s", Microseconds, 1, 2, 3, 4, 5)
	defer s.Release()

	tests := []struct {
		name   string
		offset int64
		length int
		want   []int64
	}{
		{"middle", 1, 2, []int64{2, 3}},
		{"negative offset", -2, 5, []int64{4, 5}},
		{"past end", 4, 10, []int64{5}},
		{"offset past end", 10, 2, []int64{}},
		{"zero length", 2, 0, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Slice(tt.offset, tt.length)
			defer out.Release()
			assert.Equal(t, s.DType(), out.DType())
			assert.Equal(t, tt.want, out.ToInt64())
		})
	}
}

func TestSeries_SplitAt(t *testing.T) {
	s := durations("s", Milliseconds, 1, 2, 3, 4)
	defer s.Release()

	head, tail := s.SplitAt(-1)
	defer head.Release()
	defer tail.Release()
	assert.Equal(t, []int64{1, 2, 3}, head.ToInt64())
	assert.Equal(t, []int64{4}, tail.ToInt64())
	assert.Equal(t, DurationType(Milliseconds), tail.DType())
}

// ============================================================================
// Selection
// ============================================================================

func TestSeries_Filter(t *testing.T) {
	s := durations("s", Milliseconds, 1, nil, 3, 4)
	defer s.Release()

	out, err := s.Filter([]bool{true, true, false, true})
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, DurationType(Milliseconds), out.DType())
	assert.Equal(t, []any{int64(1), nil, int64(4)}, values(out))

	_, err = s.Filter([]bool{true})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestSeries_Take(t *testing.T) {
	s := durations("s", Nanoseconds, 10, 20, nil)
	defer s.Release()

	idx := NewSeriesInt64WithNulls("idx", []int64{2, 0, 0, 1}, []bool{true, true, false, true})
	defer idx.Release()
	out, err := s.Take(idx)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, DurationType(Nanoseconds), out.DType())
	assert.Equal(t, []any{nil, int64(10), nil, int64(20)}, values(out))

	_, err = s.TakeSlice([]uint32{3})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	f := NewSeriesFloat64("f", []float64{0})
	defer f.Release()
	_, err = s.Take(f)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestSeries_NewFromIndex(t *testing.T) {
	s := durations("s", Milliseconds, 7, nil)
	defer s.Release()

	out, err := s.NewFromIndex(0, 3)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, DurationType(Milliseconds), out.DType())
	assert.Equal(t, []int64{7, 7, 7}, out.ToInt64())

	nulls, err := s.NewFromIndex(1, 2)
	require.NoError(t, err)
	defer nulls.Release()
	assert.Equal(t, 2, nulls.NullCount())

	_, err = s.NewFromIndex(5, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

// ============================================================================
// Append / Extend
// ============================================================================

func TestSeries_Append(t *testing.T) {
	withCheckedAllocator(t)

	a := durations("a", Milliseconds, 1, 2)
	defer a.Release()
	b := durations("b", Milliseconds, nil, 4)

	require.NoError(t, a.AppendOwned(b))
	assert.Equal(t, []any{int64(1), int64(2), nil, int64(4)}, values(a))
	assert.Equal(t, "a", a.Name())

	c := durations("c", Milliseconds, 5)
	defer c.Release()
	require.NoError(t, a.Extend(c))
	assert.Equal(t, 5, a.Len())
}

func TestSeries_AppendDtypeMismatch(t *testing.T) {
	a := durations("a", Milliseconds, 1)
	defer a.Release()
	b := durations("b", Nanoseconds, 1)
	defer b.Release()

	err := a.Append(b)
	assert.ErrorIs(t, err, ErrDtypeMismatch)
	assert.Equal(t, 1, a.Len(), "failed append leaves the series unchanged")
}

func TestSeries_RechunkShrink(t *testing.T) {
	s := durations("s", Microseconds, 1, 2, 3, 4)
	defer s.Release()

	part := s.Slice(1, 2)
	defer part.Release()
	require.NoError(t, part.ShrinkToFit())
	assert.Equal(t, []int64{2, 3}, part.ToInt64())
	assert.Equal(t, 0, part.Array().Data().Offset())

	r := s.Rechunk()
	defer r.Release()
	assert.Equal(t, s.ToInt64(), r.ToInt64())
	assert.Equal(t, s.DType(), r.DType())
}

// exhaustedAllocator fails every allocation.
type exhaustedAllocator struct{}

func (exhaustedAllocator) Allocate(int) []byte           { panic("out of memory") }
func (exhaustedAllocator) Reallocate(int, []byte) []byte { panic("out of memory") }
func (exhaustedAllocator) Free([]byte)                   {}

func TestShrinkToFit_AllocationFailure(t *testing.T) {
	s := durations("d", Milliseconds, 1, 2, 3, 4)
	defer s.Release()
	part := s.Slice(1, 2)
	defer part.Release()

	SetAllocator(exhaustedAllocator{})
	err := part.ShrinkToFit()
	SetAllocator(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "shrink_to_fit")
	assert.Equal(t, []int64{2, 3}, part.ToInt64())
	assert.Equal(t, 1, part.Array().Data().Offset())
}

// ============================================================================
// Sorting
// ============================================================================

func TestSeries_Sort(t *testing.T) {
	s := durations("s", Milliseconds, 3, nil, -1, 2)
	defer s.Release()

	asc, err := s.Sort(false)
	require.NoError(t, err)
	defer asc.Release()
	assert.Equal(t, DurationType(Milliseconds), asc.DType())
	assert.Equal(t, []any{nil, int64(-1), int64(2), int64(3)}, values(asc))

	desc, err := s.SortWith(SortOptions{Descending: true, NullsLast: true})
	require.NoError(t, err)
	defer desc.Release()
	assert.Equal(t, []any{int64(3), int64(2), int64(-1), nil}, values(desc))

	idx := s.ArgSort(SortOptions{NullsLast: true})
	defer idx.Release()
	assert.Equal(t, []any{uint32(2), uint32(3), uint32(0), uint32(1)}, values(idx))
}

func TestSeries_ArgSortStable(t *testing.T) {
	s := durations("s", Milliseconds, 1, 0, 1, 0)
	defer s.Release()
	idx := s.ArgSort(SortOptions{})
	defer idx.Release()
	assert.Equal(t, []any{uint32(1), uint32(3), uint32(0), uint32(2)}, values(idx))
}

func TestSeries_Reverse(t *testing.T) {
	s := durations("s", Milliseconds, 1, nil, 3)
	defer s.Release()
	out, err := s.Reverse()
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{int64(3), nil, int64(1)}, values(out))
}

func TestSeries_Shift(t *testing.T) {
	s := durations("s", Milliseconds, 1, 2, 3)
	defer s.Release()

	tests := []struct {
		periods int64
		want    []any
	}{
		{1, []any{nil, int64(1), int64(2)}},
		{-1, []any{int64(2), int64(3), nil}},
		{0, []any{int64(1), int64(2), int64(3)}},
		{3, []any{nil, nil, nil}},
		{-5, []any{nil, nil, nil}},
	}
	for _, tt := range tests {
		out, err := s.Shift(tt.periods)
		require.NoError(t, err)
		assert.Equal(t, DurationType(Milliseconds), out.DType())
		assert.Equal(t, tt.want, values(out), "periods=%d", tt.periods)
		out.Release()
	}
}

// ============================================================================
// Uniqueness and Masks
// ============================================================================

func TestSeries_Unique(t *testing.T) {
	s := durations("s", Milliseconds, 3, 1, nil, 3, nil, 2)
	defer s.Release()

	u, err := s.Unique()
	require.NoError(t, err)
	defer u.Release()
	assert.Equal(t, DurationType(Milliseconds), u.DType())
	assert.Equal(t, 4, u.Len())

	n, err := s.NUnique()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	idx := s.ArgUnique()
	defer idx.Release()
	assert.Equal(t, []any{uint32(0), uint32(1), uint32(2), uint32(5)}, values(idx))
}

func TestSeries_NullMasks(t *testing.T) {
	s := durations("s", Milliseconds, 1, nil)
	defer s.Release()

	isNull := s.IsNull()
	defer isNull.Release()
	assert.Equal(t, BoolType, isNull.DType())
	assert.Equal(t, []any{false, true}, values(isNull))

	notNull := s.IsNotNull()
	defer notNull.Release()
	assert.Equal(t, []any{true, false}, values(notNull))
}

func TestSeries_ZipWith(t *testing.T) {
	a := durations("a", Milliseconds, 1, 2, nil)
	defer a.Release()
	b := durations("b", Milliseconds, 9)
	defer b.Release()

	out, err := a.ZipWith([]bool{true, false, true}, b)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, DurationType(Milliseconds), out.DType())
	assert.Equal(t, []any{int64(1), int64(9), nil}, values(out))

	ns := durations("ns", Nanoseconds, 1)
	defer ns.Release()
	_, err = a.ZipWith([]bool{true, true, true}, ns)
	assert.ErrorIs(t, err, ErrDtypeMismatch)
}

func TestSeries_EqualElement(t *testing.T) {
	a := durations("a", Milliseconds, 1, nil)
	defer a.Release()
	b := durations("b", Milliseconds, nil, 1)
	defer b.Release()
	c := durations("c", Microseconds, 1)
	defer c.Release()

	assert.True(t, a.EqualElement(0, 1, b))
	assert.True(t, a.EqualElement(1, 0, b), "nulls are equal")
	assert.False(t, a.EqualElement(0, 0, b))
	assert.False(t, a.EqualElement(0, 0, c), "different units never compare equal")
}
