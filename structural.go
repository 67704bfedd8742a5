package temporal

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
)

// Structural operations work on the physical array and keep the dtype.

// Clone returns a new series sharing the same buffers.
func (s *Series) Clone() *Series {
	return s.retag(s.dtype)
}

// Slice returns length elements starting at offset. A negative offset
// counts from the end. Out-of-range bounds are clamped. The result shares
// the buffers.
func (s *Series) Slice(offset int64, length int) *Series {
	start, stop := sliceOffsets(offset, length, s.Len())
	return newSeries(s.name, s.dtype, array.NewSlice(s.arr, int64(start), int64(stop)))
}

func sliceOffsets(offset int64, length, arrayLen int) (int, int) {
	n := int64(arrayLen)
	if offset < 0 {
		offset += n
	}
	start := min(max(offset, 0), n)
	stop := min(max(offset+int64(length), 0), n)
	if stop < start {
		stop = start
	}
	return int(start), int(stop)
}

// SplitAt splits the series at offset; a negative offset counts from the
// end.
func (s *Series) SplitAt(offset int64) (*Series, *Series) {
	start, _ := sliceOffsets(offset, 0, s.Len())
	head := newSeries(s.name, s.dtype, array.NewSlice(s.arr, 0, int64(start)))
	tail := newSeries(s.name, s.dtype, array.NewSlice(s.arr, int64(start), int64(s.Len())))
	return head, tail
}

// Filter keeps the elements where mask is true.
func (s *Series) Filter(mask []bool) (*Series, error) {
	if len(mask) != s.Len() {
		return nil, fmt.Errorf("filter: %w: mask %d vs series %d", ErrLengthMismatch, len(mask), s.Len())
	}
	b := array.NewBooleanBuilder(allocator())
	defer b.Release()
	b.AppendValues(mask, nil)
	m := b.NewArray()
	defer m.Release()

	out, err := compute.FilterArray(kernelCtx(), s.arr, m, *compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return newSeries(s.name, s.dtype, out), nil
}

// Take gathers elements by the indices in idx, an integer series. A null
// index produces a null element.
func (s *Series) Take(idx *Series) (*Series, error) {
	if !idx.dtype.IsInteger() {
		return nil, unsupported("take", s.dtype, idx.dtype)
	}
	for i := 0; i < idx.Len(); i++ {
		if !idx.IsValid(i) {
			continue
		}
		v, err := int64At(idx.arr, i)
		if err != nil || v < 0 || v >= int64(s.Len()) {
			return nil, fmt.Errorf("take: %w: index %d, length %d", ErrOutOfBounds, v, s.Len())
		}
	}
	out, err := compute.TakeArray(kernelCtx(), s.arr, idx.arr)
	if err != nil {
		return nil, fmt.Errorf("take: %w", err)
	}
	return newSeries(s.name, s.dtype, out), nil
}

// TakeSlice gathers elements by position.
func (s *Series) TakeSlice(indices []uint32) (*Series, error) {
	idx := NewSeriesUInt32("", indices)
	defer idx.Release()
	return s.Take(idx)
}

// NewFromIndex returns a series of length copies of element index.
func (s *Series) NewFromIndex(index, length int) (*Series, error) {
	if index < 0 || index >= s.Len() {
		return nil, fmt.Errorf("new_from_index: %w: index %d, length %d", ErrOutOfBounds, index, s.Len())
	}
	one := array.NewSlice(s.arr, int64(index), int64(index+1))
	defer one.Release()
	out, err := repeatValue(one, length)
	if err != nil {
		return nil, err
	}
	return newSeries(s.name, s.dtype, out), nil
}

// Append concatenates other onto s in place. The dtypes must be equal,
// unit included.
func (s *Series) Append(other *Series) error {
	if !s.dtype.Equal(other.dtype) {
		return dtypeMismatch("append", s.dtype, other.dtype)
	}
	out, err := array.Concatenate([]arrow.Array{s.arr, other.arr}, allocator())
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	s.arr.Release()
	s.arr = out
	return nil
}

// AppendOwned appends other and releases it.
func (s *Series) AppendOwned(other *Series) error {
	defer other.Release()
	return s.Append(other)
}

// Extend appends other into contiguous memory.
func (s *Series) Extend(other *Series) error {
	return s.Append(other)
}

// Rechunk returns the series in one contiguous array. Series here are
// always single-array, so this shares the buffers.
func (s *Series) Rechunk() *Series {
	return s.Clone()
}

// ShrinkToFit copies the values into buffers sized to the current length,
// dropping any slack left by slicing. On error s is left unchanged.
func (s *Series) ShrinkToFit() error {
	out, err := array.Concatenate([]arrow.Array{s.arr}, allocator())
	if err != nil {
		return fmt.Errorf("shrink_to_fit: %w", err)
	}
	s.arr.Release()
	s.arr = out
	return nil
}

// ============================================================================
// Sorting
// ============================================================================

// SortOptions controls ordering.
type SortOptions struct {
	Descending bool
	NullsLast  bool
}

// ArgSort returns the permutation that sorts the series. The sort is
// stable.
func (s *Series) ArgSort(opts SortOptions) *Series {
	idx := make([]uint32, s.Len())
	for i := range idx {
		idx[i] = uint32(i)
	}
	slices.SortStableFunc(idx, func(a, b uint32) int {
		return compareRows(s.arr, int(a), int(b), opts)
	})
	return NewSeriesUInt32(s.name, idx)
}

func compareRows(arr arrow.Array, i, j int, opts SortOptions) int {
	iv, jv := arr.IsValid(i), arr.IsValid(j)
	switch {
	case !iv && !jv:
		return 0
	case !iv:
		if opts.NullsLast {
			return 1
		}
		return -1
	case !jv:
		if opts.NullsLast {
			return -1
		}
		return 1
	}
	c := compareValues(arr, i, j)
	if opts.Descending {
		return -c
	}
	return c
}

// SortWith returns a sorted copy.
func (s *Series) SortWith(opts SortOptions) (*Series, error) {
	idx := s.ArgSort(opts)
	defer idx.Release()
	return s.Take(idx)
}

// Sort returns a copy sorted ascending or descending with nulls first.
func (s *Series) Sort(descending bool) (*Series, error) {
	return s.SortWith(SortOptions{Descending: descending})
}

// Reverse returns the elements in reverse order.
func (s *Series) Reverse() (*Series, error) {
	n := s.Len()
	idx := make([]uint32, n)
	for i := range idx {
		idx[i] = uint32(n - 1 - i)
	}
	return s.TakeSlice(idx)
}

// Shift moves values by periods positions, filling the gap with nulls.
// Positive periods shift towards the end.
func (s *Series) Shift(periods int64) (*Series, error) {
	n := int64(s.Len())
	if periods >= n || -periods >= n {
		return s.fullNull(s.Len())
	}
	if periods == 0 {
		return s.Clone(), nil
	}

	fill, err := s.fullNull(int(abs(periods)))
	if err != nil {
		return nil, err
	}
	defer fill.Release()

	var parts []arrow.Array
	if periods > 0 {
		kept := array.NewSlice(s.arr, 0, n-periods)
		defer kept.Release()
		parts = []arrow.Array{fill.arr, kept}
	} else {
		kept := array.NewSlice(s.arr, -periods, n)
		defer kept.Release()
		parts = []arrow.Array{kept, fill.arr}
	}
	out, err := array.Concatenate(parts, allocator())
	if err != nil {
		return nil, fmt.Errorf("shift: %w", err)
	}
	return newSeries(s.name, s.dtype, out), nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// fullNull returns an all-null series of length n with the dtype of s.
func (s *Series) fullNull(n int) (*Series, error) {
	return newSeries(s.name, s.dtype, array.MakeArrayOfNull(allocator(), s.arr.DataType(), n)), nil
}

// ============================================================================
// Uniqueness
// ============================================================================

// Unique returns the distinct values in order of first appearance. Null
// counts as one value.
func (s *Series) Unique() (*Series, error) {
	out, err := compute.UniqueArray(kernelCtx(), s.arr)
	if err != nil {
		return nil, fmt.Errorf("unique: %w", err)
	}
	return newSeries(s.name, s.dtype, out), nil
}

// NUnique returns the number of distinct values, null included.
func (s *Series) NUnique() (int, error) {
	u, err := s.Unique()
	if err != nil {
		return 0, err
	}
	defer u.Release()
	return u.Len(), nil
}

// ArgUnique returns the index of the first occurrence of every distinct
// value.
func (s *Series) ArgUnique() *Series {
	index := newKeyIndex(s.arr)
	var idx []uint32
	for i := 0; i < s.Len(); i++ {
		if _, opened := index.group(i); opened {
			idx = append(idx, uint32(i))
		}
	}
	return NewSeriesUInt32(s.name, idx)
}

// ============================================================================
// Null Masks and Element Comparison
// ============================================================================

// IsNull returns a Bool series that is true where s is null.
func (s *Series) IsNull() *Series {
	return s.validityMask(false)
}

// IsNotNull returns a Bool series that is true where s has a value.
func (s *Series) IsNotNull() *Series {
	return s.validityMask(true)
}

func (s *Series) validityMask(want bool) *Series {
	mask := make([]bool, s.Len())
	for i := range mask {
		mask[i] = s.arr.IsValid(i) == want
	}
	return NewSeriesBool(s.name, mask)
}

// ZipWith picks the element of s where mask is true and of other
// elsewhere. other may have length 1.
func (s *Series) ZipWith(mask []bool, other *Series) (*Series, error) {
	if !s.dtype.Equal(other.dtype) {
		return nil, dtypeMismatch("zip_with", s.dtype, other.dtype)
	}
	if len(mask) != s.Len() {
		return nil, fmt.Errorf("zip_with: %w: mask %d vs series %d", ErrLengthMismatch, len(mask), s.Len())
	}
	left, right, err := broadcast(s.arr, other.arr)
	if err != nil {
		return nil, fmt.Errorf("zip_with: %w", err)
	}
	defer left.Release()
	defer right.Release()

	b := array.NewBuilder(allocator(), s.arr.DataType())
	defer b.Release()
	b.Reserve(len(mask))
	for i, m := range mask {
		src := right
		if m {
			src = left
		}
		if err := appendElement(b, src, i); err != nil {
			return nil, fmt.Errorf("zip_with: %w", err)
		}
	}
	return newSeries(s.name, s.dtype, b.NewArray()), nil
}

// EqualElement reports whether element idx of s equals element otherIdx
// of other. Two nulls are equal.
func (s *Series) EqualElement(idx, otherIdx int, other *Series) bool {
	if !s.dtype.Equal(other.dtype) {
		return false
	}
	return elementsEqual(s.arr, idx, other.arr, otherIdx)
}

// appendElement copies element i of arr into b.
func appendElement(b array.Builder, arr arrow.Array, i int) error {
	if arr.IsNull(i) {
		b.AppendNull()
		return nil
	}
	return appendValue(b, valueAt(arr, i))
}
