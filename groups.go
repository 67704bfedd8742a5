package temporal

import (
	"fmt"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ============================================================================
// Groups
// ============================================================================

// Groups holds the row buckets of a group-by. Buckets are either explicit
// row lists or contiguous (first, len) ranges.
type Groups struct {
	idx    [][]uint32
	ranges [][2]uint32
}

// NewGroupsIdx creates groups from explicit row indices.
func NewGroupsIdx(groups [][]uint32) *Groups {
	return &Groups{idx: groups}
}

// NewGroupsSlice creates groups from (first, len) ranges over sorted data.
func NewGroupsSlice(groups [][2]uint32) *Groups {
	return &Groups{ranges: groups}
}

// Len returns the number of groups
func (g *Groups) Len() int {
	if g.ranges != nil {
		return len(g.ranges)
	}
	return len(g.idx)
}

// Indices returns the rows of group i.
func (g *Groups) Indices(i int) []uint32 {
	if g.ranges != nil {
		first, n := g.ranges[i][0], g.ranges[i][1]
		rows := make([]uint32, n)
		for j := range rows {
			rows[j] = first + uint32(j)
		}
		return rows
	}
	return g.idx[i]
}

// rows returns the rows of group i as ints for the reduction kernels.
func (g *Groups) rows(i int) []int {
	if g.ranges != nil {
		first, n := int(g.ranges[i][0]), int(g.ranges[i][1])
		rows := make([]int, n)
		for j := range rows {
			rows[j] = first + j
		}
		return rows
	}
	rows := make([]int, len(g.idx[i]))
	for j, r := range g.idx[i] {
		rows[j] = int(r)
	}
	return rows
}

// validate checks that every row index is inside a column of length n.
func (g *Groups) validate(n int) error {
	for i := 0; i < g.Len(); i++ {
		if g.ranges != nil {
			if int(g.ranges[i][0])+int(g.ranges[i][1]) > n {
				return fmt.Errorf("%w: group %d range [%d, +%d) exceeds length %d",
					ErrOutOfBounds, i, g.ranges[i][0], g.ranges[i][1], n)
			}
			continue
		}
		for _, r := range g.idx[i] {
			if int(r) >= n {
				return fmt.Errorf("%w: group %d row %d exceeds length %d", ErrOutOfBounds, i, r, n)
			}
		}
	}
	return nil
}

// ============================================================================
// Group Tuples
// ============================================================================

// GroupTuples buckets the rows of s by value. Groups are ordered by first
// appearance, or by value (nulls first) when sorted is set. With
// multithreaded set, large inputs build the buckets through a partitioned
// hash index.
func (s *Series) GroupTuples(multithreaded, sorted bool) *Groups {
	var groups [][]uint32
	if multithreaded && ShouldParallelizeOp(OpGroupByHash, s.Len()) {
		groups = s.groupTuplesPartitioned()
	} else {
		groups = s.groupTuplesSerial()
	}

	if sorted {
		slices.SortStableFunc(groups, func(a, b []uint32) int {
			return compareRows(s.arr, int(a[0]), int(b[0]), SortOptions{})
		})
	}
	return NewGroupsIdx(groups)
}

func (s *Series) groupTuplesSerial() [][]uint32 {
	index := newKeyIndex(s.arr)
	var groups [][]uint32
	for i := 0; i < s.Len(); i++ {
		g, opened := index.group(i)
		if opened {
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], uint32(i))
	}
	return groups
}

func (s *Series) groupTuplesPartitioned() [][]uint32 {
	hashes := s.VecHash(0)
	index := NewPartitionedHashIndex(0)
	index.BuildParallel(hashes)
	log().Debug("group tuples built in parallel", "series", s.name, "rows", s.Len(), "partitions", index.numParts)

	var groups [][]uint32
	index.Buckets(func(_ uint64, rows []int) {
		// a bucket can hold colliding keys; split it by exact value
		split := newKeyIndex(s.arr)
		base := len(groups)
		for _, r := range rows {
			g, opened := split.group(r)
			if opened {
				groups = append(groups, nil)
			}
			groups[base+g] = append(groups[base+g], uint32(r))
		}
	})
	slices.SortFunc(groups, func(a, b []uint32) int {
		return cmpOrdered(a[0], b[0])
	})
	return groups
}

// ============================================================================
// Grouped Aggregates
// ============================================================================

// AggMin returns the minimum of every group, tagged with the column dtype.
func (s *Series) AggMin(g *Groups) (*Series, error) {
	return s.aggExact("agg_min", g, reduceMin, s.dtype)
}

// AggMax returns the maximum of every group, tagged with the column dtype.
func (s *Series) AggMax(g *Groups) (*Series, error) {
	return s.aggExact("agg_max", g, reduceMax, s.dtype)
}

// AggSum returns the sum of every group. Empty and all-null groups sum to 0.
func (s *Series) AggSum(g *Groups) (*Series, error) {
	switch {
	case s.dtype.kind == Duration:
		return s.aggExact("agg_sum", g, reduceSum, s.dtype)
	case s.dtype.IsNumeric() || s.dtype.kind == Bool:
		return s.aggExact("agg_sum", g, reduceSum, sumType(s.dtype))
	default:
		return nil, unsupported("agg_sum", s.dtype, s.dtype)
	}
}

// sumType is the dtype reduceSum widens a numeric column to.
func sumType(dt DataType) DataType {
	switch {
	case dt.IsFloat():
		return Float64Type
	case dt.kind == UInt64 || dt.kind == UInt32:
		return UInt64Type
	default:
		return Int64Type
	}
}

// AggStd returns the standard deviation of every group. Duration results
// are truncated to whole ticks and keep the column unit.
func (s *Series) AggStd(g *Groups, ddof uint8) (*Series, error) {
	return s.aggFloat("agg_std", g, func(rows []int) (float64, bool) {
		return reduceStd(s.arr, rows, ddof)
	})
}

// AggVar returns the variance of every group. Duration results are
// truncated to whole ticks and keep the column unit.
func (s *Series) AggVar(g *Groups, ddof uint8) (*Series, error) {
	return s.aggFloat("agg_var", g, func(rows []int) (float64, bool) {
		return reduceVar(s.arr, rows, ddof)
	})
}

// mapGroups evaluates fn for every group, fanning out across workers when
// the rows being aggregated outweigh the scheduling overhead.
func mapGroups[T any](g *Groups, rows int, fn func(i int) T) []T {
	if ShouldParallelizeOp(OpGroupByAgg, rows) {
		return ParallelMap(g.Len(), fn)
	}
	out := make([]T, g.Len())
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func (s *Series) aggExact(op string, g *Groups, reduce func(arrow.Array, []int) Scalar, dt DataType) (*Series, error) {
	if !s.dtype.IsNumeric() && s.dtype.kind != Bool && !s.dtype.IsTemporal() {
		return nil, unsupported(op, s.dtype, s.dtype)
	}
	if err := g.validate(s.Len()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	results := mapGroups(g, s.Len(), func(i int) Scalar {
		return reduce(s.arr, g.rows(i))
	})
	return scalarsToSeries(s.name, dt, results)
}

func (s *Series) aggFloat(op string, g *Groups, reduce func(rows []int) (float64, bool)) (*Series, error) {
	if !s.dtype.IsNumeric() && s.dtype.kind != Bool && s.dtype.kind != Duration {
		return nil, unsupported(op, s.dtype, s.dtype)
	}
	if err := g.validate(s.Len()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	type result struct {
		v  float64
		ok bool
	}
	results := mapGroups(g, s.Len(), func(i int) result {
		v, ok := reduce(g.rows(i))
		return result{v, ok}
	})

	vals := make([]float64, len(results))
	valid := make([]bool, len(results))
	for i, r := range results {
		vals[i], valid[i] = r.v, r.ok
	}
	out := NewSeriesFloat64WithNulls(s.name, vals, valid)
	if s.dtype.kind != Duration {
		return out, nil
	}
	defer out.Release()
	counts := mustCast(out, Int64Type, CastNonStrict)
	return counts.into(s.dtype), nil
}

// AggList collects every group into a list element. The list is built over
// the physical values and cast to list[dtype] as a whole.
func (s *Series) AggList(g *Groups) (*Series, error) {
	if err := g.validate(s.Len()); err != nil {
		return nil, fmt.Errorf("agg_list: %w", err)
	}

	offsets := make([]int32, g.Len()+1)
	var take []uint32
	for i := 0; i < g.Len(); i++ {
		take = append(take, g.Indices(i)...)
		offsets[i+1] = int32(len(take))
	}

	phys := s.physical()
	defer phys.Release()
	values, err := phys.TakeSlice(take)
	if err != nil {
		return nil, fmt.Errorf("agg_list: %w", err)
	}
	defer values.Release()

	listType := arrow.ListOf(values.arr.DataType())
	offsetBuf := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))
	data := array.NewData(listType, g.Len(), []*memory.Buffer{nil, offsetBuf},
		[]arrow.ArrayData{values.arr.Data()}, 0, 0)
	defer data.Release()

	list := newSeries(s.name, ListType(phys.dtype), array.MakeFromData(data))
	defer list.Release()
	return list.Cast(ListType(s.dtype), CastStrict)
}

// scalarsToSeries builds a series of dtype dt from per-group results.
func scalarsToSeries(name string, dt DataType, results []Scalar) (*Series, error) {
	phys, err := arrowPhysicalType(dt)
	if err != nil {
		return nil, err
	}
	b := array.NewBuilder(allocator(), phys)
	defer b.Release()
	b.Reserve(len(results))
	for _, r := range results {
		if r.IsNull() {
			b.AppendNull()
			continue
		}
		if err := appendValue(b, r.value); err != nil {
			return nil, err
		}
	}
	return newSeries(name, dt, b.NewArray()), nil
}
