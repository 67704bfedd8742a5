package temporal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
)

// rowKey identifies the value of one element for equality and hashing.
// Flat values compare equal exactly when their keys do. A list key is a
// digest of its elements, so equal list keys still need elementsEqual.
type rowKey struct {
	valid bool
	bits  uint64
}

func keyAt(arr arrow.Array, i int) rowKey {
	if arr.IsNull(i) {
		return rowKey{}
	}
	switch a := arr.(type) {
	case *array.Int64:
		return rowKey{true, uint64(a.Value(i))}
	case *array.Int32:
		return rowKey{true, uint64(int64(a.Value(i)))}
	case *array.Uint64:
		return rowKey{true, a.Value(i)}
	case *array.Uint32:
		return rowKey{true, uint64(a.Value(i))}
	case *array.Float64:
		return rowKey{true, floatBits(a.Value(i))}
	case *array.Float32:
		return rowKey{true, floatBits(float64(a.Value(i)))}
	case *array.Boolean:
		if a.Value(i) {
			return rowKey{true, 1}
		}
		return rowKey{true, 0}
	case *array.List:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		d := xxhash.New()
		var buf [9]byte
		for j := int(start); j < int(end); j++ {
			k := keyAt(values, j)
			if k.valid {
				buf[0] = 1
			} else {
				buf[0] = 0
			}
			binary.LittleEndian.PutUint64(buf[1:], k.bits)
			_, _ = d.Write(buf[:])
		}
		return rowKey{true, d.Sum64()}
	default:
		return rowKey{true, uint64(i)}
	}
}

// elementsEqual compares element i of a with element j of b, descending
// into list children. Two nulls are equal.
func elementsEqual(a arrow.Array, i int, b arrow.Array, j int) bool {
	ka, kb := keyAt(a, i), keyAt(b, j)
	if ka != kb {
		return false
	}
	la, ok := a.(*array.List)
	if !ok || !ka.valid {
		return true
	}
	lb, ok := b.(*array.List)
	if !ok {
		return false
	}
	as, ae := la.ValueOffsets(i)
	bs, be := lb.ValueOffsets(j)
	if ae-as != be-bs {
		return false
	}
	av, bv := la.ListValues(), lb.ListValues()
	for k := int64(0); k < ae-as; k++ {
		if !elementsEqual(av, int(as+k), bv, int(bs+k)) {
			return false
		}
	}
	return true
}

// keyIndex numbers the distinct values of one array in order of first
// appearance.
type keyIndex struct {
	arr   arrow.Array
	key   func(arrow.Array, int) rowKey
	exact bool
	slots map[rowKey][]int
	first []int
}

func newKeyIndex(arr arrow.Array) *keyIndex {
	return &keyIndex{
		arr:   arr,
		key:   keyAt,
		exact: arr.DataType().ID() != arrow.LIST,
		slots: make(map[rowKey][]int),
	}
}

// group returns the id of the group row i belongs to and whether the row
// opened it.
func (ki *keyIndex) group(i int) (int, bool) {
	k := ki.key(ki.arr, i)
	candidates := ki.slots[k]
	for _, g := range candidates {
		if ki.exact || elementsEqual(ki.arr, ki.first[g], ki.arr, i) {
			return g, false
		}
	}
	g := len(ki.first)
	ki.first = append(ki.first, i)
	ki.slots[k] = append(candidates, g)
	return g, true
}

// floatBits maps equal floats to equal bits: every NaN is one value and
// -0 equals 0.
func floatBits(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return 0x7ff8000000000001
	case f == 0:
		return 0
	default:
		return math.Float64bits(f)
	}
}

// nullHashMarker is mixed into the seed for null elements.
const nullHashMarker = 0x3bd5_6b2e_9c1f_04a7

func hashKey(k rowKey, seed uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], seed)
	if !k.valid {
		binary.LittleEndian.PutUint64(buf[8:], nullHashMarker)
		return xxhash.Sum64(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[8:], k.bits)
	return xxhash.Sum64(buf[:])
}

// VecHash returns one xxhash per element. Equal values hash equally
// regardless of position; all nulls share one hash per seed.
func (s *Series) VecHash(seed uint64) []uint64 {
	hashes := make([]uint64, s.Len())
	ParallelFor(len(hashes), func(start, end int) {
		for i := start; i < end; i++ {
			hashes[i] = hashKey(keyAt(s.arr, i), seed)
		}
	})
	return hashes
}

// VecHashCombine folds the element hashes of s into hashes, one per row,
// so multi-column keys hash as a unit.
func (s *Series) VecHashCombine(seed uint64, hashes []uint64) error {
	if len(hashes) != s.Len() {
		return fmt.Errorf("vec_hash_combine: %w: %d hashes for %d rows", ErrLengthMismatch, len(hashes), s.Len())
	}
	ParallelFor(len(hashes), func(start, end int) {
		for i := start; i < end; i++ {
			hashes[i] = combineHash(hashes[i], hashKey(keyAt(s.arr, i), seed))
		}
	})
	return nil
}

func combineHash(l, r uint64) uint64 {
	return l ^ (r + 0x9e3779b9 + (l << 6) + (l >> 2))
}
