package temporal

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Series is a named column: an Arrow array holding the physical values
// (null bitmap + value buffer) and the logical DataType that gives them
// meaning. Re-tagging a Series with another dtype shares the array; it
// never copies the buffers.
type Series struct {
	name  string
	dtype DataType
	arr   arrow.Array
}

// newSeries wraps arr without retaining it; the Series takes ownership.
func newSeries(name string, dtype DataType, arr arrow.Array) *Series {
	return &Series{name: name, dtype: dtype, arr: arr}
}

// retag returns a view of s with another dtype sharing the same buffers.
func (s *Series) retag(dtype DataType) *Series {
	s.arr.Retain()
	return newSeries(s.name, dtype, s.arr)
}

// into changes the dtype of a freshly produced result in place.
func (s *Series) into(dtype DataType) *Series {
	s.dtype = dtype
	return s
}

// physical returns s re-tagged with its physical dtype.
func (s *Series) physical() *Series {
	return s.retag(s.dtype.ToPhysical())
}

// NewSeriesInt64 creates an Int64 Series from a Go slice.
func NewSeriesInt64(name string, data []int64) *Series {
	return NewSeriesInt64WithNulls(name, data, nil)
}

// NewSeriesInt64WithNulls creates an Int64 Series with null values.
// The valid slice indicates which values are valid (true) vs null (false);
// a nil valid slice means every value is valid.
func NewSeriesInt64WithNulls(name string, data []int64, valid []bool) *Series {
	b := array.NewInt64Builder(allocator())
	defer b.Release()
	b.AppendValues(data, valid)
	return newSeries(name, Int64Type, b.NewArray())
}

// NewSeriesInt32 creates an Int32 Series from a Go slice.
func NewSeriesInt32(name string, data []int32) *Series {
	return NewSeriesInt32WithNulls(name, data, nil)
}

// NewSeriesInt32WithNulls creates an Int32 Series with null values.
func NewSeriesInt32WithNulls(name string, data []int32, valid []bool) *Series {
	b := array.NewInt32Builder(allocator())
	defer b.Release()
	b.AppendValues(data, valid)
	return newSeries(name, Int32Type, b.NewArray())
}

// NewSeriesUInt64 creates a UInt64 Series from a Go slice.
func NewSeriesUInt64(name string, data []uint64) *Series {
	b := array.NewUint64Builder(allocator())
	defer b.Release()
	b.AppendValues(data, nil)
	return newSeries(name, UInt64Type, b.NewArray())
}

// NewSeriesUInt32 creates a UInt32 Series from a Go slice.
func NewSeriesUInt32(name string, data []uint32) *Series {
	b := array.NewUint32Builder(allocator())
	defer b.Release()
	b.AppendValues(data, nil)
	return newSeries(name, UInt32Type, b.NewArray())
}

// NewSeriesFloat64 creates a Float64 Series from a Go slice.
func NewSeriesFloat64(name string, data []float64) *Series {
	return NewSeriesFloat64WithNulls(name, data, nil)
}

// NewSeriesFloat64WithNulls creates a Float64 Series with null values.
func NewSeriesFloat64WithNulls(name string, data []float64, valid []bool) *Series {
	b := array.NewFloat64Builder(allocator())
	defer b.Release()
	b.AppendValues(data, valid)
	return newSeries(name, Float64Type, b.NewArray())
}

// NewSeriesFloat32 creates a Float32 Series from a Go slice.
func NewSeriesFloat32(name string, data []float32) *Series {
	b := array.NewFloat32Builder(allocator())
	defer b.Release()
	b.AppendValues(data, nil)
	return newSeries(name, Float32Type, b.NewArray())
}

// NewSeriesBool creates a Bool Series from a Go slice.
func NewSeriesBool(name string, data []bool) *Series {
	return NewSeriesBoolWithNulls(name, data, nil)
}

// NewSeriesBoolWithNulls creates a Bool Series with null values.
func NewSeriesBoolWithNulls(name string, data []bool, valid []bool) *Series {
	b := array.NewBooleanBuilder(allocator())
	defer b.Release()
	b.AppendValues(data, valid)
	return newSeries(name, BoolType, b.NewArray())
}

// NewSeriesDuration creates a Duration Series from tick counts in unit tu.
// A nil valid slice means every value is valid.
func NewSeriesDuration(name string, counts []int64, valid []bool, tu TimeUnit) *Series {
	return NewSeriesInt64WithNulls(name, counts, valid).into(DurationType(tu))
}

// NewSeriesDurationFromGo creates a Duration Series from time.Duration
// values, truncating each to the unit.
func NewSeriesDurationFromGo(name string, data []time.Duration, tu TimeUnit) *Series {
	counts := make([]int64, len(data))
	for i, d := range data {
		counts[i] = int64(d) / tu.nanos()
	}
	return NewSeriesDuration(name, counts, nil, tu)
}

// NewSeriesDate creates a Date Series from days since the Unix epoch.
func NewSeriesDate(name string, days []int32, valid []bool) *Series {
	return NewSeriesInt32WithNulls(name, days, valid).into(DateType)
}

// NewSeriesDatetime creates a Datetime Series from ticks since the Unix
// epoch in unit tu, in time zone tz ("" for naive).
func NewSeriesDatetime(name string, ticks []int64, valid []bool, tu TimeUnit, tz string) *Series {
	return NewSeriesInt64WithNulls(name, ticks, valid).into(DatetimeType(tu, tz))
}

// NewSeriesFromArrow wraps an arrow array. Logical arrow types (duration,
// timestamp, date32) become tagged Series over the same buffers.
func NewSeriesFromArrow(name string, arr arrow.Array) (*Series, error) {
	dt, err := dataTypeFromArrow(arr.DataType())
	if err != nil {
		return nil, err
	}
	phys, err := arrowPhysicalType(dt)
	if err != nil {
		return nil, err
	}
	return newSeries(name, dt, reinterpretArray(arr, phys)), nil
}

// reinterpretArray returns arr viewed as type dt over the same buffers.
// dt must have the same layout as arr's type.
func reinterpretArray(arr arrow.Array, dt arrow.DataType) arrow.Array {
	if arrow.TypeEqual(arr.DataType(), dt) {
		arr.Retain()
		return arr
	}
	data := reinterpretData(arr.Data(), dt)
	defer data.Release()
	return array.MakeFromData(data)
}

func reinterpretData(data arrow.ArrayData, dt arrow.DataType) arrow.ArrayData {
	var children []arrow.ArrayData
	if lt, ok := dt.(*arrow.ListType); ok {
		children = make([]arrow.ArrayData, len(data.Children()))
		for i, child := range data.Children() {
			children[i] = reinterpretData(child, lt.Elem())
		}
		defer func() {
			for _, c := range children {
				c.Release()
			}
		}()
	}
	return array.NewData(dt, data.Len(), data.Buffers(), children, data.NullN(), data.Offset())
}

// Release drops this Series' reference to its buffers
func (s *Series) Release() {
	if s.arr != nil {
		s.arr.Release()
		s.arr = nil
	}
}

// Name returns the series name
func (s *Series) Name() string {
	return s.name
}

// Rename sets the series name in place.
func (s *Series) Rename(name string) {
	s.name = name
}

// DType returns the logical data type
func (s *Series) DType() DataType {
	return s.dtype
}

// TimeUnit returns the unit of a Duration or Datetime series.
func (s *Series) TimeUnit() (TimeUnit, bool) {
	if s.dtype.kind != Duration && s.dtype.kind != Datetime {
		return 0, false
	}
	return s.dtype.unit, true
}

// TimeZone returns the time zone of a Datetime series ("" when naive).
func (s *Series) TimeZone() string {
	return s.dtype.tz
}

// Array returns the physical arrow array. The caller must Retain it to
// keep it past the Series' lifetime.
func (s *Series) Array() arrow.Array {
	return s.arr
}

// Len returns the number of elements
func (s *Series) Len() int {
	if s.arr == nil {
		return 0
	}
	return s.arr.Len()
}

// NullCount returns the number of null values
func (s *Series) NullCount() int {
	if s.arr == nil {
		return 0
	}
	return s.arr.NullN()
}

// HasNulls returns true if the series contains any null values
func (s *Series) HasNulls() bool {
	return s.NullCount() > 0
}

// IsValid returns true if the value at index is not null
func (s *Series) IsValid(index int) bool {
	return s.arr != nil && index >= 0 && index < s.arr.Len() && s.arr.IsValid(index)
}

// AtI64 returns the physical int64 value at index. Works for Int64,
// Duration and Datetime series.
func (s *Series) AtI64(index int) (int64, bool) {
	a, ok := s.arr.(*array.Int64)
	if !ok || !s.IsValid(index) {
		return 0, false
	}
	return a.Value(index), true
}

// AtI32 returns the physical int32 value at index (Int32 and Date).
func (s *Series) AtI32(index int) (int32, bool) {
	a, ok := s.arr.(*array.Int32)
	if !ok || !s.IsValid(index) {
		return 0, false
	}
	return a.Value(index), true
}

// AtF64 returns the value at index converted to float64. Works for any
// numeric physical representation.
func (s *Series) AtF64(index int) (float64, bool) {
	if !s.IsValid(index) {
		return 0, false
	}
	return floatAt(s.arr, index)
}

// AtBool returns the value at index of a Bool series.
func (s *Series) AtBool(index int) (bool, bool) {
	a, ok := s.arr.(*array.Boolean)
	if !ok || !s.IsValid(index) {
		return false, false
	}
	return a.Value(index), true
}

// AtDuration returns the value at index of a Duration series as a
// time.Duration.
func (s *Series) AtDuration(index int) (time.Duration, bool) {
	if s.dtype.kind != Duration {
		return 0, false
	}
	v, ok := s.AtI64(index)
	if !ok {
		return 0, false
	}
	return time.Duration(v * s.dtype.unit.nanos()), true
}

// Get returns the physical value at index as an interface, nil for null.
func (s *Series) Get(index int) any {
	if !s.IsValid(index) {
		return nil
	}
	switch a := s.arr.(type) {
	case *array.Int64:
		return a.Value(index)
	case *array.Int32:
		return a.Value(index)
	case *array.Uint64:
		return a.Value(index)
	case *array.Uint32:
		return a.Value(index)
	case *array.Float64:
		return a.Value(index)
	case *array.Float32:
		return a.Value(index)
	case *array.Boolean:
		return a.Value(index)
	default:
		return nil
	}
}

// ToInt64 returns a copy of the physical int64 values; nulls read as 0.
func (s *Series) ToInt64() []int64 {
	a, ok := s.arr.(*array.Int64)
	if !ok {
		return nil
	}
	out := make([]int64, a.Len())
	for i := range out {
		if a.IsValid(i) {
			out[i] = a.Value(i)
		}
	}
	return out
}

// ToFloat64 returns the values converted to float64; nulls read as 0.
func (s *Series) ToFloat64() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i], _ = s.AtF64(i)
	}
	return out
}

// Validity returns one bool per element, false where the value is null.
func (s *Series) Validity() []bool {
	out := make([]bool, s.Len())
	for i := range out {
		out[i] = s.arr.IsValid(i)
	}
	return out
}

// Head returns the first n elements
func (s *Series) Head(n int) *Series {
	return s.Slice(0, n)
}

// Tail returns the last n elements
func (s *Series) Tail(n int) *Series {
	if n > s.Len() {
		n = s.Len()
	}
	return s.Slice(int64(-n), n)
}

// String returns a short description of the series
func (s *Series) String() string {
	return fmt.Sprintf("Series{name: %q, dtype: %s, len: %d, nulls: %d}", s.name, s.dtype, s.Len(), s.NullCount())
}

// floatAt reads element i of a numeric array as float64. Booleans read as
// 0/1. The caller checks validity.
func floatAt(arr arrow.Array, i int) (float64, bool) {
	switch a := arr.(type) {
	case *array.Int64:
		return float64(a.Value(i)), true
	case *array.Int32:
		return float64(a.Value(i)), true
	case *array.Uint64:
		return float64(a.Value(i)), true
	case *array.Uint32:
		return float64(a.Value(i)), true
	case *array.Float64:
		return a.Value(i), true
	case *array.Float32:
		return float64(a.Value(i)), true
	case *array.Boolean:
		if a.Value(i) {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
