package temporal

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// DType is the kind of a logical data type. Parametric kinds (Duration,
// Datetime, List) carry their parameters in a DataType.
type DType uint8

const (
	// Numeric types
	Float64 DType = iota
	Float32
	Int64
	Int32
	UInt64
	UInt32

	// Other types
	Bool

	// Temporal types
	Date     // days since the Unix epoch, stored as Int32
	Datetime // ticks since the Unix epoch in a TimeUnit, stored as Int64
	Duration // elapsed ticks in a TimeUnit, stored as Int64

	// Nested types
	List

	// Null type
	Null
)

// String returns the string representation of the DType
func (d DType) String() string {
	switch d {
	case Float64:
		return "Float64"
	case Float32:
		return "Float32"
	case Int64:
		return "Int64"
	case Int32:
		return "Int32"
	case UInt64:
		return "UInt64"
	case UInt32:
		return "UInt32"
	case Bool:
		return "Bool"
	case Date:
		return "Date"
	case Datetime:
		return "Datetime"
	case Duration:
		return "Duration"
	case List:
		return "List"
	case Null:
		return "Null"
	default:
		return fmt.Sprintf("Unknown(%d)", d)
	}
}

// IsNumeric returns true if the dtype is a numeric type
func (d DType) IsNumeric() bool {
	switch d {
	case Float64, Float32, Int64, Int32, UInt64, UInt32:
		return true
	default:
		return false
	}
}

// IsFloat returns true if the dtype is a floating point type
func (d DType) IsFloat() bool {
	return d == Float64 || d == Float32
}

// IsInteger returns true if the dtype is an integer type
func (d DType) IsInteger() bool {
	switch d {
	case Int64, Int32, UInt64, UInt32:
		return true
	default:
		return false
	}
}

// IsTemporal returns true for Date, Datetime and Duration
func (d DType) IsTemporal() bool {
	return d == Date || d == Datetime || d == Duration
}

// Size returns the size in bytes of one physical value of the dtype
func (d DType) Size() int {
	switch d {
	case Float64, Int64, UInt64, Datetime, Duration:
		return 8
	case Float32, Int32, UInt32, Date:
		return 4
	case Bool:
		return 1
	case List:
		return -1 // Variable size
	default:
		return 0
	}
}

// ============================================================================
// Time Units
// ============================================================================

// TimeUnit is the granularity of a Duration or Datetime count.
type TimeUnit uint8

const (
	Milliseconds TimeUnit = iota
	Microseconds
	Nanoseconds
)

// String returns the short unit suffix used in dtype names
func (tu TimeUnit) String() string {
	switch tu {
	case Milliseconds:
		return "ms"
	case Microseconds:
		return "μs"
	case Nanoseconds:
		return "ns"
	default:
		return fmt.Sprintf("unit(%d)", tu)
	}
}

// TicksPerDay returns how many counts of this unit make up one day.
func (tu TimeUnit) TicksPerDay() int64 {
	switch tu {
	case Milliseconds:
		return 86_400_000
	case Microseconds:
		return 86_400_000_000
	default:
		return 86_400_000_000_000
	}
}

// nanos returns the number of nanoseconds in one tick.
func (tu TimeUnit) nanos() int64 {
	switch tu {
	case Milliseconds:
		return 1_000_000
	case Microseconds:
		return 1_000
	default:
		return 1
	}
}

// ParseTimeUnit parses "ms", "us"/"μs" or "ns".
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch s {
	case "ms":
		return Milliseconds, nil
	case "us", "μs":
		return Microseconds, nil
	case "ns":
		return Nanoseconds, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q", s)
	}
}

func (tu TimeUnit) arrowUnit() arrow.TimeUnit {
	switch tu {
	case Milliseconds:
		return arrow.Millisecond
	case Microseconds:
		return arrow.Microsecond
	default:
		return arrow.Nanosecond
	}
}

func timeUnitFromArrow(u arrow.TimeUnit) (TimeUnit, error) {
	switch u {
	case arrow.Millisecond:
		return Milliseconds, nil
	case arrow.Microsecond:
		return Microseconds, nil
	case arrow.Nanosecond:
		return Nanoseconds, nil
	default:
		return 0, fmt.Errorf("unsupported arrow time unit: %s", u)
	}
}

// ============================================================================
// Logical Data Types
// ============================================================================

// DataType is a logical dtype: a kind plus its parameters. The zero value
// is Float64.
type DataType struct {
	kind  DType
	unit  TimeUnit
	tz    string
	inner *DataType
}

var (
	Float64Type = DataType{kind: Float64}
	Float32Type = DataType{kind: Float32}
	Int64Type   = DataType{kind: Int64}
	Int32Type   = DataType{kind: Int32}
	UInt64Type  = DataType{kind: UInt64}
	UInt32Type  = DataType{kind: UInt32}
	BoolType    = DataType{kind: Bool}
	DateType    = DataType{kind: Date}
	NullType    = DataType{kind: Null}
)

// DurationType returns the Duration dtype for a unit.
func DurationType(tu TimeUnit) DataType {
	return DataType{kind: Duration, unit: tu}
}

// DatetimeType returns the Datetime dtype for a unit and optional time zone.
func DatetimeType(tu TimeUnit, tz string) DataType {
	return DataType{kind: Datetime, unit: tu, tz: tz}
}

// ListType returns a List dtype with the given element type.
func ListType(inner DataType) DataType {
	return DataType{kind: List, inner: &inner}
}

// Kind returns the DType of the data type.
func (dt DataType) Kind() DType { return dt.kind }

// TimeUnit returns the unit of a Duration or Datetime dtype.
func (dt DataType) TimeUnit() TimeUnit { return dt.unit }

// TimeZone returns the time zone of a Datetime dtype ("" when naive).
func (dt DataType) TimeZone() string { return dt.tz }

// Inner returns the element type of a List dtype.
func (dt DataType) Inner() (DataType, bool) {
	if dt.kind != List || dt.inner == nil {
		return DataType{}, false
	}
	return *dt.inner, true
}

func (dt DataType) IsNumeric() bool  { return dt.kind.IsNumeric() }
func (dt DataType) IsInteger() bool  { return dt.kind.IsInteger() }
func (dt DataType) IsFloat() bool    { return dt.kind.IsFloat() }
func (dt DataType) IsTemporal() bool { return dt.kind.IsTemporal() }

// Equal reports whether two dtypes are identical, parameters included.
func (dt DataType) Equal(other DataType) bool {
	if dt.kind != other.kind {
		return false
	}
	switch dt.kind {
	case Duration:
		return dt.unit == other.unit
	case Datetime:
		return dt.unit == other.unit && dt.tz == other.tz
	case List:
		if dt.inner == nil || other.inner == nil {
			return dt.inner == other.inner
		}
		return dt.inner.Equal(*other.inner)
	default:
		return true
	}
}

// ToPhysical returns the dtype of the storage underneath the logical type.
func (dt DataType) ToPhysical() DataType {
	switch dt.kind {
	case Duration, Datetime:
		return Int64Type
	case Date:
		return Int32Type
	case List:
		if dt.inner == nil {
			return dt
		}
		return ListType(dt.inner.ToPhysical())
	default:
		return dt
	}
}

// String returns the short dtype name, e.g. "duration[ms]".
func (dt DataType) String() string {
	switch dt.kind {
	case Float64:
		return "f64"
	case Float32:
		return "f32"
	case Int64:
		return "i64"
	case Int32:
		return "i32"
	case UInt64:
		return "u64"
	case UInt32:
		return "u32"
	case Bool:
		return "bool"
	case Date:
		return "date"
	case Datetime:
		if dt.tz != "" {
			return fmt.Sprintf("datetime[%s, %s]", dt.unit, dt.tz)
		}
		return fmt.Sprintf("datetime[%s]", dt.unit)
	case Duration:
		return fmt.Sprintf("duration[%s]", dt.unit)
	case List:
		if dt.inner == nil {
			return "list[null]"
		}
		return fmt.Sprintf("list[%s]", dt.inner.String())
	case Null:
		return "null"
	default:
		return dt.kind.String()
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "f64":
		return Float64Type, nil
	case "f32":
		return Float32Type, nil
	case "i64":
		return Int64Type, nil
	case "i32":
		return Int32Type, nil
	case "u64":
		return UInt64Type, nil
	case "u32":
		return UInt32Type, nil
	case "bool":
		return BoolType, nil
	case "date":
		return DateType, nil
	case "null":
		return NullType, nil
	}

	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return DataType{}, fmt.Errorf("unknown dtype %q", s)
	}
	params := s[open+1 : len(s)-1]

	switch s[:open] {
	case "duration":
		tu, err := ParseTimeUnit(params)
		if err != nil {
			return DataType{}, fmt.Errorf("dtype %q: %w", s, err)
		}
		return DurationType(tu), nil
	case "datetime":
		unit, tz, _ := strings.Cut(params, ",")
		tu, err := ParseTimeUnit(strings.TrimSpace(unit))
		if err != nil {
			return DataType{}, fmt.Errorf("dtype %q: %w", s, err)
		}
		return DatetimeType(tu, strings.TrimSpace(tz)), nil
	case "list":
		inner, err := ParseDataType(params)
		if err != nil {
			return DataType{}, err
		}
		return ListType(inner), nil
	default:
		return DataType{}, fmt.Errorf("unknown dtype %q", s)
	}
}

// arrowPhysicalType returns the arrow type of the storage for dt.
func arrowPhysicalType(dt DataType) (arrow.DataType, error) {
	switch dt.kind {
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case Int64, Duration, Datetime:
		return arrow.PrimitiveTypes.Int64, nil
	case Int32, Date:
		return arrow.PrimitiveTypes.Int32, nil
	case UInt64:
		return arrow.PrimitiveTypes.Uint64, nil
	case UInt32:
		return arrow.PrimitiveTypes.Uint32, nil
	case Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case Null:
		return arrow.Null, nil
	case List:
		if dt.inner == nil {
			return nil, fmt.Errorf("list dtype without element type")
		}
		elem, err := arrowPhysicalType(*dt.inner)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dt)
	}
}

// arrowLogicalType returns the arrow type that carries dt's meaning, used
// when exporting to arrow records.
func arrowLogicalType(dt DataType) (arrow.DataType, error) {
	switch dt.kind {
	case Duration:
		return &arrow.DurationType{Unit: dt.unit.arrowUnit()}, nil
	case Datetime:
		return &arrow.TimestampType{Unit: dt.unit.arrowUnit(), TimeZone: dt.tz}, nil
	case Date:
		return arrow.FixedWidthTypes.Date32, nil
	case List:
		if dt.inner == nil {
			return nil, fmt.Errorf("list dtype without element type")
		}
		elem, err := arrowLogicalType(*dt.inner)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	default:
		return arrowPhysicalType(dt)
	}
}

// dataTypeFromArrow maps an arrow type (logical or physical) to a DataType.
func dataTypeFromArrow(t arrow.DataType) (DataType, error) {
	switch t.ID() {
	case arrow.FLOAT64:
		return Float64Type, nil
	case arrow.FLOAT32:
		return Float32Type, nil
	case arrow.INT64:
		return Int64Type, nil
	case arrow.INT32:
		return Int32Type, nil
	case arrow.UINT64:
		return UInt64Type, nil
	case arrow.UINT32:
		return UInt32Type, nil
	case arrow.BOOL:
		return BoolType, nil
	case arrow.NULL:
		return NullType, nil
	case arrow.DATE32:
		return DateType, nil
	case arrow.DURATION:
		tu, err := timeUnitFromArrow(t.(*arrow.DurationType).Unit)
		if err != nil {
			return DataType{}, err
		}
		return DurationType(tu), nil
	case arrow.TIMESTAMP:
		ts := t.(*arrow.TimestampType)
		tu, err := timeUnitFromArrow(ts.Unit)
		if err != nil {
			return DataType{}, err
		}
		return DatetimeType(tu, ts.TimeZone), nil
	case arrow.LIST:
		inner, err := dataTypeFromArrow(t.(*arrow.ListType).Elem())
		if err != nil {
			return DataType{}, err
		}
		return ListType(inner), nil
	default:
		return DataType{}, fmt.Errorf("unsupported arrow type: %s", t)
	}
}

// ============================================================================
// Schema
// ============================================================================

// Schema represents the schema of a DataFrame
type Schema struct {
	names  []string
	dtypes []DataType
}

// NewSchema creates a new schema from column names and types
func NewSchema(names []string, dtypes []DataType) (*Schema, error) {
	if len(names) != len(dtypes) {
		return nil, fmt.Errorf("names and dtypes must have same length: %d != %d", len(names), len(dtypes))
	}

	// Check for duplicate names
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column name: %s", name)
		}
		seen[name] = true
	}

	return &Schema{
		names:  append([]string{}, names...),
		dtypes: append([]DataType{}, dtypes...),
	}, nil
}

// Len returns the number of columns in the schema
func (s *Schema) Len() int {
	return len(s.names)
}

// Names returns the column names
func (s *Schema) Names() []string {
	return append([]string{}, s.names...)
}

// DTypes returns the column data types
func (s *Schema) DTypes() []DataType {
	return append([]DataType{}, s.dtypes...)
}

// GetDType returns the dtype for a column name
func (s *Schema) GetDType(name string) (DataType, bool) {
	for i, n := range s.names {
		if n == name {
			return s.dtypes[i], true
		}
	}
	return NullType, false
}

// GetIndex returns the index of a column name
func (s *Schema) GetIndex(name string) (int, bool) {
	for i, n := range s.names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// String returns a string representation of the schema
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString("Schema{\n")
	for i, name := range s.names {
		fmt.Fprintf(&b, "  %s: %s\n", name, s.dtypes[i])
	}
	b.WriteString("}")
	return b.String()
}
