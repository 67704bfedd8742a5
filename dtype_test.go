package temporal

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDType_String(t *testing.T) {
	tests := []struct {
		dtype DType
		want  string
	}{
		{Float64, "Float64"},
		{Int64, "Int64"},
		{Duration, "Duration"},
		{Date, "Date"},
		{Datetime, "Datetime"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dtype.String())
	}
}

func TestDType_Classification(t *testing.T) {
	assert.True(t, Int64.IsNumeric())
	assert.True(t, Int64.IsInteger())
	assert.False(t, Int64.IsFloat())
	assert.True(t, Float32.IsFloat())
	assert.False(t, Duration.IsNumeric())
	assert.True(t, Duration.IsTemporal())
	assert.True(t, Date.IsTemporal())
	assert.False(t, Bool.IsNumeric())
}

func TestTimeUnit(t *testing.T) {
	assert.Equal(t, int64(86_400_000), Milliseconds.TicksPerDay())
	assert.Equal(t, int64(86_400_000_000), Microseconds.TicksPerDay())
	assert.Equal(t, int64(86_400_000_000_000), Nanoseconds.TicksPerDay())

	for _, s := range []string{"ms", "us", "μs", "ns"} {
		_, err := ParseTimeUnit(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseTimeUnit("s")
	assert.Error(t, err)
}

func TestDataType_StringRoundTrip(t *testing.T) {
	dtypes := []DataType{
		Float64Type, Float32Type, Int64Type, Int32Type, UInt64Type, UInt32Type,
		BoolType, DateType, NullType,
		DurationType(Milliseconds), DurationType(Microseconds), DurationType(Nanoseconds),
		DatetimeType(Nanoseconds, ""), DatetimeType(Milliseconds, "Europe/Amsterdam"),
		ListType(DurationType(Microseconds)),
		ListType(ListType(Int32Type)),
	}
	for _, dt := range dtypes {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err, dt.String())
		assert.True(t, parsed.Equal(dt), "%s parsed as %s", dt, parsed)
	}

	_, err := ParseDataType("duration[s]")
	assert.Error(t, err)
	_, err = ParseDataType("interval")
	assert.Error(t, err)
}

func TestDataType_String(t *testing.T) {
	assert.Equal(t, "duration[ms]", DurationType(Milliseconds).String())
	assert.Equal(t, "duration[ns]", DurationType(Nanoseconds).String())
	assert.Equal(t, "datetime[ms, UTC]", DatetimeType(Milliseconds, "UTC").String())
	assert.Equal(t, "list[date]", ListType(DateType).String())
}

func TestDataType_Equal(t *testing.T) {
	assert.True(t, DurationType(Milliseconds).Equal(DurationType(Milliseconds)))
	assert.False(t, DurationType(Milliseconds).Equal(DurationType(Nanoseconds)))
	assert.False(t, DurationType(Milliseconds).Equal(Int64Type))
	assert.False(t, DatetimeType(Milliseconds, "UTC").Equal(DatetimeType(Milliseconds, "")))
	assert.True(t, ListType(DateType).Equal(ListType(DateType)))
	assert.False(t, ListType(DateType).Equal(ListType(Int32Type)))
}

func TestDataType_ToPhysical(t *testing.T) {
	assert.Equal(t, Int64Type, DurationType(Microseconds).ToPhysical())
	assert.Equal(t, Int64Type, DatetimeType(Nanoseconds, "UTC").ToPhysical())
	assert.Equal(t, Int32Type, DateType.ToPhysical())
	assert.Equal(t, Float64Type, Float64Type.ToPhysical())
	assert.True(t, ListType(Int64Type).Equal(ListType(DurationType(Milliseconds)).ToPhysical()))
}

func TestDataType_Arrow(t *testing.T) {
	dtypes := []DataType{
		DurationType(Milliseconds),
		DurationType(Nanoseconds),
		DatetimeType(Microseconds, "UTC"),
		DateType,
		Int32Type,
		ListType(DurationType(Microseconds)),
	}
	for _, dt := range dtypes {
		logical, err := arrowLogicalType(dt)
		require.NoError(t, err)
		back, err := dataTypeFromArrow(logical)
		require.NoError(t, err)
		assert.True(t, back.Equal(dt), "%s came back as %s", dt, back)
	}

	phys, err := arrowPhysicalType(DurationType(Milliseconds))
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, phys))

	_, err = dataTypeFromArrow(arrow.BinaryTypes.String)
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	s, err := NewSchema([]string{"a", "b"}, []DataType{DurationType(Milliseconds), Int64Type})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	dt, ok := s.GetDType("a")
	require.True(t, ok)
	assert.Equal(t, DurationType(Milliseconds), dt)

	idx, ok := s.GetIndex("b")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = s.GetDType("missing")
	assert.False(t, ok)

	_, err = NewSchema([]string{"a", "a"}, []DataType{Int64Type, Int64Type})
	assert.Error(t, err)
	_, err = NewSchema([]string{"a"}, nil)
	assert.Error(t, err)
}
