package temporal

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ============================================================================
// Arrow Export
// ============================================================================

// ToArrow exports a DataFrame to an Arrow Record. Temporal columns become
// arrow duration, timestamp and date32 arrays over the same buffers; no
// values are copied. The caller is responsible for calling Release() on
// the returned Record.
func (df *DataFrame) ToArrow() (arrow.Record, error) {
	fields := make([]arrow.Field, df.Width())
	arrays := make([]arrow.Array, df.Width())
	release := func() {
		for _, arr := range arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}

	for i, col := range df.Columns() {
		arr, err := col.ToArrow()
		if err != nil {
			release()
			return nil, fmt.Errorf("column %s: %w", col.Name(), err)
		}
		fields[i] = arrow.Field{Name: col.Name(), Type: arr.DataType(), Nullable: true}
		arrays[i] = arr
	}

	record := array.NewRecord(arrow.NewSchema(fields, nil), arrays, int64(df.Height()))
	// Record retains the arrays
	release()
	return record, nil
}

// ToArrowTable exports a DataFrame to an Arrow Table.
// The caller is responsible for calling Release() on the returned Table.
func (df *DataFrame) ToArrowTable() (arrow.Table, error) {
	record, err := df.ToArrow()
	if err != nil {
		return nil, err
	}
	defer record.Release()

	return array.NewTableFromRecords(record.Schema(), []arrow.Record{record}), nil
}

// ToArrow returns the series as an arrow array of its logical arrow type,
// sharing the buffers. The caller releases it.
func (s *Series) ToArrow() (arrow.Array, error) {
	t, err := arrowLogicalType(s.dtype)
	if err != nil {
		return nil, err
	}
	return reinterpretArray(s.arr, t), nil
}

// ============================================================================
// Arrow Import
// ============================================================================

// NewDataFrameFromArrow creates a DataFrame from an Arrow Record. Columns
// share the record's buffers.
func NewDataFrameFromArrow(record arrow.Record) (*DataFrame, error) {
	if record == nil {
		return nil, fmt.Errorf("record is nil")
	}

	schema := record.Schema()
	df := newFrame()
	for i := 0; i < int(record.NumCols()); i++ {
		field := schema.Field(i)
		s, err := NewSeriesFromArrow(field.Name, record.Column(i))
		if err == nil {
			err = df.AddColumn(s)
		}
		if err != nil {
			df.Release()
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
	}
	return df, nil
}

// NewDataFrameFromArrowTable creates a DataFrame from an Arrow Table.
// Multi-chunk columns are concatenated into one array.
func NewDataFrameFromArrowTable(table arrow.Table) (*DataFrame, error) {
	if table == nil {
		return nil, fmt.Errorf("table is nil")
	}

	schema := table.Schema()
	df := newFrame()
	for i := 0; i < int(table.NumCols()); i++ {
		field := schema.Field(i)
		chunks := table.Column(i).Data().Chunks()

		var (
			arr arrow.Array
			err error
		)
		switch len(chunks) {
		case 0:
			arr = array.MakeArrayOfNull(allocator(), field.Type, 0)
		case 1:
			arr = chunks[0]
			arr.Retain()
		default:
			arr, err = array.Concatenate(chunks, allocator())
		}
		if err != nil {
			df.Release()
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}

		s, err := NewSeriesFromArrow(field.Name, arr)
		arr.Release()
		if err == nil {
			err = df.AddColumn(s)
		}
		if err != nil {
			df.Release()
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
	}
	return df, nil
}
