package temporal

import (
	"fmt"
	"strings"
)

// DataFrame is an ordered set of equal-length named Series.
type DataFrame struct {
	columns  map[string]*Series
	colOrder []string // Preserve insertion order
}

// ============================================================================
// Creation
// ============================================================================

func newFrame() *DataFrame {
	return &DataFrame{
		columns:  make(map[string]*Series),
		colOrder: make([]string, 0),
	}
}

// NewDataFrame creates a DataFrame from multiple Series. All series must
// have the same length. The DataFrame takes ownership of the series.
func NewDataFrame(series ...*Series) (*DataFrame, error) {
	df := newFrame()
	for _, s := range series {
		if s == nil {
			continue
		}
		if err := df.AddColumn(s); err != nil {
			return nil, err
		}
	}
	return df, nil
}

// AddColumn adds a column, replacing one of the same name.
func (df *DataFrame) AddColumn(series *Series) error {
	if len(df.colOrder) > 0 && series.Len() != df.Height() {
		return fmt.Errorf("column %q: %w: %d rows, frame has %d",
			series.Name(), ErrLengthMismatch, series.Len(), df.Height())
	}

	name := series.Name()
	if old, exists := df.columns[name]; exists {
		old.Release()
	} else {
		df.colOrder = append(df.colOrder, name)
	}
	df.columns[name] = series
	return nil
}

// ============================================================================
// Access
// ============================================================================

// Column returns the Series with the given name, or nil if not found.
func (df *DataFrame) Column(name string) *Series {
	return df.columns[name]
}

// Columns returns the columns in insertion order.
func (df *DataFrame) Columns() []*Series {
	out := make([]*Series, len(df.colOrder))
	for i, name := range df.colOrder {
		out[i] = df.columns[name]
	}
	return out
}

// ColumnNames returns the names of all columns in insertion order.
func (df *DataFrame) ColumnNames() []string {
	result := make([]string, len(df.colOrder))
	copy(result, df.colOrder)
	return result
}

// Height returns the number of rows in the DataFrame.
func (df *DataFrame) Height() int {
	if len(df.colOrder) == 0 {
		return 0
	}
	return df.columns[df.colOrder[0]].Len()
}

// Width returns the number of columns in the DataFrame.
func (df *DataFrame) Width() int {
	return len(df.colOrder)
}

// Schema returns the column names and dtypes.
func (df *DataFrame) Schema() *Schema {
	dtypes := make([]DataType, len(df.colOrder))
	for i, name := range df.colOrder {
		dtypes[i] = df.columns[name].DType()
	}
	return &Schema{names: df.ColumnNames(), dtypes: dtypes}
}

// ============================================================================
// Selection
// ============================================================================

// Select returns a new DataFrame with only the specified columns. The
// columns share buffers with df.
func (df *DataFrame) Select(columns ...string) (*DataFrame, error) {
	result := newFrame()
	for _, name := range columns {
		col := df.Column(name)
		if col == nil {
			result.Release()
			return nil, fmt.Errorf("select: column %q not found", name)
		}
		if err := result.AddColumn(col.Clone()); err != nil {
			result.Release()
			return nil, err
		}
	}
	return result, nil
}

// WithColumn returns a new DataFrame with series added or replaced.
func (df *DataFrame) WithColumn(series *Series) (*DataFrame, error) {
	result := df.Clone()
	if err := result.AddColumn(series); err != nil {
		result.Release()
		return nil, err
	}
	return result, nil
}

// Filter keeps the rows where mask is true.
func (df *DataFrame) Filter(mask []bool) (*DataFrame, error) {
	result := newFrame()
	for _, col := range df.Columns() {
		filtered, err := col.Filter(mask)
		if err != nil {
			result.Release()
			return nil, err
		}
		if err := result.AddColumn(filtered); err != nil {
			result.Release()
			return nil, err
		}
	}
	return result, nil
}

// Slice returns length rows starting at offset, sharing buffers.
func (df *DataFrame) Slice(offset int64, length int) *DataFrame {
	result := newFrame()
	for _, col := range df.Columns() {
		// slices of equal-length columns have equal length
		_ = result.AddColumn(col.Slice(offset, length))
	}
	return result
}

// Clone returns a DataFrame sharing every column's buffers.
func (df *DataFrame) Clone() *DataFrame {
	result := newFrame()
	for _, col := range df.Columns() {
		_ = result.AddColumn(col.Clone())
	}
	return result
}

// Release releases every column.
func (df *DataFrame) Release() {
	for _, col := range df.columns {
		col.Release()
	}
	df.columns = make(map[string]*Series)
	df.colOrder = df.colOrder[:0]
}

// String returns a short description of the frame.
func (df *DataFrame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DataFrame{height: %d, columns: [", df.Height())
	for i, col := range df.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", col.Name(), col.DType())
	}
	b.WriteString("]}")
	return b.String()
}
