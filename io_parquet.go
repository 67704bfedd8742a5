package temporal

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	json "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"
)

// Key/value metadata written next to the data. Parquet leaves only carry
// the physical type, so the logical dtype of every column (unit and time
// zone included) and the column order are recorded here.
const (
	parquetDTypeKeyPrefix = "temporal.dtype."
	parquetColumnsKey     = "temporal.columns"
)

// ParquetReadOptions configures Parquet reading behavior
type ParquetReadOptions struct {
	Columns []string // Only read these columns (nil = all)
	MaxRows int      // Max rows to read (0 = unlimited)
}

// DefaultParquetReadOptions returns default Parquet reading options
func DefaultParquetReadOptions() ParquetReadOptions {
	return ParquetReadOptions{}
}

// ParquetWriteOptions configures Parquet writing behavior
type ParquetWriteOptions struct {
	Compression  string // "snappy", "gzip", "zstd", "none" (default "snappy")
	RowGroupSize int    // Rows per row group (default 1000000)
}

// DefaultParquetWriteOptions returns default Parquet writing options
func DefaultParquetWriteOptions() ParquetWriteOptions {
	return ParquetWriteOptions{
		Compression:  "snappy",
		RowGroupSize: 1000000,
	}
}

// ============================================================================
// Writing
// ============================================================================

// WriteParquet writes a DataFrame to a Parquet file
func (df *DataFrame) WriteParquet(path string, opts ...ParquetWriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := df.WriteParquetToWriter(f, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteParquetToWriter writes a DataFrame to an io.Writer. Every column is
// an optional leaf of its physical type.
func (df *DataFrame) WriteParquetToWriter(w io.Writer, opts ...ParquetWriteOptions) error {
	opt := DefaultParquetWriteOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.RowGroupSize <= 0 {
		opt.RowGroupSize = DefaultParquetWriteOptions().RowGroupSize
	}

	cols := df.Columns()
	group := make(parquet.Group, len(cols))
	for _, col := range cols {
		node, err := dtypeToParquetNode(col.DType())
		if err != nil {
			return fmt.Errorf("column %s: %w", col.Name(), err)
		}
		group[col.Name()] = parquet.Optional(node)
	}
	schema := parquet.NewSchema("dataframe", group)

	order, err := json.Marshal(df.ColumnNames())
	if err != nil {
		return fmt.Errorf("failed to encode column order: %w", err)
	}
	writerOpts := []parquet.WriterOption{
		schema,
		parquet.KeyValueMetadata(parquetColumnsKey, string(order)),
		parquet.MaxRowsPerRowGroup(int64(opt.RowGroupSize)),
	}
	for _, col := range cols {
		writerOpts = append(writerOpts, parquet.KeyValueMetadata(parquetDTypeKeyPrefix+col.Name(), col.DType().String()))
	}
	switch opt.Compression {
	case "snappy":
		writerOpts = append(writerOpts, parquet.Compression(&parquet.Snappy))
	case "gzip":
		writerOpts = append(writerOpts, parquet.Compression(&parquet.Gzip))
	case "zstd":
		writerOpts = append(writerOpts, parquet.Compression(&parquet.Zstd))
	}

	// leaves are ordered by the schema, not by the frame
	leafIndex := make([]int, len(cols))
	for i, col := range cols {
		leaf, ok := schema.Lookup(col.Name())
		if !ok {
			return fmt.Errorf("column %s: missing from parquet schema", col.Name())
		}
		leafIndex[i] = leaf.ColumnIndex
	}

	pw := parquet.NewWriter(w, writerOpts...)

	const batchSize = 1000
	height := df.Height()
	rows := make([]parquet.Row, 0, batchSize)
	for i := 0; i < height; i++ {
		row := make(parquet.Row, len(cols))
		for j, col := range cols {
			row[leafIndex[j]] = toParquetValue(col, i).Level(0, definitionLevel(col, i), leafIndex[j])
		}
		rows = append(rows, row)

		if len(rows) >= batchSize {
			if _, err := pw.WriteRows(rows); err != nil {
				pw.Close()
				return fmt.Errorf("failed to write rows at %d: %w", i-len(rows)+1, err)
			}
			rows = rows[:0]
		}
	}

	if len(rows) > 0 {
		if _, err := pw.WriteRows(rows); err != nil {
			pw.Close()
			return fmt.Errorf("failed to write final rows: %w", err)
		}
	}
	return pw.Close()
}

func definitionLevel(s *Series, i int) int {
	if s.IsValid(i) {
		return 1
	}
	return 0
}

func dtypeToParquetNode(dt DataType) (parquet.Node, error) {
	switch dt.ToPhysical().kind {
	case Float64:
		return parquet.Leaf(parquet.DoubleType), nil
	case Float32:
		return parquet.Leaf(parquet.FloatType), nil
	case Int64, UInt64:
		return parquet.Leaf(parquet.Int64Type), nil
	case Int32, UInt32:
		return parquet.Leaf(parquet.Int32Type), nil
	case Bool:
		return parquet.Leaf(parquet.BooleanType), nil
	default:
		return nil, fmt.Errorf("dtype %s has no parquet leaf", dt)
	}
}

// toParquetValue converts element i; unsigned values are stored as the
// signed integer with the same bits.
func toParquetValue(s *Series, i int) parquet.Value {
	switch v := s.Get(i).(type) {
	case float64:
		return parquet.DoubleValue(v)
	case float32:
		return parquet.FloatValue(v)
	case int64:
		return parquet.Int64Value(v)
	case int32:
		return parquet.Int32Value(v)
	case uint64:
		return parquet.Int64Value(int64(v))
	case uint32:
		return parquet.Int32Value(int32(v))
	case bool:
		return parquet.BooleanValue(v)
	default:
		return parquet.NullValue()
	}
}

// ============================================================================
// Reading
// ============================================================================

// ReadParquet reads a Parquet file into a DataFrame
func ReadParquet(path string, opts ...ParquetReadOptions) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return ReadParquetFromReader(f, stat.Size(), opts...)
}

// parquetColumn is one column selected for reading.
type parquetColumn struct {
	name     string
	dtype    DataType
	leaf     int
	physical arrow.DataType
}

// ReadParquetFromReader reads Parquet data from an io.ReaderAt into a
// DataFrame. Dtypes recorded by WriteParquetToWriter are restored;
// other files are read with the dtype of each physical leaf.
func ReadParquetFromReader(r io.ReaderAt, size int64, opts ...ParquetReadOptions) (*DataFrame, error) {
	opt := DefaultParquetReadOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	schema := pf.Schema()

	colNames := opt.Columns
	if len(colNames) == 0 {
		colNames = parquetColumnOrder(pf)
	}

	cols := make([]parquetColumn, len(colNames))
	for i, name := range colNames {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("column '%s' not found in parquet file", name)
		}
		dt, err := parquetColumnDType(pf, name, leaf.Node)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		phys, err := arrowPhysicalType(dt)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		cols[i] = parquetColumn{name: name, dtype: dt, leaf: leaf.ColumnIndex, physical: phys}
	}

	rowGroups := pf.RowGroups()
	chunks := make([][]arrow.Array, len(rowGroups))
	release := func() {
		for _, rg := range chunks {
			for _, arr := range rg {
				if arr != nil {
					arr.Release()
				}
			}
		}
	}

	var eg errgroup.Group
	if len(rowGroups) > 1 && ShouldParallelizeOp(OpRowGroupDecode, int(pf.NumRows())) {
		eg.SetLimit(GetParallelConfig().numWorkers())
	} else {
		eg.SetLimit(1)
	}
	for i, rg := range rowGroups {
		eg.Go(func() error {
			arrs, err := readRowGroup(rg, cols)
			if err != nil {
				return fmt.Errorf("row group %d: %w", i, err)
			}
			chunks[i] = arrs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		release()
		return nil, err
	}
	defer release()

	df := newFrame()
	for j, col := range cols {
		parts := make([]arrow.Array, 0, len(chunks))
		for _, rg := range chunks {
			parts = append(parts, rg[j])
		}
		var arr arrow.Array
		switch len(parts) {
		case 0:
			arr = array.MakeArrayOfNull(allocator(), col.physical, 0)
		case 1:
			arr = parts[0]
			arr.Retain()
		default:
			arr, err = array.Concatenate(parts, allocator())
			if err != nil {
				df.Release()
				return nil, fmt.Errorf("column %s: %w", col.name, err)
			}
		}

		s := newSeries(col.name, col.dtype, arr)
		if opt.MaxRows > 0 && s.Len() > opt.MaxRows {
			head := s.Head(opt.MaxRows)
			s.Release()
			s = head
		}
		if err := df.AddColumn(s); err != nil {
			df.Release()
			return nil, err
		}
	}
	return df, nil
}

// parquetColumnOrder returns the column order recorded at write time, or
// the schema order for foreign files.
func parquetColumnOrder(pf *parquet.File) []string {
	if raw, ok := pf.Lookup(parquetColumnsKey); ok {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err == nil {
			return names
		}
	}
	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}
	return names
}

func parquetColumnDType(pf *parquet.File, name string, node parquet.Node) (DataType, error) {
	if raw, ok := pf.Lookup(parquetDTypeKeyPrefix + name); ok {
		return ParseDataType(raw)
	}
	switch node.Type().Kind() {
	case parquet.Boolean:
		return BoolType, nil
	case parquet.Int32:
		return Int32Type, nil
	case parquet.Int64:
		return Int64Type, nil
	case parquet.Float:
		return Float32Type, nil
	case parquet.Double:
		return Float64Type, nil
	default:
		return DataType{}, fmt.Errorf("unsupported parquet type %s", node.Type())
	}
}

// readRowGroup decodes the selected columns of one row group into arrow
// arrays of their physical types.
func readRowGroup(rg parquet.RowGroup, cols []parquetColumn) ([]arrow.Array, error) {
	builders := make([]array.Builder, len(cols))
	byLeaf := make(map[int]int, len(cols))
	for i, col := range cols {
		builders[i] = array.NewBuilder(allocator(), col.physical)
		builders[i].Reserve(int(rg.NumRows()))
		byLeaf[col.leaf] = i
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, 256)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				i, ok := byLeaf[v.Column()]
				if !ok {
					continue
				}
				appendParquetValue(builders[i], v)
			}
		}
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]arrow.Array, len(builders))
	for i, b := range builders {
		out[i] = b.NewArray()
	}
	return out, nil
}

func appendParquetValue(b array.Builder, v parquet.Value) {
	if v.IsNull() {
		b.AppendNull()
		return
	}
	switch b := b.(type) {
	case *array.Float64Builder:
		b.Append(v.Double())
	case *array.Float32Builder:
		b.Append(v.Float())
	case *array.Int64Builder:
		b.Append(v.Int64())
	case *array.Int32Builder:
		b.Append(v.Int32())
	case *array.Uint64Builder:
		b.Append(uint64(v.Int64()))
	case *array.Uint32Builder:
		b.Append(uint32(v.Int32()))
	case *array.BooleanBuilder:
		b.Append(v.Boolean())
	default:
		b.AppendNull()
	}
}
