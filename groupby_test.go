package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLatencyFrame(t *testing.T) *DataFrame {
	t.Helper()
	df, err := NewDataFrame(
		NewSeriesInt64("service", []int64{2, 1, 2, 3, 1}),
		durations("latency", Microseconds, 20, 10, 40, 70, nil),
		durations("queued", Microseconds, 1, 2, 3, 4, 5),
	)
	require.NoError(t, err)
	t.Cleanup(df.Release)
	return df
}

func TestGroupBy_Sum(t *testing.T) {
	df := newLatencyFrame(t)

	gb, err := df.GroupBy("service")
	require.NoError(t, err)
	assert.Equal(t, 3, gb.NumGroups())

	out, err := gb.Sum("latency")
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"service", "latency_sum"}, out.ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, values(out.Column("service")))
	assert.Equal(t, DurationType(Microseconds), out.Column("latency_sum").DType())
	assert.Equal(t, []any{int64(10), int64(60), int64(70)}, values(out.Column("latency_sum")))
}

func TestGroupBy_Aggregations(t *testing.T) {
	df := newLatencyFrame(t)
	gb, err := df.GroupBy("service")
	require.NoError(t, err)

	tests := []struct {
		name string
		fn   func(string) (*DataFrame, error)
		col  string
		want []any
	}{
		{"min", gb.Min, "latency_min", []any{int64(10), int64(20), int64(70)}},
		{"max", gb.Max, "latency_max", []any{int64(10), int64(40), int64(70)}},
		{"std", gb.Std, "latency_std", []any{nil, int64(14), nil}},
		{"var", gb.Var, "latency_var", []any{nil, int64(200), nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.fn("latency")
			require.NoError(t, err)
			defer out.Release()
			col := out.Column(tt.col)
			require.NotNil(t, col)
			assert.Equal(t, DurationType(Microseconds), col.DType())
			assert.Equal(t, tt.want, values(col))
		})
	}
}

func TestGroupBy_ListAndCount(t *testing.T) {
	df := newLatencyFrame(t)
	gb, err := df.GroupBy("service")
	require.NoError(t, err)

	lists, err := gb.List("queued")
	require.NoError(t, err)
	defer lists.Release()
	assert.True(t, lists.Column("queued_list").DType().Equal(ListType(DurationType(Microseconds))))

	counts, err := gb.Count()
	require.NoError(t, err)
	defer counts.Release()
	assert.Equal(t, UInt32Type, counts.Column("count").DType())
	assert.Equal(t, []any{uint32(2), uint32(2), uint32(1)}, values(counts.Column("count")))
}

func TestGroupBy_Agg(t *testing.T) {
	df := newLatencyFrame(t)
	gb, err := df.GroupBy("service")
	require.NoError(t, err)

	out, err := gb.Agg(map[string]string{
		"queued":  "max",
		"latency": "sum",
	})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []string{"service", "latency_sum", "queued_max"}, out.ColumnNames())
	assert.Equal(t, []any{int64(5), int64(3), int64(4)}, values(out.Column("queued_max")))

	_, err = gb.Agg(map[string]string{"latency": "mode"})
	assert.Error(t, err)
	_, err = gb.Agg(map[string]string{"missing": "sum"})
	assert.Error(t, err)
}

func TestGroupBy_MissingColumn(t *testing.T) {
	df := newLatencyFrame(t)
	_, err := df.GroupBy("missing")
	assert.Error(t, err)
}
