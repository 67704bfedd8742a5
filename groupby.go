package temporal

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// GroupBy represents a groupby operation on a DataFrame.
// It holds a reference to the source DataFrame, the grouping column and
// the row buckets computed from it.
type GroupBy struct {
	df     *DataFrame
	by     string
	groups *Groups
}

// GroupBy buckets the rows of df by the values of column. Groups are
// ordered by key, nulls first.
func (df *DataFrame) GroupBy(column string) (*GroupBy, error) {
	key := df.Column(column)
	if key == nil {
		return nil, fmt.Errorf("group_by: column %q not found", column)
	}
	return &GroupBy{
		df:     df,
		by:     column,
		groups: key.GroupTuples(true, true),
	}, nil
}

// Groups returns the row buckets.
func (g *GroupBy) Groups() *Groups {
	return g.groups
}

// NumGroups returns the number of distinct keys.
func (g *GroupBy) NumGroups() int {
	return g.groups.Len()
}

// keys returns one key value per group.
func (g *GroupBy) keys() (*Series, error) {
	first := make([]uint32, g.groups.Len())
	for i := range first {
		first[i] = g.groups.Indices(i)[0]
	}
	return g.df.Column(g.by).TakeSlice(first)
}

// aggFunc computes one aggregated column over the groups.
type aggFunc func(s *Series, groups *Groups) (*Series, error)

var aggregations = map[string]aggFunc{
	"sum":  (*Series).AggSum,
	"min":  (*Series).AggMin,
	"max":  (*Series).AggMax,
	"list": (*Series).AggList,
	"std": func(s *Series, g *Groups) (*Series, error) {
		return s.AggStd(g, 1)
	},
	"var": func(s *Series, g *Groups) (*Series, error) {
		return s.AggVar(g, 1)
	},
}

func (g *GroupBy) aggregate(column, agg string) (*Series, error) {
	fn, ok := aggregations[agg]
	if !ok {
		return nil, fmt.Errorf("group_by: unknown aggregation %q", agg)
	}
	col := g.df.Column(column)
	if col == nil {
		return nil, fmt.Errorf("group_by: column %q not found", column)
	}
	out, err := fn(col, g.groups)
	if err != nil {
		return nil, err
	}
	out.Rename(column + "_" + agg)
	return out, nil
}

// withKeys builds the result frame: the key column followed by cols.
func (g *GroupBy) withKeys(cols ...*Series) (*DataFrame, error) {
	keys, err := g.keys()
	if err != nil {
		return nil, err
	}
	return NewDataFrame(append([]*Series{keys}, cols...)...)
}

func (g *GroupBy) single(column, agg string) (*DataFrame, error) {
	out, err := g.aggregate(column, agg)
	if err != nil {
		return nil, err
	}
	return g.withKeys(out)
}

// Sum computes the sum of column for each group.
func (g *GroupBy) Sum(column string) (*DataFrame, error) { return g.single(column, "sum") }

// Min computes the minimum of column for each group.
func (g *GroupBy) Min(column string) (*DataFrame, error) { return g.single(column, "min") }

// Max computes the maximum of column for each group.
func (g *GroupBy) Max(column string) (*DataFrame, error) { return g.single(column, "max") }

// Std computes the sample standard deviation of column for each group.
func (g *GroupBy) Std(column string) (*DataFrame, error) { return g.single(column, "std") }

// Var computes the sample variance of column for each group.
func (g *GroupBy) Var(column string) (*DataFrame, error) { return g.single(column, "var") }

// List collects the values of column for each group into a list.
func (g *GroupBy) List(column string) (*DataFrame, error) { return g.single(column, "list") }

// Count computes the number of rows in each group.
func (g *GroupBy) Count() (*DataFrame, error) {
	counts := make([]uint32, g.groups.Len())
	for i := range counts {
		counts[i] = uint32(len(g.groups.Indices(i)))
	}
	return g.withKeys(NewSeriesUInt32("count", counts))
}

// Agg computes several aggregations concurrently. aggs maps a column name
// to one of "sum", "min", "max", "std", "var" or "list". Result columns
// are named <column>_<agg> and ordered by column name.
func (g *GroupBy) Agg(aggs map[string]string) (*DataFrame, error) {
	columns := make([]string, 0, len(aggs))
	for col := range aggs {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	results := make([]*Series, len(columns))
	var eg errgroup.Group
	eg.SetLimit(GetMaxThreads())
	for i, col := range columns {
		eg.Go(func() error {
			out, err := g.aggregate(col, aggs[col])
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, r := range results {
			if r != nil {
				r.Release()
			}
		}
		return nil, err
	}
	return g.withKeys(results...)
}
