package remote

import (
	"github.com/pkg/errors"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

// Pager turns source rows into batches of the requested columns.
// Rows rejected by the filters received so far are dropped before projection.
type Pager struct {
	indices  []int
	matcher  *dynamicfilter.RowMatcher
	pageRows int
}

func NewPager(schema physical.Schema, columns []physical.SchemaField, pageRows int) (*Pager, error) {
	if pageRows <= 0 {
		return nil, errors.Errorf("page rows must be positive, got %d", pageRows)
	}
	indices := make([]int, len(columns))
	for i, column := range columns {
		index := schema.FieldIndex(column.Name)
		if index == -1 {
			return nil, errors.Errorf("unknown column '%s'", column.Name)
		}
		if !schema.Fields[index].Type.Is(column.Type) {
			return nil, errors.Errorf("column '%s' has type %s, requested %s", column.Name, schema.Fields[index].Type, column.Type)
		}
		indices[i] = index
	}
	return &Pager{
		indices:  indices,
		matcher:  dynamicfilter.NewRowMatcher(schema),
		pageRows: pageRows,
	}, nil
}

func (p *Pager) AddFilters(filters map[string]dynamicfilter.Filter) {
	p.matcher.Add(filters)
}

// Page splits the rows into batches of at most pageRows rows.
// It also reports how many rows the filters dropped.
func (p *Pager) Page(rows [][]octosql.Value) (batches []*execution.Batch, pruned int) {
	builder := execution.NewBatchBuilder(len(p.indices))
	projected := make([]octosql.Value, len(p.indices))
	for _, row := range rows {
		if !p.matcher.Matches(row) {
			pruned++
			continue
		}
		for i, index := range p.indices {
			projected[i] = row[index]
		}
		builder.AppendRow(projected)
		if builder.RowCount() == p.pageRows {
			batches = append(batches, builder.Build())
		}
	}
	if builder.RowCount() > 0 {
		batches = append(batches, builder.Build())
	}
	return batches, pruned
}
