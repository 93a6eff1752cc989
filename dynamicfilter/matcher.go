package dynamicfilter

import (
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type columnFilter struct {
	index  int
	filter Filter
}

// RowMatcher prunes rows using filters received from a consumer.
// Filters for columns missing from the schema are ignored.
type RowMatcher struct {
	schema  physical.Schema
	filters []columnFilter
}

func NewRowMatcher(schema physical.Schema) *RowMatcher {
	return &RowMatcher{
		schema: schema,
	}
}

// Add registers additional filters. All filters must match for a row to pass.
func (m *RowMatcher) Add(filters map[string]Filter) {
	for column, filter := range filters {
		index := m.schema.FieldIndex(column)
		if index == -1 {
			continue
		}
		m.filters = append(m.filters, columnFilter{
			index:  index,
			filter: filter,
		})
	}
}

func (m *RowMatcher) Empty() bool {
	return len(m.filters) == 0
}

func (m *RowMatcher) Matches(row []octosql.Value) bool {
	for _, f := range m.filters {
		if !f.filter.Contains(row[f.index]) {
			return false
		}
	}
	return true
}
