package dynamicfilter

import (
	"sort"

	"github.com/cube2222/remotescan/physical"
)

// Compact selects the filters for columns not yet in the registry and converts
// exact filters into bloom filters, ready for transmission. Bloom filters computed
// upstream pass through unchanged. The result is keyed by column name and is empty
// if there is nothing new to send. The registry is only read.
//
// If two columns share a name, the one ordered first by type wins.
func Compact(filters map[physical.SchemaField]Filter, registry *Registry, converter *Converter) map[string]Filter {
	out := make(map[string]Filter)
	if len(filters) == 0 {
		return out
	}

	columns := make([]physical.SchemaField, 0, len(filters))
	for column := range filters {
		columns = append(columns, column)
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i].Name != columns[j].Name {
			return columns[i].Name < columns[j].Name
		}
		return columns[i].Type.TypeID < columns[j].Type.TypeID
	})

	for _, column := range columns {
		if registry.Contains(column.Name) {
			continue
		}
		if _, ok := out[column.Name]; ok {
			continue
		}
		filter := filters[column]
		if filter == nil {
			continue
		}
		out[column.Name] = converter.Convert(filter)
	}
	return out
}
