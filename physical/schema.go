package physical

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cube2222/remotescan/octosql"
)

type Schema struct {
	Fields []SchemaField
}

func NewSchema(fields []SchemaField) Schema {
	return Schema{
		Fields: fields,
	}
}

// SchemaField identifies a column of a result set. Filter bookkeeping keys on Name.
type SchemaField struct {
	Name string
	Type octosql.Type
}

func (f SchemaField) String() string {
	return f.Name + " " + f.Type.String()
}

// FieldIndex returns -1 if there is no field with the given name.
func (s Schema) FieldIndex(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Project returns the schema narrowed to the given column names, in the given order.
// An empty list of names yields an empty schema, used by count-only queries.
func (s Schema) Project(names []string) (Schema, error) {
	out := make([]SchemaField, len(names))
	for i, name := range names {
		index := s.FieldIndex(name)
		if index == -1 {
			return Schema{}, errors.Errorf("unknown column '%s', available columns: %s", name, s.columnNames())
		}
		out[i] = s.Fields[index]
	}
	return NewSchema(out), nil
}

func (s Schema) columnNames() string {
	names := make([]string, len(s.Fields))
	for i := range s.Fields {
		names[i] = s.Fields[i].Name
	}
	return strings.Join(names, ", ")
}
