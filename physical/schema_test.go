package physical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/remotescan/octosql"
)

func TestSchema_Project(t *testing.T) {
	schema := NewSchema([]SchemaField{
		{Name: "id", Type: octosql.Int},
		{Name: "name", Type: octosql.String},
		{Name: "score", Type: octosql.Float},
	})

	projected, err := schema.Project([]string{"score", "id"})
	require.NoError(t, err)
	assert.Equal(t, []SchemaField{
		{Name: "score", Type: octosql.Float},
		{Name: "id", Type: octosql.Int},
	}, projected.Fields)

	empty, err := schema.Project(nil)
	require.NoError(t, err)
	assert.Len(t, empty.Fields, 0)

	_, err = schema.Project([]string{"missing"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "id, name, score")
}

func TestSchema_FieldIndex(t *testing.T) {
	schema := NewSchema([]SchemaField{{Name: "a"}, {Name: "b"}})
	assert.Equal(t, 1, schema.FieldIndex("b"))
	assert.Equal(t, -1, schema.FieldIndex("c"))
}
