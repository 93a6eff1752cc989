package dynamicfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

func TestRowMatcher(t *testing.T) {
	schema := physical.NewSchema([]physical.SchemaField{idColumn, nameColumn})
	matcher := NewRowMatcher(schema)
	assert.True(t, matcher.Empty())
	assert.True(t, matcher.Matches([]octosql.Value{octosql.NewInt(5), octosql.NewString("x")}))

	matcher.Add(map[string]Filter{
		"id":      NewHashSetFilter("", octosql.NewInt(1), octosql.NewInt(2)),
		"missing": NewHashSetFilter(""),
	})
	assert.False(t, matcher.Empty())
	assert.True(t, matcher.Matches([]octosql.Value{octosql.NewInt(1), octosql.NewString("x")}))
	assert.False(t, matcher.Matches([]octosql.Value{octosql.NewInt(5), octosql.NewString("x")}))

	matcher.Add(map[string]Filter{
		"name": FromHashSetFilter(NewHashSetFilter("", octosql.NewString("alice")), 0.001),
	})
	assert.True(t, matcher.Matches([]octosql.Value{octosql.NewInt(2), octosql.NewString("alice")}))
	assert.False(t, matcher.Matches([]octosql.Value{octosql.NewInt(3), octosql.NewString("alice")}))
}
