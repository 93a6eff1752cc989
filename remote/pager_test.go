package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

var testSchema = physical.NewSchema([]physical.SchemaField{
	{Name: "id", Type: octosql.Int},
	{Name: "name", Type: octosql.String},
})

func testRows(n int) [][]octosql.Value {
	rows := make([][]octosql.Value, n)
	for i := range rows {
		rows[i] = []octosql.Value{octosql.NewInt(i), octosql.NewString(string(rune('a' + i%26)))}
	}
	return rows
}

func TestPager_Page(t *testing.T) {
	pager, err := NewPager(testSchema, []physical.SchemaField{{Name: "name", Type: octosql.String}}, 3)
	require.NoError(t, err)

	batches, pruned := pager.Page(testRows(7))
	assert.Equal(t, 0, pruned)
	require.Len(t, batches, 3)
	assert.Equal(t, 3, batches[0].RowCount)
	assert.Equal(t, 3, batches[1].RowCount)
	assert.Equal(t, 1, batches[2].RowCount)
	require.Len(t, batches[0].Columns, 1)
	assert.Equal(t, "a", batches[0].Columns[0][0].Str)
	assert.Equal(t, "g", batches[2].Columns[0][0].Str)

	batches, pruned = pager.Page(nil)
	assert.Empty(t, batches)
	assert.Equal(t, 0, pruned)
}

func TestPager_Filters(t *testing.T) {
	pager, err := NewPager(testSchema, []physical.SchemaField{{Name: "name", Type: octosql.String}}, 10)
	require.NoError(t, err)

	pager.AddFilters(map[string]dynamicfilter.Filter{
		"id":      dynamicfilter.NewHashSetFilter("", octosql.NewInt(1), octosql.NewInt(4)),
		"missing": dynamicfilter.NewHashSetFilter(""),
	})

	batches, pruned := pager.Page(testRows(6))
	assert.Equal(t, 4, pruned)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].RowCount)
	assert.Equal(t, "b", batches[0].Columns[0][0].Str)
	assert.Equal(t, "e", batches[0].Columns[0][1].Str)
}

func TestPager_CountOnly(t *testing.T) {
	pager, err := NewPager(testSchema, nil, 4)
	require.NoError(t, err)

	batches, _ := pager.Page(testRows(5))
	require.Len(t, batches, 2)
	assert.Equal(t, 4, batches[0].RowCount)
	assert.Equal(t, 1, batches[1].RowCount)
	assert.Empty(t, batches[0].Columns)
}

func TestNewPager_Errors(t *testing.T) {
	_, err := NewPager(testSchema, []physical.SchemaField{{Name: "age", Type: octosql.Int}}, 4)
	assert.Error(t, err)

	_, err = NewPager(testSchema, []physical.SchemaField{{Name: "id", Type: octosql.String}}, 4)
	assert.Error(t, err)

	_, err = NewPager(testSchema, nil, 0)
	assert.Error(t, err)
}
