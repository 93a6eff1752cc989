package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cube2222/remotescan/octosql"
)

func TestBatchBuilder(t *testing.T) {
	builder := NewBatchBuilder(2)
	builder.AppendRow([]octosql.Value{octosql.NewInt(1), octosql.NewString("a")})
	builder.AppendRow([]octosql.Value{octosql.NewInt(2), octosql.NewString("bc")})
	assert.Equal(t, 2, builder.RowCount())

	batch := builder.Build()
	assert.Equal(t, 2, batch.RowCount)
	assert.Equal(t, []octosql.Value{octosql.NewInt(2), octosql.NewString("bc")}, batch.Row(1))
	assert.Equal(t, int64(8+1+8+2), batch.SizeInBytes())

	assert.Equal(t, 0, builder.RowCount())
	assert.Equal(t, 0, builder.Build().RowCount)
}

func TestCountOnlyBatch(t *testing.T) {
	batch := NewCountOnlyBatch(17)
	assert.Equal(t, 17, batch.RowCount)
	assert.Len(t, batch.Columns, 0)
	assert.Equal(t, int64(0), batch.SizeInBytes())
	assert.Greater(t, batch.RetainedSizeInBytes(), int64(0))
}

func TestBatch_RetainedSizeGrowsWithPayload(t *testing.T) {
	small := NewBatch([]Column{{octosql.NewString("x")}})
	large := NewBatch([]Column{{octosql.NewString("xxxxxxxxxxxxxxxxxxxxxxxx")}})
	assert.Equal(t, 1, small.RowCount)
	assert.Greater(t, large.RetainedSizeInBytes(), small.RetainedSizeInBytes())
	assert.GreaterOrEqual(t, large.RetainedSizeInBytes(), large.SizeInBytes())
}
