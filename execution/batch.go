package execution

import (
	"unsafe"

	"github.com/cube2222/remotescan/octosql"
)

// Column holds the values of a single column of a Batch, one per row.
type Column []octosql.Value

// Batch is a bounded, columnar chunk of result rows. Batches are immutable once produced.
// A batch without columns still carries its row count, which is all count-only queries need.
type Batch struct {
	RowCount int
	Columns  []Column
}

func NewBatch(columns []Column) *Batch {
	rowCount := 0
	if len(columns) > 0 {
		rowCount = len(columns[0])
	}
	return &Batch{
		RowCount: rowCount,
		Columns:  columns,
	}
}

// NewCountOnlyBatch creates a batch with the given row count and no column payload.
func NewCountOnlyBatch(rowCount int) *Batch {
	return &Batch{
		RowCount: rowCount,
	}
}

// Row materializes the values of a single row.
func (b *Batch) Row(index int) []octosql.Value {
	out := make([]octosql.Value, len(b.Columns))
	for i := range b.Columns {
		out[i] = b.Columns[i][index]
	}
	return out
}

// SizeInBytes is the logical size of the batch payload.
func (b *Batch) SizeInBytes() int64 {
	var out int64
	for i := range b.Columns {
		for j := range b.Columns[i] {
			out += b.Columns[i][j].SizeInBytes()
		}
	}
	return out
}

// RetainedSizeInBytes is the memory held by the batch, including unused slice capacity.
func (b *Batch) RetainedSizeInBytes() int64 {
	out := int64(unsafe.Sizeof(*b))
	valueSize := int64(unsafe.Sizeof(octosql.Value{}))
	for i := range b.Columns {
		out += int64(unsafe.Sizeof(b.Columns[i]))
		out += int64(cap(b.Columns[i])-len(b.Columns[i])) * valueSize
		for j := range b.Columns[i] {
			out += b.Columns[i][j].RetainedSizeInBytes()
		}
	}
	return out
}

// BatchBuilder accumulates rows and produces columnar batches.
type BatchBuilder struct {
	columnCount int
	rowCount    int
	columns     []Column
}

func NewBatchBuilder(columnCount int) *BatchBuilder {
	return &BatchBuilder{
		columnCount: columnCount,
		columns:     make([]Column, columnCount),
	}
}

func (bb *BatchBuilder) AppendRow(row []octosql.Value) {
	for i := 0; i < bb.columnCount; i++ {
		bb.columns[i] = append(bb.columns[i], row[i])
	}
	bb.rowCount++
}

func (bb *BatchBuilder) RowCount() int {
	return bb.rowCount
}

// Build returns the accumulated rows as a batch and resets the builder.
func (bb *BatchBuilder) Build() *Batch {
	out := &Batch{
		RowCount: bb.rowCount,
		Columns:  bb.columns,
	}
	bb.columns = make([]Column, bb.columnCount)
	bb.rowCount = 0
	return out
}
