package formats

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type CSVFormatter struct {
	writer *csv.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{
		writer: csv.NewWriter(w),
	}
}

func (t *CSVFormatter) SetSchema(schema physical.Schema) {
	header := make([]string, len(schema.Fields))
	for i := range schema.Fields {
		header[i] = schema.Fields[i].Name
	}
	t.writer.Write(header)
}

func (t *CSVFormatter) Write(values []octosql.Value) error {
	row := make([]string, len(values))
	for i := range values {
		if values[i].Type.TypeID == octosql.TypeIDNull {
			continue
		}
		row[i] = fmt.Sprintf("%v", values[i].ToRawGoValue())
	}
	return t.writer.Write(row)
}

func (t *CSVFormatter) Close() error {
	t.writer.Flush()
	return t.writer.Error()
}
