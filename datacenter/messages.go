package datacenter

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ListTablesRequest struct{}

type ListTablesResponse struct {
	Tables []string `json:"tables"`
}

type DescribeRequest struct {
	Table string `json:"table"`
}

type DescribeResponse struct {
	Fields []Field `json:"fields"`
}

type SubmitRequest struct {
	Table   string  `json:"table"`
	Columns []Field `json:"columns"`
}

type SubmitResponse struct {
	StatementID string `json:"statementId"`
	Done        bool   `json:"done"`
}

// FetchRequest asks for the batches at the given token.
// Repeating a request for the latest token returns the same batches.
type FetchRequest struct {
	StatementID string `json:"statementId"`
	Token       uint64 `json:"token"`
}

type FetchResponse struct {
	Batches   []Batch `json:"batches"`
	NextToken uint64  `json:"nextToken"`
	Done      bool    `json:"done"`
}

type ApplyFiltersRequest struct {
	StatementID string            `json:"statementId"`
	Filters     map[string]Filter `json:"filters"`
}

type ApplyFiltersResponse struct {
	Accepted bool `json:"accepted"`
}

type CancelRequest struct {
	StatementID string `json:"statementId"`
}

type CancelResponse struct{}

type Batch struct {
	RowCount int       `json:"rowCount"`
	Columns  [][]Value `json:"columns,omitempty"`
}

// Value is a single octosql value. Floats which JSON can't represent travel as strings.
type Value struct {
	Type      octosql.TypeID `json:"t"`
	Int       int            `json:"i,omitempty"`
	Float     float64        `json:"f,omitempty"`
	FloatText string         `json:"ft,omitempty"`
	Boolean   bool           `json:"b,omitempty"`
	Str       string         `json:"s,omitempty"`
	Time      *time.Time     `json:"ts,omitempty"`
	Duration  time.Duration  `json:"d,omitempty"`
}

// Filter is either a bloom filter, with its bitmap in roaring portable format, or a set of values.
type Filter struct {
	Kind      string  `json:"kind"`
	ID        string  `json:"id,omitempty"`
	NumBits   uint32  `json:"numBits,omitempty"`
	NumHashes uint32  `json:"numHashes,omitempty"`
	Bitmap    []byte  `json:"bitmap,omitempty"`
	Values    []Value `json:"values,omitempty"`
}

func encodeFields(fields []physical.SchemaField) []Field {
	out := make([]Field, len(fields))
	for i := range fields {
		out[i] = Field{
			Name: fields[i].Name,
			Type: fields[i].Type.String(),
		}
	}
	return out
}

func decodeFields(fields []Field) ([]physical.SchemaField, error) {
	out := make([]physical.SchemaField, len(fields))
	for i := range fields {
		t, err := octosql.ParseType(fields[i].Type)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid type of column '%s'", fields[i].Name)
		}
		out[i] = physical.SchemaField{
			Name: fields[i].Name,
			Type: t,
		}
	}
	return out, nil
}

func encodeValue(value octosql.Value) Value {
	out := Value{Type: value.Type.TypeID}
	switch value.Type.TypeID {
	case octosql.TypeIDInt:
		out.Int = value.Int
	case octosql.TypeIDFloat:
		switch {
		case math.IsNaN(value.Float):
			out.FloatText = "NaN"
		case math.IsInf(value.Float, 1):
			out.FloatText = "+Inf"
		case math.IsInf(value.Float, -1):
			out.FloatText = "-Inf"
		default:
			out.Float = value.Float
		}
	case octosql.TypeIDBoolean:
		out.Boolean = value.Boolean
	case octosql.TypeIDString:
		out.Str = value.Str
	case octosql.TypeIDTime:
		t := value.Time
		out.Time = &t
	case octosql.TypeIDDuration:
		out.Duration = value.Duration
	}
	return out
}

func decodeValue(value Value) (octosql.Value, error) {
	switch value.Type {
	case octosql.TypeIDNull:
		return octosql.NewNull(), nil
	case octosql.TypeIDInt:
		return octosql.NewInt(value.Int), nil
	case octosql.TypeIDFloat:
		switch value.FloatText {
		case "":
			return octosql.NewFloat(value.Float), nil
		case "NaN":
			return octosql.NewFloat(math.NaN()), nil
		case "+Inf":
			return octosql.NewFloat(math.Inf(1)), nil
		case "-Inf":
			return octosql.NewFloat(math.Inf(-1)), nil
		}
		return octosql.Value{}, errors.Errorf("invalid float: %s", value.FloatText)
	case octosql.TypeIDBoolean:
		return octosql.NewBoolean(value.Boolean), nil
	case octosql.TypeIDString:
		return octosql.NewString(value.Str), nil
	case octosql.TypeIDTime:
		if value.Time == nil {
			return octosql.Value{}, errors.New("time value without time")
		}
		return octosql.NewTime(*value.Time), nil
	case octosql.TypeIDDuration:
		return octosql.NewDuration(value.Duration), nil
	}
	return octosql.Value{}, errors.Errorf("invalid value type: %d", value.Type)
}

func encodeBatches(batches []*execution.Batch) []Batch {
	out := make([]Batch, len(batches))
	for i, batch := range batches {
		out[i].RowCount = batch.RowCount
		if len(batch.Columns) == 0 {
			continue
		}
		out[i].Columns = make([][]Value, len(batch.Columns))
		for j, column := range batch.Columns {
			values := make([]Value, len(column))
			for k := range column {
				values[k] = encodeValue(column[k])
			}
			out[i].Columns[j] = values
		}
	}
	return out
}

func decodeBatches(batches []Batch) ([]*execution.Batch, error) {
	out := make([]*execution.Batch, len(batches))
	for i, batch := range batches {
		if len(batch.Columns) == 0 {
			out[i] = execution.NewCountOnlyBatch(batch.RowCount)
			continue
		}
		columns := make([]execution.Column, len(batch.Columns))
		for j, column := range batch.Columns {
			if len(column) != batch.RowCount {
				return nil, errors.Errorf("column %d of batch %d has %d values, expected %d", j, i, len(column), batch.RowCount)
			}
			values := make(execution.Column, len(column))
			for k := range column {
				value, err := decodeValue(column[k])
				if err != nil {
					return nil, errors.Wrapf(err, "invalid value in column %d of batch %d", j, i)
				}
				values[k] = value
			}
			columns[j] = values
		}
		out[i] = &execution.Batch{
			RowCount: batch.RowCount,
			Columns:  columns,
		}
	}
	return out, nil
}

func encodeFilters(filters map[string]dynamicfilter.Filter) (map[string]Filter, error) {
	out := make(map[string]Filter, len(filters))
	for column, filter := range filters {
		switch filter := filter.(type) {
		case *dynamicfilter.BloomFilter:
			bitmap, err := filter.BitmapBytes()
			if err != nil {
				return nil, errors.Wrapf(err, "couldn't serialize bloom filter of column '%s'", column)
			}
			out[column] = Filter{
				Kind:      dynamicfilter.KindBloom.String(),
				ID:        filter.ID(),
				NumBits:   filter.NumBits(),
				NumHashes: filter.NumHashes(),
				Bitmap:    bitmap,
			}
		case *dynamicfilter.HashSetFilter:
			values := filter.Values()
			encoded := make([]Value, len(values))
			for i := range values {
				encoded[i] = encodeValue(values[i])
			}
			out[column] = Filter{
				Kind:   dynamicfilter.KindHashSet.String(),
				ID:     filter.ID(),
				Values: encoded,
			}
		default:
			return nil, errors.Errorf("unsupported filter of column '%s': %T", column, filter)
		}
	}
	return out, nil
}

func decodeFilters(filters map[string]Filter) (map[string]dynamicfilter.Filter, error) {
	out := make(map[string]dynamicfilter.Filter, len(filters))
	for column, filter := range filters {
		switch filter.Kind {
		case dynamicfilter.KindBloom.String():
			decoded, err := dynamicfilter.NewBloomFilterFromBitmap(filter.ID, filter.NumBits, filter.NumHashes, filter.Bitmap)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid bloom filter of column '%s'", column)
			}
			out[column] = decoded
		case dynamicfilter.KindHashSet.String():
			values := make([]octosql.Value, len(filter.Values))
			for i := range filter.Values {
				value, err := decodeValue(filter.Values[i])
				if err != nil {
					return nil, errors.Wrapf(err, "invalid value in filter of column '%s'", column)
				}
				values[i] = value
			}
			out[column] = dynamicfilter.NewHashSetFilter(filter.ID, values...)
		default:
			return nil, errors.Errorf("unknown filter kind of column '%s': %s", column, filter.Kind)
		}
	}
	return out, nil
}
