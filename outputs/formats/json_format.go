package formats

import (
	"io"
	"time"

	"github.com/valyala/fastjson"

	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

// JSONFormatter writes one JSON object per row.
type JSONFormatter struct {
	buf    []byte
	arena  *fastjson.Arena
	w      io.Writer
	fields []physical.SchemaField
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{
		buf:   make([]byte, 0, 1024),
		arena: new(fastjson.Arena),
		w:     w,
	}
}

func (t *JSONFormatter) SetSchema(schema physical.Schema) {
	t.fields = schema.Fields
}

func (t *JSONFormatter) Write(values []octosql.Value) error {
	obj := t.arena.NewObject()
	for i := range t.fields {
		obj.Set(t.fields[i].Name, ValueToJson(t.arena, values[i]))
	}

	t.buf = obj.MarshalTo(t.buf)
	t.buf = append(t.buf, '\n')
	_, err := t.w.Write(t.buf)
	t.buf = t.buf[:0]
	t.arena.Reset()
	return err
}

func ValueToJson(arena *fastjson.Arena, value octosql.Value) *fastjson.Value {
	switch value.Type.TypeID {
	case octosql.TypeIDInt:
		return arena.NewNumberInt(value.Int)
	case octosql.TypeIDFloat:
		return arena.NewNumberFloat64(value.Float)
	case octosql.TypeIDBoolean:
		if value.Boolean {
			return arena.NewTrue()
		}
		return arena.NewFalse()
	case octosql.TypeIDString:
		return arena.NewString(value.Str)
	case octosql.TypeIDTime:
		return arena.NewString(value.Time.Format(time.RFC3339Nano))
	case octosql.TypeIDDuration:
		return arena.NewString(value.Duration.String())
	}
	return arena.NewNull()
}

func (t *JSONFormatter) Close() error {
	return nil
}
