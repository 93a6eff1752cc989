package formats

import (
	"io"

	"github.com/pkg/errors"

	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type Format interface {
	SetSchema(physical.Schema)
	Write([]octosql.Value) error
	Close() error
}

// Formats lists the available formats by name.
var Formats = map[string]func(io.Writer) Format{
	"table": func(w io.Writer) Format { return NewTableFormatter(w) },
	"csv":   func(w io.Writer) Format { return NewCSVFormatter(w) },
	"json":  func(w io.Writer) Format { return NewJSONFormatter(w) },
}

func Get(name string) (func(io.Writer) Format, error) {
	format, ok := Formats[name]
	if !ok {
		return nil, errors.Errorf("unknown output format: %s", name)
	}
	return format, nil
}
