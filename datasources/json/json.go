package json

import (
	"bufio"
	"context"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/cube2222/remotescan/config"
	"github.com/cube2222/remotescan/datasources/memory"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
)

const defaultSampleRows = 100

// Creator loads the newline-delimited JSON file from the table configuration.
func Creator(ctx context.Context, tableConfig map[string]interface{}, env remote.Environment) (remote.Table, physical.Schema, error) {
	path, err := config.GetString(tableConfig, "path")
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't get path")
	}
	sampleRows, err := config.GetInt(tableConfig, "sampleRows", config.WithDefault(defaultSampleRows))
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't get sample rows")
	}

	table, err := Load(path, sampleRows, env)
	if err != nil {
		return nil, physical.Schema{}, err
	}
	return table, table.Schema(), nil
}

// Load reads all objects of the file into memory.
// The schema is inferred from the first sampleRows objects; fields outside of it are ignored.
func Load(path string, sampleRows int, env remote.Environment) (*memory.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open file")
	}
	defer f.Close()

	sc := bufio.NewScanner(bufio.NewReaderSize(f, 4096*1024))
	sc.Buffer(nil, 1024*1024)

	var lines [][]byte
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		lines = append(lines, line)
	}
	if sc.Err() != nil {
		return nil, errors.Wrap(sc.Err(), "couldn't scan lines")
	}

	var p fastjson.Parser
	fields := make(map[string]octosql.Type)
	for i := 0; i < len(lines) && i < sampleRows; i++ {
		o, err := parseObject(&p, lines[i])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid line %d", i+1)
		}
		o.Visit(func(key []byte, v *fastjson.Value) {
			if t, ok := fields[string(key)]; ok {
				fields[string(key)] = typeSum(t, getOctoSQLType(v))
			} else {
				fields[string(key)] = getOctoSQLType(v)
			}
		})
	}

	schemaFields := make([]physical.SchemaField, 0, len(fields))
	for k, t := range fields {
		schemaFields = append(schemaFields, physical.SchemaField{
			Name: k,
			Type: t,
		})
	}
	sort.Slice(schemaFields, func(i, j int) bool {
		return schemaFields[i].Name < schemaFields[j].Name
	})

	rows := make([][]octosql.Value, len(lines))
	for i := range lines {
		o, err := parseObject(&p, lines[i])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid line %d", i+1)
		}
		row := make([]octosql.Value, len(schemaFields))
		for j := range schemaFields {
			row[j] = getOctoSQLValue(schemaFields[j].Type, o.Get(schemaFields[j].Name))
		}
		rows[i] = row
	}

	return memory.NewTable(physical.NewSchema(schemaFields), rows, env), nil
}

func parseObject(p *fastjson.Parser, line []byte) (*fastjson.Object, error) {
	v, err := p.ParseBytes(line)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't parse json")
	}
	o, err := v.Object()
	if err != nil {
		return nil, errors.Errorf("expected JSON object, got '%s'", string(line))
	}
	return o, nil
}

func getOctoSQLType(value *fastjson.Value) octosql.Type {
	switch value.Type() {
	case fastjson.TypeNull:
		return octosql.Null
	case fastjson.TypeString:
		v, _ := value.StringBytes()
		if _, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
			return octosql.Time
		}
		return octosql.String
	case fastjson.TypeNumber:
		if _, err := value.Int(); err == nil {
			return octosql.Int
		}
		return octosql.Float
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return octosql.Boolean
	}
	// Nested objects and arrays are kept as their JSON text.
	return octosql.String
}

// typeSum widens two observed types into one able to hold both.
func typeSum(left, right octosql.Type) octosql.Type {
	switch {
	case left.Is(right):
		return left
	case left.TypeID == octosql.TypeIDNull:
		return right
	case right.TypeID == octosql.TypeIDNull:
		return left
	case isNumeric(left) && isNumeric(right):
		return octosql.Float
	}
	return octosql.String
}

func isNumeric(t octosql.Type) bool {
	return t.TypeID == octosql.TypeIDInt || t.TypeID == octosql.TypeIDFloat
}

// getOctoSQLValue returns null for values which don't fit the column type.
func getOctoSQLValue(t octosql.Type, value *fastjson.Value) octosql.Value {
	if value == nil || value.Type() == fastjson.TypeNull {
		return octosql.NewNull()
	}

	switch t.TypeID {
	case octosql.TypeIDInt:
		if v, err := value.Int(); err == nil {
			return octosql.NewInt(v)
		}
	case octosql.TypeIDFloat:
		if v, err := value.Float64(); err == nil {
			return octosql.NewFloat(v)
		}
	case octosql.TypeIDBoolean:
		switch value.Type() {
		case fastjson.TypeTrue:
			return octosql.NewBoolean(true)
		case fastjson.TypeFalse:
			return octosql.NewBoolean(false)
		}
	case octosql.TypeIDTime:
		if v, err := value.StringBytes(); err == nil {
			if parsed, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
				return octosql.NewTime(parsed)
			}
		}
	case octosql.TypeIDString:
		if v, err := value.StringBytes(); err == nil {
			return octosql.NewString(string(v))
		}
		return octosql.NewString(string(value.MarshalTo(nil)))
	}

	return octosql.NewNull()
}
