package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

// publishFilters parses column=v1,v2 flags and publishes a hash set filter per column.
func publishFilters(collector *dynamicfilter.Collector, schema physical.Schema, defs []string) error {
	for _, def := range defs {
		name, rawValues, ok := strings.Cut(def, "=")
		if !ok {
			return errors.Errorf("invalid filter '%s', expected column=value[,value...]", def)
		}
		index := schema.FieldIndex(name)
		if index == -1 {
			return errors.Errorf("unknown filter column '%s'", name)
		}
		field := schema.Fields[index]

		parts := strings.Split(rawValues, ",")
		values := make([]octosql.Value, len(parts))
		for i, part := range parts {
			value, err := parseValue(field.Type, part)
			if err != nil {
				return errors.Wrapf(err, "couldn't parse filter value for column '%s'", name)
			}
			values[i] = value
		}
		collector.Publish(field, dynamicfilter.NewHashSetFilter("cli."+name, values...))
	}
	return nil
}

func parseValue(t octosql.Type, text string) (octosql.Value, error) {
	switch t.TypeID {
	case octosql.TypeIDInt:
		v, err := strconv.Atoi(text)
		if err != nil {
			return octosql.ZeroValue, err
		}
		return octosql.NewInt(v), nil
	case octosql.TypeIDFloat:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return octosql.ZeroValue, err
		}
		return octosql.NewFloat(v), nil
	case octosql.TypeIDBoolean:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return octosql.ZeroValue, err
		}
		return octosql.NewBoolean(v), nil
	case octosql.TypeIDString:
		return octosql.NewString(text), nil
	case octosql.TypeIDTime:
		v, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return octosql.ZeroValue, err
		}
		return octosql.NewTime(v), nil
	case octosql.TypeIDDuration:
		v, err := time.ParseDuration(text)
		if err != nil {
			return octosql.ZeroValue, err
		}
		return octosql.NewDuration(v), nil
	}
	return octosql.ZeroValue, errors.Errorf("can't filter on %s column", t)
}

// parseOrderBy turns column[:desc] flags into key indices and direction multipliers.
func parseOrderBy(schema physical.Schema, defs []string) ([]int, []int, error) {
	indices := make([]int, len(defs))
	multipliers := make([]int, len(defs))
	for i, def := range defs {
		name, direction, _ := strings.Cut(def, ":")
		index := schema.FieldIndex(name)
		if index == -1 {
			return nil, nil, errors.Errorf("unknown order by column '%s'", name)
		}
		indices[i] = index
		switch strings.ToLower(direction) {
		case "", "asc":
			multipliers[i] = 1
		case "desc":
			multipliers[i] = -1
		default:
			return nil, nil, errors.Errorf("invalid order by direction '%s'", direction)
		}
	}
	return indices, multipliers, nil
}
