package datasources

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cube2222/remotescan/config"
	"github.com/cube2222/remotescan/datasources/json"
	"github.com/cube2222/remotescan/datasources/memory"
	"github.com/cube2222/remotescan/datasources/postgres"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
)

// Creator opens a table from its configuration.
type Creator func(ctx context.Context, tableConfig map[string]interface{}, env remote.Environment) (remote.Table, physical.Schema, error)

var Creators = map[string]Creator{
	"json":     json.Creator,
	"postgres": postgres.Creator,
}

// Open creates all configured tables and gathers them into a single database.
func Open(ctx context.Context, tables []config.TableConfig, env remote.Environment) (*memory.Database, error) {
	db := memory.NewDatabase()
	for _, tableConfig := range tables {
		creator, ok := Creators[tableConfig.Type]
		if !ok {
			return nil, errors.Errorf("unknown table type '%s' of table '%s'", tableConfig.Type, tableConfig.Name)
		}
		table, schema, err := creator(ctx, tableConfig.Config, env)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't open table '%s'", tableConfig.Name)
		}
		db.Add(tableConfig.Name, table, schema)
		if env.Logger != nil {
			env.Logger.Info("opened table",
				zap.String("name", tableConfig.Name),
				zap.String("type", tableConfig.Type),
				zap.Int("columns", len(schema.Fields)),
			)
		}
	}
	return db, nil
}
