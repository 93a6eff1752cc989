package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cube2222/remotescan/config"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
)

const cursorName = "remotescan_cursor"

type column struct {
	field physical.SchemaField
	// cast is appended to the column in the select list, for types pgx would decode into something else.
	cast string
}

// Creator describes the table given in the configuration.
// Columns of unsupported types are left out of the schema.
func Creator(ctx context.Context, tableConfig map[string]interface{}, env remote.Environment) (remote.Table, physical.Schema, error) {
	connString, err := config.GetString(tableConfig, "connString")
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't get connection string")
	}
	name, err := config.GetString(tableConfig, "table")
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't get table name")
	}
	fetchSize, err := config.GetInt(tableConfig, "fetchSize", config.WithDefault(env.PullRows()))
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't get fetch size")
	}
	if fetchSize <= 0 {
		return nil, physical.Schema{}, errors.Errorf("fetch size must be positive, got %d", fetchSize)
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't connect to database")
	}
	defer conn.Close(ctx)

	columns, err := describeTable(ctx, conn, name, env.Logger)
	if err != nil {
		return nil, physical.Schema{}, err
	}
	if len(columns) == 0 {
		return nil, physical.Schema{}, errors.Errorf("table '%s' not found or has no supported columns", name)
	}

	table := &Table{
		connString: connString,
		name:       name,
		columns:    columns,
		fetchSize:  fetchSize,
		env:        env,
	}
	return table, table.Schema(), nil
}

func describeTable(ctx context.Context, conn *pgx.Conn, name string, logger *zap.Logger) ([]column, error) {
	rows, err := conn.Query(ctx, "SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position", name)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't describe table")
	}
	defer rows.Close()

	var columns []column
	for rows.Next() {
		var columnName, dataType string
		if err := rows.Scan(&columnName, &dataType); err != nil {
			return nil, errors.Wrap(err, "couldn't scan table description")
		}
		t, cast, ok := columnType(dataType)
		if !ok {
			logger.Warn("skipping column of unsupported postgres type",
				zap.String("table", name),
				zap.String("column", columnName),
				zap.String("type", dataType),
			)
			continue
		}
		columns = append(columns, column{
			field: physical.SchemaField{Name: columnName, Type: t},
			cast:  cast,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read table description")
	}
	return columns, nil
}

func columnType(dataType string) (t octosql.Type, cast string, ok bool) {
	switch dataType {
	case "smallint", "integer", "bigint":
		return octosql.Int, "", true
	case "real", "double precision":
		return octosql.Float, "", true
	case "numeric":
		return octosql.Float, "::double precision", true
	case "boolean":
		return octosql.Boolean, "", true
	case "text", "character", "character varying":
		return octosql.String, "", true
	case "uuid", "json", "jsonb":
		return octosql.String, "::text", true
	case "date", "timestamp without time zone", "timestamp with time zone":
		return octosql.Time, "", true
	}
	return octosql.Null, "", false
}

// Table reads a Postgres table through a server-side cursor.
type Table struct {
	connString string
	name       string
	columns    []column
	fetchSize  int
	env        remote.Environment
}

func (t *Table) Schema() physical.Schema {
	fields := make([]physical.SchemaField, len(t.columns))
	for i := range t.columns {
		fields[i] = t.columns[i].field
	}
	return physical.NewSchema(fields)
}

// selectQuery reads all columns, as filters may reference any of them.
func (t *Table) selectQuery() string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = pgx.Identifier{c.field.Name}.Sanitize() + c.cast
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM " + pgx.Identifier{t.name}.Sanitize()
}

func (t *Table) fetchQuery() string {
	return "FETCH FORWARD " + strconv.Itoa(t.fetchSize) + " FROM " + cursorName
}

func (t *Table) Materialize(ctx context.Context, columns []physical.SchemaField) (remote.StatementClient, error) {
	pager, err := remote.NewPager(t.Schema(), columns, t.env.PageRows)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create pager")
	}

	conn, err := pgx.Connect(ctx, t.connString)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't connect to database")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Close(ctx)
		return nil, errors.Wrap(err, "couldn't begin transaction")
	}
	if _, err := tx.Exec(ctx, "DECLARE "+cursorName+" NO SCROLL CURSOR FOR "+t.selectQuery()); err != nil {
		conn.Close(ctx)
		return nil, errors.Wrap(err, "couldn't declare cursor")
	}

	timeout := t.env.FetchTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return &Statement{
		conn:       conn,
		tx:         tx,
		fetchQuery: t.fetchQuery(),
		fetchSize:  t.fetchSize,
		timeout:    timeout,
		pager:      pager,
		env:        t.env,
	}, nil
}
