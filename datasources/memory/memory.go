package memory

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
)

var ErrStatementClosed = errors.New("statement closed")

// Table serves rows held in memory.
type Table struct {
	schema physical.Schema
	rows   [][]octosql.Value
	env    remote.Environment
}

func NewTable(schema physical.Schema, rows [][]octosql.Value, env remote.Environment) *Table {
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	return &Table{
		schema: schema,
		rows:   rows,
		env:    env,
	}
}

func (t *Table) Schema() physical.Schema {
	return t.schema
}

func (t *Table) Materialize(ctx context.Context, columns []physical.SchemaField) (remote.StatementClient, error) {
	pager, err := remote.NewPager(t.schema, columns, t.env.PageRows)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create pager")
	}
	return &Statement{
		rows:     t.rows,
		pullRows: t.env.PullRows(),
		pager:    pager,
		env:      t.env,
	}, nil
}

// Statement reads a fixed slice of rows, a page at a time.
// Pulls are deterministic for a given position, so they may be repeated.
type Statement struct {
	rows     [][]octosql.Value
	pullRows int
	pager    *remote.Pager
	env      remote.Environment

	position int
	closed   bool
}

func (s *Statement) IsProducing() bool {
	return !s.closed && s.position < len(s.rows)
}

func (s *Statement) Pull() ([]*execution.Batch, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	end := s.position + s.pullRows
	if end > len(s.rows) {
		end = len(s.rows)
	}
	batches, pruned := s.pager.Page(s.rows[s.position:end])
	if pruned > 0 {
		s.env.Telemetry.ObservePrunedRows(pruned)
	}
	return batches, nil
}

func (s *Statement) Advance() {
	s.position += s.pullRows
	if s.position > len(s.rows) {
		s.position = len(s.rows)
	}
}

func (s *Statement) SubmitFilters(filters map[string]dynamicfilter.Filter) (bool, error) {
	if s.closed {
		return false, ErrStatementClosed
	}
	s.pager.AddFilters(filters)
	s.env.Logger.Debug("applied dynamic filters", zap.Int("columns", len(filters)))
	return true, nil
}

func (s *Statement) Close() error {
	s.closed = true
	return nil
}

type entry struct {
	table  remote.Table
	schema physical.Schema
}

// Database is a static set of named tables.
type Database struct {
	tables map[string]entry
}

func NewDatabase() *Database {
	return &Database{
		tables: make(map[string]entry),
	}
}

// Add registers the table under the given name, replacing any earlier one.
func (d *Database) Add(name string, table remote.Table, schema physical.Schema) {
	d.tables[name] = entry{
		table:  table,
		schema: schema,
	}
}

func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(d.tables))
	for name := range d.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (d *Database) GetTable(ctx context.Context, name string) (remote.Table, physical.Schema, error) {
	e, ok := d.tables[name]
	if !ok {
		return nil, physical.Schema{}, errors.Errorf("table '%s' not found", name)
	}
	return e.table, e.schema, nil
}
