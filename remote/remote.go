package remote

import (
	"context"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/physical"
)

// StatementClient is a handle to a statement executing on a remote endpoint.
// It is owned by a single consumer and is not safe for concurrent use.
type StatementClient interface {
	// IsProducing reports whether the statement may still yield batches.
	IsProducing() bool
	// Pull fetches the batches available at the current position.
	// It doesn't move the position, so a failed Pull may be retried.
	Pull() ([]*execution.Batch, error)
	// Advance moves to the next position. Called once after each successful Pull.
	Advance()
	// SubmitFilters sends filters, keyed by column name, for the remote side to prune rows with.
	// It reports whether the remote side accepted them.
	SubmitFilters(filters map[string]dynamicfilter.Filter) (bool, error)
	// Close terminates the statement and releases the channel.
	Close() error
}

// Database is a named collection of tables which can be scanned through statements.
type Database interface {
	ListTables(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, name string) (Table, physical.Schema, error)
}

// Table starts statements reading the given columns.
// An empty column list starts a count-only statement.
type Table interface {
	Materialize(ctx context.Context, columns []physical.SchemaField) (StatementClient, error)
}
