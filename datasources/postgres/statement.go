package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/remote"
)

var ErrStatementClosed = errors.New("statement closed")

// Statement fetches fetchSize rows per pull from the cursor.
// The fetched page is kept until Advance, so a repeated Pull doesn't touch the cursor.
type Statement struct {
	conn       *pgx.Conn
	tx         pgx.Tx
	fetchQuery string
	fetchSize  int
	timeout    time.Duration
	pager      *remote.Pager
	env        remote.Environment

	page    []*execution.Batch
	fetched bool
	// last is set when the current page was shorter than fetchSize.
	last      bool
	exhausted bool
	closed    bool
}

func (s *Statement) IsProducing() bool {
	return !s.closed && !s.exhausted
}

func (s *Statement) Pull() ([]*execution.Batch, error) {
	if s.closed {
		return nil, ErrStatementClosed
	}
	if s.fetched {
		return s.page, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.tx.Query(ctx, s.fetchQuery)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't fetch from cursor")
	}
	values, err := readRows(rows)
	if err != nil {
		return nil, err
	}

	batches, pruned := s.pager.Page(values)
	if pruned > 0 {
		s.env.Telemetry.ObservePrunedRows(pruned)
	}
	s.page = batches
	s.fetched = true
	s.last = len(values) < s.fetchSize
	return batches, nil
}

func readRows(rows pgx.Rows) ([][]octosql.Value, error) {
	defer rows.Close()

	var out [][]octosql.Value
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "couldn't decode row")
		}
		row := make([]octosql.Value, len(raw))
		for i := range raw {
			row[i] = octosql.NewValueFromRawGo(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read rows")
	}
	return out, nil
}

func (s *Statement) Advance() {
	if !s.fetched {
		return
	}
	s.exhausted = s.last
	s.page = nil
	s.fetched = false
}

func (s *Statement) SubmitFilters(filters map[string]dynamicfilter.Filter) (bool, error) {
	if s.closed {
		return false, ErrStatementClosed
	}
	s.pager.AddFilters(filters)
	s.env.Logger.Debug("applied dynamic filters", zap.Int("columns", len(filters)))
	return true, nil
}

// Close releases the cursor and the connection.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rollbackErr := s.tx.Rollback(ctx)
	if err := s.conn.Close(ctx); err != nil {
		return errors.Wrap(err, "couldn't close connection")
	}
	if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
		return errors.Wrap(rollbackErr, "couldn't roll back transaction")
	}
	return nil
}
