package datacenter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
)

var ErrStatementClosed = errors.New("statement closed")

type ClientOption func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	logger      *zap.Logger
	dialOptions []grpc.DialOption
}

// WithTimeout bounds every call made to the server.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *clientOptions) {
		o.dialOptions = append(o.dialOptions, opts...)
	}
}

func dial(address string, options *clientOptions) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(codecName),
			grpc.UseCompressor(compressorName),
		),
	}, options.dialOptions...)

	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create connection")
	}
	return conn, nil
}

// Database is the set of tables served by a remote datacenter server.
type Database struct {
	address string
	options *clientOptions
	conn    *grpc.ClientConn
	cli     *datacenterClient
}

func NewDatabase(address string, opts ...ClientOption) (*Database, error) {
	options := &clientOptions{
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	conn, err := dial(address, options)
	if err != nil {
		return nil, err
	}
	return &Database{
		address: address,
		options: options,
		conn:    conn,
		cli:     &datacenterClient{cc: conn},
	}, nil
}

func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.options.timeout)
	defer cancel()

	res, err := d.cli.ListTables(ctx, &ListTablesRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't list tables")
	}
	return res.Tables, nil
}

func (d *Database) GetTable(ctx context.Context, name string) (remote.Table, physical.Schema, error) {
	ctx, cancel := context.WithTimeout(ctx, d.options.timeout)
	defer cancel()

	res, err := d.cli.Describe(ctx, &DescribeRequest{Table: name})
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't describe table")
	}
	fields, err := decodeFields(res.Fields)
	if err != nil {
		return nil, physical.Schema{}, errors.Wrap(err, "couldn't decode table schema")
	}
	return &Table{
		database: d,
		name:     name,
	}, physical.NewSchema(fields), nil
}

func (d *Database) Close() error {
	return d.conn.Close()
}

type Table struct {
	database *Database
	name     string
}

// Materialize submits a statement on a dedicated connection, owned by the returned client.
func (t *Table) Materialize(ctx context.Context, columns []physical.SchemaField) (remote.StatementClient, error) {
	options := t.database.options
	conn, err := dial(t.database.address, options)
	if err != nil {
		return nil, err
	}
	cli := &datacenterClient{cc: conn}

	submitCtx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	res, err := cli.Submit(submitCtx, &SubmitRequest{
		Table:   t.name,
		Columns: encodeFields(columns),
	})
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "couldn't submit statement")
	}
	options.logger.Debug("statement submitted", zap.String("statement", res.StatementID), zap.String("table", t.name))

	return &StatementClient{
		conn:    conn,
		cli:     cli,
		id:      res.StatementID,
		timeout: options.timeout,
		logger:  options.logger,
		done:    res.Done,
	}, nil
}

// StatementClient pages through a statement running on the server.
// The fetched response is kept until Advance, so a repeated Pull makes no call.
type StatementClient struct {
	conn    *grpc.ClientConn
	cli     *datacenterClient
	id      string
	timeout time.Duration
	logger  *zap.Logger

	token   uint64
	fetched *FetchResponse
	batches []*execution.Batch
	done    bool
	closed  bool
}

func (c *StatementClient) ID() string {
	return c.id
}

func (c *StatementClient) IsProducing() bool {
	return !c.closed && !c.done
}

func (c *StatementClient) Pull() ([]*execution.Batch, error) {
	if c.closed {
		return nil, ErrStatementClosed
	}
	if c.fetched != nil {
		return c.batches, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.cli.Fetch(ctx, &FetchRequest{
		StatementID: c.id,
		Token:       c.token,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't fetch token %d", c.token)
	}
	batches, err := decodeBatches(res.Batches)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't decode batches")
	}
	c.fetched = res
	c.batches = batches
	return batches, nil
}

func (c *StatementClient) Advance() {
	if c.fetched == nil {
		return
	}
	c.token = c.fetched.NextToken
	c.done = c.fetched.Done
	c.fetched = nil
	c.batches = nil
}

func (c *StatementClient) SubmitFilters(filters map[string]dynamicfilter.Filter) (bool, error) {
	if c.closed {
		return false, ErrStatementClosed
	}
	encoded, err := encodeFilters(filters)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.cli.ApplyFilters(ctx, &ApplyFiltersRequest{
		StatementID: c.id,
		Filters:     encoded,
	})
	if err != nil {
		return false, errors.Wrap(err, "couldn't apply filters")
	}
	return res.Accepted, nil
}

// Close cancels the statement and closes the connection, even if cancelling fails.
func (c *StatementClient) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	_, cancelErr := c.cli.Cancel(ctx, &CancelRequest{StatementID: c.id})
	if err := c.conn.Close(); err != nil {
		return errors.Wrap(err, "couldn't close connection")
	}
	if cancelErr != nil {
		return errors.Wrap(cancelErr, "couldn't cancel statement")
	}
	c.logger.Debug("statement cancelled", zap.String("statement", c.id))
	return nil
}
