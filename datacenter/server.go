package datacenter

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cube2222/remotescan/remote"
	"github.com/cube2222/remotescan/telemetry"
)

type ServerOption func(*Server)

func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithServerTelemetry(collector *telemetry.Collector) ServerOption {
	return func(s *Server) {
		s.telemetry = collector
	}
}

// Server runs statements against the tables of a database.
// Each statement is driven by exactly one remote page source.
type Server struct {
	db        remote.Database
	logger    *zap.Logger
	telemetry *telemetry.Collector

	mutex      sync.Mutex
	entropy    io.Reader
	statements map[string]*statement
}

type statement struct {
	mutex  sync.Mutex
	client remote.StatementClient
	token  uint64
	// last is the response for token-1, returned again if the client repeats that fetch.
	last *FetchResponse
}

func NewServer(db remote.Database, opts ...ServerOption) *Server {
	s := &Server{
		db:         db,
		logger:     zap.NewNop(),
		entropy:    ulid.Monotonic(rand.Reader, 0),
		statements: make(map[string]*statement),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ListTables(ctx context.Context, req *ListTablesRequest) (*ListTablesResponse, error) {
	tables, err := s.db.ListTables(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "couldn't list tables: %s", err)
	}
	return &ListTablesResponse{Tables: tables}, nil
}

func (s *Server) Describe(ctx context.Context, req *DescribeRequest) (*DescribeResponse, error) {
	_, schema, err := s.db.GetTable(ctx, req.Table)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "couldn't get table: %s", err)
	}
	return &DescribeResponse{Fields: encodeFields(schema.Fields)}, nil
}

func (s *Server) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	columns, err := decodeFields(req.Columns)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	table, _, err := s.db.GetTable(ctx, req.Table)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "couldn't get table: %s", err)
	}
	client, err := table.Materialize(ctx, columns)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "couldn't start statement: %s", err)
	}

	s.mutex.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	s.statements[id] = &statement{client: client}
	s.mutex.Unlock()

	s.telemetry.StatementStarted()
	s.logger.Info("statement submitted",
		zap.String("statement", id),
		zap.String("table", req.Table),
		zap.Int("columns", len(columns)),
	)

	return &SubmitResponse{
		StatementID: id,
		Done:        !client.IsProducing(),
	}, nil
}

func (s *Server) getStatement(id string) (*statement, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stmt, ok := s.statements[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "statement %s not found", id)
	}
	return stmt, nil
}

func (s *Server) Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	stmt, err := s.getStatement(req.StatementID)
	if err != nil {
		return nil, err
	}

	stmt.mutex.Lock()
	defer stmt.mutex.Unlock()

	switch {
	case req.Token == stmt.token:
	case req.Token+1 == stmt.token && stmt.last != nil:
		return stmt.last, nil
	default:
		return nil, status.Errorf(codes.FailedPrecondition, "statement %s is at token %d, got %d", req.StatementID, stmt.token, req.Token)
	}

	if !stmt.client.IsProducing() {
		return &FetchResponse{NextToken: stmt.token, Done: true}, nil
	}
	batches, err := stmt.client.Pull()
	if err != nil {
		s.logger.Warn("couldn't pull statement", zap.String("statement", req.StatementID), zap.Error(err))
		return nil, status.Errorf(codes.Unavailable, "couldn't pull: %s", err)
	}
	stmt.client.Advance()
	stmt.token++

	stmt.last = &FetchResponse{
		Batches:   encodeBatches(batches),
		NextToken: stmt.token,
		Done:      !stmt.client.IsProducing(),
	}
	return stmt.last, nil
}

func (s *Server) ApplyFilters(ctx context.Context, req *ApplyFiltersRequest) (*ApplyFiltersResponse, error) {
	stmt, err := s.getStatement(req.StatementID)
	if err != nil {
		return nil, err
	}
	filters, err := decodeFilters(req.Filters)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	stmt.mutex.Lock()
	defer stmt.mutex.Unlock()

	accepted, err := stmt.client.SubmitFilters(filters)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "couldn't apply filters: %s", err)
	}
	s.logger.Debug("dynamic filters received",
		zap.String("statement", req.StatementID),
		zap.Int("columns", len(filters)),
		zap.Bool("accepted", accepted),
	)
	return &ApplyFiltersResponse{Accepted: accepted}, nil
}

// Cancel closes the statement. Cancelling an unknown statement succeeds.
func (s *Server) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	s.mutex.Lock()
	stmt, ok := s.statements[req.StatementID]
	delete(s.statements, req.StatementID)
	s.mutex.Unlock()
	if !ok {
		return &CancelResponse{}, nil
	}

	if err := s.closeStatement(req.StatementID, stmt); err != nil {
		return nil, status.Errorf(codes.Internal, "couldn't close statement: %s", err)
	}
	return &CancelResponse{}, nil
}

func (s *Server) closeStatement(id string, stmt *statement) error {
	stmt.mutex.Lock()
	defer stmt.mutex.Unlock()

	s.telemetry.StatementFinished()
	s.logger.Info("statement closed", zap.String("statement", id))
	return stmt.client.Close()
}

// Statements returns the number of open statements.
func (s *Server) Statements() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.statements)
}

// Close closes all open statements.
func (s *Server) Close() error {
	s.mutex.Lock()
	statements := s.statements
	s.statements = make(map[string]*statement)
	s.mutex.Unlock()

	var firstErr error
	for id, stmt := range statements {
		if err := s.closeStatement(id, stmt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
