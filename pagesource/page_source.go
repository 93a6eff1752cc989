package pagesource

import (
	"time"

	"go.uber.org/zap"

	"github.com/cube2222/remotescan/dynamicfilter"
	"github.com/cube2222/remotescan/execution"
	"github.com/cube2222/remotescan/physical"
	"github.com/cube2222/remotescan/remote"
	"github.com/cube2222/remotescan/telemetry"
)

// PageSource consumes the result of a remote statement batch by batch.
// It serves locally queued batches before pulling more, and pushes dynamic filters
// to the remote side once per column.
//
// A PageSource is driven by a single goroutine and never blocks: NextBatch returns
// either a batch or nil, in which case the caller should check IsFinished and try again later.
type PageSource struct {
	client  remote.StatementClient
	columns []physical.SchemaField

	queue    *execution.BatchQueue
	registry *dynamicfilter.Registry
	metrics  *metrics

	filterSupplier dynamicfilter.Supplier
	converter      *dynamicfilter.Converter
	logger         *zap.Logger
	telemetry      *telemetry.Collector
	now            func() time.Time

	pulled bool
	closed bool
}

func New(client remote.StatementClient, columns []physical.SchemaField, opts ...Option) *PageSource {
	ps := &PageSource{
		client:   client,
		columns:  columns,
		queue:    execution.NewBatchQueue(),
		registry: dynamicfilter.NewRegistry(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(ps)
	}
	if ps.converter == nil {
		ps.converter = dynamicfilter.NewConverter()
	}
	ps.metrics = newMetrics(ps.now)
	return ps
}

// NextBatch returns the next queued batch, or nil if none is available yet.
// A *RemoteFetchError leaves the page source unchanged, so the call may be repeated.
// Dynamic filters are pushed down only while the remote statement is still producing.
func (ps *PageSource) NextBatch() (*execution.Batch, error) {
	if ps.closed {
		return nil, ErrClosed
	}

	if ps.filterSupplier != nil && ps.client.IsProducing() {
		ps.pushFilters()
	}

	if batch, ok := ps.queue.PopFront(); ok {
		if len(ps.columns) == 0 {
			return execution.NewCountOnlyBatch(batch.RowCount), nil
		}
		return batch, nil
	}

	if !ps.client.IsProducing() {
		return nil, nil
	}

	batches, err := ps.client.Pull()
	if err != nil {
		ps.telemetry.ObservePullFailure()
		return nil, &RemoteFetchError{Err: err}
	}
	ps.pulled = true
	if len(batches) > 0 {
		bytes := ps.metrics.update(batches)
		for _, batch := range batches {
			ps.queue.PushBack(batch)
		}
		ps.telemetry.ObservePull(len(batches), bytes, ps.metrics.lastMemoryUsage)
		ps.logger.Debug("pulled batches",
			zap.Int("batches", len(batches)),
			zap.Int64("bytes", bytes),
		)
	} else {
		ps.telemetry.ObservePull(0, 0, ps.metrics.lastMemoryUsage)
	}
	ps.client.Advance()

	return nil, nil
}

func (ps *PageSource) pushFilters() {
	filters := dynamicfilter.Compact(ps.filterSupplier(), ps.registry, ps.converter)
	if len(filters) == 0 {
		return
	}

	proposal := ps.registry.Propose(filters)
	accepted, err := ps.client.SubmitFilters(filters)
	if err != nil {
		ps.logger.Warn("couldn't submit dynamic filters", zap.Strings("columns", proposal.Columns()), zap.Error(err))
		ps.telemetry.ObserveFilterSubmission(telemetry.FilterSubmissionFailed, len(filters))
		return
	}
	if !accepted {
		ps.logger.Debug("dynamic filters rejected", zap.Strings("columns", proposal.Columns()))
		ps.telemetry.ObserveFilterSubmission(telemetry.FilterSubmissionRejected, len(filters))
		return
	}
	ps.registry.Commit(proposal)
	ps.telemetry.ObserveFilterSubmission(telemetry.FilterSubmissionAccepted, len(filters))
	ps.logger.Debug("dynamic filters applied", zap.Strings("columns", proposal.Columns()))
}

// IsFinished reports whether the queue is drained and the remote statement is exhausted.
// A closed page source is always finished.
func (ps *PageSource) IsFinished() bool {
	if ps.closed {
		return true
	}
	return ps.queue.Empty() && !ps.client.IsProducing()
}

func (ps *PageSource) State() State {
	switch {
	case ps.closed:
		return StateFinished
	case !ps.queue.Empty():
		return StateDraining
	case !ps.client.IsProducing():
		return StateFinished
	case !ps.pulled:
		return StateIdle
	default:
		return StateProducing
	}
}

// CompletedBytes is the total size of all batches pulled so far.
func (ps *PageSource) CompletedBytes() int64 {
	return ps.metrics.completedBytes
}

func (ps *PageSource) ReadTimeNanos() int64 {
	return ps.metrics.elapsed().Nanoseconds()
}

// SystemMemoryUsage is the retained size of the batches of the most recent pull.
// Batches still queued from earlier pulls are not included.
func (ps *PageSource) SystemMemoryUsage() int64 {
	return ps.metrics.lastMemoryUsage
}

// AppliedFilters lists the columns whose filters were accepted by the remote side.
func (ps *PageSource) AppliedFilters() []string {
	return ps.registry.Applied()
}

// Close terminates the remote statement. Only the first call reaches the client,
// so a failure is reported once, and the page source is closed either way.
func (ps *PageSource) Close() error {
	if ps.closed {
		return nil
	}
	ps.closed = true
	for {
		if _, ok := ps.queue.PopFront(); !ok {
			break
		}
	}
	if err := ps.client.Close(); err != nil {
		return &TerminationError{Err: err}
	}
	return nil
}
