package telemetry

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	FilterSubmissionAccepted = "accepted"
	FilterSubmissionRejected = "rejected"
	FilterSubmissionFailed   = "failed"
)

// Collector exports page source and statement server activity as Prometheus metrics.
// All methods are safe to call on a nil *Collector, which records nothing.
type Collector struct {
	completedBytes      prometheus.Counter
	batchesFetched      prometheus.Counter
	pulls               prometheus.Counter
	pullFailures        prometheus.Counter
	retainedMemory      prometheus.Gauge
	filterSubmissions   *prometheus.CounterVec
	filterColumnsPushed prometheus.Counter
	activeStatements    prometheus.Gauge
	rowsPruned          prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		completedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completed_bytes_total",
			Help:      "Bytes of result batches transferred from remote statements.",
		}),
		batchesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_fetched_total",
			Help:      "Result batches transferred from remote statements.",
		}),
		pulls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pulls_total",
			Help:      "Pulls issued against remote statements.",
		}),
		pullFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pull_failures_total",
			Help:      "Pulls against remote statements which failed.",
		}),
		retainedMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pull_retained_bytes",
			Help:      "Retained memory of the batches of the most recent pull.",
		}),
		filterSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_submissions_total",
			Help:      "Dynamic filter submissions by result.",
		}, []string{"result"}),
		filterColumnsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_columns_pushed_total",
			Help:      "Columns for which a dynamic filter was accepted by the remote side.",
		}),
		activeStatements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_statements",
			Help:      "Statements currently open on the server.",
		}),
		rowsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_pruned_total",
			Help:      "Rows dropped by dynamic filters before transmission.",
		}),
	}
}

func (c *Collector) Register(registerer prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.completedBytes,
		c.batchesFetched,
		c.pulls,
		c.pullFailures,
		c.retainedMemory,
		c.filterSubmissions,
		c.filterColumnsPushed,
		c.activeStatements,
		c.rowsPruned,
	} {
		if err := registerer.Register(collector); err != nil {
			return errors.Wrap(err, "couldn't register metric")
		}
	}
	return nil
}

func (c *Collector) ObservePull(batches int, bytes, retainedBytes int64) {
	if c == nil {
		return
	}
	c.pulls.Inc()
	if batches == 0 {
		return
	}
	c.batchesFetched.Add(float64(batches))
	c.completedBytes.Add(float64(bytes))
	c.retainedMemory.Set(float64(retainedBytes))
}

func (c *Collector) ObservePullFailure() {
	if c == nil {
		return
	}
	c.pulls.Inc()
	c.pullFailures.Inc()
}

func (c *Collector) ObserveFilterSubmission(result string, columns int) {
	if c == nil {
		return
	}
	c.filterSubmissions.WithLabelValues(result).Inc()
	if result == FilterSubmissionAccepted {
		c.filterColumnsPushed.Add(float64(columns))
	}
}

func (c *Collector) StatementStarted() {
	if c == nil {
		return
	}
	c.activeStatements.Inc()
}

func (c *Collector) StatementFinished() {
	if c == nil {
		return
	}
	c.activeStatements.Dec()
}

func (c *Collector) ObservePrunedRows(rows int) {
	if c == nil {
		return
	}
	c.rowsPruned.Add(float64(rows))
}
