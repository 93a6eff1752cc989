package pagesource

import (
	"time"

	"github.com/cube2222/remotescan/execution"
)

type metrics struct {
	now       func() time.Time
	startTime time.Time

	completedBytes int64
	// Retained size of the batches of the most recent pull, not of the whole queue.
	lastMemoryUsage int64
}

func newMetrics(now func() time.Time) *metrics {
	return &metrics{
		now:       now,
		startTime: now(),
	}
}

// update accounts for the batches of a single pull.
func (m *metrics) update(batches []*execution.Batch) (bytes int64) {
	var memory int64
	for _, batch := range batches {
		bytes += batch.SizeInBytes()
		memory += batch.RetainedSizeInBytes()
	}
	m.completedBytes += bytes
	m.lastMemoryUsage = memory
	return bytes
}

func (m *metrics) elapsed() time.Duration {
	return m.now().Sub(m.startTime)
}
