package execution

// BatchQueue is a FIFO of fetched batches awaiting consumption.
// In a queue 1, 2, 3 the Front is the 1 and the Back is the 3.
type BatchQueue struct {
	batches []*Batch
}

func NewBatchQueue() *BatchQueue {
	return &BatchQueue{}
}

// PushBack adds a batch to the back of the queue.
func (q *BatchQueue) PushBack(batch *Batch) {
	q.batches = append(q.batches, batch)
}

// PopFront removes the first batch from the queue and returns it.
// Returns false if the queue is empty.
func (q *BatchQueue) PopFront() (*Batch, bool) {
	if len(q.batches) == 0 {
		return nil, false
	}
	out := q.batches[0]
	q.batches[0] = nil
	q.batches = q.batches[1:]
	if len(q.batches) == 0 {
		// Let the backing array go once drained.
		q.batches = nil
	}
	return out, true
}

func (q *BatchQueue) Empty() bool {
	return len(q.batches) == 0
}

func (q *BatchQueue) Length() int {
	return len(q.batches)
}

// RetainedSizeInBytes sums the retained size of all queued batches.
func (q *BatchQueue) RetainedSizeInBytes() int64 {
	var out int64
	for _, batch := range q.batches {
		out += batch.RetainedSizeInBytes()
	}
	return out
}
