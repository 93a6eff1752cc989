package dynamicfilter

import (
	"sync"

	"github.com/cube2222/remotescan/physical"
)

// Collector gathers filters published by join build sides while the query runs.
// It's safe for concurrent use; page sources read it through Supplier.
type Collector struct {
	mutex   sync.RWMutex
	filters map[physical.SchemaField]Filter
}

func NewCollector() *Collector {
	return &Collector{
		filters: make(map[physical.SchemaField]Filter),
	}
}

// Publish makes the filter available for the column, replacing any earlier one.
func (c *Collector) Publish(column physical.SchemaField, filter Filter) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.filters[column] = filter
}

// Supplier returns snapshots of the currently published filters.
func (c *Collector) Supplier() Supplier {
	return func() map[physical.SchemaField]Filter {
		c.mutex.RLock()
		defer c.mutex.RUnlock()

		out := make(map[physical.SchemaField]Filter, len(c.filters))
		for column, filter := range c.filters {
			out[column] = filter
		}
		return out
	}
}
