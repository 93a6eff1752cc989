package dynamicfilter

import (
	"sort"
)

// Registry remembers the columns whose filters were accepted by the remote side.
// Entries are write-once: a registered column never gets another filter,
// even a tighter one, for the lifetime of the registry.
//
// Registration is a two-step commit. Propose the filters, submit them, and Commit
// only after the remote side acknowledged them. A failed submission leaves the
// registry untouched so the filters are retried later.
type Registry struct {
	applied map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		applied: make(map[string]struct{}),
	}
}

// Proposal lists the columns of a pending filter submission.
type Proposal struct {
	columns []string
}

func (p *Proposal) Columns() []string {
	return p.columns
}

func (r *Registry) Contains(column string) bool {
	_, ok := r.applied[column]
	return ok
}

func (r *Registry) Len() int {
	return len(r.applied)
}

// Propose records which columns a submission would register. It does not modify the registry.
func (r *Registry) Propose(filters map[string]Filter) *Proposal {
	columns := make([]string, 0, len(filters))
	for column := range filters {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return &Proposal{
		columns: columns,
	}
}

// Commit registers exactly the columns of the proposal.
func (r *Registry) Commit(p *Proposal) {
	for _, column := range p.columns {
		r.applied[column] = struct{}{}
	}
}

// Applied returns the registered columns in ascending order.
func (r *Registry) Applied() []string {
	out := make([]string, 0, len(r.applied))
	for column := range r.applied {
		out = append(out, column)
	}
	sort.Strings(out)
	return out
}
