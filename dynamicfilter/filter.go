package dynamicfilter

import (
	"github.com/cube2222/remotescan/octosql"
	"github.com/cube2222/remotescan/physical"
)

type Kind int

const (
	// KindHashSet filters hold the exact set of permissible values.
	KindHashSet Kind = iota
	// KindBloom filters are approximate: no false negatives, bounded false positives.
	KindBloom
)

func (k Kind) String() string {
	switch k {
	case KindHashSet:
		return "hash_set"
	case KindBloom:
		return "bloom"
	}
	panic("impossible, kind switch bug")
}

// Filter is a dynamic filter derived during execution, usually from the build side of a join.
// Implementations are *HashSetFilter and *BloomFilter.
type Filter interface {
	Kind() Kind
	// ID identifies the filter within a query. May be empty.
	ID() string
	Contains(value octosql.Value) bool
}

// Supplier returns the filters currently known to the query plan.
type Supplier func() map[physical.SchemaField]Filter
