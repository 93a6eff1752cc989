package dynamicfilter

import (
	"fmt"

	"github.com/google/btree"

	"github.com/cube2222/remotescan/octosql"
)

const btreeDefaultDegree = 12

type valueItem struct {
	octosql.Value
}

func (item valueItem) Less(than btree.Item) bool {
	thanTyped, ok := than.(valueItem)
	if !ok {
		panic(fmt.Sprintf("invalid hash set item comparison: %T", than))
	}
	return item.Compare(thanTyped.Value) == -1
}

// HashSetFilter is an exact filter over a materialized set of values.
// Values are kept ordered, so iteration and everything derived from it is deterministic.
type HashSetFilter struct {
	id     string
	values *btree.BTree
}

func NewHashSetFilter(id string, values ...octosql.Value) *HashSetFilter {
	set := btree.New(btreeDefaultDegree)
	for i := range values {
		set.ReplaceOrInsert(valueItem{values[i]})
	}
	return &HashSetFilter{
		id:     id,
		values: set,
	}
}

func (f *HashSetFilter) Kind() Kind {
	return KindHashSet
}

func (f *HashSetFilter) ID() string {
	return f.id
}

func (f *HashSetFilter) Contains(value octosql.Value) bool {
	return f.values.Has(valueItem{value})
}

func (f *HashSetFilter) Len() int {
	return f.values.Len()
}

// Values returns the set's values in ascending order.
func (f *HashSetFilter) Values() []octosql.Value {
	out := make([]octosql.Value, 0, f.values.Len())
	f.values.Ascend(func(item btree.Item) bool {
		out = append(out, item.(valueItem).Value)
		return true
	})
	return out
}
