package dynamicfilter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cube2222/remotescan/octosql"
)

func TestHashSetFilter(t *testing.T) {
	filter := NewHashSetFilter("build_1",
		octosql.NewInt(3),
		octosql.NewInt(1),
		octosql.NewString("x"),
		octosql.NewInt(3),
	)

	assert.Equal(t, KindHashSet, filter.Kind())
	assert.Equal(t, "build_1", filter.ID())
	assert.Equal(t, 3, filter.Len())
	assert.True(t, filter.Contains(octosql.NewInt(1)))
	assert.True(t, filter.Contains(octosql.NewString("x")))
	assert.False(t, filter.Contains(octosql.NewInt(2)))
	assert.False(t, filter.Contains(octosql.NewFloat(1)))

	assert.Equal(t, []octosql.Value{
		octosql.NewInt(1),
		octosql.NewInt(3),
		octosql.NewString("x"),
	}, filter.Values())
}

func TestHashSetFilter_Empty(t *testing.T) {
	filter := NewHashSetFilter("")
	assert.Equal(t, 0, filter.Len())
	assert.False(t, filter.Contains(octosql.NewNull()))
	assert.Empty(t, filter.Values())

	// An empty set still converts, and the result rejects everything but false positives.
	bloom := FromHashSetFilter(filter, 0.01)
	assert.Equal(t, KindBloom, bloom.Kind())
}

func TestHashSetFilter_SpecialFloats(t *testing.T) {
	values := []octosql.Value{
		octosql.NewFloat(1),
		octosql.NewFloat(math.NaN()),
		octosql.NewFloat(math.Inf(1)),
		octosql.NewFloat(math.Inf(-1)),
		octosql.NewFloat(math.Copysign(0, -1)),
		octosql.NewFloat(0),
	}
	filter := NewHashSetFilter("floats", values...)
	// -0 and +0 collapse into one entry.
	assert.Equal(t, 5, filter.Len())
	for _, value := range values {
		assert.True(t, filter.Contains(value), "missing %s", value)
	}
	assert.False(t, filter.Contains(octosql.NewFloat(2)))

	bloom := FromHashSetFilter(filter, 0.01)
	for _, value := range values {
		assert.True(t, bloom.Contains(value), "false negative for %s", value)
	}
}
