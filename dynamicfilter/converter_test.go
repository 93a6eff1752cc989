package dynamicfilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/remotescan/octosql"
)

func TestConverter_WithoutCache(t *testing.T) {
	converter := NewConverter(WithFalsePositiveRate(0.05))
	assert.Equal(t, 0.05, converter.FalsePositiveRate())

	exact := NewHashSetFilter("f", octosql.NewInt(1))
	first := converter.Convert(exact)
	second := converter.Convert(exact)
	assert.Equal(t, KindBloom, first.Kind())
	assert.NotSame(t, first, second)
}

func TestConverter_WithCache(t *testing.T) {
	cache, err := NewConversionCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	converter := NewConverter(WithCache(cache))
	exact := NewHashSetFilter("build_side_1", octosql.NewInt(1), octosql.NewInt(2))

	// The cache admits entries asynchronously.
	require.Eventually(t, func() bool {
		return converter.Convert(exact) == converter.Convert(exact)
	}, time.Second, 10*time.Millisecond)

	converted := converter.Convert(exact)
	assert.True(t, converted.Contains(octosql.NewInt(1)))
	assert.True(t, converted.Contains(octosql.NewInt(2)))
}

func TestConverter_AnonymousFiltersAreNotCached(t *testing.T) {
	cache, err := NewConversionCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	converter := NewConverter(WithCache(cache))
	first := NewHashSetFilter("", octosql.NewInt(1))
	second := NewHashSetFilter("", octosql.NewInt(2))

	assert.True(t, converter.Convert(first).Contains(octosql.NewInt(1)))
	assert.True(t, converter.Convert(second).Contains(octosql.NewInt(2)))
}

func TestConverter_RepublishedFilterWithSameID(t *testing.T) {
	cache, err := NewConversionCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	converter := NewConverter(WithCache(cache))
	first := NewHashSetFilter("join", octosql.NewInt(1), octosql.NewInt(2))
	second := NewHashSetFilter("join", octosql.NewInt(100), octosql.NewInt(200))

	assert.True(t, converter.Convert(first).Contains(octosql.NewInt(1)))
	cache.Wait()

	converted := converter.Convert(second)
	assert.True(t, converted.Contains(octosql.NewInt(100)))
	assert.True(t, converted.Contains(octosql.NewInt(200)))
	assert.NotEqual(t, converter.cacheKey(first), converter.cacheKey(second))
}
