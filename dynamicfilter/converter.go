package dynamicfilter

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"github.com/segmentio/fasthash/fnv1a"
)

// Converter turns exact filters into bloom filters.
// With a cache, filters with an ID are converted once and shared between all
// page sources of a query.
type Converter struct {
	falsePositiveRate float64
	cache             *ristretto.Cache
}

type ConverterOption func(converter *Converter)

func WithFalsePositiveRate(rate float64) ConverterOption {
	return func(converter *Converter) {
		converter.falsePositiveRate = rate
	}
}

func WithCache(cache *ristretto.Cache) ConverterOption {
	return func(converter *Converter) {
		converter.cache = cache
	}
}

func NewConverter(opts ...ConverterOption) *Converter {
	converter := &Converter{
		falsePositiveRate: DefaultFalsePositiveRate,
	}
	for _, opt := range opts {
		opt(converter)
	}
	return converter
}

// NewConversionCache creates a cache bounded by the serialized size of the cached bloom filters.
func NewConversionCache(maxBytes int64) (*ristretto.Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create filter conversion cache")
	}
	return cache, nil
}

func (c *Converter) FalsePositiveRate() float64 {
	return c.falsePositiveRate
}

// Convert returns a bloom filter for exact filters and any other filter unchanged.
func (c *Converter) Convert(filter Filter) Filter {
	hashSet, ok := filter.(*HashSetFilter)
	if !ok {
		return filter
	}
	if c.cache == nil || hashSet.ID() == "" {
		return FromHashSetFilter(hashSet, c.falsePositiveRate)
	}

	key := c.cacheKey(hashSet)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*BloomFilter)
	}
	bloom := FromHashSetFilter(hashSet, c.falsePositiveRate)
	c.cache.Set(key, bloom, bloom.SizeInBytes())
	return bloom
}

// cacheKey includes a fingerprint of the values, as a filter may be republished under the same ID.
func (c *Converter) cacheKey(filter *HashSetFilter) string {
	fingerprint := fnv1a.Init64
	for _, value := range filter.Values() {
		fingerprint = value.Hash(fingerprint)
	}
	return fmt.Sprintf("%s/%d/%x/%g", filter.ID(), filter.Len(), fingerprint, c.falsePositiveRate)
}
