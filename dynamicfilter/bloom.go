package dynamicfilter

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/cube2222/remotescan/octosql"
)

const (
	DefaultFalsePositiveRate = 0.01
	minBloomBits             = 64
	maxBloomBits             = 1 << 31
	maxBloomHashes           = 16
)

// BloomFilter is a probabilistic filter. Its bits live in a roaring bitmap,
// which stays compact for sparse filters and has a portable serialized form.
type BloomFilter struct {
	id        string
	numBits   uint32
	numHashes uint32
	bits      *roaring.Bitmap
}

// NewBloomFilter sizes an empty filter for the expected number of entries
// and the target false positive rate.
func NewBloomFilter(id string, expectedEntries int, falsePositiveRate float64) *BloomFilter {
	numBits, numHashes := bloomParameters(expectedEntries, falsePositiveRate)
	return &BloomFilter{
		id:        id,
		numBits:   numBits,
		numHashes: numHashes,
		bits:      roaring.New(),
	}
}

// NewBloomFilterFromBitmap recreates a filter from its serialized bitmap.
func NewBloomFilterFromBitmap(id string, numBits, numHashes uint32, data []byte) (*BloomFilter, error) {
	if numBits == 0 || numHashes == 0 {
		return nil, errors.Errorf("invalid bloom filter parameters: %d bits, %d hashes", numBits, numHashes)
	}
	bits := roaring.New()
	if err := bits.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "couldn't decode bloom filter bitmap")
	}
	return &BloomFilter{
		id:        id,
		numBits:   numBits,
		numHashes: numHashes,
		bits:      bits,
	}, nil
}

// FromHashSetFilter derives a bloom filter containing every value of the exact filter.
func FromHashSetFilter(filter *HashSetFilter, falsePositiveRate float64) *BloomFilter {
	out := NewBloomFilter(filter.ID(), filter.Len(), falsePositiveRate)
	for _, value := range filter.Values() {
		out.Add(value)
	}
	out.bits.RunOptimize()
	return out
}

func bloomParameters(expectedEntries int, falsePositiveRate float64) (numBits, numHashes uint32) {
	if expectedEntries < 1 {
		expectedEntries = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultFalsePositiveRate
	}
	n := float64(expectedEntries)
	m := math.Ceil(-n * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2))
	m = math.Max(m, minBloomBits)
	m = math.Min(m, maxBloomBits)
	k := math.Round(m / n * math.Ln2)
	k = math.Max(k, 1)
	k = math.Min(k, maxBloomHashes)
	return uint32(m), uint32(k)
}

func (f *BloomFilter) Kind() Kind {
	return KindBloom
}

func (f *BloomFilter) ID() string {
	return f.id
}

func (f *BloomFilter) Add(value octosql.Value) {
	h1, h2 := bloomHashes(value)
	for i := uint32(0); i < f.numHashes; i++ {
		f.bits.Add(f.position(h1, h2, i))
	}
}

func (f *BloomFilter) Contains(value octosql.Value) bool {
	h1, h2 := bloomHashes(value)
	for i := uint32(0); i < f.numHashes; i++ {
		if !f.bits.Contains(f.position(h1, h2, i)) {
			return false
		}
	}
	return true
}

// Kirsch-Mitzenmacher double hashing.
func (f *BloomFilter) position(h1, h2 uint64, i uint32) uint32 {
	return uint32((h1 + uint64(i)*h2) % uint64(f.numBits))
}

func bloomHashes(value octosql.Value) (uint64, uint64) {
	h1 := value.Hash(fnv1a.Init64)
	h2 := fnv1a.AddUint64(fnv1a.Init64, h1) | 1
	return h1, h2
}

func (f *BloomFilter) NumBits() uint32 {
	return f.numBits
}

func (f *BloomFilter) NumHashes() uint32 {
	return f.numHashes
}

// BitmapBytes returns the bits in the portable roaring format.
func (f *BloomFilter) BitmapBytes() ([]byte, error) {
	data, err := f.bits.ToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode bloom filter bitmap")
	}
	return data, nil
}

func (f *BloomFilter) SizeInBytes() int64 {
	return int64(f.bits.GetSerializedSizeInBytes())
}
