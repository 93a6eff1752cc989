package octosql

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unsafe"

	"github.com/segmentio/fasthash/fnv1a"
)

var ZeroValue = Value{}

type Value struct {
	Type     Type
	Int      int
	Float    float64
	Boolean  bool
	Str      string
	Time     time.Time
	Duration time.Duration
}

func NewNull() Value {
	return Value{
		Type: Type{TypeID: TypeIDNull},
	}
}

func NewInt(value int) Value {
	return Value{
		Type: Type{TypeID: TypeIDInt},
		Int:  value,
	}
}

func NewFloat(value float64) Value {
	return Value{
		Type:  Type{TypeID: TypeIDFloat},
		Float: value,
	}
}

func NewBoolean(value bool) Value {
	return Value{
		Type:    Type{TypeID: TypeIDBoolean},
		Boolean: value,
	}
}

func NewString(value string) Value {
	return Value{
		Type: Type{TypeID: TypeIDString},
		Str:  value,
	}
}

func NewTime(value time.Time) Value {
	return Value{
		Type: Type{TypeID: TypeIDTime},
		Time: value,
	}
}

func NewDuration(value time.Duration) Value {
	return Value{
		Type:     Type{TypeID: TypeIDDuration},
		Duration: value,
	}
}

// NewValueFromRawGo converts values returned by database drivers.
// Unknown types are rendered to their string representation.
func NewValueFromRawGo(value interface{}) Value {
	switch value := value.(type) {
	case nil:
		return NewNull()
	case int:
		return NewInt(value)
	case int8:
		return NewInt(int(value))
	case int16:
		return NewInt(int(value))
	case int32:
		return NewInt(int(value))
	case int64:
		return NewInt(int(value))
	case uint8:
		return NewInt(int(value))
	case uint16:
		return NewInt(int(value))
	case uint32:
		return NewInt(int(value))
	case float32:
		return NewFloat(float64(value))
	case float64:
		return NewFloat(value)
	case bool:
		return NewBoolean(value)
	case string:
		return NewString(value)
	case []byte:
		return NewString(string(value))
	case time.Time:
		return NewTime(value)
	case time.Duration:
		return NewDuration(value)
	default:
		return NewString(fmt.Sprint(value))
	}
}

func (value Value) Compare(other Value) int {
	if value.Type.TypeID != other.Type.TypeID {
		if value.Type.TypeID < other.Type.TypeID {
			return -1
		} else {
			return 1
		}
	}

	switch value.Type.TypeID {
	case TypeIDNull:
		return 0

	case TypeIDInt:
		if value.Int < other.Int {
			return -1
		} else if value.Int > other.Int {
			return 1
		} else {
			return 0
		}

	case TypeIDFloat:
		return compareFloats(value.Float, other.Float)

	case TypeIDBoolean:
		if value.Boolean == other.Boolean {
			return 0
		} else if !value.Boolean {
			return -1
		} else {
			return 1
		}

	case TypeIDString:
		if value.Str < other.Str {
			return -1
		} else if value.Str > other.Str {
			return 1
		} else {
			return 0
		}

	case TypeIDTime:
		if value.Time.Before(other.Time) {
			return -1
		} else if value.Time.After(other.Time) {
			return 1
		} else {
			return 0
		}

	case TypeIDDuration:
		if value.Duration < other.Duration {
			return -1
		} else if value.Duration > other.Duration {
			return 1
		} else {
			return 0
		}

	default:
		panic("impossible, type switch bug")
	}
}

// compareFloats orders NaN below every other float and equal to itself.
func compareFloats(left, right float64) int {
	leftNaN, rightNaN := math.IsNaN(left), math.IsNaN(right)
	switch {
	case leftNaN && rightNaN:
		return 0
	case leftNaN:
		return -1
	case rightNaN:
		return 1
	case left < right:
		return -1
	case left > right:
		return 1
	}
	return 0
}

// Hash mixes the value into the given fnv1a hash state.
// Values that Compare as equal always hash equally.
func (value Value) Hash(hash uint64) uint64 {
	hash = fnv1a.AddUint64(hash, uint64(value.Type.TypeID))
	switch value.Type.TypeID {
	case TypeIDNull:
		return hash
	case TypeIDInt:
		return fnv1a.AddUint64(hash, uint64(value.Int))
	case TypeIDFloat:
		f := value.Float
		if f == 0 {
			// -0 and +0 compare as equal.
			f = 0
		} else if math.IsNaN(f) {
			f = math.NaN()
		}
		return fnv1a.AddUint64(hash, math.Float64bits(f))
	case TypeIDBoolean:
		if value.Boolean {
			return fnv1a.AddUint64(hash, 1)
		}
		return fnv1a.AddUint64(hash, 0)
	case TypeIDString:
		return fnv1a.AddString64(hash, value.Str)
	case TypeIDTime:
		return fnv1a.AddUint64(hash, uint64(value.Time.UnixNano()))
	case TypeIDDuration:
		return fnv1a.AddUint64(hash, uint64(value.Duration))
	default:
		panic("impossible, type switch bug")
	}
}

// SizeInBytes is the logical payload size of the value, as transferred.
func (value Value) SizeInBytes() int64 {
	switch value.Type.TypeID {
	case TypeIDNull:
		return 0
	case TypeIDBoolean:
		return 1
	case TypeIDString:
		return int64(len(value.Str))
	case TypeIDTime:
		return 12
	default:
		return 8
	}
}

// RetainedSizeInBytes is the in-memory footprint of the value.
func (value Value) RetainedSizeInBytes() int64 {
	out := int64(unsafe.Sizeof(value))
	if value.Type.TypeID == TypeIDString {
		out += int64(len(value.Str))
	}
	return out
}

func (value Value) String() string {
	builder := &strings.Builder{}
	value.append(builder)
	return builder.String()
}

func (value Value) append(builder *strings.Builder) {
	switch value.Type.TypeID {
	case TypeIDNull:
		builder.WriteString("null")

	case TypeIDInt:
		builder.WriteString(fmt.Sprint(value.Int))

	case TypeIDFloat:
		builder.WriteString(fmt.Sprint(value.Float))

	case TypeIDBoolean:
		builder.WriteString(fmt.Sprint(value.Boolean))

	case TypeIDString:
		builder.WriteString(fmt.Sprintf("'%s'", value.Str))

	case TypeIDTime:
		builder.WriteString(value.Time.Format(time.RFC3339))

	case TypeIDDuration:
		builder.WriteString(fmt.Sprint(value.Duration))

	default:
		panic("impossible, type switch bug")
	}
}

func (value Value) ToRawGoValue() interface{} {
	switch value.Type.TypeID {
	case TypeIDNull:
		return nil
	case TypeIDInt:
		return value.Int
	case TypeIDFloat:
		return value.Float
	case TypeIDBoolean:
		return value.Boolean
	case TypeIDString:
		return value.Str
	case TypeIDTime:
		return value.Time
	case TypeIDDuration:
		return value.Duration
	default:
		panic("invalid octosql.Value to get Raw Go value for")
	}
}
