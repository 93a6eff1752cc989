package octosql

import (
	"github.com/pkg/errors"
)

type TypeID int

const (
	TypeIDNull TypeID = iota
	TypeIDInt
	TypeIDFloat
	TypeIDBoolean
	TypeIDString
	TypeIDTime
	TypeIDDuration
)

type Type struct {
	TypeID TypeID
}

func (t Type) Is(other Type) bool {
	return t.TypeID == other.TypeID
}

func (t Type) String() string {
	switch t.TypeID {
	case TypeIDNull:
		return "NULL"
	case TypeIDInt:
		return "Int"
	case TypeIDFloat:
		return "Float"
	case TypeIDBoolean:
		return "Boolean"
	case TypeIDString:
		return "String"
	case TypeIDTime:
		return "Time"
	case TypeIDDuration:
		return "Duration"
	}
	panic("impossible, type switch bug")
}

var (
	Null     Type = Type{TypeID: TypeIDNull}
	Int      Type = Type{TypeID: TypeIDInt}
	Float    Type = Type{TypeID: TypeIDFloat}
	Boolean  Type = Type{TypeID: TypeIDBoolean}
	String   Type = Type{TypeID: TypeIDString}
	Time     Type = Type{TypeID: TypeIDTime}
	Duration Type = Type{TypeID: TypeIDDuration}
)

// ParseType is the inverse of Type.String, used by configuration and the command line.
func ParseType(name string) (Type, error) {
	for _, t := range []Type{Null, Int, Float, Boolean, String, Time, Duration} {
		if t.String() == name {
			return t, nil
		}
	}
	return Type{}, errors.Errorf("unknown type: %s", name)
}
