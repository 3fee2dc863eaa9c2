package dictionary

import "strings"

// ValueType identifies the wire codec of an attribute value.
type ValueType int

const (
	TypeOctets ValueType = iota
	TypeString
	TypeByte
	TypeShort
	TypeInteger
	TypeIPAddr
	TypeDate
	TypeVSA
)

// String returns the FreeRADIUS-style name of the type.
func (t ValueType) String() string {
	switch t {
	case TypeOctets:
		return "octets"
	case TypeString:
		return "string"
	case TypeByte:
		return "byte"
	case TypeShort:
		return "short"
	case TypeInteger:
		return "integer"
	case TypeIPAddr:
		return "ipaddr"
	case TypeDate:
		return "date"
	case TypeVSA:
		return "vsa"
	default:
		return "octets"
	}
}

// IsNumeric reports whether values of this type carry an unsigned integer.
func (t ValueType) IsNumeric() bool {
	switch t {
	case TypeByte, TypeShort, TypeInteger, TypeDate:
		return true
	default:
		return false
	}
}

var textTypes = map[string]ValueType{
	"string":  TypeString,
	"octets":  TypeOctets,
	"uint8":   TypeByte,
	"byte":    TypeByte,
	"uint16":  TypeShort,
	"short":   TypeShort,
	"integer": TypeInteger,
	"signed":  TypeInteger,
	"ipaddr":  TypeIPAddr,
	"date":    TypeDate,
	"vsa":     TypeVSA,
}

// TypeFromText maps a dictionary type tag to a ValueType. Tags this
// engine does not implement (uint64, ipv6addr, tlv, struct, ether and
// friends) fall back to octets so the attribute stays usable as an
// opaque blob. A width suffix like octets[24] is accepted and ignored.
func TypeFromText(tag string) ValueType {
	tag = strings.ToLower(tag)
	if idx := strings.IndexByte(tag, '['); idx > 0 {
		tag = tag[:idx]
	}

	if t, ok := textTypes[tag]; ok {
		return t
	}

	return TypeOctets
}
