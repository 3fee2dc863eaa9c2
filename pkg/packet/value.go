package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/david-macharia/isc-radius/pkg/dictionary"
)

var (
	// ErrValueLength is returned when a wire value violates the
	// length bounds of its dictionary type.
	ErrValueLength = errors.New("value length out of bounds")

	// ErrValueRange is returned when a native value does not fit the
	// attribute type it is assigned to.
	ErrValueRange = errors.New("value out of range")

	// ErrBadValueType is returned when a native value cannot be
	// converted to the attribute type.
	ErrBadValueType = errors.New("unsupported value conversion")
)

// Value is a decoded attribute payload. Bytes returns the wire form
// without the attribute header.
type Value interface {
	Bytes() []byte
	String() string
}

type valueLimits struct {
	min, max int
}

var typeLimits = map[dictionary.ValueType]valueLimits{
	dictionary.TypeOctets:  {1, 253},
	dictionary.TypeString:  {1, 253},
	dictionary.TypeVSA:     {1, 253},
	dictionary.TypeByte:    {1, 1},
	dictionary.TypeShort:   {2, 2},
	dictionary.TypeInteger: {4, 4},
	dictionary.TypeIPAddr:  {4, 4},
	dictionary.TypeDate:    {4, 4},
}

func checkLength(t dictionary.ValueType, n int) error {
	limits, ok := typeLimits[t]
	if !ok {
		limits = typeLimits[dictionary.TypeOctets]
	}
	if n < limits.min || n > limits.max {
		return fmt.Errorf("%w: %s payload of %d bytes", ErrValueLength, t, n)
	}
	return nil
}

// OctetsValue carries an opaque byte payload.
type OctetsValue []byte

func (v OctetsValue) Bytes() []byte  { return v }
func (v OctetsValue) String() string { return fmt.Sprintf("0x%x", []byte(v)) }

// StringValue carries UTF-8 text.
type StringValue string

func (v StringValue) Bytes() []byte  { return []byte(v) }
func (v StringValue) String() string { return string(v) }

// ByteValue is a single unsigned octet.
type ByteValue uint8

func (v ByteValue) Bytes() []byte  { return []byte{uint8(v)} }
func (v ByteValue) String() string { return strconv.FormatUint(uint64(v), 10) }

// ShortValue is an unsigned 16-bit big-endian integer.
type ShortValue uint16

func (v ShortValue) Bytes() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(v))
	return buf
}

func (v ShortValue) String() string { return strconv.FormatUint(uint64(v), 10) }

// IntegerValue is an unsigned 32-bit big-endian integer.
type IntegerValue uint32

func (v IntegerValue) Bytes() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}

func (v IntegerValue) String() string { return strconv.FormatUint(uint64(v), 10) }

// IPAddrValue is an IPv4 address in network byte order.
type IPAddrValue [4]byte

func (v IPAddrValue) Bytes() []byte { return v[:] }

func (v IPAddrValue) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// IP returns the address as a net.IP.
func (v IPAddrValue) IP() net.IP { return net.IPv4(v[0], v[1], v[2], v[3]) }

// DateValue is a UNIX timestamp in seconds.
type DateValue uint32

func (v DateValue) Bytes() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}

func (v DateValue) String() string {
	return time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
}

// Time returns the timestamp as a time.Time.
func (v DateValue) Time() time.Time { return time.Unix(int64(v), 0) }

// decodeValue interprets wire bytes according to the dictionary type.
// The returned value never aliases data.
func decodeValue(t dictionary.ValueType, data []byte) (Value, error) {
	if err := checkLength(t, len(data)); err != nil {
		return nil, err
	}

	switch t {
	case dictionary.TypeString:
		return StringValue(data), nil
	case dictionary.TypeByte:
		return ByteValue(data[0]), nil
	case dictionary.TypeShort:
		return ShortValue(binary.BigEndian.Uint16(data)), nil
	case dictionary.TypeInteger:
		return IntegerValue(binary.BigEndian.Uint32(data)), nil
	case dictionary.TypeIPAddr:
		var addr IPAddrValue
		copy(addr[:], data)
		return addr, nil
	case dictionary.TypeDate:
		return DateValue(binary.BigEndian.Uint32(data)), nil
	default:
		out := make([]byte, len(data))
		copy(out, data)
		return OctetsValue(out), nil
	}
}

// parseIPv4 accepts strict dotted-quad notation: exactly four decimal
// parts, each in 0..255.
func parseIPv4(s string) (IPAddrValue, error) {
	var addr IPAddrValue
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return addr, fmt.Errorf("%w: bad IPv4 address %q", ErrBadValueType, s)
	}
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return addr, fmt.Errorf("%w: bad IPv4 address %q", ErrBadValueType, s)
		}
		addr[i] = byte(n)
	}
	return addr, nil
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int32:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	default:
		return 0, false
	}
}

// newValue converts a native Go value to the wire representation of
// the given dictionary type.
func newValue(t dictionary.ValueType, v interface{}) (Value, error) {
	if val, ok := v.(Value); ok {
		return decodeValue(t, val.Bytes())
	}

	switch t {
	case dictionary.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}
		if err := checkLength(t, len(s)); err != nil {
			return nil, err
		}
		return StringValue(s), nil

	case dictionary.TypeOctets, dictionary.TypeVSA:
		var data []byte
		switch raw := v.(type) {
		case []byte:
			data = raw
		case string:
			data = []byte(raw)
		default:
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}
		if err := checkLength(t, len(data)); err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return OctetsValue(out), nil

	case dictionary.TypeByte:
		n, ok := toUint64(v)
		if !ok {
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}
		if n > 0xFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrValueRange, n, t)
		}
		return ByteValue(n), nil

	case dictionary.TypeShort:
		n, ok := toUint64(v)
		if !ok {
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}
		if n > 0xFFFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrValueRange, n, t)
		}
		return ShortValue(n), nil

	case dictionary.TypeInteger:
		n, ok := toUint64(v)
		if !ok {
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}
		if n > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: %d does not fit %s", ErrValueRange, n, t)
		}
		return IntegerValue(n), nil

	case dictionary.TypeIPAddr:
		switch raw := v.(type) {
		case string:
			return parseIPv4(raw)
		case net.IP:
			v4 := raw.To4()
			if v4 == nil {
				return nil, fmt.Errorf("%w: not an IPv4 address", ErrBadValueType)
			}
			var addr IPAddrValue
			copy(addr[:], v4)
			return addr, nil
		case [4]byte:
			return IPAddrValue(raw), nil
		case IPAddrValue:
			return raw, nil
		default:
			return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
		}

	case dictionary.TypeDate:
		switch raw := v.(type) {
		case time.Time:
			sec := raw.Unix()
			if sec < 0 || sec > 0xFFFFFFFF {
				return nil, fmt.Errorf("%w: time outside 32-bit epoch", ErrValueRange)
			}
			return DateValue(sec), nil
		default:
			n, ok := toUint64(v)
			if !ok {
				return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
			}
			if n > 0xFFFFFFFF {
				return nil, fmt.Errorf("%w: %d does not fit %s", ErrValueRange, n, t)
			}
			return DateValue(n), nil
		}

	default:
		return nil, fmt.Errorf("%w: %T to %s", ErrBadValueType, v, t)
	}
}
