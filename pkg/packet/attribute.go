package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/dictionary"
)

const (
	attributeHeaderSize = 2
	maxAttributeLength  = 255
)

var (
	// ErrAttributeTooLong is returned when an encoded attribute would
	// exceed the one-byte length field.
	ErrAttributeTooLong = errors.New("attribute exceeds 255 bytes")

	// ErrBufferFull is returned when a packet runs out of encoding
	// space.
	ErrBufferFull = errors.New("packet buffer full")

	// ErrMalformedAttribute is returned for framing violations on
	// decode.
	ErrMalformedAttribute = errors.New("malformed attribute")

	// ErrUnsupportedEncrypt is returned for encryption schemes other
	// than the User-Password transform.
	ErrUnsupportedEncrypt = errors.New("unsupported encryption scheme")
)

// Attribute pairs a dictionary entry with a decoded value.
type Attribute struct {
	Entry *dictionary.Entry
	Value Value
}

// NewAttribute resolves ref against the dictionary and converts value
// to the entry's wire type. A []byte value is interpreted as raw wire
// bytes; a string assigned to a numeric attribute is first tried as an
// enumerated value name.
func NewAttribute(dict *dictionary.Dictionary, ref interface{}, value interface{}) (*Attribute, error) {
	entry, err := dict.Resolve(ref)
	if err != nil {
		return nil, err
	}

	t := entry.RealType()

	if raw, ok := value.([]byte); ok && t != dictionary.TypeOctets && t != dictionary.TypeVSA {
		decoded, err := decodeValue(t, raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
		}
		return &Attribute{Entry: entry, Value: decoded}, nil
	}

	if name, ok := value.(string); ok && t.IsNumeric() && entry.HasValues() {
		if number, ok := entry.ValueNumber(name); ok {
			value = number
		}
	}

	val, err := newValue(t, value)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
	}
	return &Attribute{Entry: entry, Value: val}, nil
}

// Name returns the dictionary name of the attribute.
func (a *Attribute) Name() string { return a.Entry.Name }

// String renders "<name>: <value>", substituting the enumerated value
// name where one is defined.
func (a *Attribute) String() string {
	if a.Entry.HasValues() {
		if n, ok := numericValue(a.Value); ok {
			if name, ok := a.Entry.ValueName(n); ok {
				return fmt.Sprintf("%s: %s (%d)", a.Entry.Name, name, n)
			}
		}
	}
	return fmt.Sprintf("%s: %s", a.Entry.Name, a.Value.String())
}

func numericValue(v Value) (uint32, bool) {
	switch n := v.(type) {
	case ByteValue:
		return uint32(n), true
	case ShortValue:
		return uint32(n), true
	case IntegerValue:
		return uint32(n), true
	case DateValue:
		return uint32(n), true
	default:
		return 0, false
	}
}

// encodeTo writes the attribute at buf[off:] and returns the new
// offset. The secret and request authenticator feed the User-Password
// transform when the entry demands it.
func (a *Attribute) encodeTo(buf []byte, off int, secret []byte, requestAuth crypto.Authenticator) (int, error) {
	data := a.Value.Bytes()

	switch a.Entry.Encrypt() {
	case dictionary.EncryptNone:
	case dictionary.EncryptUserPassword:
		encrypted, err := crypto.EncryptUserPassword(data, secret, requestAuth)
		if err != nil {
			return off, fmt.Errorf("attribute %s: %w", a.Entry.Name, err)
		}
		data = encrypted
	default:
		return off, fmt.Errorf("attribute %s: %w: scheme %d",
			a.Entry.Name, ErrUnsupportedEncrypt, a.Entry.Encrypt())
	}

	if a.Entry.IsVSA() {
		return a.encodeVSA(buf, off, data)
	}

	total := attributeHeaderSize + len(data)
	if total > maxAttributeLength {
		return off, fmt.Errorf("attribute %s: %w", a.Entry.Name, ErrAttributeTooLong)
	}
	if off+total > len(buf) {
		return off, ErrBufferFull
	}

	buf[off] = a.Entry.ID
	buf[off+1] = byte(total)
	copy(buf[off+attributeHeaderSize:], data)
	return off + total, nil
}

func (a *Attribute) encodeVSA(buf []byte, off int, data []byte) (int, error) {
	vendor := a.Entry.Vendor
	inner := vendor.HeaderSize() + len(data)
	total := attributeHeaderSize + 4 + inner
	if total > maxAttributeLength {
		return off, fmt.Errorf("attribute %s: %w", a.Entry.Name, ErrAttributeTooLong)
	}
	if off+total > len(buf) {
		return off, ErrBufferFull
	}

	buf[off] = dictionary.VendorSpecificType
	buf[off+1] = byte(total)
	binary.BigEndian.PutUint32(buf[off+2:], vendor.ID)

	p := off + 6
	p = putUintBE(buf, p, uint64(a.Entry.SubID), vendor.TypeSize)
	if vendor.LengthSize > 0 {
		p = putUintBE(buf, p, uint64(inner), vendor.LengthSize)
	}
	copy(buf[p:], data)
	return off + total, nil
}

func putUintBE(buf []byte, off int, v uint64, width int) int {
	for i := width - 1; i >= 0; i-- {
		buf[off+i] = byte(v)
		v >>= 8
	}
	return off + width
}

func readUintBE(data []byte, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v = v<<8 | uint64(data[i])
	}
	return v
}

// decodeAttribute interprets one complete attribute frame. data must
// be exactly the attribute's declared extent, header included.
func decodeAttribute(dict *dictionary.Dictionary, data []byte, secret []byte, requestAuth crypto.Authenticator) (*Attribute, error) {
	if len(data) < attributeHeaderSize {
		return nil, fmt.Errorf("%w: %d-byte frame", ErrMalformedAttribute, len(data))
	}

	id := data[0]
	if int(data[1]) != len(data) {
		return nil, fmt.Errorf("%w: declared %d bytes, framed %d",
			ErrMalformedAttribute, data[1], len(data))
	}
	payload := data[attributeHeaderSize:]

	if id == dictionary.VendorSpecificType {
		return decodeVSA(dict, payload, secret, requestAuth)
	}

	entry, err := dict.Get(int(id))
	if err != nil {
		return nil, err
	}

	switch entry.Encrypt() {
	case dictionary.EncryptNone:
	case dictionary.EncryptUserPassword:
		plain, err := crypto.DecryptUserPassword(payload, secret, requestAuth)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
		}
		payload = plain
	default:
		return nil, fmt.Errorf("attribute %s: %w: scheme %d",
			entry.Name, ErrUnsupportedEncrypt, entry.Encrypt())
	}

	value, err := decodeValue(entry.RealType(), payload)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
	}
	return &Attribute{Entry: entry, Value: value}, nil
}

// decodeVSA extracts the first sub-attribute of a Vendor-Specific
// payload. Extra sub-attributes after the first are ignored.
func decodeVSA(dict *dictionary.Dictionary, payload []byte, secret []byte, requestAuth crypto.Authenticator) (*Attribute, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: vendor-specific payload of %d bytes",
			ErrMalformedAttribute, len(payload))
	}

	vendorID := binary.BigEndian.Uint32(payload)
	vendor := dict.Vendor(vendorID)
	rest := payload[4:]

	if len(rest) < vendor.HeaderSize() {
		return nil, fmt.Errorf("%w: truncated %s sub-attribute",
			ErrMalformedAttribute, vendor.Name)
	}

	subID := uint32(readUintBE(rest, vendor.TypeSize))
	rest = rest[vendor.TypeSize:]

	var data []byte
	if vendor.LengthSize > 0 {
		inner := int(readUintBE(rest, vendor.LengthSize))
		rest = rest[vendor.LengthSize:]
		dataLen := inner - vendor.HeaderSize()
		if dataLen < 0 || dataLen > len(rest) {
			return nil, fmt.Errorf("%w: %s sub-attribute length %d",
				ErrMalformedAttribute, vendor.Name, inner)
		}
		data = rest[:dataLen]
	} else {
		data = rest
	}

	entry := dict.VSA(vendorID, subID)

	switch entry.Encrypt() {
	case dictionary.EncryptNone:
	case dictionary.EncryptUserPassword:
		plain, err := crypto.DecryptUserPassword(data, secret, requestAuth)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
		}
		data = plain
	default:
		return nil, fmt.Errorf("attribute %s: %w: scheme %d",
			entry.Name, ErrUnsupportedEncrypt, entry.Encrypt())
	}

	value, err := decodeValue(entry.RealType(), data)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", entry.Name, err)
	}
	return &Attribute{Entry: entry, Value: value}, nil
}
