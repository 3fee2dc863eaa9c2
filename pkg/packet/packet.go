package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/dictionary"
)

const (
	headerLength = 4 + crypto.AuthenticatorLength

	// MaxPacketSize bounds the encoded form of a packet, RFC 2865
	// Section 3.
	MaxPacketSize = 4096
)

var (
	// ErrMalformedPacket is returned for header-level violations on
	// decode.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrPacketTooLarge is returned when an encoded packet would
	// exceed MaxPacketSize.
	ErrPacketTooLarge = errors.New("packet exceeds 4096 bytes")
)

// Packet is a RADIUS packet under construction or decoded from the
// wire. Decoded packets are frozen.
type Packet struct {
	code          Code
	identifier    uint8
	authenticator crypto.Authenticator
	attrs         *AttributeList
	dict          *dictionary.Dictionary
	frozen        bool
}

// New builds a mutable packet with a zero authenticator.
func New(dict *dictionary.Dictionary, code Code, identifier uint8) *Packet {
	return &Packet{
		code:       code,
		identifier: identifier,
		attrs:      NewAttributeList(),
		dict:       dict,
	}
}

// NewRequest builds a mutable packet with a freshly drawn random
// authenticator.
func NewRequest(dict *dictionary.Dictionary, code Code, identifier uint8) (*Packet, error) {
	auth, err := crypto.NewRequestAuthenticator()
	if err != nil {
		return nil, err
	}
	p := New(dict, code, identifier)
	p.authenticator = auth
	return p, nil
}

// Code returns the packet code.
func (p *Packet) Code() Code { return p.code }

// Identifier returns the one-byte packet identifier.
func (p *Packet) Identifier() uint8 { return p.identifier }

// Authenticator returns the authenticator field.
func (p *Packet) Authenticator() crypto.Authenticator { return p.authenticator }

// Dictionary returns the dictionary the packet resolves attributes
// against.
func (p *Packet) Dictionary() *dictionary.Dictionary { return p.dict }

// Attributes returns the packet's attribute list.
func (p *Packet) Attributes() *AttributeList { return p.attrs }

// Frozen reports whether the packet rejects mutation.
func (p *Packet) Frozen() bool { return p.frozen }

// SetCode replaces the packet code.
func (p *Packet) SetCode(code Code) error {
	if p.frozen {
		return ErrFrozen
	}
	p.code = code
	return nil
}

// SetIdentifier replaces the packet identifier.
func (p *Packet) SetIdentifier(id uint8) error {
	if p.frozen {
		return ErrFrozen
	}
	p.identifier = id
	return nil
}

// SetAuthenticator replaces the authenticator field.
func (p *Packet) SetAuthenticator(auth crypto.Authenticator) error {
	if p.frozen {
		return ErrFrozen
	}
	p.authenticator = auth
	return nil
}

// Add resolves ref and value against the packet's dictionary and
// appends the attribute.
func (p *Packet) Add(ref interface{}, value interface{}) error {
	if p.frozen {
		return ErrFrozen
	}
	return p.attrs.AddNew(p.dict, ref, value)
}

// Get returns the first attribute matching ref, or nil.
func (p *Packet) Get(ref interface{}) *Attribute {
	entry, err := p.dict.Resolve(ref)
	if err != nil {
		return nil
	}
	return p.attrs.Get(entry)
}

// GetAll returns every attribute matching ref, in order.
func (p *Packet) GetAll(ref interface{}) []*Attribute {
	entry, err := p.dict.Resolve(ref)
	if err != nil {
		return nil
	}
	return p.attrs.GetAll(entry)
}

// Has reports whether at least one attribute matches ref.
func (p *Packet) Has(ref interface{}) bool {
	return p.Get(ref) != nil
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s id=%d [%s]", p.code, p.identifier, p.attrs)
}

// Encode serializes the packet. For responses the authenticator field
// must already hold the request authenticator; the encoded output
// carries the derived response authenticator in its place.
func (p *Packet) Encode(secret []byte, isResponse bool) ([]byte, error) {
	buf := make([]byte, MaxPacketSize)
	buf[0] = uint8(p.code)
	buf[1] = p.identifier
	copy(buf[4:], p.authenticator[:])

	end, err := p.attrs.EncodeTo(buf, headerLength, secret, p.authenticator)
	if err != nil {
		if errors.Is(err, ErrBufferFull) {
			return nil, ErrPacketTooLarge
		}
		return nil, err
	}
	binary.BigEndian.PutUint16(buf[2:], uint16(end))

	out := buf[:end]
	if isResponse {
		auth := crypto.ResponseAuthenticator(out, secret)
		copy(out[4:], auth[:])
	}
	return out, nil
}

// Decode parses a datagram. The declared length governs the attribute
// region; bytes past it are ignored. The result is frozen.
func Decode(dict *dictionary.Dictionary, data []byte, secret []byte) (*Packet, error) {
	if len(data) < headerLength {
		return nil, fmt.Errorf("%w: %d-byte datagram", ErrMalformedPacket, len(data))
	}

	declared := int(binary.BigEndian.Uint16(data[2:]))
	if declared < headerLength {
		return nil, fmt.Errorf("%w: declared length %d", ErrMalformedPacket, declared)
	}
	if declared > len(data) {
		return nil, fmt.Errorf("%w: declared length %d exceeds %d-byte datagram",
			ErrMalformedPacket, declared, len(data))
	}

	code := Code(data[0])
	if !code.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, data[0])
	}

	p := &Packet{
		code:       code,
		identifier: data[1],
		dict:       dict,
	}
	copy(p.authenticator[:], data[4:headerLength])

	attrs, err := decodeAttributes(dict, data[headerLength:declared], secret, p.authenticator)
	if err != nil {
		return nil, err
	}
	p.attrs = attrs
	p.frozen = true
	return p, nil
}
