package packet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/david-macharia/isc-radius/pkg/crypto"
	"github.com/david-macharia/isc-radius/pkg/dictionary"
)

// ErrFrozen is returned by mutations on a frozen list or packet.
// Decoding freezes; encoding does not.
var ErrFrozen = errors.New("attribute list is frozen")

// AttributeList is an ordered collection of attributes. Duplicate
// attributes are allowed and preserve insertion order.
type AttributeList struct {
	attrs  []*Attribute
	frozen bool
}

// NewAttributeList returns an empty mutable list.
func NewAttributeList() *AttributeList {
	return &AttributeList{}
}

// Add appends an attribute.
func (l *AttributeList) Add(attr *Attribute) error {
	if l.frozen {
		return ErrFrozen
	}
	l.attrs = append(l.attrs, attr)
	return nil
}

// AddNew resolves ref and value against the dictionary and appends the
// result.
func (l *AttributeList) AddNew(dict *dictionary.Dictionary, ref interface{}, value interface{}) error {
	if l.frozen {
		return ErrFrozen
	}
	attr, err := NewAttribute(dict, ref, value)
	if err != nil {
		return err
	}
	l.attrs = append(l.attrs, attr)
	return nil
}

// Len returns the number of attributes in the list.
func (l *AttributeList) Len() int { return len(l.attrs) }

// Attributes returns the attributes in order. The slice is shared;
// callers must not modify it.
func (l *AttributeList) Attributes() []*Attribute { return l.attrs }

// Freeze makes the list immutable.
func (l *AttributeList) Freeze() { l.frozen = true }

// Frozen reports whether the list rejects mutation.
func (l *AttributeList) Frozen() bool { return l.frozen }

// Get returns the first attribute matching the dictionary entry, or
// nil when absent.
func (l *AttributeList) Get(entry *dictionary.Entry) *Attribute {
	for _, attr := range l.attrs {
		if attr.Entry == entry {
			return attr
		}
	}
	return nil
}

// GetAll returns every attribute matching the dictionary entry, in
// order.
func (l *AttributeList) GetAll(entry *dictionary.Entry) []*Attribute {
	var out []*Attribute
	for _, attr := range l.attrs {
		if attr.Entry == entry {
			out = append(out, attr)
		}
	}
	return out
}

// Has reports whether at least one attribute matches the entry.
func (l *AttributeList) Has(entry *dictionary.Entry) bool {
	return l.Get(entry) != nil
}

// EncodeTo writes every attribute in order at buf[off:] and returns
// the new offset.
func (l *AttributeList) EncodeTo(buf []byte, off int, secret []byte, requestAuth crypto.Authenticator) (int, error) {
	var err error
	for _, attr := range l.attrs {
		off, err = attr.encodeTo(buf, off, secret, requestAuth)
		if err != nil {
			return off, err
		}
	}
	return off, nil
}

func (l *AttributeList) String() string {
	parts := make([]string, len(l.attrs))
	for i, attr := range l.attrs {
		parts[i] = attr.String()
	}
	return strings.Join(parts, ", ")
}

// decodeAttributes walks the attribute region of a packet. A trailing
// fragment shorter than a header is discarded; a declared length that
// is short or overruns the region is an error. The returned list is
// frozen.
func decodeAttributes(dict *dictionary.Dictionary, data []byte, secret []byte, requestAuth crypto.Authenticator) (*AttributeList, error) {
	list := NewAttributeList()

	for len(data) >= attributeHeaderSize {
		alen := int(data[1])
		if alen < attributeHeaderSize {
			return nil, fmt.Errorf("%w: declared length %d", ErrMalformedAttribute, alen)
		}
		if alen > len(data) {
			return nil, fmt.Errorf("%w: declared length %d overruns %d remaining bytes",
				ErrMalformedAttribute, alen, len(data))
		}

		attr, err := decodeAttribute(dict, data[:alen], secret, requestAuth)
		if err != nil {
			return nil, err
		}
		list.attrs = append(list.attrs, attr)
		data = data[alen:]
	}

	list.Freeze()
	return list, nil
}
