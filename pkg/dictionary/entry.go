package dictionary

import "fmt"

// Encryption schemes recognized in attribute flags. Only the RFC 2865
// Section 5.2 User-Password scheme is implemented; the others are
// named here for reference, and the packet codec rejects any scheme
// other than EncryptNone and EncryptUserPassword.
const (
	EncryptNone           = 0
	EncryptUserPassword   = 1
	EncryptTunnelPassword = 2
	EncryptAscend         = 3
)

// Entry is an attribute descriptor. For standard attributes ID is the
// on-wire type code. For vendor-specific attributes ID is always 26,
// SubID carries the vendor type and Vendor points at the owning
// enterprise. Entries are immutable after registration; the registry
// guarantees that repeated lookups return the same instance.
type Entry struct {
	Name   string
	ID     uint8
	SubID  uint32
	Vendor *Vendor

	// Type is the outer codec; TypeVSA for vendor attributes.
	Type ValueType

	// SubType is the codec of the vendor payload when Type is TypeVSA.
	SubType ValueType

	// Flags holds numeric attribute flags from the dictionary file.
	// The recognized flag is "encrypt".
	Flags map[string]int

	valueNames   map[uint32]string
	valueNumbers map[string]uint32
}

// RealType returns the codec that actually encodes the value: SubType
// for vendor attributes, Type otherwise.
func (e *Entry) RealType() ValueType {
	if e.Type == TypeVSA {
		return e.SubType
	}
	return e.Type
}

// Encrypt returns the encryption scheme number from the flags, or
// EncryptNone when the attribute is not encrypted.
func (e *Entry) Encrypt() int {
	return e.Flags["encrypt"]
}

// IsVSA reports whether the entry describes a vendor-specific attribute.
func (e *Entry) IsVSA() bool {
	return e.Vendor != nil
}

// ValueName resolves an enumerated numeric value to its symbolic name.
func (e *Entry) ValueName(n uint32) (string, bool) {
	name, ok := e.valueNames[n]
	return name, ok
}

// ValueNumber resolves a symbolic value name to its number.
func (e *Entry) ValueNumber(name string) (uint32, bool) {
	n, ok := e.valueNumbers[name]
	return n, ok
}

// HasValues reports whether the entry carries an enum table.
func (e *Entry) HasValues() bool {
	return len(e.valueNames) > 0
}

func (e *Entry) addValue(name string, n uint32) {
	if e.valueNames == nil {
		e.valueNames = make(map[uint32]string)
		e.valueNumbers = make(map[string]uint32)
	}
	e.valueNames[n] = name
	e.valueNumbers[name] = n
}

func (e *Entry) String() string {
	if e.IsVSA() {
		return fmt.Sprintf("%s (26/%s.%d, %s)", e.Name, e.Vendor.Name, e.SubID, e.RealType())
	}
	return fmt.Sprintf("%s (%d, %s)", e.Name, e.ID, e.Type)
}
