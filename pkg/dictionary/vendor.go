package dictionary

import "fmt"

// Vendor describes a private enterprise number and the on-wire widths
// of the type and length fields inside its vendor-specific attributes.
// Vendors are immutable once registered.
type Vendor struct {
	Name string
	ID   uint32

	// TypeSize is the width in bytes of the vendor type field (1, 2 or 4).
	TypeSize int

	// LengthSize is the width in bytes of the vendor length field
	// (0, 1 or 2). Zero means the field is absent and the value runs
	// to the end of the enclosing attribute.
	LengthSize int
}

// NewVendor creates a vendor with the default 1-byte type and length
// field widths used by almost every enterprise.
func NewVendor(name string, id uint32) *Vendor {
	return &Vendor{
		Name:       name,
		ID:         id,
		TypeSize:   1,
		LengthSize: 1,
	}
}

// HeaderSize returns the number of bytes occupied by the vendor type
// and length fields.
func (v *Vendor) HeaderSize() int {
	return v.TypeSize + v.LengthSize
}

func (v *Vendor) String() string {
	return fmt.Sprintf("%s(%d)", v.Name, v.ID)
}

func validTypeSize(n int) bool {
	return n == 1 || n == 2 || n == 4
}

func validLengthSize(n int) bool {
	return n >= 0 && n <= 2
}
