package dictionary

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrOutOfRange is returned for attribute ids outside 1..255 and
	// for names with no registered attribute.
	ErrOutOfRange = errors.New("attribute out of range")

	// ErrBadLookupType is returned when a lookup argument is neither
	// an integer, a string nor an *Entry.
	ErrBadLookupType = errors.New("bad lookup argument type")

	// ErrDuplicateVendor is returned when a vendor id is declared twice.
	ErrDuplicateVendor = errors.New("duplicate vendor id")
)

type vsaKey struct {
	vendor uint32
	sub    uint32
}

// Dictionary is the attribute metadata registry. All lookups are
// idempotent: the same id or name always resolves to the same *Entry,
// including entries synthesized for unknown attributes. A Dictionary
// is safe for concurrent use.
type Dictionary struct {
	mu sync.Mutex

	byID   map[uint8]*Entry
	byName map[string]*Entry

	vendorsByID   map[uint32]*Vendor
	vendorsByName map[string]*Vendor

	vsaByID map[vsaKey]*Entry
}

// New creates an empty dictionary.
func New() *Dictionary {
	return &Dictionary{
		byID:          make(map[uint8]*Entry),
		byName:        make(map[string]*Entry),
		vendorsByID:   make(map[uint32]*Vendor),
		vendorsByName: make(map[string]*Vendor),
		vsaByID:       make(map[vsaKey]*Entry),
	}
}

// Default creates a dictionary preloaded with the embedded base
// dictionary set (RFC 2865/2866 plus the bundled vendor files).
func Default() (*Dictionary, error) {
	d := New()
	if err := d.Load("dictionary"); err != nil {
		return nil, err
	}
	return d, nil
}

// Get resolves a standard attribute by its numeric type code. Codes
// outside 1..255 fail; an unregistered code inside the range is
// synthesized as Unknown-Attribute-<id> of type octets and cached so
// later lookups return the same entry.
func (d *Dictionary) Get(id int) (*Entry, error) {
	if id < 1 || id > 255 {
		return nil, fmt.Errorf("%w: id %d", ErrOutOfRange, id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.getLocked(uint8(id)), nil
}

func (d *Dictionary) getLocked(id uint8) *Entry {
	if e, ok := d.byID[id]; ok {
		return e
	}

	e := &Entry{
		Name: fmt.Sprintf("Unknown-Attribute-%d", id),
		ID:   id,
		Type: TypeOctets,
	}
	d.byID[id] = e
	d.byName[strings.ToLower(e.Name)] = e

	return e
}

// GetByName resolves an attribute by name, case-insensitively. Vendor
// attribute names share the namespace with standard ones. Unknown
// names fail.
func (d *Dictionary) GetByName(name string) (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.byName[strings.ToLower(name)]; ok {
		return e, nil
	}

	return nil, fmt.Errorf("%w: name %q", ErrOutOfRange, name)
}

// Resolve accepts a numeric type code, an attribute name or an *Entry
// and returns the descriptor. Unsupported argument types fail with
// ErrBadLookupType.
func (d *Dictionary) Resolve(ref interface{}) (*Entry, error) {
	switch v := ref.(type) {
	case *Entry:
		return v, nil
	case string:
		return d.GetByName(v)
	case int:
		return d.Get(v)
	case int8:
		return d.Get(int(v))
	case int16:
		return d.Get(int(v))
	case int32:
		return d.Get(int(v))
	case int64:
		return d.Get(int(v))
	case uint8:
		return d.Get(int(v))
	case uint16:
		return d.Get(int(v))
	case uint32:
		return d.Get(int(v))
	case uint:
		return d.Get(int(v))
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadLookupType, ref)
	}
}

// Vendor resolves a vendor by enterprise id, synthesizing a
// Vendor<id> with default field widths on first sight of an unknown
// id. Two lookups of the same id return the same instance.
func (d *Dictionary) Vendor(id uint32) *Vendor {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.vendorLocked(id)
}

func (d *Dictionary) vendorLocked(id uint32) *Vendor {
	if v, ok := d.vendorsByID[id]; ok {
		return v
	}

	v := NewVendor(fmt.Sprintf("Vendor%d", id), id)
	d.vendorsByID[id] = v
	d.vendorsByName[strings.ToLower(v.Name)] = v

	return v
}

// VendorByName resolves a registered vendor by name, case-insensitively.
func (d *Dictionary) VendorByName(name string) (*Vendor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.vendorsByName[strings.ToLower(name)]
	return v, ok
}

// VSA resolves a vendor-specific attribute by (enterprise id, vendor
// type). Unknown pairs synthesize <Vendor>-Unknown-Attribute-<sub>
// of type octets, creating the vendor as well if needed.
func (d *Dictionary) VSA(vendorID, subID uint32) *Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := vsaKey{vendor: vendorID, sub: subID}
	if e, ok := d.vsaByID[key]; ok {
		return e
	}

	vendor := d.vendorLocked(vendorID)

	e := &Entry{
		Name:    fmt.Sprintf("%s-Unknown-Attribute-%d", vendor.Name, subID),
		ID:      VendorSpecificType,
		SubID:   subID,
		Vendor:  vendor,
		Type:    TypeVSA,
		SubType: TypeOctets,
	}
	d.vsaByID[key] = e
	d.byName[strings.ToLower(e.Name)] = e

	return e
}

// VendorSpecificType is the standard attribute type code that frames
// vendor-specific attributes (RFC 2865 Section 5.26).
const VendorSpecificType = 26

// registerVendor files a parsed VENDOR directive. Duplicate ids fail.
func (d *Dictionary) registerVendor(v *Vendor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.vendorsByID[v.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateVendor, v.ID)
	}

	d.vendorsByID[v.ID] = v
	d.vendorsByName[strings.ToLower(v.Name)] = v

	return nil
}

// registerEntry files a parsed ATTRIBUTE directive. A redefinition of
// an existing id or name replaces the old mapping, matching FreeRADIUS
// load behavior for overlapping dictionary files.
func (d *Dictionary) registerEntry(e *Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.IsVSA() {
		d.vsaByID[vsaKey{vendor: e.Vendor.ID, sub: e.SubID}] = e
	} else {
		d.byID[e.ID] = e
	}
	d.byName[strings.ToLower(e.Name)] = e
}

func (d *Dictionary) lookupName(name string) (*Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byName[strings.ToLower(name)]
	return e, ok
}
