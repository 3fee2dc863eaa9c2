package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	gopath "path"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrIncludeCycle is returned when a dictionary file includes
	// itself, directly or through a chain of $INCLUDE directives.
	ErrIncludeCycle = errors.New("dictionary include cycle")

	// ErrUnknownVendor is returned by BEGIN-VENDOR for a vendor that
	// has not been declared.
	ErrUnknownVendor = errors.New("unknown vendor")
)

// Load reads a FreeRADIUS-format dictionary file into the registry.
// Absolute paths are opened verbatim. A relative path is first tried
// against the working directory and then against the embedded
// dictionary set shipped with the package. $INCLUDE directives resolve
// relative to the including file and stay within the same source
// (filesystem or embedded). Errors carry a file:line trace through
// every enclosing include.
func (d *Dictionary) Load(path string) error {
	p := &loader{dict: d}

	if filepath.IsAbs(path) {
		return p.loadFile(nil, path)
	}

	if _, err := os.Stat(path); err == nil {
		return p.loadFile(nil, path)
	}

	return p.loadFile(embeddedData(), gopath.Clean(path))
}

type loader struct {
	dict *Dictionary

	// active holds canonicalized paths of the open include chain.
	active []string

	// vendor is the current BEGIN-VENDOR scope, carried across
	// includes the way FreeRADIUS does.
	vendor *Vendor
}

func (l *loader) loadFile(fsys fs.FS, path string) error {
	canonical := path
	if fsys == nil {
		if abs, err := filepath.Abs(path); err == nil {
			canonical = abs
		}
	}

	for _, open := range l.active {
		if open == canonical {
			return fmt.Errorf("%w: %s", ErrIncludeCycle, path)
		}
	}

	var (
		file io.ReadCloser
		err  error
	)
	if fsys == nil {
		file, err = os.Open(path)
	} else {
		file, err = fsys.Open(path)
	}
	if err != nil {
		return fmt.Errorf("open dictionary: %w", err)
	}
	defer file.Close()

	l.active = append(l.active, canonical)
	defer func() { l.active = l.active[:len(l.active)-1] }()

	scanner := bufio.NewScanner(file)
	lineno := 0

	for scanner.Scan() {
		lineno++

		if err := l.parseLine(fsys, path, scanner.Text()); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

func (l *loader) parseLine(fsys fs.FS, path, line string) error {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "ATTRIBUTE":
		return l.parseAttribute(fields)
	case "VALUE":
		return l.parseValue(fields)
	case "VENDOR":
		return l.parseVendor(fields)
	case "BEGIN-VENDOR":
		return l.beginVendor(fields)
	case "END-VENDOR":
		l.vendor = nil
		return nil
	case "$INCLUDE":
		return l.include(fsys, path, fields)
	default:
		// Unknown directives are skipped so newer dictionary files
		// still load.
		return nil
	}
}

func (l *loader) parseAttribute(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("ATTRIBUTE needs a name, id and type")
	}

	name := fields[1]
	valueType := TypeFromText(fields[3])

	flags, err := parseFlags(fields[4:])
	if err != nil {
		return err
	}

	if l.vendor != nil {
		subID, err := strconv.ParseUint(fields[2], 0, 32)
		if err != nil {
			return fmt.Errorf("bad vendor attribute id %q: %w", fields[2], err)
		}

		l.dict.registerEntry(&Entry{
			Name:    name,
			ID:      VendorSpecificType,
			SubID:   uint32(subID),
			Vendor:  l.vendor,
			Type:    TypeVSA,
			SubType: valueType,
			Flags:   flags,
		})
		return nil
	}

	id, err := strconv.ParseUint(fields[2], 0, 8)
	if err != nil || id == 0 {
		return fmt.Errorf("bad attribute id %q", fields[2])
	}

	l.dict.registerEntry(&Entry{
		Name:  name,
		ID:    uint8(id),
		Type:  valueType,
		Flags: flags,
	})
	return nil
}

func (l *loader) parseValue(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("VALUE needs an attribute, a name and a number")
	}

	entry, ok := l.dict.lookupName(fields[1])
	if !ok {
		return fmt.Errorf("VALUE for unknown attribute %q", fields[1])
	}

	if !entry.RealType().IsNumeric() {
		return fmt.Errorf("VALUE for non-numeric attribute %q (%s)", entry.Name, entry.RealType())
	}

	n, err := strconv.ParseUint(fields[3], 0, 32)
	if err != nil {
		return fmt.Errorf("bad VALUE number %q: %w", fields[3], err)
	}

	entry.addValue(fields[2], uint32(n))
	return nil
}

func (l *loader) parseVendor(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("VENDOR needs a name and an id")
	}

	id, err := strconv.ParseUint(fields[2], 0, 32)
	if err != nil {
		return fmt.Errorf("bad vendor id %q: %w", fields[2], err)
	}

	vendor := NewVendor(fields[1], uint32(id))

	if len(fields) > 3 && strings.HasPrefix(fields[3], "format=") {
		if err := parseVendorFormat(vendor, strings.TrimPrefix(fields[3], "format=")); err != nil {
			return err
		}
	}

	return l.dict.registerVendor(vendor)
}

// parseVendorFormat applies a format=T,L[,..] tag. Trailing fields
// beyond the two widths (the continuation marker used by WiMAX) are
// ignored.
func parseVendorFormat(vendor *Vendor, format string) error {
	parts := strings.Split(format, ",")
	if len(parts) < 2 {
		return fmt.Errorf("bad vendor format %q", format)
	}

	typeSize, err := strconv.Atoi(parts[0])
	if err != nil || !validTypeSize(typeSize) {
		return fmt.Errorf("bad vendor type size %q", parts[0])
	}

	lengthSize, err := strconv.Atoi(parts[1])
	if err != nil || !validLengthSize(lengthSize) {
		return fmt.Errorf("bad vendor length size %q", parts[1])
	}

	vendor.TypeSize = typeSize
	vendor.LengthSize = lengthSize
	return nil
}

func (l *loader) beginVendor(fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("BEGIN-VENDOR needs a vendor name")
	}

	vendor, ok := l.dict.VendorByName(fields[1])
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVendor, fields[1])
	}

	l.vendor = vendor
	return nil
}

func (l *loader) include(fsys fs.FS, path string, fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("$INCLUDE needs a path")
	}

	target := fields[1]

	if fsys == nil {
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
	} else {
		target = gopath.Join(gopath.Dir(path), target)
	}

	return l.loadFile(fsys, target)
}

// parseFlags splits comma-separated flag fields into a name to number
// map. A bare flag counts as 1; fields that do not look like flags are
// ignored.
func parseFlags(fields []string) (map[string]int, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	flags := make(map[string]int)

	for _, field := range fields {
		for _, flag := range strings.Split(field, ",") {
			if flag == "" {
				continue
			}

			key, value, found := strings.Cut(flag, "=")
			if !found {
				flags[key] = 1
				continue
			}

			n, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			flags[key] = n
		}
	}

	if len(flags) == 0 {
		return nil, nil
	}
	return flags, nil
}
