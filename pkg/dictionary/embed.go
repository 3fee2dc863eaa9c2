package dictionary

import (
	"embed"
	"io/fs"
)

// The embedded dictionary set mirrors the FreeRADIUS 3.x layout: a
// root "dictionary" file that $INCLUDEs the protocol and vendor files.
//
//go:embed data
var embedded embed.FS

func embeddedData() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		// The data directory is compiled in; this cannot fail at runtime.
		panic(err)
	}
	return sub
}
