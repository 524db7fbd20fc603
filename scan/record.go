// Package scan enumerates files matching a pattern through a pluggable
// provider, yielding one metadata record per entry and collapsing provider
// failures onto a small closed error set.
package scan

import "time"

// Attr is a file attribute bitset. Values mirror the legacy toolchain's
// attribute flags.
type Attr uint32

const (
	AttrHidden    Attr = 0x02
	AttrSystem    Attr = 0x04
	AttrDirectory Attr = 0x10
)

// ineligibleMask marks entries a batch run skips: directories plus hidden
// and system files.
const ineligibleMask = AttrHidden | AttrSystem | AttrDirectory

// FileRecord is the metadata for one discovered file. Records are valid for
// a single iteration step; callers build full paths by joining the
// enumeration root with Name.
type FileRecord struct {
	Attributes Attr
	Created    time.Time
	Accessed   time.Time
	Modified   time.Time
	Size       int64
	Name       string
}

// Eligible reports whether the record names a regular, non-hidden,
// non-system file.
func (r FileRecord) Eligible() bool {
	return r.Attributes&ineligibleMask == 0
}

// IsDir reports whether the record names a directory.
func (r FileRecord) IsDir() bool {
	return r.Attributes&AttrDirectory != 0
}
