package scan

import (
	"errors"
	"io/fs"
	"path/filepath"
	"syscall"
)

// The closed error set every provider failure collapses into. Callers
// match with errors.Is.
var (
	// ErrNotFound: a named file does not exist. The legacy error table
	// collapses this onto the same code as ErrPathNotFound; mapError does
	// the same, so enumeration never returns ErrNotFound itself. It is
	// kept for callers that probe individual files.
	ErrNotFound = errors.New("scan: file not found")

	// ErrPathNotFound: the enumeration target does not exist or matched
	// nothing.
	ErrPathNotFound = errors.New("scan: path not found")

	// ErrOutOfMemory: the provider could not allocate.
	ErrOutOfMemory = errors.New("scan: out of memory")

	// ErrNoMoreEntries signals normal end of an enumeration. It is a
	// terminal condition, not a failure; loops must treat it as
	// termination.
	ErrNoMoreEntries = errors.New("scan: no more entries")

	// ErrUnknown: anything the table does not recognize.
	ErrUnknown = errors.New("scan: unknown enumeration error")
)

// errExhausted is the raw in-process signal providers return at end of
// sequence, before normalization.
var errExhausted = errors.New("scan: provider exhausted")

// mapError normalizes a raw provider error onto the closed set. Open and
// Next share this single table; the legacy implementation duplicated it at
// both call sites and, on the advance path, folded end-of-sequence into the
// path-not-found branch. Here end-of-sequence maps to ErrNoMoreEntries at
// both sites.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errExhausted):
		return ErrNoMoreEntries
	case errors.Is(err, fs.ErrNotExist):
		return ErrPathNotFound
	case errors.Is(err, syscall.ENOMEM):
		return ErrOutOfMemory
	case errors.Is(err, filepath.ErrBadPattern):
		return ErrUnknown
	default:
		return ErrUnknown
	}
}
