package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OSProvider lists files through the local filesystem. Patterns use
// filepath.Match syntax; a pattern with no matches reports path-not-found,
// matching the legacy enumerator.
type OSProvider struct{}

type osHandle struct {
	paths []string
	pos   int
}

// Open resolves the pattern eagerly. A plain directory path enumerates the
// directory's entries.
func (OSProvider) Open(pattern string) (Handle, error) {
	if info, err := os.Stat(pattern); err == nil && info.IsDir() {
		pattern = filepath.Join(pattern, "*")
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		// Distinguishing a missing directory from an empty match set is
		// not worth a second stat; both collapse to path-not-found.
		return nil, fs.ErrNotExist
	}
	return &osHandle{paths: paths}, nil
}

func (h *osHandle) Advance() (FileRecord, error) {
	for h.pos < len(h.paths) {
		path := h.paths[h.pos]
		h.pos++

		info, err := os.Stat(path)
		if err != nil {
			// Raced deletion between glob and stat: surface the raw error
			// for the shared mapping table.
			return FileRecord{}, err
		}
		return recordFromInfo(path, info), nil
	}
	return FileRecord{}, errExhausted
}

func (h *osHandle) Close() error {
	h.paths = nil
	return nil
}

// recordFromInfo converts stat results to a FileRecord. Creation and access
// times are not portable; all three timestamps carry the modification time.
func recordFromInfo(path string, info fs.FileInfo) FileRecord {
	var attrs Attr
	if info.IsDir() {
		attrs |= AttrDirectory
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		attrs |= AttrHidden
	}
	mod := info.ModTime()
	return FileRecord{
		Attributes: attrs,
		Created:    mod,
		Accessed:   mod,
		Modified:   mod,
		Size:       info.Size(),
		Name:       filepath.Base(path),
	}
}
