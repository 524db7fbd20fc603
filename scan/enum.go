package scan

// Provider is the raw directory-listing capability. Implementations return
// their native errors; the Enumeration wrapper normalizes them. A provider
// signals end of sequence by returning errExhausted (OS provider) or any
// error the mapping table recognizes as terminal.
type Provider interface {
	// Open begins an enumeration of entries matching pattern.
	Open(pattern string) (Handle, error)
}

// Handle is one active enumeration.
type Handle interface {
	// Advance yields the next entry, or an error at end of sequence.
	Advance() (FileRecord, error)
	Close() error
}

// Enumeration iterates files matching a pattern, applying the shared error
// mapping to every provider call.
type Enumeration struct {
	h Handle
}

// Open starts an enumeration using the operating-system provider.
func Open(pattern string) (*Enumeration, error) {
	return OpenWith(OSProvider{}, pattern)
}

// OpenWith starts an enumeration using the given provider.
func OpenWith(p Provider, pattern string) (*Enumeration, error) {
	h, err := p.Open(pattern)
	if err != nil {
		return nil, mapError(err)
	}
	return &Enumeration{h: h}, nil
}

// Next returns the next file record. At end of sequence it returns
// ErrNoMoreEntries; any other error terminates the enumeration for this
// target but carries no retry semantics.
func (e *Enumeration) Next() (FileRecord, error) {
	rec, err := e.h.Advance()
	if err != nil {
		return FileRecord{}, mapError(err)
	}
	return rec, nil
}

// Close releases the enumeration handle.
func (e *Enumeration) Close() error {
	if err := e.h.Close(); err != nil {
		return mapError(err)
	}
	return nil
}
