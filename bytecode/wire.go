package bytecode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical CBOR so sidecar files are deterministic for a given program.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// LineEntry maps a logical code offset to the source line that produced it.
type LineEntry struct {
	Offset uint32 `cbor:"o"`
	Line   uint32 `cbor:"l"`
}

// DebugInfo is the sidecar written next to a compiled artifact when debug
// output is enabled.
type DebugInfo struct {
	Source     string            `cbor:"source"`
	SourceHash [sha256.Size]byte `cbor:"hash"`
	CodeSize   uint32            `cbor:"size"`
	Entry      uint32            `cbor:"entry"`
	Lines      []LineEntry       `cbor:"lines"`
}

// DebugInfo builds the sidecar record for this program, attributing
// instructions to lines of the given source.
func (p *Program) DebugInfo(sourcePath string, source []byte) *DebugInfo {
	di := &DebugInfo{
		Source:     sourcePath,
		SourceHash: sha256.Sum256(source),
		CodeSize:   uint32(len(p.data)),
		Entry:      p.entry,
	}
	for _, in := range p.instrs {
		if in.Line > 0 {
			di.Lines = append(di.Lines, LineEntry{Offset: in.Offset, Line: uint32(in.Line)})
		}
	}
	return di
}

// MarshalDebugInfo serializes debug info to canonical CBOR bytes.
func MarshalDebugInfo(di *DebugInfo) ([]byte, error) {
	return cborEncMode.Marshal(di)
}

// UnmarshalDebugInfo deserializes debug info from CBOR bytes.
func UnmarshalDebugInfo(data []byte) (*DebugInfo, error) {
	var di DebugInfo
	if err := cbor.Unmarshal(data, &di); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal debug info: %w", err)
	}
	return &di, nil
}
