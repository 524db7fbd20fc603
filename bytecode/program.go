package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// NCS file header: 8-byte signature, marker byte, big-endian total size.
var ncsMagic = []byte("NCS V1.0")

const (
	ncsMarker     = 0x42
	ncsHeaderSize = 13
)

// Program is finalized, immutable bytecode. It is safe to share between
// goroutines and to compare byte-for-byte.
type Program struct {
	data   []byte
	instrs []Instruction
	entry  uint32
}

// Len returns the code size in bytes (excluding the file header).
func (p *Program) Len() int {
	return len(p.data)
}

// Entry returns the program entry point offset.
func (p *Program) Entry() uint32 {
	return p.entry
}

// Bytes returns a copy of the raw code region.
func (p *Program) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Instructions returns the decoded instruction sequence in emission order.
// The returned slice must not be modified. Programs loaded from disk have
// no instruction records and return nil.
func (p *Program) Instructions() []Instruction {
	return p.instrs
}

// Equal reports byte-exact equality of the two code regions.
func (p *Program) Equal(other *Program) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(p.data, other.data)
}

// Serialize encodes the program in NCS file form:
//
//	[signature "NCS V1.0":8] [0x42:1] [total_size:4 big-endian] [code:...]
//
// where total_size covers the header itself.
func (p *Program) Serialize() []byte {
	total := ncsHeaderSize + len(p.data)
	buf := make([]byte, 0, total)
	buf = append(buf, ncsMagic...)
	buf = append(buf, ncsMarker)
	buf = binary.BigEndian.AppendUint32(buf, uint32(total))
	buf = append(buf, p.data...)
	return buf
}

// LoadProgram decodes a serialized program. The result carries the code
// region only; instruction records are not recoverable from the file form.
func LoadProgram(raw []byte) (*Program, error) {
	if len(raw) < ncsHeaderSize {
		return nil, fmt.Errorf("bytecode: file too short: %d bytes", len(raw))
	}
	if !bytes.Equal(raw[:len(ncsMagic)], ncsMagic) {
		return nil, fmt.Errorf("bytecode: bad signature %q", raw[:len(ncsMagic)])
	}
	if raw[len(ncsMagic)] != ncsMarker {
		return nil, fmt.Errorf("bytecode: bad header marker 0x%02X", raw[len(ncsMagic)])
	}
	total := binary.BigEndian.Uint32(raw[len(ncsMagic)+1:])
	if int(total) != len(raw) {
		return nil, fmt.Errorf("bytecode: header size %d does not match file size %d", total, len(raw))
	}
	code := make([]byte, len(raw)-ncsHeaderSize)
	copy(code, raw[ncsHeaderSize:])
	return &Program{data: code}, nil
}

// Disassemble returns a human-readable listing of the instruction stream:
// logical offset, raw bytes, and jump targets. Mnemonics belong to the
// compiler core; this listing is for diagnostics only.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; %d bytes, %d instructions, entry 0x%04X\n", len(p.data), len(p.instrs), p.entry)
	for _, in := range p.instrs {
		fmt.Fprintf(&sb, "0x%04X  %02X %02X", in.Offset, in.Op, in.Type)
		if in.IsJump() {
			fmt.Fprintf(&sb, " -> 0x%04X", uint32(in.JumpTarget))
		} else if len(in.Operands) > 0 {
			sb.WriteString(" ")
			for i, b := range in.Operands {
				if i > 0 {
					sb.WriteString(" ")
				}
				fmt.Fprintf(&sb, "%02X", b)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
