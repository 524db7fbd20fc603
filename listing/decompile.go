package listing

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/andastra/nsscomp/bytecode"
)

// Decompile reconstructs an assemblable listing from a compiled program.
// Jump targets become generated labels; reassembling the output yields
// byte-identical code.
func (Core) Decompile(p *bytecode.Program) ([]byte, error) {
	instrs := p.Instructions()
	if instrs == nil {
		return nil, fmt.Errorf("listing: program has no instruction records")
	}

	// First pass: collect jump targets and check they land on instruction
	// boundaries.
	starts := make(map[uint32]bool, len(instrs))
	for _, in := range instrs {
		starts[in.Offset] = true
	}
	labels := make(map[uint32]string)
	for _, in := range instrs {
		if !in.IsJump() {
			continue
		}
		target := uint32(in.JumpTarget)
		if !starts[target] && target != endOffset(instrs) {
			return nil, fmt.Errorf("listing: jump at 0x%04X targets mid-instruction offset 0x%04X", in.Offset, target)
		}
		if _, ok := labels[target]; !ok {
			labels[target] = fmt.Sprintf("L%04X", target)
		}
	}

	var sb strings.Builder
	for _, in := range instrs {
		if name, ok := labels[in.Offset]; ok {
			fmt.Fprintf(&sb, "%s:\n", name)
		}

		name, ok := byEncoding[[2]byte{in.Op, in.Type}]
		if !ok {
			return nil, fmt.Errorf("listing: unknown instruction %02X %02X at 0x%04X", in.Op, in.Type, in.Offset)
		}

		switch mnemonics[name].kind {
		case opNone:
			fmt.Fprintf(&sb, "%s\n", name)
		case opInt:
			if len(in.Operands) != 4 {
				return nil, fmt.Errorf("listing: %s at 0x%04X has %d operand bytes", name, in.Offset, len(in.Operands))
			}
			v := int32(binary.BigEndian.Uint32(in.Operands))
			fmt.Fprintf(&sb, "%s %d\n", name, v)
		case opJump:
			fmt.Fprintf(&sb, "%s %s\n", name, labels[uint32(in.JumpTarget)])
		}
	}
	// A label at the very end of the code region.
	if name, ok := labels[endOffset(instrs)]; ok {
		fmt.Fprintf(&sb, "%s:\n", name)
	}
	return []byte(sb.String()), nil
}

func endOffset(instrs []bytecode.Instruction) uint32 {
	if len(instrs) == 0 {
		return 0
	}
	last := instrs[len(instrs)-1]
	return last.Offset + uint32(last.EncodedSize())
}
