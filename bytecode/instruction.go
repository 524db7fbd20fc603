package bytecode

import "encoding/binary"

// Instruction header: opcode byte followed by a type-qualifier byte.
// The concrete opcode table belongs to the compiler core; the buffer
// treats both bytes as opaque.
const (
	headerSize      = 2
	jumpOperandSize = 4
)

// Instruction is a single emitted bytecode instruction. Jump instructions
// carry a logical target offset (relative to the start of the buffer) in
// place of raw operand bytes, so the target stays valid no matter how many
// times the underlying storage is reallocated.
type Instruction struct {
	Op   byte
	Type byte

	// Operands holds the encoded operand bytes for non-jump instructions.
	Operands []byte

	// JumpTarget is the logical buffer offset this instruction jumps to,
	// or -1 for non-jump instructions.
	JumpTarget int32

	// Offset is the logical position at which the instruction was encoded.
	// Assigned by Buffer.Append.
	Offset uint32

	// Line is the source line the instruction was generated from
	// (0 when debug recording is off).
	Line int
}

// Inst builds a non-jump instruction.
func Inst(op, typ byte, operands ...byte) Instruction {
	return Instruction{Op: op, Type: typ, Operands: operands, JumpTarget: -1}
}

// Jump builds a jump instruction targeting the given logical offset.
// Forward references may be emitted with a zero target and patched later
// via Buffer.PatchJump.
func Jump(op, typ byte, target uint32) Instruction {
	return Instruction{Op: op, Type: typ, JumpTarget: int32(target)}
}

// IsJump reports whether the instruction carries a jump target.
func (in Instruction) IsJump() bool {
	return in.JumpTarget >= 0
}

// EncodedSize returns the number of bytes the instruction occupies in the
// code region.
func (in Instruction) EncodedSize() int {
	if in.IsJump() {
		return headerSize + jumpOperandSize
	}
	return headerSize + len(in.Operands)
}

// encode writes the instruction into dst, which must hold at least
// EncodedSize() bytes.
func (in Instruction) encode(dst []byte) {
	dst[0] = in.Op
	dst[1] = in.Type
	if in.IsJump() {
		binary.BigEndian.PutUint32(dst[headerSize:], uint32(in.JumpTarget))
		return
	}
	copy(dst[headerSize:], in.Operands)
}
