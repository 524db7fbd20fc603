// Package bytecode manages the growable output region that compiled
// instructions are emitted into, and the immutable Program artifact that a
// finished buffer freezes into.
package bytecode

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the initial code-region size. 36 KB holds a typical
// script without reallocating.
const DefaultCapacity = 36 * 1024

// DefaultMaxCapacity bounds buffer growth. A single script's bytecode has
// no business approaching this.
const DefaultMaxCapacity = 1 << 26

var (
	// ErrOutOfMemory is returned when growth would exceed the buffer's
	// capacity limit. The buffer is left in its last valid state.
	ErrOutOfMemory = errors.New("bytecode: buffer growth exceeds capacity limit")

	// ErrFinalized is returned by mutating operations on a finalized buffer.
	ErrFinalized = errors.New("bytecode: buffer already finalized")
)

// Buffer accumulates emitted instructions into a contiguous code region.
// The region grows geometrically as instructions are appended; because jump
// targets are stored as logical offsets from the start of the region,
// growth never invalidates them.
//
// A Buffer is owned by exactly one compilation at a time and is not safe
// for concurrent use.
type Buffer struct {
	data      []byte
	writePos  int
	instrs    []Instruction
	entry     uint32
	maxCap    int
	finalized bool
}

// NewBuffer creates a buffer with the given initial capacity.
// A capacity of 0 or less selects DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		data:   make([]byte, capacity),
		maxCap: DefaultMaxCapacity,
	}
}

// SetMaxCapacity overrides the growth limit. Shrinking the limit below the
// current capacity has no effect on already-allocated storage.
func (b *Buffer) SetMaxCapacity(n int) {
	b.maxCap = n
}

// Len returns the number of code bytes written so far.
func (b *Buffer) Len() int {
	return b.writePos
}

// Cap returns the current allocated capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Count returns the number of instructions appended so far.
func (b *Buffer) Count() int {
	return len(b.instrs)
}

// NeedsExpansion reports whether appending n more bytes would exceed the
// current capacity.
func (b *Buffer) NeedsExpansion(n int) bool {
	return b.writePos+n > len(b.data)
}

// Append encodes one instruction at the current write position, growing the
// region first if it would not fit. On growth failure the buffer is
// unchanged and the instruction is not recorded.
func (b *Buffer) Append(in Instruction) error {
	if b.finalized {
		return ErrFinalized
	}
	size := in.EncodedSize()
	if b.NeedsExpansion(size) {
		if err := b.expand(size); err != nil {
			return err
		}
	}
	in.Offset = uint32(b.writePos)
	in.encode(b.data[b.writePos:])
	b.writePos += size
	b.instrs = append(b.instrs, in)
	return nil
}

// expand doubles the capacity until need more bytes fit, then moves the
// written prefix into the new region. Jump targets are logical offsets, so
// the move requires no relocation.
func (b *Buffer) expand(need int) error {
	newCap := len(b.data)
	if newCap == 0 {
		newCap = DefaultCapacity
	}
	for b.writePos+need > newCap {
		newCap *= 2
	}
	if newCap > b.maxCap {
		return ErrOutOfMemory
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.writePos])
	b.data = grown
	return nil
}

// PatchJump rewrites the target of a previously appended jump instruction.
// The index is the instruction's position in append order.
func (b *Buffer) PatchJump(i int, target uint32) error {
	if b.finalized {
		return ErrFinalized
	}
	if i < 0 || i >= len(b.instrs) {
		return fmt.Errorf("bytecode: patch index %d out of range (%d instructions)", i, len(b.instrs))
	}
	in := &b.instrs[i]
	if !in.IsJump() {
		return fmt.Errorf("bytecode: instruction %d (op 0x%02X) is not a jump", i, in.Op)
	}
	in.JumpTarget = int32(target)
	in.encode(b.data[in.Offset:])
	return nil
}

// SetEntry records the program entry point offset. Applied to the artifact
// at finalization.
func (b *Buffer) SetEntry(offset uint32) {
	b.entry = offset
}

// Finalize freezes the buffer into an immutable Program, truncating unused
// capacity. The buffer rejects further mutation afterwards.
func (b *Buffer) Finalize() *Program {
	b.finalized = true
	code := make([]byte, b.writePos)
	copy(code, b.data[:b.writePos])
	instrs := make([]Instruction, len(b.instrs))
	copy(instrs, b.instrs)
	b.data = nil
	return &Program{data: code, instrs: instrs, entry: b.entry}
}
