// Package driver compiles one source unit at a time into bytecode,
// delegating parsing and code generation to an external compiler core and
// tracking include context so diagnostics name the right file.
package driver

import "github.com/andastra/nsscomp/bytecode"

// Unit is one source file handed to the core.
type Unit struct {
	Path   string
	Source []byte
}

// Emitter is the instruction sink the core writes through. It is backed by
// the unit's bytecode buffer; indices refer to append order.
type Emitter interface {
	// Emit appends one instruction.
	Emit(in bytecode.Instruction) error

	// Offset returns the logical offset the next instruction will land at.
	Offset() uint32

	// Patch rewrites the jump target of instruction i.
	Patch(i int, target uint32) error

	// Emitted returns the number of instructions appended so far.
	Emitted() int

	// Last returns the most recently appended instruction.
	Last() (bytecode.Instruction, bool)
}

// Includer lets the core hand an include directive back to the driver,
// which resolves the file, pushes an include frame, and re-enters the core
// on the included unit.
type Includer interface {
	Include(name string) error
}

// Core is the external compiler collaborator: it lexes, parses, and
// generates code for one unit, emitting through em and routing include
// directives through inc. Failures are reported as *CompileError where the
// core can attribute a location.
type Core interface {
	CompileUnit(u Unit, em Emitter, inc Includer) error
}

// MainFinalizer is implemented by cores that need a finalization pass after
// the main unit compiles (entry-point bookkeeping, trailing return). It is
// never invoked for included units.
type MainFinalizer interface {
	FinalizeMain(em Emitter) error
}

// Decompiler is the external collaborator that reconstructs source from a
// compiled program, used by round-trip verification.
type Decompiler interface {
	Decompile(p *bytecode.Program) ([]byte, error)
}
