// Package listing is the reference compiler core: a line-oriented assembler
// for a textual instruction listing, plus the matching decompiler. It
// stands in for a full language frontend wherever the driver needs a real
// collaborator — the batch CLI and round-trip verification both link it.
//
// Listing syntax, one instruction per line:
//
//	; comment
//	#include "other.nsa"
//	loop:              ; label definition
//	CONSTI 3           ; mnemonic with integer operand
//	JNZ loop           ; jump to label or absolute offset
//	RETN
package listing

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/andastra/nsscomp/bytecode"
	"github.com/andastra/nsscomp/driver"
)

// Core assembles listings through the driver's emitter. The zero value is
// ready to use.
type Core struct{}

// fixup is a forward label reference awaiting its target.
type fixup struct {
	index int    // instruction index in append order
	label string
	line  int
}

// CompileUnit assembles one listing. Labels are scoped to the unit;
// includes assemble into the same buffer through inc.
func (Core) CompileUnit(u driver.Unit, em driver.Emitter, inc driver.Includer) error {
	labels := make(map[string]uint32)
	var fixups []fixup

	for n, raw := range strings.Split(string(u.Source), "\n") {
		line := n + 1
		text := raw
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "#include") {
			name, err := parseIncludeName(text)
			if err != nil {
				return &driver.CompileError{Path: u.Path, Line: line, Msg: err.Error()}
			}
			if err := inc.Include(name); err != nil {
				return err
			}
			continue
		}

		if name, ok := strings.CutSuffix(text, ":"); ok && !strings.ContainsAny(name, " \t") {
			if _, dup := labels[name]; dup {
				return &driver.CompileError{Path: u.Path, Line: line, Msg: fmt.Sprintf("duplicate label %q", name)}
			}
			labels[name] = em.Offset()
			continue
		}

		if err := assembleLine(text, line, u.Path, em, labels, &fixups); err != nil {
			return err
		}
	}

	// Resolve forward references.
	for _, f := range fixups {
		target, ok := labels[f.label]
		if !ok {
			return &driver.CompileError{Path: u.Path, Line: f.line, Msg: fmt.Sprintf("undefined label %q", f.label)}
		}
		if err := em.Patch(f.index, target); err != nil {
			return &driver.CompileError{Path: u.Path, Line: f.line, Msg: "patching jump", Err: err}
		}
	}
	return nil
}

// FinalizeMain appends a trailing RETN when the main unit does not end with
// one, so every program has a terminating instruction.
func (Core) FinalizeMain(em driver.Emitter) error {
	retn := mnemonics["RETN"]
	if last, ok := em.Last(); ok && last.Op == retn.op && last.Type == retn.typ {
		return nil
	}
	return em.Emit(bytecode.Inst(retn.op, retn.typ))
}

func assembleLine(text string, line int, path string, em driver.Emitter, labels map[string]uint32, fixups *[]fixup) error {
	fields := strings.Fields(text)
	name := strings.ToUpper(fields[0])
	info, ok := mnemonics[name]
	if !ok {
		return &driver.CompileError{Path: path, Line: line, Msg: fmt.Sprintf("unknown mnemonic %q", fields[0])}
	}

	switch info.kind {
	case opNone:
		if len(fields) != 1 {
			return &driver.CompileError{Path: path, Line: line, Msg: fmt.Sprintf("%s takes no operand", name)}
		}
		in := bytecode.Inst(info.op, info.typ)
		in.Line = line
		return em.Emit(in)

	case opInt:
		if len(fields) != 2 {
			return &driver.CompileError{Path: path, Line: line, Msg: fmt.Sprintf("%s takes one integer operand", name)}
		}
		v, err := strconv.ParseInt(fields[1], 0, 32)
		if err != nil {
			return &driver.CompileError{Path: path, Line: line, Msg: fmt.Sprintf("bad operand %q", fields[1]), Err: err}
		}
		var operand [4]byte
		binary.BigEndian.PutUint32(operand[:], uint32(int32(v)))
		in := bytecode.Inst(info.op, info.typ, operand[:]...)
		in.Line = line
		return em.Emit(in)

	case opJump:
		if len(fields) != 2 {
			return &driver.CompileError{Path: path, Line: line, Msg: fmt.Sprintf("%s takes a target", name)}
		}
		arg := fields[1]

		if v, err := strconv.ParseUint(arg, 0, 32); err == nil {
			in := bytecode.Jump(info.op, info.typ, uint32(v))
			in.Line = line
			return em.Emit(in)
		}
		if target, ok := labels[arg]; ok {
			in := bytecode.Jump(info.op, info.typ, target)
			in.Line = line
			return em.Emit(in)
		}
		// Forward reference: emit with a placeholder and patch at end of
		// unit.
		*fixups = append(*fixups, fixup{index: em.Emitted(), label: arg, line: line})
		in := bytecode.Jump(info.op, info.typ, 0)
		in.Line = line
		return em.Emit(in)
	}
	return nil
}

func parseIncludeName(text string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(text, "#include"))
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", fmt.Errorf("malformed include directive %q", text)
	}
	name := rest[1 : len(rest)-1]
	if name == "" {
		return "", fmt.Errorf("empty include name")
	}
	return name, nil
}
