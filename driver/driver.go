package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/andastra/nsscomp/bytecode"
)

var log = commonlog.GetLogger("nsscomp.driver")

// Options configures a Driver.
type Options struct {
	// BufferCapacity is the initial bytecode buffer size per unit.
	// 0 selects bytecode.DefaultCapacity.
	BufferCapacity int

	// IncludeDirs are searched, in order, after the including unit's own
	// directory.
	IncludeDirs []string

	// Debug records per-instruction source lines for sidecar output.
	Debug bool

	// MaxIncludeDepth caps include nesting. 0 selects the default.
	MaxIncludeDepth int
}

// Driver compiles one source unit into one finalized program. The driver
// itself is reusable across units; each compilation owns a fresh buffer and
// include stack exclusively for its duration.
type Driver struct {
	core Core
	opts Options
}

// New creates a driver around the given compiler core.
func New(core Core, opts Options) *Driver {
	return &Driver{core: core, opts: opts}
}

// CompileFile reads and compiles the unit at path.
func (d *Driver) CompileFile(path string) (*bytecode.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Path: path, Msg: "cannot read source", Err: err}
	}
	return d.Compile(path, src)
}

// Compile compiles already-loaded source attributed to path. On success the
// finalized program is moved to the caller; on failure the unit's buffer is
// discarded and a *CompileError describes the cause.
func (d *Driver) Compile(path string, src []byte) (*bytecode.Program, error) {
	u := &unitState{
		d:     d,
		stack: NewIncludeStack(d.opts.MaxIncludeDepth),
		buf:   bytecode.NewBuffer(d.opts.BufferCapacity),
	}

	if err := u.stack.Enter(path); err != nil {
		return nil, &CompileError{Path: path, Err: err}
	}

	if err := d.core.CompileUnit(Unit{Path: path, Source: src}, u, u); err != nil {
		log.Debugf("compile failed for %s: %v", path, err)
		return nil, u.fail(path, err)
	}

	// Main-unit finalization runs only at the top level; includes return
	// to their including unit instead.
	if u.stack.IsTopLevel() {
		if f, ok := d.core.(MainFinalizer); ok {
			if err := f.FinalizeMain(u); err != nil {
				return nil, u.fail(path, err)
			}
		}
		u.buf.SetEntry(0)
	}

	prog := u.buf.Finalize()
	if err := u.stack.Exit(); err != nil {
		return nil, &CompileError{Path: path, Msg: "internal error", Err: err}
	}
	log.Debugf("compiled %s: %d bytes, %d instructions", path, prog.Len(), len(prog.Instructions()))
	return prog, nil
}

// unitState is the per-compilation context: the exclusive buffer, the
// include stack, and the plumbing the core sees as Emitter and Includer.
type unitState struct {
	d         *Driver
	stack     *IncludeStack
	buf       *bytecode.Buffer
	lastInstr bytecode.Instruction
}

// fail discards the unit and shapes err into a *CompileError.
func (u *unitState) fail(path string, err error) error {
	u.buf.Finalize() // freeze and drop; the artifact is never returned
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Path: path, Err: err}
}

func (u *unitState) Emit(in bytecode.Instruction) error {
	if !u.d.opts.Debug {
		in.Line = 0
	}
	if err := u.buf.Append(in); err != nil {
		return err
	}
	u.lastInstr = in
	return nil
}

func (u *unitState) Offset() uint32 {
	return uint32(u.buf.Len())
}

func (u *unitState) Patch(i int, target uint32) error {
	return u.buf.PatchJump(i, target)
}

func (u *unitState) Emitted() int {
	return u.buf.Count()
}

func (u *unitState) Last() (bytecode.Instruction, bool) {
	if u.buf.Count() == 0 {
		return bytecode.Instruction{}, false
	}
	return u.lastInstr, true
}

// Include resolves name, pushes an include frame, and re-enters the core on
// the included unit. The included unit writes into the same buffer.
func (u *unitState) Include(name string) error {
	cur, _ := u.stack.Current()
	path, err := u.resolve(name, cur.Path)
	if err != nil {
		return &CompileError{Path: cur.Path, Msg: fmt.Sprintf("cannot resolve include %q", name), Err: err}
	}

	if err := u.stack.Enter(path); err != nil {
		return &CompileError{Path: cur.Path, Msg: fmt.Sprintf("including %q", name), Err: err}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		u.stack.Exit()
		return &CompileError{Path: path, Msg: "cannot read include", Err: err}
	}

	cerr := u.d.core.CompileUnit(Unit{Path: path, Source: src}, u, u)
	if err := u.stack.Exit(); err != nil {
		return &CompileError{Path: path, Msg: "internal error", Err: err}
	}
	return cerr
}

// resolve searches the including unit's directory, then the configured
// include directories.
func (u *unitState) resolve(name, fromPath string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	dirs := append([]string{filepath.Dir(fromPath)}, u.d.opts.IncludeDirs...)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
