// Package roundtrip proves compilation fidelity: decompile a compiled
// program, recompile the result, and require byte-exact agreement.
package roundtrip

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/andastra/nsscomp/bytecode"
	"github.com/andastra/nsscomp/driver"
)

var log = commonlog.GetLogger("nsscomp.roundtrip")

// FidelityError reports a round-trip disagreement. When the recompile step
// itself failed, Err carries the cause and Recompiled is nil; otherwise
// both artifacts are attached for comparison.
type FidelityError struct {
	Path       string
	Original   *bytecode.Program
	Recompiled *bytecode.Program
	Err        error
}

func (e *FidelityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: round trip failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: recompiled bytecode differs (%d bytes vs %d bytes)",
		e.Path, e.Original.Len(), e.Recompiled.Len())
}

func (e *FidelityError) Unwrap() error {
	return e.Err
}

// Verifier runs the decompile-recompile-compare cycle.
type Verifier struct {
	drv *driver.Driver
	dec driver.Decompiler
}

// NewVerifier creates a verifier that recompiles through drv using the
// given decompiler collaborator.
func NewVerifier(drv *driver.Driver, dec driver.Decompiler) *Verifier {
	return &Verifier{drv: drv, dec: dec}
}

// Verify decompiles p, recompiles the regenerated source, and compares the
// artifacts byte for byte. Every disagreement — including a compiler error
// during the recompile — is reported as a *FidelityError; path labels the
// unit in diagnostics only.
func (v *Verifier) Verify(path string, p *bytecode.Program) error {
	src, err := v.dec.Decompile(p)
	if err != nil {
		return &FidelityError{Path: path, Original: p, Err: err}
	}

	re, err := v.drv.Compile(path, src)
	if err != nil {
		return &FidelityError{Path: path, Original: p, Err: err}
	}

	if !p.Equal(re) {
		log.Warningf("fidelity mismatch for %s: %d bytes vs %d bytes", path, p.Len(), re.Len())
		return &FidelityError{Path: path, Original: p, Recompiled: re}
	}
	return nil
}
