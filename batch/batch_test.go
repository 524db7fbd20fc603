package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andastra/nsscomp/bytecode"
	"github.com/andastra/nsscomp/cache"
	"github.com/andastra/nsscomp/driver"
	"github.com/andastra/nsscomp/listing"
	"github.com/andastra/nsscomp/roundtrip"
	"github.com/andastra/nsscomp/scan"
)

func newTestDriver() *driver.Driver {
	return driver.New(listing.Core{}, driver.Options{})
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const goodSource = "CONSTI 1\nCONSTI 2\nADDII\nRETN\n"

func TestPatternBatchCompilesEligible(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.nss", goodSource)
	writeSource(t, dir, "b.nss", goodSource)
	writeSource(t, dir, "c.nss", goodSource)
	writeSource(t, dir, ".hidden.nss", goodSource)

	o := New(newTestDriver(), Config{})
	sum, err := o.Run(PatternBatch, []string{filepath.Join(dir, "*.nss")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 3 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 3 processed, 0 failed", sum)
	}

	for _, name := range []string{"a.ncs", "b.ncs", "c.ncs"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".hidden.ncs")); err == nil {
		t.Error("hidden source was compiled")
	}
}

func TestPatternBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.nss", goodSource)
	writeSource(t, dir, "bad.nss", "FROBNICATE\n")
	writeSource(t, dir, "c.nss", goodSource)

	o := New(newTestDriver(), Config{})
	sum, err := o.Run(PatternBatch, []string{filepath.Join(dir, "*.nss")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 processed, 1 failed", sum)
	}
}

func TestPatternBatchMissingPathIsFatal(t *testing.T) {
	o := New(newTestDriver(), Config{})
	sum, err := o.Run(PatternBatch, []string{filepath.Join(t.TempDir(), "nope", "*.nss")})
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
	if !errors.Is(err, scan.ErrPathNotFound) {
		t.Errorf("err = %v, want ErrPathNotFound", err)
	}
	if sum != (RunSummary{}) {
		t.Errorf("summary = %+v, want zero", sum)
	}
}

func TestDirectoryModeRecurses(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "top.nss", goodSource)
	writeSource(t, dir, "notes.txt", "not a source file")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSource(t, sub, "nested.nss", goodSource)
	hidden := filepath.Join(dir, ".git")
	if err := os.Mkdir(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	writeSource(t, hidden, "skipme.nss", goodSource)

	o := New(newTestDriver(), Config{})
	sum, err := o.Run(Directory, []string{dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 2 processed", sum)
	}
	if _, err := os.Stat(filepath.Join(sub, "nested.ncs")); err != nil {
		t.Errorf("nested artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(hidden, "skipme.ncs")); err == nil {
		t.Error("compiled inside a hidden directory")
	}
}

func TestMultiFileMode(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", goodSource)
	b := writeSource(t, dir, "b.nss", goodSource)

	o := New(newTestDriver(), Config{})
	sum, err := o.Run(MultiFile, []string{a, b, filepath.Join(dir, "ghost.nss")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want 2 processed, 1 failed", sum)
	}
}

func TestSingleModeOutDir(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	a := writeSource(t, dir, "a.nss", goodSource)

	o := New(newTestDriver(), Config{OutDir: out})
	sum, err := o.Run(Single, []string{a})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 1 {
		t.Errorf("summary = %+v, want 1 processed", sum)
	}
	raw, err := os.ReadFile(filepath.Join(out, "a.ncs"))
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if _, err := bytecode.LoadProgram(raw); err != nil {
		t.Errorf("artifact does not load: %v", err)
	}
}

func TestRunWithoutTargets(t *testing.T) {
	o := New(newTestDriver(), Config{})
	if _, err := o.Run(Single, nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v, want ErrNoTarget", err)
	}
}

func TestDebugSidecarWritten(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", goodSource)

	o := New(newTestDriver(), Config{Debug: true})
	if _, err := o.Run(Single, []string{a}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "a.ndb"))
	if err != nil {
		t.Fatalf("sidecar: %v", err)
	}
	di, err := bytecode.UnmarshalDebugInfo(raw)
	if err != nil {
		t.Fatalf("sidecar decode: %v", err)
	}
	if di.Source != a {
		t.Errorf("sidecar source = %q, want %q", di.Source, a)
	}
}

func TestRoundTripCountsMismatches(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", goodSource)
	b := writeSource(t, dir, "b.nss", goodSource)

	drv := newTestDriver()
	// Faithful verifier: both files round-trip cleanly.
	o := New(drv, Config{Verifier: roundtrip.NewVerifier(drv, listing.Core{})})
	sum, err := o.Run(RoundTrip, []string{a, b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Processed != 2 || sum.Mismatched != 0 {
		t.Errorf("summary = %+v, want 2 processed", sum)
	}

	// A decompiler that loses instructions turns every unit into a
	// mismatch, which is counted apart from compile failures.
	o = New(drv, Config{Verifier: roundtrip.NewVerifier(drv, lossyDecompiler{})})
	sum, err = o.Run(RoundTrip, []string{a, b})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Mismatched != 2 || sum.Failed != 0 || sum.Processed != 0 {
		t.Errorf("summary = %+v, want 2 mismatched", sum)
	}
}

type lossyDecompiler struct{}

func (lossyDecompiler) Decompile(p *bytecode.Program) ([]byte, error) {
	return []byte("RETN\n"), nil
}

func TestCacheHitSkipsCompilation(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.nss", goodSource)

	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	counting := &countingCore{}
	drv := driver.New(counting, driver.Options{})
	o := New(drv, Config{Cache: c})

	if _, err := o.Run(Single, []string{a}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Run(Single, []string{a}); err != nil {
		t.Fatal(err)
	}
	if counting.calls != 1 {
		t.Errorf("core invoked %d times, want 1 (second run served from cache)", counting.calls)
	}
}

type countingCore struct {
	calls int
	listing.Core
}

func (c *countingCore) CompileUnit(u driver.Unit, em driver.Emitter, inc driver.Includer) error {
	c.calls++
	return c.Core.CompileUnit(u, em, inc)
}
