// Package batch drives whole compilation runs: it discovers source units
// in one of five modes, compiles each through the unit driver, and
// aggregates a run summary with per-unit fault isolation.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/andastra/nsscomp/bytecode"
	"github.com/andastra/nsscomp/cache"
	"github.com/andastra/nsscomp/driver"
	"github.com/andastra/nsscomp/roundtrip"
	"github.com/andastra/nsscomp/scan"
)

var log = commonlog.GetLogger("nsscomp.batch")

// Mode selects how a run discovers its units. Fixed at startup for the
// whole run.
type Mode int

const (
	// Single compiles exactly one named file.
	Single Mode = iota

	// PatternBatch compiles every eligible file matching a wildcard
	// pattern.
	PatternBatch

	// Directory compiles every eligible source file in a tree,
	// recursively.
	Directory

	// RoundTrip compiles listed files and verifies each artifact
	// decompiles and recompiles to identical bytecode.
	RoundTrip

	// MultiFile compiles an explicit list of files.
	MultiFile
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case PatternBatch:
		return "batch"
	case Directory:
		return "directory"
	case RoundTrip:
		return "roundtrip"
	case MultiFile:
		return "multi"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// RunSummary aggregates one run. Mismatched counts round-trip fidelity
// failures, which are distinct from compile failures.
type RunSummary struct {
	Processed  int
	Failed     int
	Mismatched int
}

// ErrNoTarget is returned when Run is invoked without the targets its mode
// requires.
var ErrNoTarget = errors.New("batch: no target given")

// Config wires the orchestrator's collaborators. Provider defaults to the
// OS filesystem; Verifier is required only for RoundTrip mode; Cache and
// OutDir are optional.
type Config struct {
	Provider scan.Provider
	Verifier *roundtrip.Verifier
	Cache    *cache.Cache

	// OutDir receives compiled artifacts; empty writes next to sources.
	OutDir string

	// SourceExt filters Directory-mode discovery. Defaults to ".nss".
	SourceExt string

	// Debug writes a CBOR sidecar next to each artifact.
	Debug bool
}

// Orchestrator runs batches. Processing is sequential: each unit compiles
// to completion before the next begins.
type Orchestrator struct {
	drv *driver.Driver
	cfg Config
}

// New creates an orchestrator around the given unit driver.
func New(drv *driver.Driver, cfg Config) *Orchestrator {
	if cfg.Provider == nil {
		cfg.Provider = scan.OSProvider{}
	}
	if cfg.SourceExt == "" {
		cfg.SourceExt = ".nss"
	}
	return &Orchestrator{drv: drv, cfg: cfg}
}

// Run executes one batch in the given mode. Per-unit failures are recorded
// in the summary and never abort the run; the returned error is non-nil
// only for catastrophic conditions — a missing target, or an enumeration
// that cannot even be opened.
func (o *Orchestrator) Run(mode Mode, targets []string) (RunSummary, error) {
	var sum RunSummary
	if len(targets) == 0 {
		return sum, ErrNoTarget
	}

	log.Infof("starting %s run over %d target(s)", mode, len(targets))

	switch mode {
	case Single:
		o.compileOne(targets[0], false, &sum)
		return sum, nil

	case PatternBatch:
		for _, pattern := range targets {
			if err := o.runPattern(pattern, &sum); err != nil {
				return sum, err
			}
		}
		return sum, nil

	case Directory:
		for _, dir := range targets {
			if err := o.runDirectory(dir, true, &sum); err != nil {
				return sum, err
			}
		}
		return sum, nil

	case MultiFile:
		for _, path := range targets {
			o.compileOne(path, false, &sum)
		}
		return sum, nil

	case RoundTrip:
		if o.cfg.Verifier == nil {
			return sum, errors.New("batch: roundtrip mode needs a verifier")
		}
		for _, path := range targets {
			o.compileOne(path, true, &sum)
		}
		return sum, nil

	default:
		return sum, fmt.Errorf("batch: unknown mode %d", int(mode))
	}
}

// runPattern enumerates one wildcard pattern. Failing to open the
// enumeration is fatal; an advance failure ends this target but preserves
// the summary so far.
func (o *Orchestrator) runPattern(pattern string, sum *RunSummary) error {
	e, err := scan.OpenWith(o.cfg.Provider, pattern)
	if err != nil {
		return fmt.Errorf("batch: opening enumeration %q: %w", pattern, err)
	}
	defer e.Close()

	root := filepath.Dir(pattern)
	for {
		rec, err := e.Next()
		if errors.Is(err, scan.ErrNoMoreEntries) {
			return nil
		}
		if err != nil {
			log.Errorf("enumeration of %q aborted: %v", pattern, err)
			return nil
		}
		if !rec.Eligible() {
			continue
		}
		o.compileOne(filepath.Join(root, rec.Name), false, sum)
	}
}

// runDirectory compiles every matching source file under dir, recursing
// into non-hidden subdirectories. Only the root open failure is fatal.
func (o *Orchestrator) runDirectory(dir string, isRoot bool, sum *RunSummary) error {
	e, err := scan.OpenWith(o.cfg.Provider, filepath.Join(dir, "*"))
	if err != nil {
		if isRoot {
			return fmt.Errorf("batch: opening directory %q: %w", dir, err)
		}
		log.Warningf("skipping unreadable directory %q: %v", dir, err)
		return nil
	}
	defer e.Close()

	for {
		rec, err := e.Next()
		if errors.Is(err, scan.ErrNoMoreEntries) {
			return nil
		}
		if err != nil {
			log.Errorf("enumeration of %q aborted: %v", dir, err)
			return nil
		}

		full := filepath.Join(dir, rec.Name)
		if rec.IsDir() {
			if rec.Attributes&(scan.AttrHidden|scan.AttrSystem) == 0 {
				if err := o.runDirectory(full, false, sum); err != nil {
					return err
				}
			}
			continue
		}
		if !rec.Eligible() || !strings.EqualFold(filepath.Ext(rec.Name), o.cfg.SourceExt) {
			continue
		}
		o.compileOne(full, false, sum)
	}
}

// compileOne compiles a single unit and folds the outcome into the
// summary. Nothing here aborts the batch: every failure path records and
// returns.
func (o *Orchestrator) compileOne(path string, verify bool, sum *RunSummary) {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("%s: cannot read source: %v", path, err)
		sum.Failed++
		return
	}

	// Unchanged sources are served from the cache; round-trip runs always
	// recompile so there is a fresh artifact to verify.
	hash := cache.HashSource(src)
	if o.cfg.Cache != nil && !verify {
		if ncs, ok, err := o.cfg.Cache.Lookup(hash); err == nil && ok {
			if err := o.writeRaw(path, ncs); err != nil {
				log.Errorf("%s: writing cached artifact: %v", path, err)
				sum.Failed++
				return
			}
			log.Debugf("%s: cache hit", path)
			sum.Processed++
			return
		}
	}

	prog, err := o.drv.Compile(path, src)
	if err != nil {
		log.Errorf("%s: %v", path, err)
		sum.Failed++
		return
	}

	if verify {
		if err := o.cfg.Verifier.Verify(path, prog); err != nil {
			var fe *roundtrip.FidelityError
			if errors.As(err, &fe) {
				log.Errorf("%v", fe)
				sum.Mismatched++
				return
			}
			log.Errorf("%s: %v", path, err)
			sum.Failed++
			return
		}
	}

	if err := o.writeArtifact(path, src, prog); err != nil {
		log.Errorf("%s: %v", path, err)
		sum.Failed++
		return
	}

	if o.cfg.Cache != nil {
		if err := o.cfg.Cache.Store(hash, path, prog.Serialize()); err != nil {
			// Cache failures degrade incremental builds but the artifact
			// is already on disk.
			log.Warningf("%s: %v", path, err)
		}
	}

	log.Infof("compiled %s (%d bytes)", path, prog.Len())
	sum.Processed++
}

// artifactPath maps a source path to its output artifact path.
func (o *Orchestrator) artifactPath(srcPath string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath)) + ".ncs"
	dir := o.cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(srcPath)
	}
	return filepath.Join(dir, base)
}

func (o *Orchestrator) writeRaw(srcPath string, ncs []byte) error {
	return os.WriteFile(o.artifactPath(srcPath), ncs, 0o644)
}

func (o *Orchestrator) writeArtifact(srcPath string, src []byte, prog *bytecode.Program) error {
	out := o.artifactPath(srcPath)
	if err := os.WriteFile(out, prog.Serialize(), 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if o.cfg.Debug {
		enc, err := bytecode.MarshalDebugInfo(prog.DebugInfo(srcPath, src))
		if err != nil {
			return fmt.Errorf("encoding debug sidecar: %w", err)
		}
		sidecar := strings.TrimSuffix(out, ".ncs") + ".ndb"
		if err := os.WriteFile(sidecar, enc, 0o644); err != nil {
			return fmt.Errorf("writing debug sidecar: %w", err)
		}
	}
	return nil
}
