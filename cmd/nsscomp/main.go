// nsscomp CLI - batch compiler driver for NWScript sources
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/andastra/nsscomp/batch"
	"github.com/andastra/nsscomp/cache"
	"github.com/andastra/nsscomp/driver"
	"github.com/andastra/nsscomp/listing"
	"github.com/andastra/nsscomp/manifest"
	"github.com/andastra/nsscomp/roundtrip"
)

func main() {
	batchPattern := flag.String("b", "", "Compile every eligible file matching a wildcard pattern")
	dirMode := flag.String("d", "", "Compile every source file under a directory, recursively")
	roundTrip := flag.Bool("r", false, "Verify each compiled artifact decompiles and recompiles identically")
	outDir := flag.String("o", "", "Output directory for compiled artifacts (default: next to sources)")
	debug := flag.Bool("g", false, "Write debug sidecars next to artifacts")
	verbosity := flag.Int("v", 0, "Log verbosity (0 = warnings only)")
	noManifest := flag.Bool("no-manifest", false, "Skip loading nsscomp.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nsscomp [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles NWScript sources to NCS bytecode.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  nsscomp script.nss             # Compile one file\n")
		fmt.Fprintf(os.Stderr, "  nsscomp a.nss b.nss c.nss      # Compile several files\n")
		fmt.Fprintf(os.Stderr, "  nsscomp -b 'scripts/*.nss'     # Compile everything matching a pattern\n")
		fmt.Fprintf(os.Stderr, "  nsscomp -d ./scripts           # Compile a whole tree\n")
		fmt.Fprintf(os.Stderr, "  nsscomp -r a.nss -g -o build   # Round-trip verify with debug sidecars\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	// Project configuration, if any, fills in what the flags leave unset.
	var m *manifest.Manifest
	if !*noManifest {
		cwd, err := os.Getwd()
		if err == nil {
			m, err = manifest.FindAndLoad(cwd)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}

	opts := driver.Options{Debug: *debug}
	cfg := batch.Config{OutDir: *outDir, Debug: *debug}
	if m != nil {
		opts.IncludeDirs = m.IncludePaths()
		if cfg.OutDir == "" {
			cfg.OutDir = m.OutputDir()
		}
		if m.Output.Debug {
			opts.Debug = true
			cfg.Debug = true
		}
		if path := m.CachePath(); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			c, err := cache.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer c.Close()
			cfg.Cache = c
		}
	}

	drv := driver.New(listing.Core{}, opts)
	if *roundTrip {
		cfg.Verifier = roundtrip.NewVerifier(drv, listing.Core{})
	}
	orch := batch.New(drv, cfg)

	mode, targets := selectMode(*batchPattern, *dirMode, *roundTrip, flag.Args(), m)
	if len(targets) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	sum, err := orch.Run(mode, targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d compiled, %d failed", sum.Processed, sum.Failed)
	if mode == batch.RoundTrip {
		fmt.Printf(", %d mismatched", sum.Mismatched)
	}
	fmt.Println()

	if sum.Failed > 0 || sum.Mismatched > 0 {
		os.Exit(1)
	}
}

// selectMode maps flags and positional arguments to a run mode. The
// manifest supplies default targets when nothing is given explicitly.
func selectMode(pattern, dir string, roundTrip bool, args []string, m *manifest.Manifest) (batch.Mode, []string) {
	switch {
	case pattern != "":
		return batch.PatternBatch, []string{pattern}
	case dir != "":
		return batch.Directory, []string{dir}
	case roundTrip:
		return batch.RoundTrip, args
	case len(args) == 1:
		return batch.Single, args
	case len(args) > 1:
		return batch.MultiFile, args
	case m != nil:
		var patterns []string
		for _, d := range m.SourceDirPaths() {
			patterns = append(patterns, filepath.Join(d, m.Source.Pattern))
		}
		return batch.PatternBatch, patterns
	default:
		return batch.Single, nil
	}
}
