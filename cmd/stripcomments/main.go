// Command stripcomments removes C-style comments from files in place. Each
// file is processed in the arena's transient pool, which is reset between
// files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pavanmanishd/memarena"
	"github.com/pavanmanishd/memarena/internal/fileio"
	"github.com/pavanmanishd/memarena/internal/strip"
)

const (
	exitOK         = 0
	exitFileErrors = 1
	exitNoInput    = -1
	exitInitFailed = -2
)

type options struct {
	permanent int
	transient int
	mmap      bool
	expand    bool
	stats     bool
}

// runState lives in the permanent pool for the whole run.
type runState struct {
	files    uint64
	failed   uint64
	bytesIn  uint64
	bytesOut uint64
}

func main() {
	defaults := memarena.DefaultConfig()
	var (
		permanent = flag.Int("permanent", defaults.PermanentSize, "Permanent pool size in bytes")
		transient = flag.Int("transient", defaults.TransientSize, "Transient pool size in bytes")
		useMmap   = flag.Bool("mmap", false, "Back pools with OS pages instead of the Go heap")
		expand    = flag.Bool("expand-includes", false, `Splice #include "file" directives before stripping`)
		stats     = flag.Bool("stats", false, "Print pool statistics when done")
		debug     = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitInitFailed)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: stripcomments [-permanent n] [-transient n] [-mmap] [-expand-includes] [-stats] <file>...")
		log.Error("no input files")
		_ = log.Sync()
		os.Exit(exitNoInput)
	}

	opts := options{
		permanent: *permanent,
		transient: *transient,
		mmap:      *useMmap,
		expand:    *expand,
		stats:     *stats,
	}
	code := run(opts, flag.Args(), log)
	_ = log.Sync()
	os.Exit(code)
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}

func run(opts options, files []string, log *zap.Logger) int {
	cfg := memarena.DefaultConfig()
	cfg.PermanentSize = opts.permanent
	cfg.TransientSize = opts.transient
	cfg.Logger = log
	if opts.mmap {
		cfg.Source = memarena.NewOSSource()
	}

	m, err := memarena.NewMemoryArena(cfg)
	if err != nil {
		log.Error("memory arena init failed", zap.Error(err))
		return exitInitFailed
	}
	defer func() {
		if err := m.Teardown(); err != nil {
			log.Warn("memory arena teardown failed", zap.Error(err))
		}
	}()

	stateRef, _, err := memarena.New[runState](m.Permanent())
	if err != nil {
		log.Error("run state allocation failed", zap.Error(err))
		return exitInitFailed
	}

	tmp := m.Transient()
	for _, path := range files {
		in, out, err := stripFile(path, opts.expand, tmp, log)

		// The permanent pool may have grown since the last lookup.
		st, serr := memarena.Value[runState](m.Permanent(), stateRef)
		if serr != nil {
			log.Error("run state lost", zap.Error(serr))
			return exitInitFailed
		}
		st.files++
		switch {
		case errors.Is(err, fileio.ErrEmptyFile):
			log.Info("empty file skipped", zap.String("path", path))
		case err != nil:
			st.failed++
			log.Warn("file skipped", zap.String("path", path), zap.Error(err))
		default:
			st.bytesIn += uint64(in)
			st.bytesOut += uint64(out)
			log.Info("comments stripped",
				zap.String("path", path),
				zap.Int("bytes_in", in),
				zap.Int("bytes_out", out))
		}
		tmp.Reset()
	}

	st, err := memarena.Value[runState](m.Permanent(), stateRef)
	if err != nil {
		log.Error("run state lost", zap.Error(err))
		return exitInitFailed
	}
	if opts.stats {
		fmt.Println(renderStats(m.Metrics(), *st))
	}
	if st.failed > 0 {
		return exitFileErrors
	}
	return exitOK
}

// stripFile rewrites path without comments and returns the sizes before and
// after. All memory comes from tmp; the caller resets it.
func stripFile(path string, expand bool, tmp *memarena.Allocator, log *zap.Logger) (int, int, error) {
	abs, err := fileio.AbsPath(path, tmp)
	if err != nil {
		return 0, 0, err
	}
	absBytes, err := tmp.Bytes(abs)
	if err != nil {
		return 0, 0, err
	}
	resolved := string(absBytes)

	raw, size, err := fileio.ReadFile(resolved, true, tmp)
	if err != nil {
		return 0, 0, err
	}
	code := raw
	if expand {
		code, size, err = fileio.ExpandIncludes(filepath.Dir(resolved), code, size, tmp, log)
		if err != nil {
			return 0, 0, errors.Wrap(err, "expand includes")
		}
	}

	outRef, err := memarena.Allocate[byte](tmp, size, false)
	if err != nil {
		return 0, 0, errors.Wrap(err, "output buffer")
	}
	// Views are taken after the last allocation.
	src, err := tmp.Bytes(code)
	if err != nil {
		return 0, 0, err
	}
	dst, err := tmp.Bytes(outRef)
	if err != nil {
		return 0, 0, err
	}
	n := strip.Comments(dst, src[:size])
	if err := fileio.WriteFile(resolved, dst[:n]); err != nil {
		return 0, 0, err
	}
	tmp.Free(outRef)
	// Frees the expansion too, which is attached to the raw buffer.
	tmp.Free(raw)
	return size, n, nil
}
