// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package loader locates a managed module's shared library and binds its
// entry points, at most once per Loader.
package loader

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/pkg/errutil"
)

// Config describes the managed module to load.
type Config struct {
	// Library is a file name (searched for) or a path (used as is).
	Library string `koanf:"library" validate:"required"`
	// Variant selects the required entry points.
	Variant Variant `koanf:"-"`
	// Symbols overrides export names. Empty names use the defaults.
	Symbols Symbols `koanf:"symbols"`
	// SearchDirs are tried after the executable directory and the working
	// directory, before the bare name.
	SearchDirs []string `koanf:"search_dirs"`
}

// Module is a loaded managed library with every entry point of its variant
// bound.
type Module struct {
	path    string
	variant Variant
	lib     Library
	entries EntryPoints
}

// Path returns the path the library was opened from.
func (m *Module) Path() string {
	return m.path
}

// Variant returns the module variant.
func (m *Module) Variant() Variant {
	return m.variant
}

// Entries returns the bound entry points.
func (m *Module) Entries() EntryPoints {
	return m.entries
}

// Pump delivers events the library queued while the host held its locks.
// Libraries that call back directly report 0.
func (m *Module) Pump() int {
	if p, ok := m.lib.(Pumper); ok {
		return p.Pump()
	}
	return 0
}

// Loader owns at most one Module.
//
// Initialize and Cleanup are expected to be serialized by the host's
// activation protocol. The loader also serializes them internally.
type Loader struct {
	cfg        Config
	opener     Opener
	logger     *slog.Logger
	metrics    *Metrics
	executable func() (string, error)
	getwd      func() (string, error)

	mu     sync.Mutex
	module *Module
}

// Option configures a Loader.
type Option func(*Loader)

// WithOpener sets the library opener. The default is DynamicOpener.
func WithOpener(o Opener) Option {
	return func(l *Loader) {
		l.opener = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics enables load metrics.
func WithMetrics(m *Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithSearchRoots overrides how the executable path and working directory
// are found.
func WithSearchRoots(executable, getwd func() (string, error)) Option {
	return func(l *Loader) {
		l.executable = executable
		l.getwd = getwd
	}
}

// New creates a loader for cfg. Nothing is loaded until Initialize.
func New(cfg Config, opts ...Option) *Loader {
	cfg.Symbols = cfg.Symbols.withDefaults()
	l := &Loader{
		cfg:        cfg,
		opener:     DynamicOpener{},
		logger:     slog.Default(),
		executable: os.Executable,
		getwd:      os.Getwd,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the effective configuration.
func (l *Loader) Config() Config {
	return l.cfg
}

// Module returns the loaded module, or nil.
func (l *Loader) Module() *Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.module
}

// SearchPaths returns the candidate paths in the order Initialize tries
// them. A Library containing a directory separator is the only candidate.
func (l *Loader) SearchPaths() []string {
	name := l.cfg.Library
	if filepath.Base(name) != name {
		return []string{name}
	}

	var paths []string
	if exe, err := l.executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), name))
	} else {
		l.logger.Debug("executable path unavailable", "error", err)
	}
	if wd, err := l.getwd(); err == nil {
		paths = append(paths, filepath.Join(wd, name))
	} else {
		l.logger.Debug("working directory unavailable", "error", err)
	}
	for _, dir := range l.cfg.SearchDirs {
		paths = append(paths, filepath.Join(dir, name))
	}
	// Bare name: the dynamic linker's own search path.
	return append(paths, name)
}

// Initialize loads the library and binds its entry points. It returns the
// existing module without reloading when already initialized.
//
// The first path that opens wins. If a required symbol is missing the
// library is closed and no module exists.
func (l *Loader) Initialize() (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.module != nil {
		return l.module, nil
	}

	errb := oops.Code(errutil.CodeLoadFailure).
		In("loader").
		With("library", l.cfg.Library).
		With("variant", l.cfg.Variant.String())

	if l.cfg.Library == "" {
		l.metrics.recordLoad(l.cfg.Variant, "not_found")
		return nil, errb.Wrapf(errutil.ErrLibraryNotFound, "no library configured")
	}

	paths := l.SearchPaths()
	var (
		lib     Library
		path    string
		openErr error
	)
	for _, candidate := range paths {
		opened, err := l.opener.Open(candidate)
		if err != nil {
			l.logger.Debug("library candidate failed", "path", candidate, "error", err)
			openErr = errors.Join(openErr, err)
			continue
		}
		lib, path = opened, candidate
		break
	}
	if lib == nil {
		l.metrics.recordLoad(l.cfg.Variant, "not_found")
		return nil, errb.With("tried", paths).With("cause", openErr).
			Wrapf(errutil.ErrLibraryNotFound, "could not open %s", l.cfg.Library)
	}

	var entries EntryPoints
	for _, b := range l.cfg.Symbols.bindings(l.cfg.Variant, &entries) {
		if err := lib.Bind(b.symbol, b.fptr); err != nil {
			if closeErr := lib.Close(); closeErr != nil {
				l.logger.Warn("failed to close library after bind failure",
					"path", path, "error", closeErr)
			}
			l.metrics.recordLoad(l.cfg.Variant, "missing_symbol")
			if !errors.Is(err, errutil.ErrSymbolMissing) {
				err = errors.Join(errutil.ErrSymbolMissing, err)
			}
			return nil, errb.With("path", path).With("symbol", b.symbol).Wrap(err)
		}
	}

	l.module = &Module{path: path, variant: l.cfg.Variant, lib: lib, entries: entries}
	l.metrics.recordLoad(l.cfg.Variant, "success")
	l.logger.Info("managed module loaded",
		"path", path,
		"variant", l.cfg.Variant.String())
	return l.module, nil
}

// Cleanup unloads the library. It is a no-op when nothing is loaded.
func (l *Loader) Cleanup() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.module == nil {
		return nil
	}
	m := l.module
	l.module = nil
	l.metrics.recordUnload()

	if err := m.lib.Close(); err != nil {
		return oops.Code(errutil.CodeLoadFailure).
			In("loader").
			With("path", m.path).
			Wrapf(err, "close library")
	}
	l.logger.Info("managed module unloaded", "path", m.path)
	return nil
}
