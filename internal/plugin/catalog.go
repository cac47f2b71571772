// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/loader"
)

// Discovered is a descriptor and the directory it was found in.
type Discovered struct {
	Descriptor *Descriptor
	Dir        string
}

// LoaderConfig returns the descriptor's loader configuration with the
// module directory searched before the descriptor's own search dirs.
func (d *Discovered) LoaderConfig() loader.Config {
	cfg := d.Descriptor.LoaderConfig()
	cfg.SearchDirs = append([]string{d.Dir}, cfg.SearchDirs...)
	return cfg
}

// Catalog discovers module descriptors and selects among them.
type Catalog struct {
	dir     string
	logger  *slog.Logger
	modules map[string]*Discovered
	mu      sync.RWMutex
}

// CatalogOption configures the Catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the catalog logger.
func WithCatalogLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog creates a catalog over dir. Nothing is read until Discover.
func NewCatalog(dir string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		dir:     dir,
		logger:  slog.Default(),
		modules: make(map[string]*Discovered),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discover finds all valid descriptors in the subdirectories of the catalog
// directory and replaces the catalog contents with them. Invalid descriptors
// are logged and skipped. A missing directory yields no modules.
func (c *Catalog) Discover(_ context.Context) ([]*Discovered, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.replace(nil)
			return nil, nil
		}
		return nil, oops.In("plugin").With("dir", c.dir).Wrapf(err, "failed to read module directory")
	}

	var found []*Discovered
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		moduleDir := filepath.Join(c.dir, entry.Name())
		descriptorPath := filepath.Join(moduleDir, DescriptorFile)

		data, err := os.ReadFile(descriptorPath) //nolint:gosec // descriptorPath is constructed from ReadDir entries
		if err != nil {
			c.logger.Warn("skipping module without descriptor",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		if err := ValidateSchema(data); err != nil {
			c.logger.Warn("skipping module with invalid descriptor",
				"dir", entry.Name(),
				"error", SchemaErrorDetail(err))
			continue
		}

		desc, err := ParseDescriptor(data)
		if err != nil {
			c.logger.Warn("skipping module with invalid descriptor",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		found = append(found, &Discovered{Descriptor: desc, Dir: moduleDir})
	}

	sortByScore(found)
	c.replace(found)
	return found, nil
}

func (c *Catalog) replace(found []*Discovered) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modules = make(map[string]*Discovered, len(found))
	for _, d := range found {
		if prev, ok := c.modules[d.Descriptor.Name]; ok {
			c.logger.Warn("duplicate module name, keeping higher score",
				"module", d.Descriptor.Name,
				"kept", prev.Dir,
				"skipped", d.Dir)
			continue
		}
		c.modules[d.Descriptor.Name] = d
	}
}

// sortByScore orders modules by descending score, then by name.
func sortByScore(mods []*Discovered) {
	sort.SliceStable(mods, func(i, j int) bool {
		a, b := mods[i].Descriptor, mods[j].Descriptor
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})
}

// Lookup returns the highest scoring module of capability selected by
// shortcut. An empty shortcut selects the highest scoring module.
func (c *Catalog) Lookup(capability Capability, shortcut string) (*Discovered, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := make([]*Discovered, 0, len(c.modules))
	for _, d := range c.modules {
		if d.Descriptor.Capability != capability {
			continue
		}
		if shortcut != "" && !d.Descriptor.MatchesShortcut(shortcut) {
			continue
		}
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sortByScore(candidates)
	return candidates[0], true
}

// Names returns names of all discovered modules.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
