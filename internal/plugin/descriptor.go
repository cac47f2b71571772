// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package plugin is the host-facing side of the bridge: the activation entry
// points the host calls for the interface and video filter capabilities, and
// the module descriptor that tells the host how to register them.
package plugin

import (
	"regexp"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// DescriptorFile is the descriptor file name looked up by Discover.
const DescriptorFile = "module.yaml"

// Capability is the host capability a module registers for.
type Capability string

// Capabilities the bridge can serve.
const (
	CapabilityInterface   Capability = "interface"
	CapabilityVideoFilter Capability = "video filter"
)

// Variant returns the loader variant serving c.
func (c Capability) Variant() loader.Variant {
	if c == CapabilityVideoFilter {
		return loader.VariantFilter
	}
	return loader.VariantInterface
}

// Descriptor represents a module.yaml file.
type Descriptor struct {
	Name        string          `yaml:"name" json:"name"`
	Shortname   string          `yaml:"shortname,omitempty" json:"shortname,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Capability  Capability      `yaml:"capability" json:"capability" jsonschema:"enum=interface,enum=video filter"`
	Score       int             `yaml:"score,omitempty" json:"score,omitempty" jsonschema:"minimum=0"`
	Shortcuts   []string        `yaml:"shortcuts,omitempty" json:"shortcuts,omitempty"`
	Library     string          `yaml:"library" json:"library"`
	SearchDirs  []string        `yaml:"search_dirs,omitempty" json:"search_dirs,omitempty"`
	Exports     *loader.Symbols `yaml:"exports,omitempty" json:"exports,omitempty"`

	shortcuts []glob.Glob
}

// maxNameLength is the maximum allowed length for module names.
const maxNameLength = 64

// namePattern validates module names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

func invalid(field string) oops.OopsErrorBuilder {
	return oops.Code(errutil.CodeConfigInvalid).In("plugin").With("field", field)
}

// ParseDescriptor parses and validates a module.yaml file.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	if len(data) == 0 {
		return nil, invalid("").Errorf("descriptor data is empty")
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, invalid("").Wrapf(err, "invalid YAML")
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// Validate checks descriptor constraints and compiles the shortcut patterns.
func (d *Descriptor) Validate() error {
	if d.Name == "" || !namePattern.MatchString(d.Name) {
		return invalid("name").Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", d.Name)
	}
	if len(d.Name) > maxNameLength {
		return invalid("name").Errorf("name must be %d characters or less, got %d", maxNameLength, len(d.Name))
	}

	switch d.Capability {
	case CapabilityInterface, CapabilityVideoFilter:
	default:
		return invalid("capability").Errorf("capability must be %q or %q, got %q",
			CapabilityInterface, CapabilityVideoFilter, d.Capability)
	}

	if d.Score < 0 {
		return invalid("score").Errorf("score must not be negative, got %d", d.Score)
	}

	if d.Library == "" {
		return invalid("library").Errorf("library is required")
	}

	compiled := make([]glob.Glob, 0, len(d.Shortcuts))
	for _, pattern := range d.Shortcuts {
		if pattern == "" {
			return invalid("shortcuts").Errorf("shortcut must not be empty")
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return invalid("shortcuts").With("shortcut", pattern).Wrapf(err, "invalid shortcut pattern %q", pattern)
		}
		compiled = append(compiled, g)
	}
	d.shortcuts = compiled

	return nil
}

// MatchesShortcut reports whether name selects this module: the module name
// itself or any shortcut pattern. Validate must have succeeded first.
func (d *Descriptor) MatchesShortcut(name string) bool {
	if name == d.Name {
		return true
	}
	for _, g := range d.shortcuts {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// LoaderConfig returns the loader configuration for this module.
func (d *Descriptor) LoaderConfig() loader.Config {
	cfg := loader.Config{
		Library:    d.Library,
		Variant:    d.Capability.Variant(),
		SearchDirs: append([]string(nil), d.SearchDirs...),
	}
	if d.Exports != nil {
		cfg.Symbols = *d.Exports
	}
	return cfg
}
