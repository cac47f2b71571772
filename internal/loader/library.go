// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package loader

import (
	"path/filepath"
	"strings"
)

// Library is an opened managed module.
type Library interface {
	// Bind resolves symbol and stores a callable into fptr, which must be a
	// pointer to a variable of one of the entry point function types.
	Bind(symbol string, fptr any) error
	// Close unloads the library. Bound functions must not be called after.
	Close() error
}

// Pumper is implemented by libraries that queue host events instead of
// running them on the host's thread.
type Pumper interface {
	// Pump runs the queued events and reports how many ran.
	Pump() int
}

// Opener opens libraries by path or bare name.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Library, error)

// Open implements Opener.
func (f OpenerFunc) Open(path string) (Library, error) {
	return f(path)
}

// ExtensionOpener dispatches on file extension, falling back to Default.
// Extensions are matched case-insensitively and include the dot.
type ExtensionOpener struct {
	Default    Opener
	Extensions map[string]Opener
}

// Open implements Opener.
func (o *ExtensionOpener) Open(path string) (Library, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if opener, ok := o.Extensions[ext]; ok {
		return opener.Open(path)
	}
	return o.Default.Open(path)
}
