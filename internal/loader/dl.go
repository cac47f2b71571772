// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build darwin || freebsd || linux

package loader

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/samber/oops"

	"github.com/mfkl/vlclr/pkg/errutil"
)

// DynamicOpener opens shared libraries with the platform dynamic linker.
type DynamicOpener struct{}

// Open implements Opener.
func (DynamicOpener) Open(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, oops.In("loader").With("path", path).Wrap(err)
	}
	return &dynamicLibrary{path: path, handle: handle}, nil
}

type dynamicLibrary struct {
	path   string
	handle uintptr
}

func (l *dynamicLibrary) Bind(symbol string, fptr any) (err error) {
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errutil.ErrSymbolMissing, symbol, err)
	}
	// RegisterFunc panics on unsupported signatures.
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("loader").With("symbol", symbol).Errorf("cannot bind symbol: %v", r)
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return nil
}

func (l *dynamicLibrary) Close() error {
	if err := purego.Dlclose(l.handle); err != nil {
		return oops.In("loader").With("path", l.path).Wrap(err)
	}
	return nil
}
