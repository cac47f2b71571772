// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build !(darwin || freebsd || linux)

package loader

import (
	"runtime"

	"github.com/samber/oops"
)

// DynamicOpener reports that native libraries are unsupported on this
// platform.
type DynamicOpener struct{}

// Open implements Opener.
func (DynamicOpener) Open(path string) (Library, error) {
	return nil, oops.In("loader").
		With("path", path).
		With("goos", runtime.GOOS).
		Errorf("native managed modules are not supported on %s", runtime.GOOS)
}
