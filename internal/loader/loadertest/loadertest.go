// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package loadertest provides in-process managed modules for tests.
package loadertest

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// Compile-time interface checks.
var (
	_ loader.Library = (*Library)(nil)
	_ loader.Opener  = (*Opener)(nil)
)

// Library binds symbols to Go functions.
type Library struct {
	mu      sync.Mutex
	symbols map[string]any
	closed  int
	bound   []string
}

// NewLibrary creates a library exporting symbols. Values must be functions
// assignable to the entry point types.
func NewLibrary(symbols map[string]any) *Library {
	return &Library{symbols: symbols}
}

// Bind implements loader.Library.
func (l *Library) Bind(symbol string, fptr any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn, ok := l.symbols[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", errutil.ErrSymbolMissing, symbol)
	}
	dst := reflect.ValueOf(fptr)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		return errors.New("fptr must be a non-nil pointer")
	}
	src := reflect.ValueOf(fn)
	if !src.Type().AssignableTo(dst.Elem().Type()) {
		return fmt.Errorf("symbol %s has type %s, want %s", symbol, src.Type(), dst.Elem().Type())
	}
	dst.Elem().Set(src)
	l.bound = append(l.bound, symbol)
	return nil
}

// Close implements loader.Library.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

// Closed returns how many times Close was called.
func (l *Library) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Bound returns the symbols bound so far, in order.
func (l *Library) Bound() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.bound...)
}

// Opener serves libraries by exact path and records every attempt.
type Opener struct {
	mu        sync.Mutex
	libraries map[string]*Library
	attempts  []string
	opened    int
}

// NewOpener creates an opener serving libraries.
func NewOpener(libraries map[string]*Library) *Opener {
	return &Opener{libraries: libraries}
}

// Open implements loader.Opener.
func (o *Opener) Open(path string) (loader.Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts = append(o.attempts, path)
	lib, ok := o.libraries[path]
	if !ok {
		return nil, fmt.Errorf("%s: cannot open shared object file", path)
	}
	o.opened++
	return lib, nil
}

// Attempts returns every path passed to Open.
func (o *Opener) Attempts() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.attempts...)
}

// Opened returns how many opens succeeded.
func (o *Opener) Opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// Module is a scriptable managed module recording every call it receives.
type Module struct {
	mu sync.Mutex

	// OpenResult is returned by open and filter_open.
	OpenResult int32
	// OnFrame, when set, runs on every frame with plane 0 as a slice.
	OnFrame func(pixels []byte, pitch, visiblePitch, visibleLines int32, chroma uint32)

	Opens   []uintptr
	Closes  []uintptr
	Frames  int
	Formats [][3]int64
}

// InterfaceSymbols returns the default interface exports of m.
func (m *Module) InterfaceSymbols() map[string]any {
	return map[string]any{
		loader.DefaultOpenSymbol: loader.OpenFunc(func(obj uintptr) int32 {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Opens = append(m.Opens, obj)
			return m.OpenResult
		}),
		loader.DefaultCloseSymbol: loader.CloseFunc(func(obj uintptr) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Closes = append(m.Closes, obj)
		}),
	}
}

// FilterSymbols returns the default filter exports of m.
func (m *Module) FilterSymbols() map[string]any {
	return map[string]any{
		loader.DefaultFilterOpenSymbol: loader.FilterOpenFunc(func(filter uintptr, w, h int32, chroma uint32) int32 {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Opens = append(m.Opens, filter)
			m.Formats = append(m.Formats, [3]int64{int64(w), int64(h), int64(chroma)})
			return m.OpenResult
		}),
		loader.DefaultFilterCloseSymbol: loader.FilterCloseFunc(func(filter uintptr) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Closes = append(m.Closes, filter)
		}),
		loader.DefaultFilterFrameSymbol: loader.FilterFrameFunc(func(_ uintptr, pixels unsafe.Pointer, pitch, visiblePitch, visibleLines int32, chroma uint32) {
			m.mu.Lock()
			m.Frames++
			onFrame := m.OnFrame
			m.mu.Unlock()
			if onFrame != nil && pixels != nil {
				plane := unsafe.Slice((*byte)(pixels), int(pitch)*int(visibleLines))
				onFrame(plane, pitch, visiblePitch, visibleLines, chroma)
			}
		}),
	}
}
