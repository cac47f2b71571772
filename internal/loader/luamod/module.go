// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package luamod runs managed modules written in Lua.
//
// A script exports entry points as global functions named after the module
// symbols (vlclr_plugin_open and so on). Scripts run in a sandboxed state
// and, when the opener is given Services, can reach the bridge through the
// global vlc table.
package luamod

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// DefaultCallTimeout bounds a single entry point or event handler call.
const DefaultCallTimeout = 5 * time.Second

// Compile-time interface checks.
var (
	_ loader.Opener  = (*Opener)(nil)
	_ loader.Library = (*library)(nil)
	_ loader.Pumper  = (*library)(nil)
)

// Opener opens Lua scripts as managed libraries.
type Opener struct {
	services Services
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures an Opener.
type Option func(*Opener)

// WithServices exposes s to scripts as the vlc table.
func WithServices(s Services) Option {
	return func(o *Opener) {
		o.services = s
	}
}

// WithLogger sets the logger for script errors.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Opener) {
		o.logger = logger
	}
}

// WithCallTimeout bounds each call into the script. Zero or negative
// keeps DefaultCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Opener) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOpener creates a Lua script opener.
func NewOpener(opts ...Option) *Opener {
	o := &Opener{
		logger:  slog.Default(),
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open reads and runs the script at path. The script's top level runs once;
// entry points are bound later with Bind.
func (o *Opener) Open(path string) (loader.Library, error) {
	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.In("luamod").With("path", path).With("operation", "open").Wrap(err)
	}

	L, err := newSandbox()
	if err != nil {
		return nil, oops.In("luamod").With("path", path).With("operation", "open").Wrap(err)
	}

	l := &library{
		path:     path,
		state:    L,
		services: o.services,
		logger:   o.logger.With("script", filepath.Base(path)),
		timeout:  o.timeout,
	}
	registerFrameType(L)
	if l.services != nil {
		l.register(L)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	L.SetContext(ctx)
	err = L.DoString(string(code))
	L.RemoveContext()
	cancel()
	if err != nil {
		L.Close()
		return nil, oops.In("luamod").With("path", path).With("operation", "open").Hint("script error").Wrap(err)
	}
	return l, nil
}

// library is an opened script. All access to state goes through mu.
type library struct {
	path     string
	services Services
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	state  *lua.LState
	closed bool

	pendingMu sync.Mutex
	pending   []func()
}

// Bind implements loader.Library. The symbol must name a global function.
func (l *library) Bind(symbol string, fptr any) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return oops.In("luamod").With("symbol", symbol).New("library closed")
	}
	fn, ok := l.state.GetGlobal(symbol).(*lua.LFunction)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", errutil.ErrSymbolMissing, symbol)
	}

	switch p := fptr.(type) {
	case *loader.OpenFunc:
		*p = func(obj uintptr) int32 {
			return l.callStatus(symbol, fn, lua.LNumber(obj))
		}
	case *loader.CloseFunc:
		*p = func(obj uintptr) {
			l.call(symbol, fn, 0, lua.LNumber(obj))
		}
	case *loader.FilterOpenFunc:
		*p = func(filter uintptr, width, height int32, chroma uint32) int32 {
			return l.callStatus(symbol, fn, lua.LNumber(filter), lua.LNumber(width), lua.LNumber(height), lua.LNumber(chroma))
		}
	case *loader.FilterCloseFunc:
		*p = func(filter uintptr) {
			l.call(symbol, fn, 0, lua.LNumber(filter))
		}
	case *loader.FilterFrameFunc:
		*p = func(filter uintptr, pixels unsafe.Pointer, pitch, visiblePitch, visibleLines int32, chroma uint32) {
			l.callFrame(symbol, fn, filter, pixels, pitch, visiblePitch, visibleLines, chroma)
		}
	default:
		return oops.In("luamod").With("symbol", symbol).Errorf("unsupported entry point type %T", fptr)
	}
	return nil
}

// Close implements loader.Library.
func (l *library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.state.Close()
	l.pendingMu.Lock()
	l.pending = nil
	l.pendingMu.Unlock()
	return nil
}

// call runs fn with the state lock held and returns its first result, or nil
// on error. Errors are logged, never returned across the entry point.
func (l *library) call(symbol string, fn *lua.LFunction, nret int, args ...lua.LValue) lua.LValue {
	l.mu.Lock()
	ret := l.callLocked(symbol, fn, nret, args...)
	l.drainLocked()
	l.mu.Unlock()
	return ret
}

func (l *library) callLocked(symbol string, fn *lua.LFunction, nret int, args ...lua.LValue) lua.LValue {
	if l.closed {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	l.state.SetContext(ctx)
	defer l.state.RemoveContext()

	if err := l.state.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		l.logger.Error("lua entry point failed", "symbol", symbol, "error", err)
		return nil
	}
	if nret == 0 {
		return nil
	}
	ret := l.state.Get(-1)
	l.state.Pop(nret)
	if nret > 1 {
		return nil
	}
	return ret
}

// callStatus runs an entry point returning a status. nil or no return is
// success, a number is the status, anything else or an error is -1.
func (l *library) callStatus(symbol string, fn *lua.LFunction, args ...lua.LValue) int32 {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errutil.StatusGeneric
	}
	ok := true
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	l.state.SetContext(ctx)
	err := l.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	l.state.RemoveContext()
	cancel()

	var status int32
	if err != nil {
		l.logger.Error("lua entry point failed", "symbol", symbol, "error", err)
		ok = false
	} else {
		ret := l.state.Get(-1)
		l.state.Pop(1)
		switch v := ret.(type) {
		case *lua.LNilType:
		case lua.LNumber:
			status = int32(v)
		case lua.LBool:
			if !v {
				ok = false
			}
		default:
			ok = false
		}
	}
	l.drainLocked()
	l.mu.Unlock()

	if !ok {
		return errutil.StatusGeneric
	}
	return status
}

func (l *library) callFrame(symbol string, fn *lua.LFunction, filter uintptr, pixels unsafe.Pointer,
	pitch, visiblePitch, visibleLines int32, chroma uint32,
) {
	if pixels == nil || pitch <= 0 || visibleLines <= 0 {
		return
	}
	plane := unsafe.Slice((*byte)(pixels), int(pitch)*int(visibleLines))

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	frame := &frameData{
		pixels:       plane,
		pitch:        pitch,
		visiblePitch: visiblePitch,
		visibleLines: visibleLines,
		chroma:       chroma,
	}
	ud := newFrameUserData(l.state, frame)
	l.callLocked(symbol, fn, 0, lua.LNumber(filter), ud)
	// The plane belongs to the host; scripts cannot keep it.
	frame.pixels = nil
	l.drainLocked()
	l.mu.Unlock()
}

// dispatch queues an event handler. Host events arrive on the host's
// thread with host locks held, so handlers never run here; they run when the
// current entry point returns or when the bridge calls Pump.
func (l *library) dispatch(name string, fn *lua.LFunction, args ...lua.LValue) {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	l.pending = append(l.pending, func() {
		l.runHandlerLocked(name, fn, args...)
	})
}

// Pump implements loader.Pumper. It runs queued event handlers and reports
// how many ran. It must not be called with host locks held.
func (l *library) Pump() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drainLocked()
}

// runHandlerLocked runs one event handler under the per-call timeout.
// Caller holds mu.
func (l *library) runHandlerLocked(name string, fn *lua.LFunction, args ...lua.LValue) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	l.state.SetContext(ctx)
	defer l.state.RemoveContext()

	if err := l.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		l.logger.Error("lua event handler failed", "handler", name, "error", err)
	}
}

// drainLocked runs queued handlers, including ones queued by the handlers
// themselves, and returns how many ran. Caller holds mu.
func (l *library) drainLocked() int {
	ran := 0
	for {
		l.pendingMu.Lock()
		batch := l.pending
		l.pending = nil
		l.pendingMu.Unlock()
		if len(batch) == 0 {
			return ran
		}
		if l.closed {
			continue
		}
		for _, run := range batch {
			run()
			ran++
		}
	}
}
