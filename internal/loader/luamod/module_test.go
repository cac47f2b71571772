// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luamod_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/loader/luamod"
	"github.com/mfkl/vlclr/pkg/errutil"
)

type fakeServices struct {
	mu      sync.Mutex
	logs    []string
	ints    map[string]int64
	strs    map[string]string
	state   int32
	count   int
	subs    map[uint64]luamod.PlayerCallbacks
	nextSub uint64

	// playerMu stands in for the host's non-reentrant player lock.
	playerMu sync.Mutex
}

func newFakeServices() *fakeServices {
	return &fakeServices{
		ints: make(map[string]int64),
		strs: make(map[string]string),
		subs: make(map[uint64]luamod.PlayerCallbacks),
	}
}

func (f *fakeServices) Log(level, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, level+": "+msg)
}

func (f *fakeServices) Logs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logs...)
}

func (f *fakeServices) VarCreate(_ uintptr, name, _ string) error {
	f.ints[name] = 0
	return nil
}

func (f *fakeServices) VarDestroy(_ uintptr, name string) error {
	delete(f.ints, name)
	return nil
}

func (f *fakeServices) VarGetInteger(_ uintptr, name string) (int64, error) {
	v, ok := f.ints[name]
	if !ok {
		return 0, errors.New("no such variable")
	}
	return v, nil
}

func (f *fakeServices) VarSetInteger(_ uintptr, name string, v int64) error {
	f.ints[name] = v
	return nil
}

func (f *fakeServices) VarGetString(_ uintptr, name string) (string, error) {
	return f.strs[name], nil
}

func (f *fakeServices) VarSetString(_ uintptr, name, v string) error {
	f.strs[name] = v
	return nil
}

func (f *fakeServices) PlayerState(uintptr) int32 {
	f.playerMu.Lock()
	defer f.playerMu.Unlock()
	return f.state
}

func (f *fakeServices) PlaylistCount(uintptr) int { return f.count }

// PlaylistNext fires state callbacks synchronously with the player lock
// held, like the host does.
func (f *fakeServices) PlaylistNext(uintptr) error {
	f.playerMu.Lock()
	defer f.playerMu.Unlock()
	f.state = 2
	for _, cbs := range f.subs {
		if cbs.OnState != nil {
			cbs.OnState(f.state)
		}
	}
	return nil
}

func (f *fakeServices) Subscribe(_ uintptr, cbs luamod.PlayerCallbacks) (uint64, error) {
	f.nextSub++
	f.subs[f.nextSub] = cbs
	return f.nextSub, nil
}

func (f *fakeServices) Unsubscribe(id uint64) error {
	delete(f.subs, id)
	return nil
}

func writeScript(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "module.lua")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o600))
	return path
}

func bindInterface(t *testing.T, lib loader.Library) loader.EntryPoints {
	t.Helper()
	var ep loader.EntryPoints
	require.NoError(t, lib.Bind(loader.DefaultOpenSymbol, &ep.Open))
	require.NoError(t, lib.Bind(loader.DefaultCloseSymbol, &ep.Close))
	return ep
}

func TestOpener_InterfaceEntryPoints(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		function vlclr_plugin_open(obj)
			vlc.var_create(obj, "volume")
			vlc.var_set_integer(obj, "volume", 150)
			vlc.log("info", "opened " .. obj)
			return 0
		end
		function vlclr_plugin_close(obj)
			vlc.log("info", "closed")
		end
	`)

	lib, err := luamod.NewOpener(luamod.WithServices(svc)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	ep := bindInterface(t, lib)

	assert.Equal(t, int32(0), ep.Open(4096))
	ep.Close(4096)

	assert.Equal(t, int64(150), svc.ints["volume"])
	assert.Equal(t, []string{"info: opened 4096", "info: closed"}, svc.Logs())
}

func TestOpener_OpenStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int32
	}{
		{"no return", ``, 0},
		{"number", `return 3`, 3},
		{"false", `return false`, -1},
		{"string", `return "nope"`, -1},
		{"runtime error", `error("boom")`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScript(t, "function vlclr_plugin_open(obj) "+tt.body+" end\nfunction vlclr_plugin_close(obj) end")
			lib, err := luamod.NewOpener().Open(path)
			require.NoError(t, err)
			defer func() { _ = lib.Close() }()

			ep := bindInterface(t, lib)
			assert.Equal(t, tt.want, ep.Open(1))
		})
	}
}

func TestOpener_CallTimeoutAbortsRunawayScript(t *testing.T) {
	path := writeScript(t, `
		function vlclr_plugin_open(obj) while true do end end
		function vlclr_plugin_close(obj) end
	`)
	lib, err := luamod.NewOpener(luamod.WithCallTimeout(50 * time.Millisecond)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	ep := bindInterface(t, lib)
	assert.Equal(t, int32(-1), ep.Open(1))
}

func TestOpener_MissingSymbol(t *testing.T) {
	path := writeScript(t, `function vlclr_plugin_open(obj) return 0 end`)
	lib, err := luamod.NewOpener().Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	var closeFn loader.CloseFunc
	err = lib.Bind(loader.DefaultCloseSymbol, &closeFn)
	assert.ErrorIs(t, err, errutil.ErrSymbolMissing)
}

func TestOpener_UnsupportedEntryPointType(t *testing.T) {
	path := writeScript(t, `function f() end`)
	lib, err := luamod.NewOpener().Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	var fn func()
	assert.Error(t, lib.Bind("f", &fn))
}

func TestOpener_ScriptErrors(t *testing.T) {
	_, err := luamod.NewOpener().Open(filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)

	_, err = luamod.NewOpener().Open(writeScript(t, `function (`))
	assert.Error(t, err)
}

func TestOpener_SandboxBlocksFilesystem(t *testing.T) {
	path := writeScript(t, `
		function vlclr_plugin_open(obj)
			if io == nil and os == nil and dofile == nil then return 0 end
			return 1
		end
		function vlclr_plugin_close(obj) end
	`)
	lib, err := luamod.NewOpener().Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	assert.Equal(t, int32(0), bindInterface(t, lib).Open(1))
}

func TestOpener_FilterFrameModifiesPlaneInPlace(t *testing.T) {
	path := writeScript(t, `
		function vlclr_filter_open(filter, w, h, chroma) return 0 end
		function vlclr_filter_close(filter) end
		function vlclr_filter_frame(filter, frame)
			for line = 0, frame.visible_lines - 1 do
				for x = 0, frame.visible_pitch - 1 do
					local off = line * frame.pitch + x
					frame:set(off, 255 - frame:get(off))
				end
			end
		end
	`)
	lib, err := luamod.NewOpener().Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	var ep loader.EntryPoints
	require.NoError(t, lib.Bind(loader.DefaultFilterOpenSymbol, &ep.FilterOpen))
	require.NoError(t, lib.Bind(loader.DefaultFilterCloseSymbol, &ep.FilterClose))
	require.NoError(t, lib.Bind(loader.DefaultFilterFrameSymbol, &ep.FilterFrame))

	// Two visible bytes per line, pitch 4: padding bytes must be untouched.
	pixels := []byte{
		0, 10, 7, 7,
		20, 30, 7, 7,
	}
	require.Equal(t, int32(0), ep.FilterOpen(1, 2, 2, 0))
	ep.FilterFrame(1, unsafe.Pointer(&pixels[0]), 4, 2, 2, 0)
	ep.FilterClose(1)

	assert.Equal(t, []byte{255, 245, 7, 7, 235, 225, 7, 7}, pixels)
}

func TestOpener_FrameCannotBeRetained(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		local kept
		function vlclr_filter_open(filter, w, h, chroma) return 0 end
		function vlclr_filter_close(filter)
			local ok = pcall(function() return kept:get(0) end)
			if not ok then vlc.log("info", "stale") end
		end
		function vlclr_filter_frame(filter, frame) kept = frame end
	`)
	lib, err := luamod.NewOpener(luamod.WithServices(svc)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	var ep loader.EntryPoints
	require.NoError(t, lib.Bind(loader.DefaultFilterCloseSymbol, &ep.FilterClose))
	require.NoError(t, lib.Bind(loader.DefaultFilterFrameSymbol, &ep.FilterFrame))

	pixels := []byte{1, 2, 3, 4}
	ep.FilterFrame(1, unsafe.Pointer(&pixels[0]), 4, 4, 1, 0)
	ep.FilterClose(1)

	assert.Equal(t, []string{"info: stale"}, svc.Logs())
}

func TestOpener_EventsRaisedDuringCallAreDeliveredAfterIt(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		local in_open = false
		function vlclr_plugin_open(intf)
			in_open = true
			vlc.subscribe(intf, {
				on_state = function(state)
					if in_open then
						vlc.log("error", "reentered")
					else
						vlc.log("info", "state " .. state)
					end
				end,
			})
			vlc.playlist_next(intf)
			in_open = false
			return 0
		end
		function vlclr_plugin_close(intf) end
	`)
	lib, err := luamod.NewOpener(luamod.WithServices(svc)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	require.Equal(t, int32(0), bindInterface(t, lib).Open(1))
	assert.Equal(t, []string{"info: state 2"}, svc.Logs())
}

// nextWithin runs svc.PlaylistNext and fails the test if it does not return
// within d.
func nextWithin(t *testing.T, svc *fakeServices, d time.Duration) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- svc.PlaylistNext(1) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatal("PlaylistNext blocked in event delivery")
	}
}

func TestOpener_EventsOutsideCallsWaitForPump(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		function vlclr_plugin_open(intf)
			vlc.subscribe(intf, { on_state = function(s) vlc.log("info", "state " .. s) end })
			return 0
		end
		function vlclr_plugin_close(intf) end
	`)
	lib, err := luamod.NewOpener(luamod.WithServices(svc)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	require.Equal(t, int32(0), bindInterface(t, lib).Open(1))
	nextWithin(t, svc, 2*time.Second)
	assert.Empty(t, svc.Logs(), "handlers do not run on the host's thread")

	pump, ok := lib.(loader.Pumper)
	require.True(t, ok)
	assert.Equal(t, 1, pump.Pump())
	assert.Equal(t, []string{"info: state 2"}, svc.Logs())
	assert.Zero(t, pump.Pump())
}

func TestOpener_HandlerMayQueryPlayerHeldByHost(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		function vlclr_plugin_open(intf)
			vlc.subscribe(intf, {
				on_state = function(s) vlc.log("info", "now " .. vlc.player_state(intf)) end,
			})
			return 0
		end
		function vlclr_plugin_close(intf) end
	`)
	lib, err := luamod.NewOpener(luamod.WithServices(svc)).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	ep := bindInterface(t, lib)
	require.Equal(t, int32(0), ep.Open(1))
	nextWithin(t, svc, 2*time.Second)

	// The queued handler also runs when the next entry point returns.
	ep.Close(1)
	assert.Equal(t, []string{"info: now 2"}, svc.Logs())
}

func TestOpener_CallTimeoutBoundsEventHandlers(t *testing.T) {
	svc := newFakeServices()
	path := writeScript(t, `
		function vlclr_plugin_open(intf)
			vlc.subscribe(intf, { on_state = function(s) while true do end end })
			return 0
		end
		function vlclr_plugin_close(intf) end
		function ping() vlc.log("info", "alive") end
	`)
	lib, err := luamod.NewOpener(
		luamod.WithServices(svc),
		luamod.WithCallTimeout(100*time.Millisecond),
	).Open(path)
	require.NoError(t, err)
	defer func() { _ = lib.Close() }()

	require.Equal(t, int32(0), bindInterface(t, lib).Open(1))
	nextWithin(t, svc, 2*time.Second)

	done := make(chan int, 1)
	go func() { done <- lib.(loader.Pumper).Pump() }()
	select {
	case ran := <-done:
		assert.Equal(t, 1, ran)
	case <-time.After(2 * time.Second):
		t.Fatal("runaway handler was not stopped by the call timeout")
	}

	var ping loader.CloseFunc
	require.NoError(t, lib.Bind("ping", &ping))
	ping(1)
	assert.Equal(t, []string{"info: alive"}, svc.Logs(), "state stays usable after the timeout")
}

func TestLibrary_CallsAfterCloseAreIgnored(t *testing.T) {
	path := writeScript(t, `
		function vlclr_plugin_open(obj) return 0 end
		function vlclr_plugin_close(obj) end
	`)
	lib, err := luamod.NewOpener().Open(path)
	require.NoError(t, err)

	ep := bindInterface(t, lib)
	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())

	assert.Equal(t, int32(-1), ep.Open(1))
	assert.Error(t, lib.Bind(loader.DefaultOpenSymbol, &ep.Open))
}
