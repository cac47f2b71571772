// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkl/vlclr/internal/control"
	"github.com/mfkl/vlclr/internal/events"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/host/memhost"
	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/loader/luamod"
	"github.com/mfkl/vlclr/internal/plugin"
	"github.com/mfkl/vlclr/internal/varproxy"
	"github.com/mfkl/vlclr/pkg/errutil"
)

type servicesFixture struct {
	host     *memhost.Host
	player   *memhost.Player
	playlist *memhost.Playlist
	proxy    *varproxy.Proxy
	surface  *control.Surface
	bridge   *events.Bridge
	svc      *plugin.ScriptServices
	intf     host.ObjectHandle
}

func newServicesFixture(t *testing.T) *servicesFixture {
	t.Helper()
	h := memhost.New()
	player := memhost.NewPlayer()
	pl := memhost.NewPlaylist(player)
	pl.Append(host.MediaHandle(0xA1), host.MediaHandle(0xA2))

	f := &servicesFixture{
		host:     h,
		player:   player,
		playlist: pl,
		proxy:    varproxy.New(h),
		surface:  control.New(),
		bridge:   events.New(),
		intf:     h.NewObject(0, "interface"),
	}
	f.svc = plugin.NewScriptServices(f.proxy, f.surface, f.bridge)
	f.svc.Attach(f.intf, memhost.NewInterface(pl))
	return f
}

func TestScriptServices_Variables(t *testing.T) {
	f := newServicesFixture(t)
	obj := uintptr(f.intf)

	require.NoError(t, f.svc.VarCreate(obj, "volume", "integer"))
	require.NoError(t, f.svc.VarSetInteger(obj, "volume", 150))
	v, err := f.svc.VarGetInteger(obj, "volume")
	require.NoError(t, err)
	assert.Equal(t, int64(150), v)

	require.NoError(t, f.svc.VarCreate(obj, "title", "string"))
	require.NoError(t, f.svc.VarSetString(obj, "title", "héllo"))
	s, err := f.svc.VarGetString(obj, "title")
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
	assert.Zero(t, f.proxy.Domain().Live(), "marshaled copy is freed")

	require.NoError(t, f.svc.VarDestroy(obj, "title"))
}

func TestScriptServices_UnsupportedVarType(t *testing.T) {
	f := newServicesFixture(t)

	err := f.svc.VarCreate(uintptr(f.intf), "pos", "coords")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, errutil.CodePrecondition)
}

func TestScriptServices_Transport(t *testing.T) {
	f := newServicesFixture(t)
	obj := uintptr(f.intf)

	assert.Equal(t, 2, f.svc.PlaylistCount(obj))
	require.NoError(t, f.svc.PlaylistNext(obj))
	assert.Equal(t, int32(host.StatePlaying), f.svc.PlayerState(obj))
}

func TestScriptServices_UnattachedHandle(t *testing.T) {
	f := newServicesFixture(t)

	assert.Zero(t, f.svc.PlaylistCount(0xdead))
	assert.Equal(t, int32(host.StateStopped), f.svc.PlayerState(0xdead))
	require.Error(t, f.svc.PlaylistNext(0xdead))

	_, err := f.svc.Subscribe(0xdead, luamod.PlayerCallbacks{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errutil.ErrNullObject)
}

func TestScriptServices_SubscribeForwardsEvents(t *testing.T) {
	f := newServicesFixture(t)

	var (
		states []int32
		media  []uintptr
	)
	id, err := f.svc.Subscribe(uintptr(f.intf), luamod.PlayerCallbacks{
		OnState: func(s int32) { states = append(states, s) },
		OnMedia: func(m uintptr) { media = append(media, m) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.Subscriptions())
	assert.Equal(t, 1, f.player.Listeners())

	f.player.SetPosition(1000, 0.5)
	require.NoError(t, f.surface.Start(f.playlist))

	assert.Equal(t, []int32{int32(host.StatePlaying)}, states)
	assert.Equal(t, []uintptr{0xA1}, media)

	require.NoError(t, f.svc.Unsubscribe(id))
	assert.Zero(t, f.player.Listeners())
	assert.Zero(t, f.bridge.Active())

	err = f.svc.Unsubscribe(id)
	require.Error(t, err)
	assert.ErrorIs(t, err, errutil.ErrHandleConsumed)
}

func TestScriptServices_CloseRemovesLeftovers(t *testing.T) {
	f := newServicesFixture(t)

	for range 3 {
		_, err := f.svc.Subscribe(uintptr(f.intf), luamod.PlayerCallbacks{})
		require.NoError(t, err)
	}
	require.Equal(t, 3, f.player.Listeners())

	require.NoError(t, f.svc.Close())
	assert.Zero(t, f.svc.Subscriptions())
	assert.Zero(t, f.player.Listeners())
	assert.Zero(t, f.bridge.Active())
}

func TestScriptServices_LuaModuleLifecycle(t *testing.T) {
	f := newServicesFixture(t)

	script := filepath.Join(t.TempDir(), "tracker.lua")
	writeFile(t, script, []byte(`
		local sub
		function vlclr_plugin_open(intf)
			vlc.var_create(intf, "last_state", "integer")
			vlc.var_create(intf, "greeting", "string")
			vlc.var_set_string(intf, "greeting", "hello from lua")
			sub = vlc.subscribe(intf, {
				on_state = function(state)
					vlc.var_set_integer(intf, "last_state", state)
				end,
			})
			return 0
		end
		function vlclr_plugin_close(intf)
			vlc.unsubscribe(sub)
		end
	`))

	l := loader.New(loader.Config{Library: script},
		loader.WithOpener(luamod.NewOpener(luamod.WithServices(f.svc))))
	p := plugin.NewInterfacePlugin(l, plugin.WithTeardown(f.svc.Close))

	require.NoError(t, p.Open(f.intf))
	assert.Equal(t, 1, f.player.Listeners())

	greeting, err := f.proxy.GetString(f.intf, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello from lua", greeting.String())
	f.proxy.FreeString(greeting)

	require.NoError(t, f.surface.Start(f.playlist))
	assert.Positive(t, p.Pump())
	state, err := f.proxy.GetInteger(f.intf, "last_state")
	require.NoError(t, err)
	assert.Equal(t, int64(host.StatePlaying), state)

	require.NoError(t, p.Close(f.intf))
	assert.Zero(t, f.player.Listeners())
	assert.Zero(t, f.bridge.Active())
	assert.Nil(t, l.Module())
}

func TestScriptServices_HandlerQueriesPlayerAfterHostUnlocks(t *testing.T) {
	f := newServicesFixture(t)

	script := filepath.Join(t.TempDir(), "observer.lua")
	writeFile(t, script, []byte(`
		function vlclr_plugin_open(intf)
			vlc.var_create(intf, "seen", "integer")
			vlc.subscribe(intf, {
				on_state = function(s)
					vlc.var_set_integer(intf, "seen", vlc.player_state(intf))
				end,
			})
			return 0
		end
		function vlclr_plugin_close(intf) end
	`))

	l := loader.New(loader.Config{Library: script},
		loader.WithOpener(luamod.NewOpener(luamod.WithServices(f.svc))))
	p := plugin.NewInterfacePlugin(l, plugin.WithTeardown(f.svc.Close))
	require.NoError(t, p.Open(f.intf))
	defer func() { _ = p.Close(f.intf) }()

	started := make(chan error, 1)
	go func() { started <- f.surface.Start(f.playlist) }()
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked while delivering a player event")
	}

	assert.Positive(t, p.Pump())
	seen, err := f.proxy.GetInteger(f.intf, "seen")
	require.NoError(t, err)
	assert.Equal(t, int64(host.StatePlaying), seen)
}
