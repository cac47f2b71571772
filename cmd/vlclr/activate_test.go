// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfkl/vlclr/pkg/errutil"
)

const trackerScript = `
local sub
function vlclr_plugin_open(intf)
	vlc.var_create(intf, "last_state", "integer")
	sub = vlc.subscribe(intf, {
		on_state = function(state)
			vlc.var_set_integer(intf, "last_state", state)
		end,
	})
	vlc.log("info", "tracker open")
	return 0
end
function vlclr_plugin_close(intf)
	vlc.unsubscribe(sub)
end
`

func TestActivateConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     activateConfig
		wantErr bool
	}{
		{name: "defaults", cfg: activateConfig{items: 3, steps: 1}},
		{name: "empty playlist", cfg: activateConfig{}},
		{name: "negative items", cfg: activateConfig{items: -1}, wantErr: true},
		{name: "negative steps", cfg: activateConfig{items: 1, steps: -2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, errutil.CodeConfigInvalid)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestActivateCommand_LuaModule(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "tracker.lua")
	writeFile(t, script, trackerScript)

	out, err := execute(t, "activate", "--library", script, "--items", "3", "--steps", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "state: playing")
	assert.Contains(t, out, "item: 2/3")
	assert.Contains(t, out, "listeners: 1")
	assert.Contains(t, out, "events delivered: ")
	assert.NotContains(t, out, "events delivered: 0\n", "state handlers ran once the host unlocked")
}

func TestActivateCommand_HandlerReadsPlayerState(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "observer.lua")
	writeFile(t, script, `
function vlclr_plugin_open(intf)
	vlc.subscribe(intf, {
		on_state = function(s) vlc.log("info", "player is " .. vlc.player_state(intf)) end,
	})
	return 0
end
function vlclr_plugin_close(intf) end
`)

	out, err := execute(t, "activate", "--library", script, "--items", "2", "--steps", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "state: playing")
	assert.Contains(t, out, "listeners: 1")
}

func TestActivateCommand_StopsAtEndOfPlaylist(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "tracker.lua")
	writeFile(t, script, trackerScript)

	out, err := execute(t, "activate", "--library", script, "--items", "2", "--steps", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "item: 2/2")
}

func TestActivateCommand_ByModuleName(t *testing.T) {
	dir := isolate(t)
	modules := filepath.Join(dir, "modules")
	writeFile(t, filepath.Join(modules, "tracker", "tracker.lua"), trackerScript)
	writeFile(t, filepath.Join(modules, "tracker", "module.yaml"), `
name: tracker
capability: interface
library: tracker.lua
shortcuts: ["track*"]
`)

	out, err := execute(t, "activate", "--modules-dir", modules, "--module", "tracking")
	require.NoError(t, err)
	assert.Contains(t, out, "state: playing")
}

func TestActivateCommand_UnknownModule(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "activate", "--modules-dir", filepath.Join(dir, "none"), "--module", "missing")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, errutil.CodeLoadFailure)
}

func TestActivateCommand_ManagedOpenFails(t *testing.T) {
	dir := isolate(t)
	script := filepath.Join(dir, "refuse.lua")
	writeFile(t, script, `
function vlclr_plugin_open(intf) return -1 end
function vlclr_plugin_close(intf) end
`)

	_, err := execute(t, "activate", "--library", script)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, errutil.CodeManagedOpenFailed)
}

func TestActivateCommand_MissingLibrary(t *testing.T) {
	isolate(t)

	_, err := execute(t, "activate")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, errutil.CodeConfigInvalid)
}
