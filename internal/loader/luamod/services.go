// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luamod

import (
	lua "github.com/yuin/gopher-lua"
)

// PlayerCallbacks receives player events for a script subscription.
type PlayerCallbacks struct {
	OnState    func(state int32)
	OnPosition func(time int64, position float64)
	OnMedia    func(media uintptr)
}

// Services is the bridge surface a script reaches through the global vlc
// table. Object arguments are the raw handles the script received in open.
type Services interface {
	Log(level, msg string)

	VarCreate(obj uintptr, name, typ string) error
	VarDestroy(obj uintptr, name string) error
	VarGetInteger(obj uintptr, name string) (int64, error)
	VarSetInteger(obj uintptr, name string, v int64) error
	VarGetString(obj uintptr, name string) (string, error)
	VarSetString(obj uintptr, name, v string) error

	PlayerState(intf uintptr) int32
	PlaylistCount(intf uintptr) int
	PlaylistNext(intf uintptr) error

	Subscribe(intf uintptr, cbs PlayerCallbacks) (uint64, error)
	Unsubscribe(id uint64) error
}

// register installs the vlc table on L.
func (l *library) register(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "log", L.NewFunction(l.logFn))
	L.SetField(mod, "var_create", L.NewFunction(l.varCreateFn))
	L.SetField(mod, "var_destroy", L.NewFunction(l.varDestroyFn))
	L.SetField(mod, "var_get_integer", L.NewFunction(l.varGetIntegerFn))
	L.SetField(mod, "var_set_integer", L.NewFunction(l.varSetIntegerFn))
	L.SetField(mod, "var_get_string", L.NewFunction(l.varGetStringFn))
	L.SetField(mod, "var_set_string", L.NewFunction(l.varSetStringFn))
	L.SetField(mod, "player_state", L.NewFunction(l.playerStateFn))
	L.SetField(mod, "playlist_count", L.NewFunction(l.playlistCountFn))
	L.SetField(mod, "playlist_next", L.NewFunction(l.playlistNextFn))
	L.SetField(mod, "subscribe", L.NewFunction(l.subscribeFn))
	L.SetField(mod, "unsubscribe", L.NewFunction(l.unsubscribeFn))

	L.SetGlobal("vlc", mod)
}

func checkHandle(L *lua.LState, n int) uintptr {
	return uintptr(L.CheckInt64(n))
}

// pushResult pushes (value, nil) or (nil, message).
func pushResult(L *lua.LState, v lua.LValue, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(v)
	L.Push(lua.LNil)
	return 2
}

// pushStatus pushes true, or (false, message).
func pushStatus(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (l *library) logFn(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)
	l.services.Log(level, msg)
	return 0
}

func (l *library) varCreateFn(L *lua.LState) int {
	return pushStatus(L, l.services.VarCreate(checkHandle(L, 1), L.CheckString(2), L.OptString(3, "integer")))
}

func (l *library) varDestroyFn(L *lua.LState) int {
	return pushStatus(L, l.services.VarDestroy(checkHandle(L, 1), L.CheckString(2)))
}

func (l *library) varGetIntegerFn(L *lua.LState) int {
	v, err := l.services.VarGetInteger(checkHandle(L, 1), L.CheckString(2))
	return pushResult(L, lua.LNumber(v), err)
}

func (l *library) varSetIntegerFn(L *lua.LState) int {
	return pushStatus(L, l.services.VarSetInteger(checkHandle(L, 1), L.CheckString(2), L.CheckInt64(3)))
}

func (l *library) varGetStringFn(L *lua.LState) int {
	v, err := l.services.VarGetString(checkHandle(L, 1), L.CheckString(2))
	return pushResult(L, lua.LString(v), err)
}

func (l *library) varSetStringFn(L *lua.LState) int {
	return pushStatus(L, l.services.VarSetString(checkHandle(L, 1), L.CheckString(2), L.CheckString(3)))
}

func (l *library) playerStateFn(L *lua.LState) int {
	L.Push(lua.LNumber(l.services.PlayerState(checkHandle(L, 1))))
	return 1
}

func (l *library) playlistCountFn(L *lua.LState) int {
	L.Push(lua.LNumber(l.services.PlaylistCount(checkHandle(L, 1))))
	return 1
}

func (l *library) playlistNextFn(L *lua.LState) int {
	return pushStatus(L, l.services.PlaylistNext(checkHandle(L, 1)))
}

// subscribeFn implements vlc.subscribe(intf, {on_state=, on_position=,
// on_media=}). Handlers run on the module's state through dispatch.
func (l *library) subscribeFn(L *lua.LState) int {
	intf := checkHandle(L, 1)
	tbl := L.CheckTable(2)

	var cbs PlayerCallbacks
	if fn, ok := tbl.RawGetString("on_state").(*lua.LFunction); ok {
		cbs.OnState = func(state int32) {
			l.dispatch("on_state", fn, lua.LNumber(state))
		}
	}
	if fn, ok := tbl.RawGetString("on_position").(*lua.LFunction); ok {
		cbs.OnPosition = func(t int64, pos float64) {
			l.dispatch("on_position", fn, lua.LNumber(t), lua.LNumber(pos))
		}
	}
	if fn, ok := tbl.RawGetString("on_media").(*lua.LFunction); ok {
		cbs.OnMedia = func(media uintptr) {
			l.dispatch("on_media", fn, lua.LNumber(media))
		}
	}

	id, err := l.services.Subscribe(intf, cbs)
	return pushResult(L, lua.LNumber(id), err)
}

func (l *library) unsubscribeFn(L *lua.LState) int {
	return pushStatus(L, l.services.Unsubscribe(uint64(L.CheckInt64(1))))
}
