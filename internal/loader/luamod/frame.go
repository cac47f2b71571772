// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luamod

import (
	lua "github.com/yuin/gopher-lua"
)

const frameTypeName = "vlclr.frame"

// frameData is plane 0 of the frame being filtered. pixels is cleared when
// the filter call returns.
type frameData struct {
	pixels       []byte
	pitch        int32
	visiblePitch int32
	visibleLines int32
	chroma       uint32
}

func registerFrameType(L *lua.LState) {
	mt := L.NewTypeMetatable(frameTypeName)
	L.SetField(mt, "__index", L.NewFunction(frameIndex))
	L.SetField(mt, "__len", L.NewFunction(frameLen))
}

func newFrameUserData(L *lua.LState, f *frameData) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = f
	L.SetMetatable(ud, L.GetTypeMetatable(frameTypeName))
	return ud
}

func checkFrame(L *lua.LState) *frameData {
	ud := L.CheckUserData(1)
	f, ok := ud.Value.(*frameData)
	if !ok {
		L.ArgError(1, "frame expected")
		return nil
	}
	return f
}

var frameMethods = map[string]lua.LGFunction{
	"get": frameGet,
	"set": frameSet,
}

// frameIndex serves fields and methods. Byte offsets are zero-based, in the
// same units as pitch.
func frameIndex(L *lua.LState) int {
	f := checkFrame(L)
	key := L.CheckString(2)
	switch key {
	case "pitch":
		L.Push(lua.LNumber(f.pitch))
	case "visible_pitch":
		L.Push(lua.LNumber(f.visiblePitch))
	case "visible_lines":
		L.Push(lua.LNumber(f.visibleLines))
	case "chroma":
		L.Push(lua.LNumber(f.chroma))
	default:
		if m, ok := frameMethods[key]; ok {
			L.Push(L.NewFunction(m))
		} else {
			L.Push(lua.LNil)
		}
	}
	return 1
}

func frameLen(L *lua.LState) int {
	f := checkFrame(L)
	L.Push(lua.LNumber(len(f.pixels)))
	return 1
}

func frameOffset(L *lua.LState, f *frameData) int {
	off := L.CheckInt(2)
	if f.pixels == nil {
		L.RaiseError("frame is no longer valid")
		return -1
	}
	if off < 0 || off >= len(f.pixels) {
		L.ArgError(2, "offset out of range")
		return -1
	}
	return off
}

func frameGet(L *lua.LState) int {
	f := checkFrame(L)
	off := frameOffset(L, f)
	L.Push(lua.LNumber(f.pixels[off]))
	return 1
}

func frameSet(L *lua.LState) int {
	f := checkFrame(L)
	off := frameOffset(L, f)
	v := L.CheckInt(3)
	f.pixels[off] = byte(min(max(v, 0), 255))
	return 0
}
