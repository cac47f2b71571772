// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package luamod

import (
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// Script state limits. Frame loops are shallow; deep recursion in a module
// is a bug.
const (
	callStackSize = 256
	registrySize  = 64 * 1024
)

// sandboxLibraries are the only standard libraries a module sees. os, io,
// debug, package and coroutine stay closed.
var sandboxLibraries = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// sandboxRemovedGlobals are base functions that reach the filesystem or
// compile code at runtime.
var sandboxRemovedGlobals = []string{"dofile", "loadfile", "loadstring", "load", "require", "module"}

// newSandbox returns a Lua state holding only the sandbox libraries.
func newSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       callStackSize,
		RegistrySize:        registrySize,
		IncludeGoStackTrace: false,
	})

	for _, lib := range sandboxLibraries {
		err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), Protect: true}, lua.LString(lib.name))
		if err != nil {
			L.Close()
			return nil, oops.In("luamod").With("library", lib.name).Wrapf(err, "failed to open library")
		}
	}
	for _, name := range sandboxRemovedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}
