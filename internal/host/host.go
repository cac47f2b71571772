// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package host describes the media-player host the bridge runs inside.
//
// The host is an external collaborator: these types mirror its plugin ABI
// (object handles, the typed-variable store, the player and playlist control
// surfaces, the player callback table, pictures) closely enough that the
// bridge packages can be written and tested against any implementation,
// including the in-memory one in package memhost.
package host

import (
	"github.com/mfkl/vlclr/internal/alloc"
)

// ObjectHandle is an opaque reference to a host object. Zero is null.
type ObjectHandle uintptr

// IsNull reports whether h is the null handle.
func (h ObjectHandle) IsNull() bool {
	return h == 0
}

// VarType is the host's variable type tag.
type VarType uint32

// Variable types understood by the host.
const (
	VarVoid    VarType = 0x0010
	VarBool    VarType = 0x0020
	VarInteger VarType = 0x0030
	VarString  VarType = 0x0040
	VarFloat   VarType = 0x0050
	VarAddress VarType = 0x0070
	VarCoords  VarType = 0x00A0

	// VarTypeMask isolates the type from flag bits.
	VarTypeMask VarType = 0x00FF
)

// String returns the type name.
func (t VarType) String() string {
	switch t & VarTypeMask {
	case VarVoid:
		return "void"
	case VarBool:
		return "bool"
	case VarInteger:
		return "integer"
	case VarString:
		return "string"
	case VarFloat:
		return "float"
	case VarAddress:
		return "address"
	case VarCoords:
		return "coords"
	default:
		return "unknown"
	}
}

// Value is the host's variable value union. Only the field matching the
// variable's type is meaningful.
//
// String buffers returned by GetChecked are allocated in the host's domain.
// String buffers passed to SetChecked are lent for the duration of the call.
type Value struct {
	Int    int64
	Bool   bool
	Float  float32
	String alloc.Buffer
	Addr   uintptr
	X, Y   int32
}

// VariableStore is the host's object-scoped variable store. Every method
// returns a host status: 0 on success, negative on failure.
type VariableStore interface {
	Create(obj ObjectHandle, name string, typ VarType) int
	Destroy(obj ObjectHandle, name string)
	SetChecked(obj ObjectHandle, name string, typ VarType, val Value) int
	GetChecked(obj ObjectHandle, name string, typ VarType, val *Value) int
}

// ObjectTree exposes host object relationships.
type ObjectTree interface {
	// Parent returns the parent object, or the null handle for the root.
	Parent(obj ObjectHandle) ObjectHandle
	// TypeName returns the object's type name, or "" if unknown.
	TypeName(obj ObjectHandle) string
}

// LogType is the host's log message severity.
type LogType int32

// Host log types.
const (
	LogInfo  LogType = 0
	LogError LogType = 1
	LogWarn  LogType = 2
	LogDebug LogType = 3
)

// String returns the log type name.
func (t LogType) String() string {
	switch t {
	case LogInfo:
		return "info"
	case LogError:
		return "error"
	case LogWarn:
		return "warning"
	case LogDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// LogSink is the host's logging side channel.
type LogSink interface {
	Log(obj ObjectHandle, typ LogType, module, msg string)
}

// Interface is a host interface object: the object a bridge interface plugin
// is activated on.
type Interface interface {
	// MainPlaylist returns the main playlist, or nil if none exists.
	MainPlaylist() Playlist
}
