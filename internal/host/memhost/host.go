// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memhost is an in-memory host used by tests and the harness CLI.
//
// It implements the host interfaces with the same observable behavior as the
// real player where the bridge depends on it: variables are scoped per
// object, string values are duplicated into the host's allocator domain on
// every read, player callbacks are invoked with the player lock held, and
// audio calls never take the player lock.
package memhost

import (
	"log/slog"
	"sync"

	"github.com/mfkl/vlclr/internal/alloc"
	"github.com/mfkl/vlclr/internal/host"
)

// Host status codes returned by the variable store.
const (
	statusSuccess = 0
	statusGeneric = -1
	statusNoMem   = -2
)

// Compile-time interface checks.
var (
	_ host.VariableStore   = (*Host)(nil)
	_ host.ObjectTree      = (*Host)(nil)
	_ host.LogSink         = (*Host)(nil)
	_ host.ChromaDescriber = (*Host)(nil)
)

// Host holds the variable store, object tree, log records and chroma table.
type Host struct {
	domain  *alloc.Domain
	logger  *slog.Logger
	maxVars int

	mu      sync.Mutex
	vars    map[varKey]*variable
	objects map[host.ObjectHandle]object
	next    host.ObjectHandle
	records []LogRecord
	chromas map[host.FourCC]host.ChromaDescription
}

type varKey struct {
	obj  host.ObjectHandle
	name string
}

type variable struct {
	typ   host.VarType
	val   host.Value
	str   []byte
	isSet bool
}

type object struct {
	parent   host.ObjectHandle
	typeName string
}

// LogRecord is one message received through Log.
type LogRecord struct {
	Object  host.ObjectHandle
	Type    host.LogType
	Module  string
	Message string
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger used for host-side tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMaxVariables caps the number of live variables. Create returns an
// out-of-memory status once the cap is reached. Zero means unlimited.
func WithMaxVariables(n int) Option {
	return func(h *Host) {
		h.maxVars = n
	}
}

// New creates an empty host with its own allocator domain and the common
// chromas registered.
func New(opts ...Option) *Host {
	h := &Host{
		domain:  alloc.NewDomain("host"),
		logger:  slog.Default(),
		vars:    make(map[varKey]*variable),
		objects: make(map[host.ObjectHandle]object),
		next:    0x1000,
		chromas: map[host.FourCC]host.ChromaDescription{
			host.ChromaI420: {PlaneCount: 3, PixelSize: 1, PixelBits: 12},
			host.ChromaRGBA: {PlaneCount: 1, PixelSize: 4, PixelBits: 32},
			host.ChromaRV32: {PlaneCount: 1, PixelSize: 4, PixelBits: 32},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Domain returns the host's allocator domain. Strings returned by GetChecked
// are allocated here.
func (h *Host) Domain() *alloc.Domain {
	return h.domain
}

// NewObject creates an object with the given parent and type name.
func (h *Host) NewObject(parent host.ObjectHandle, typeName string) host.ObjectHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next += 0x10
	h.objects[h.next] = object{parent: parent, typeName: typeName}
	return h.next
}

// Parent implements host.ObjectTree.
func (h *Host) Parent(obj host.ObjectHandle) host.ObjectHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects[obj].parent
}

// TypeName implements host.ObjectTree.
func (h *Host) TypeName(obj host.ObjectHandle) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects[obj].typeName
}

// Create implements host.VariableStore. Creating an existing variable
// succeeds and leaves its value alone.
func (h *Host) Create(obj host.ObjectHandle, name string, typ host.VarType) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := varKey{obj: obj, name: name}
	if _, ok := h.vars[key]; ok {
		return statusSuccess
	}
	if h.maxVars > 0 && len(h.vars) >= h.maxVars {
		h.logger.Debug("variable slots exhausted", "name", name)
		return statusNoMem
	}
	h.vars[key] = &variable{typ: typ & host.VarTypeMask}
	h.logger.Debug("variable created", "name", name, "type", typ.String())
	return statusSuccess
}

// Destroy implements host.VariableStore.
func (h *Host) Destroy(obj host.ObjectHandle, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.vars, varKey{obj: obj, name: name})
	h.logger.Debug("variable destroyed", "name", name)
}

// SetChecked implements host.VariableStore. String values are copied; the
// caller's buffer is not retained.
func (h *Host) SetChecked(obj host.ObjectHandle, name string, typ host.VarType, val host.Value) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.vars[varKey{obj: obj, name: name}]
	if !ok {
		h.logger.Debug("set on unknown variable", "name", name)
		return statusGeneric
	}

	if typ&host.VarTypeMask == host.VarString {
		if val.String.IsNull() {
			v.str = nil
		} else {
			v.str = append([]byte{}, val.String.Bytes()...)
		}
	} else {
		v.val = val
		v.val.String = alloc.Buffer{}
	}
	v.isSet = true
	return statusSuccess
}

// GetChecked implements host.VariableStore. A string value is duplicated
// into the host domain on every call; the caller owns the duplicate. An
// unknown variable reports failure and zeroes the requested field.
func (h *Host) GetChecked(obj host.ObjectHandle, name string, typ host.VarType, val *host.Value) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.vars[varKey{obj: obj, name: name}]
	if !ok {
		h.logger.Debug("get on unknown variable", "name", name)
		*val = host.Value{}
		return statusGeneric
	}

	if typ&host.VarTypeMask != host.VarString {
		*val = v.val
		return statusSuccess
	}

	*val = host.Value{}
	if v.str == nil {
		return statusSuccess
	}
	buf, err := h.domain.StrDup(v.str)
	if err != nil {
		h.logger.Debug("string duplicate failed", "name", name, "error", err)
		return statusNoMem
	}
	val.String = buf
	return statusSuccess
}

// Variables returns the number of live variables.
func (h *Host) Variables() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.vars)
}

// Log implements host.LogSink.
func (h *Host) Log(obj host.ObjectHandle, typ host.LogType, module, msg string) {
	h.mu.Lock()
	h.records = append(h.records, LogRecord{Object: obj, Type: typ, Module: module, Message: msg})
	h.mu.Unlock()
	h.logger.Debug(msg, "host_module", module, "host_log_type", typ.String())
}

// Records returns a copy of every message received through Log.
func (h *Host) Records() []LogRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]LogRecord(nil), h.records...)
}

// RegisterChroma adds or replaces a chroma description.
func (h *Host) RegisterChroma(chroma host.FourCC, desc host.ChromaDescription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chromas[chroma] = desc
}

// DescribeChroma implements host.ChromaDescriber.
func (h *Host) DescribeChroma(chroma host.FourCC) (host.ChromaDescription, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	desc, ok := h.chromas[chroma]
	return desc, ok
}
