// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package varproxy gives managed code typed access to the host's
// object-scoped variables.
//
// Strings read from the host are copied into the bridge's allocator domain.
// The host's own copy is never released by the bridge: it was allocated by
// the host's allocator, and releasing it from another domain is unsafe. Each
// successful GetString therefore leaks one host-domain allocation.
package varproxy

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/alloc"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// MarshaledString is a string handed to managed code. Its buffer lives in
// the bridge domain and must be returned with Proxy.FreeString.
type MarshaledString struct {
	buf alloc.Buffer
}

// IsNull reports whether the string is null: the variable holds no string.
func (s MarshaledString) IsNull() bool {
	return s.buf.IsNull()
}

// String returns a Go copy of the contents.
func (s MarshaledString) String() string {
	return s.buf.String()
}

// Bytes returns the contents without the trailing NUL. The slice is invalid
// after FreeString.
func (s MarshaledString) Bytes() []byte {
	return s.buf.Bytes()
}

// Buffer returns the underlying bridge-domain buffer.
func (s MarshaledString) Buffer() alloc.Buffer {
	return s.buf
}

// Proxy forwards variable operations to a host store.
type Proxy struct {
	store  host.VariableStore
	domain *alloc.Domain
	logger *slog.Logger
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithDomain sets the bridge allocator domain.
func WithDomain(d *alloc.Domain) Option {
	return func(p *Proxy) {
		p.domain = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) {
		p.logger = logger
	}
}

// New creates a proxy over store. Without WithDomain the proxy owns a fresh
// bridge domain.
func New(store host.VariableStore, opts ...Option) *Proxy {
	p := &Proxy{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.domain == nil {
		p.domain = alloc.NewDomain("bridge")
	}
	return p
}

// Domain returns the bridge allocator domain.
func (p *Proxy) Domain() *alloc.Domain {
	return p.domain
}

func checkRef(op string, obj host.ObjectHandle, name string) error {
	if obj.IsNull() {
		return errutil.Precondition(op, errutil.ErrNullObject)
	}
	if name == "" {
		return errutil.Precondition(op, errutil.ErrNullName)
	}
	return nil
}

func (p *Proxy) rejected(op, name string, status int) error {
	p.logger.Debug("host rejected variable operation",
		"operation", op,
		"variable", name,
		"status", status)
	return oops.Code(errutil.CodeHostRejected).
		In("varproxy").
		With("operation", op).
		With("variable", name).
		With("status", status).
		Errorf("host rejected %s of %q with status %d", op, name, status)
}

// Create creates a variable of the given type. Creating an existing
// variable succeeds.
func (p *Proxy) Create(obj host.ObjectHandle, name string, typ host.VarType) error {
	if err := checkRef("create", obj, name); err != nil {
		return err
	}
	if status := p.store.Create(obj, name, typ); status != errutil.StatusSuccess {
		return p.rejected("create", name, status)
	}
	return nil
}

// Destroy destroys a variable.
func (p *Proxy) Destroy(obj host.ObjectHandle, name string) error {
	if err := checkRef("destroy", obj, name); err != nil {
		return err
	}
	p.store.Destroy(obj, name)
	return nil
}

// SetInteger sets an integer variable.
func (p *Proxy) SetInteger(obj host.ObjectHandle, name string, v int64) error {
	if err := checkRef("set_integer", obj, name); err != nil {
		return err
	}
	if status := p.store.SetChecked(obj, name, host.VarInteger, host.Value{Int: v}); status != errutil.StatusSuccess {
		return p.rejected("set_integer", name, status)
	}
	return nil
}

// GetInteger reads an integer variable. On failure the value is 0 and only
// the error distinguishes it from a stored zero.
func (p *Proxy) GetInteger(obj host.ObjectHandle, name string) (int64, error) {
	if err := checkRef("get_integer", obj, name); err != nil {
		return 0, err
	}
	var v host.Value
	if status := p.store.GetChecked(obj, name, host.VarInteger, &v); status != errutil.StatusSuccess {
		return 0, p.rejected("get_integer", name, status)
	}
	return v.Int, nil
}

// SetBool sets a boolean variable.
func (p *Proxy) SetBool(obj host.ObjectHandle, name string, v bool) error {
	if err := checkRef("set_bool", obj, name); err != nil {
		return err
	}
	if status := p.store.SetChecked(obj, name, host.VarBool, host.Value{Bool: v}); status != errutil.StatusSuccess {
		return p.rejected("set_bool", name, status)
	}
	return nil
}

// GetBool reads a boolean variable. On failure the value is false.
func (p *Proxy) GetBool(obj host.ObjectHandle, name string) (bool, error) {
	if err := checkRef("get_bool", obj, name); err != nil {
		return false, err
	}
	var v host.Value
	if status := p.store.GetChecked(obj, name, host.VarBool, &v); status != errutil.StatusSuccess {
		return false, p.rejected("get_bool", name, status)
	}
	return v.Bool, nil
}

// SetString sets a string variable. value is lent to the host for the
// duration of the call without copying; the host copies what it keeps.
func (p *Proxy) SetString(obj host.ObjectHandle, name, value string) error {
	if err := checkRef("set_string", obj, name); err != nil {
		return err
	}
	val := host.Value{String: alloc.Borrow(value)}
	if status := p.store.SetChecked(obj, name, host.VarString, val); status != errutil.StatusSuccess {
		return p.rejected("set_string", name, status)
	}
	return nil
}

// GetString reads a string variable into a fresh bridge-domain buffer. The
// result must be released with FreeString. A variable that exists but holds
// no string returns a null MarshaledString and no error.
func (p *Proxy) GetString(obj host.ObjectHandle, name string) (MarshaledString, error) {
	if err := checkRef("get_string", obj, name); err != nil {
		return MarshaledString{}, err
	}
	var v host.Value
	if status := p.store.GetChecked(obj, name, host.VarString, &v); status != errutil.StatusSuccess {
		return MarshaledString{}, p.rejected("get_string", name, status)
	}
	if v.String.IsNull() {
		return MarshaledString{}, nil
	}

	// v.String belongs to the host domain and is deliberately not released.
	buf, err := p.domain.StrDup(v.String.Bytes())
	if err != nil {
		return MarshaledString{}, oops.Code(errutil.CodeHostRejected).
			In("varproxy").
			With("operation", "get_string").
			With("variable", name).
			With("status", errutil.StatusNoMem).
			Wrap(err)
	}
	return MarshaledString{buf: buf}, nil
}

// FreeString releases a string returned by GetString on this proxy. A null
// string is ignored.
//
// Precondition: s came from GetString on a proxy sharing this domain and has
// not been freed. Anything else is a caller error and is not detected.
func (p *Proxy) FreeString(s MarshaledString) {
	p.domain.Free(s.buf)
}
