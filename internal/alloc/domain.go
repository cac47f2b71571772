// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package alloc models allocator domains: memory spaces with their own
// allocate/release pair. A buffer must only ever be released by the domain
// that allocated it.
//
// The host's variable store allocates in one domain and the bridge (and the
// managed module it returns buffers to) in another. Moving a value between
// them is always a copy; releasing across domains is never attempted.
package alloc

import (
	"sync"
	"unsafe"

	"github.com/samber/oops"
)

// DefaultLimit caps the bytes a domain may have live at once.
const DefaultLimit = 64 * 1024 * 1024 // 64 MB

// Domain is an allocator domain. Allocations are tracked so the backing
// memory stays reachable (and at a fixed address) until Free is called.
//
// Domain is safe for concurrent use.
type Domain struct {
	name  string
	limit int

	mu    sync.Mutex
	live  map[*byte][]byte
	bytes int
	total int
}

// Option configures a Domain.
type Option func(*Domain)

// WithLimit sets the maximum number of live bytes.
func WithLimit(n int) Option {
	return func(d *Domain) {
		d.limit = n
	}
}

// NewDomain creates an empty allocator domain.
func NewDomain(name string, opts ...Option) *Domain {
	d := &Domain{
		name:  name,
		limit: DefaultLimit,
		live:  make(map[*byte][]byte),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the domain name.
func (d *Domain) Name() string {
	return d.name
}

// Alloc reserves n bytes, zeroed. A zero-size request still allocates one
// byte so the returned buffer has a distinct address.
func (d *Domain) Alloc(n int) (Buffer, error) {
	if n < 0 {
		return Buffer{}, oops.In("alloc").With("domain", d.name).Errorf("negative allocation size %d", n)
	}
	size := max(n, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bytes+size > d.limit {
		return Buffer{}, oops.In("alloc").
			With("domain", d.name).
			With("requested", size).
			With("live_bytes", d.bytes).
			With("limit", d.limit).
			Errorf("allocation limit exceeded")
	}

	backing := make([]byte, size)
	d.live[&backing[0]] = backing
	d.bytes += size
	d.total++

	return Buffer{data: backing[:n], base: &backing[0], owner: d}, nil
}

// StrDup allocates len(s)+1 bytes, copies s and a trailing NUL, and returns
// a buffer whose Bytes are s.
func (d *Domain) StrDup(s []byte) (Buffer, error) {
	buf, err := d.Alloc(len(s) + 1)
	if err != nil {
		return Buffer{}, err
	}
	copy(buf.data, s)
	buf.data = buf.data[:len(s)]
	return buf, nil
}

// Free releases a buffer previously returned by Alloc or StrDup on this
// domain.
//
// Precondition: b was allocated by d and has not been freed. Passing a buffer
// from another domain, a borrowed buffer, or freeing twice is a caller error;
// it is not detected.
func (d *Domain) Free(b Buffer) {
	if b.base == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	backing, ok := d.live[b.base]
	if !ok {
		return
	}
	delete(d.live, b.base)
	d.bytes -= len(backing)
}

// Live returns the number of allocations not yet freed.
func (d *Domain) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveBytes returns the number of bytes not yet freed.
func (d *Domain) LiveBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// Allocations returns the number of allocations ever made.
func (d *Domain) Allocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// Owns reports whether b is a live allocation of d.
func (d *Domain) Owns(b Buffer) bool {
	if b.base == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[b.base]
	return ok
}

// Buffer is a view of memory in some domain, or a borrowed view of caller
// memory that belongs to no domain.
type Buffer struct {
	data  []byte
	base  *byte
	owner *Domain
}

// Borrow wraps s without copying. The result belongs to no domain and must
// not be freed; it is only valid while s is.
func Borrow(s string) Buffer {
	if s == "" {
		return Buffer{data: []byte{}}
	}
	return Buffer{data: unsafe.Slice(unsafe.StringData(s), len(s))}
}

// IsNull reports whether the buffer is the null buffer.
func (b Buffer) IsNull() bool {
	return b.data == nil
}

// Bytes returns the buffer contents. Callers must not retain the slice past
// Free.
func (b Buffer) Bytes() []byte {
	return b.data
}

// String returns a Go copy of the contents.
func (b Buffer) String() string {
	return string(b.data)
}

// Len returns the content length.
func (b Buffer) Len() int {
	return len(b.data)
}

// Owner returns the allocating domain, or nil for borrowed and null buffers.
func (b Buffer) Owner() *Domain {
	return b.owner
}

// Pointer returns the address of the first byte, or nil for a null buffer.
func (b Buffer) Pointer() unsafe.Pointer {
	if b.base != nil {
		return unsafe.Pointer(b.base)
	}
	if len(b.data) > 0 {
		return unsafe.Pointer(&b.data[0])
	}
	return nil
}
