// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package events forwards host player events to managed callbacks.
//
// The host's player callback table has a fixed layout of
// host.NumPlayerSlots entries. Managed code only cares about three of them
// (current media, state, position), so the bridge registers a table with
// exactly those slots populated and translates each call into the narrow
// managed signature.
//
// Every subscription owns a ListenerContext. The context is reachable by the
// host through an opaque key for as long as the subscription is active, and
// is released only after the host has confirmed the unsubscribe.
package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// ManagedCallbacks is the callback set supplied by managed code. Nil
// callbacks are skipped. UserData is passed back verbatim.
type ManagedCallbacks struct {
	OnStateChanged    func(state int32, userData uintptr)
	OnPositionChanged func(time int64, position float64, userData uintptr)
	OnMediaChanged    func(media uintptr, userData uintptr)
	UserData          uintptr
}

// State is the lifecycle state of a subscription.
type State int

// Subscription states. Released is terminal.
const (
	StateUnregistered State = iota
	StateRegistering
	StateActive
	StateUnregistering
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateUnregistering:
		return "unregistering"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ListenerContext holds what the host's callbacks need: a copy of the
// managed callbacks and the callback table registered with the host.
type ListenerContext struct {
	key       uintptr
	callbacks ManagedCallbacks
	table     host.PlayerCallbacks
}

// Table returns the callback table registered with the host.
func (c *ListenerContext) Table() *host.PlayerCallbacks {
	return &c.table
}

// Callbacks returns the managed callback set.
func (c *ListenerContext) Callbacks() ManagedCallbacks {
	return c.callbacks
}

// ListenerHandle is returned by AddListener and consumed by RemoveListener.
type ListenerHandle struct {
	id    host.ListenerID
	ctx   *ListenerContext
	state State
}

// ID returns the host listener ID.
func (h *ListenerHandle) ID() host.ListenerID {
	return h.id
}

// Bridge manages subscriptions. It is safe for concurrent use; the host
// serializes calls on each player with the player lock.
type Bridge struct {
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	contexts map[uintptr]*ListenerContext
	nextKey  uintptr
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics enables subscription metrics.
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New creates a bridge with no subscriptions.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		logger:   slog.Default(),
		contexts: make(map[uintptr]*ListenerContext),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Active returns the number of live listener contexts.
func (b *Bridge) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.contexts)
}

// State returns the handle's lifecycle state.
func (b *Bridge) State(h *ListenerHandle) State {
	if h == nil {
		return StateUnregistered
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return h.state
}

// AddListener subscribes cbs to player events. The player lock is taken for
// the host call only.
func (b *Bridge) AddListener(player host.Player, cbs *ManagedCallbacks) (*ListenerHandle, error) {
	if player == nil || cbs == nil {
		b.metrics.recordRejected("precondition")
		return nil, errutil.Precondition("add_listener", errutil.ErrNullArgument)
	}

	handle := &ListenerHandle{state: StateRegistering}
	ctx := b.newContext(*cbs)
	handle.ctx = ctx

	player.Lock()
	id := player.AddListener(&ctx.table, ctx.key)
	player.Unlock()

	if id == "" {
		b.release(ctx)
		b.metrics.recordRejected("host")
		return nil, oops.Code(errutil.CodeHostRejected).
			In("events").
			With("operation", "add_listener").
			With("status", errutil.StatusGeneric).
			New("host refused listener")
	}

	b.mu.Lock()
	handle.id = id
	handle.state = StateActive
	b.mu.Unlock()

	b.logger.Debug("player listener added", "listener", string(id))
	return handle, nil
}

// RemoveListener unsubscribes handle. The context is released after the
// host call returns, so no callback can observe a released context.
func (b *Bridge) RemoveListener(player host.Player, handle *ListenerHandle) error {
	if player == nil || handle == nil {
		return errutil.Precondition("remove_listener", errutil.ErrNullArgument)
	}

	b.mu.Lock()
	if handle.state != StateActive {
		b.mu.Unlock()
		return errutil.Precondition("remove_listener", errutil.ErrHandleConsumed)
	}
	handle.state = StateUnregistering
	b.mu.Unlock()

	player.Lock()
	player.RemoveListener(handle.id)
	player.Unlock()

	b.release(handle.ctx)

	b.mu.Lock()
	handle.state = StateReleased
	handle.ctx = nil
	b.mu.Unlock()

	b.logger.Debug("player listener removed", "listener", string(handle.id))
	return nil
}

// newContext allocates a context with the three forwarding slots set and
// makes it reachable by key.
func (b *Bridge) newContext(cbs ManagedCallbacks) *ListenerContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextKey++
	ctx := &ListenerContext{key: b.nextKey, callbacks: cbs}
	ctx.table[host.SlotCurrentMediaChanged] = b.onMediaChanged
	ctx.table[host.SlotStateChanged] = b.onStateChanged
	ctx.table[host.SlotPositionChanged] = b.onPositionChanged
	b.contexts[ctx.key] = ctx
	b.metrics.setActive(len(b.contexts))
	return ctx
}

func (b *Bridge) release(ctx *ListenerContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.contexts, ctx.key)
	b.metrics.setActive(len(b.contexts))
}

func (b *Bridge) lookup(key uintptr) *ListenerContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contexts[key]
}

func (b *Bridge) onStateChanged(_ host.Player, ev host.PlayerEvent, key uintptr) {
	ctx := b.lookup(key)
	if ctx == nil || ctx.callbacks.OnStateChanged == nil {
		return
	}
	b.metrics.recordForwarded("state")
	ctx.callbacks.OnStateChanged(int32(ev.State), ctx.callbacks.UserData)
}

func (b *Bridge) onPositionChanged(_ host.Player, ev host.PlayerEvent, key uintptr) {
	ctx := b.lookup(key)
	if ctx == nil || ctx.callbacks.OnPositionChanged == nil {
		return
	}
	b.metrics.recordForwarded("position")
	ctx.callbacks.OnPositionChanged(int64(ev.Time), ev.Position, ctx.callbacks.UserData)
}

func (b *Bridge) onMediaChanged(_ host.Player, ev host.PlayerEvent, key uintptr) {
	ctx := b.lookup(key)
	if ctx == nil || ctx.callbacks.OnMediaChanged == nil {
		return
	}
	b.metrics.recordForwarded("media")
	ctx.callbacks.OnMediaChanged(uintptr(ev.Media), ctx.callbacks.UserData)
}
