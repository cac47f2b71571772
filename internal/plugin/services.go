// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/control"
	"github.com/mfkl/vlclr/internal/events"
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/internal/loader/luamod"
	"github.com/mfkl/vlclr/internal/varproxy"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// Compile-time interface check.
var _ luamod.Services = (*ScriptServices)(nil)

// ScriptServices exposes the bridge to script modules. Object handles from
// scripts are resolved against interfaces registered with Attach.
type ScriptServices struct {
	proxy   *varproxy.Proxy
	surface *control.Surface
	bridge  *events.Bridge
	logger  *slog.Logger

	mu         sync.Mutex
	interfaces map[uintptr]host.Interface
	subs       map[uint64]subscription
	nextID     uint64
}

type subscription struct {
	player host.Player
	handle *events.ListenerHandle
}

// ServicesOption configures ScriptServices.
type ServicesOption func(*ScriptServices)

// WithServicesLogger sets the logger scripts write to through vlc.log.
func WithServicesLogger(logger *slog.Logger) ServicesOption {
	return func(s *ScriptServices) {
		s.logger = logger
	}
}

// NewScriptServices creates script services over the bridge components.
func NewScriptServices(proxy *varproxy.Proxy, surface *control.Surface, bridge *events.Bridge, opts ...ServicesOption) *ScriptServices {
	s := &ScriptServices{
		proxy:      proxy,
		surface:    surface,
		bridge:     bridge,
		logger:     slog.Default(),
		interfaces: make(map[uintptr]host.Interface),
		subs:       make(map[uint64]subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach makes intf reachable from scripts through obj.
func (s *ScriptServices) Attach(obj host.ObjectHandle, intf host.Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interfaces[uintptr(obj)] = intf
}

// Detach forgets obj.
func (s *ScriptServices) Detach(obj host.ObjectHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.interfaces, uintptr(obj))
}

func (s *ScriptServices) lookup(obj uintptr) host.Interface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interfaces[obj]
}

// Log implements luamod.Services.
func (s *ScriptServices) Log(level, msg string) {
	switch strings.ToLower(level) {
	case "debug":
		s.logger.Debug(msg)
	case "warn", "warning":
		s.logger.Warn(msg)
	case "error", "err":
		s.logger.Error(msg)
	default:
		s.logger.Info(msg)
	}
}

func parseVarType(typ string) (host.VarType, error) {
	switch strings.ToLower(typ) {
	case "bool":
		return host.VarBool, nil
	case "integer", "int":
		return host.VarInteger, nil
	case "string":
		return host.VarString, nil
	case "float":
		return host.VarFloat, nil
	default:
		return 0, oops.Code(errutil.CodePrecondition).
			In("plugin").
			With("type", typ).
			Errorf("unsupported variable type %q", typ)
	}
}

// VarCreate implements luamod.Services.
func (s *ScriptServices) VarCreate(obj uintptr, name, typ string) error {
	t, err := parseVarType(typ)
	if err != nil {
		return err
	}
	return s.proxy.Create(host.ObjectHandle(obj), name, t)
}

// VarDestroy implements luamod.Services.
func (s *ScriptServices) VarDestroy(obj uintptr, name string) error {
	return s.proxy.Destroy(host.ObjectHandle(obj), name)
}

// VarGetInteger implements luamod.Services.
func (s *ScriptServices) VarGetInteger(obj uintptr, name string) (int64, error) {
	return s.proxy.GetInteger(host.ObjectHandle(obj), name)
}

// VarSetInteger implements luamod.Services.
func (s *ScriptServices) VarSetInteger(obj uintptr, name string, v int64) error {
	return s.proxy.SetInteger(host.ObjectHandle(obj), name, v)
}

// VarGetString implements luamod.Services. The marshaled string is freed
// once copied into the script.
func (s *ScriptServices) VarGetString(obj uintptr, name string) (string, error) {
	ms, err := s.proxy.GetString(host.ObjectHandle(obj), name)
	if err != nil {
		return "", err
	}
	defer s.proxy.FreeString(ms)
	return ms.String(), nil
}

// VarSetString implements luamod.Services.
func (s *ScriptServices) VarSetString(obj uintptr, name, v string) error {
	return s.proxy.SetString(host.ObjectHandle(obj), name, v)
}

// PlayerState implements luamod.Services.
func (s *ScriptServices) PlayerState(intf uintptr) int32 {
	return int32(s.surface.State(s.surface.Player(s.lookup(intf))))
}

// PlaylistCount implements luamod.Services.
func (s *ScriptServices) PlaylistCount(intf uintptr) int {
	return s.surface.Count(s.surface.Playlist(s.lookup(intf)))
}

// PlaylistNext implements luamod.Services.
func (s *ScriptServices) PlaylistNext(intf uintptr) error {
	return s.surface.Next(s.surface.Playlist(s.lookup(intf)))
}

// Subscribe implements luamod.Services.
func (s *ScriptServices) Subscribe(intf uintptr, cbs luamod.PlayerCallbacks) (uint64, error) {
	player := s.surface.Player(s.lookup(intf))
	if player == nil {
		return 0, errutil.Precondition("subscribe", errutil.ErrNullObject)
	}

	managed := &events.ManagedCallbacks{}
	if cbs.OnState != nil {
		managed.OnStateChanged = func(state int32, _ uintptr) { cbs.OnState(state) }
	}
	if cbs.OnPosition != nil {
		managed.OnPositionChanged = func(t int64, pos float64, _ uintptr) { cbs.OnPosition(t, pos) }
	}
	if cbs.OnMedia != nil {
		managed.OnMediaChanged = func(media uintptr, _ uintptr) { cbs.OnMedia(media) }
	}

	handle, err := s.bridge.AddListener(player, managed)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.subs[s.nextID] = subscription{player: player, handle: handle}
	return s.nextID, nil
}

// Unsubscribe implements luamod.Services.
func (s *ScriptServices) Unsubscribe(id uint64) error {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if !ok {
		return errutil.Precondition("unsubscribe", errutil.ErrHandleConsumed)
	}
	return s.bridge.RemoveListener(sub.player, sub.handle)
}

// Subscriptions returns the number of live subscriptions.
func (s *ScriptServices) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close removes every subscription the script left behind, oldest first.
func (s *ScriptServices) Close() error {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var errs []error
	for _, id := range ids {
		if err := s.Unsubscribe(id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(ids) > 0 {
		s.logger.Debug("removed leftover subscriptions", "count", len(ids))
	}
	return errors.Join(errs...)
}
