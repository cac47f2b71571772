// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package control exposes the host's player, audio and playlist operations
// to managed code.
//
// Every operation accepts a nil handle and answers with a documented
// sentinel instead of touching the host. Player operations run under the
// player lock and playlist operations under the playlist lock. Audio
// operations take no lock: the audio output has its own.
package control

import (
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// Sentinel values returned for nil handles.
const (
	InvalidPosition = -1.0
	InvalidVolume   = float32(-1.0)
	InvalidMute     = -1
	InvalidIndex    = int64(-1)
)

// Surface is stateless apart from its logger; one value can serve every
// player and playlist.
type Surface struct {
	logger *slog.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Surface) {
		s.logger = logger
	}
}

// New creates a control surface.
func New(opts ...Option) *Surface {
	s := &Surface{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// locked runs fn with l held.
func locked[T any](l sync.Locker, fn func() T) T {
	l.Lock()
	defer l.Unlock()
	return fn()
}

func (s *Surface) rejected(op string, status int) error {
	s.logger.Debug("host rejected control operation", "operation", op, "status", status)
	return oops.Code(errutil.CodeHostRejected).
		In("control").
		With("operation", op).
		With("status", status).
		Errorf("host rejected %s with status %d", op, status)
}

func nullHandle(op string) error {
	return errutil.Precondition(op, errutil.ErrNullArgument)
}

// Playlist returns the main playlist of an interface object, or nil.
func (s *Surface) Playlist(intf host.Interface) host.Playlist {
	if intf == nil {
		return nil
	}
	return intf.MainPlaylist()
}

// Player returns the player driven by an interface object's main playlist,
// or nil.
func (s *Surface) Player(intf host.Interface) host.Player {
	pl := s.Playlist(intf)
	if pl == nil {
		return nil
	}
	return pl.Player()
}

// ObjectParent returns the parent of obj, or the null handle.
func (s *Surface) ObjectParent(tree host.ObjectTree, obj host.ObjectHandle) host.ObjectHandle {
	if tree == nil || obj.IsNull() {
		return 0
	}
	return tree.Parent(obj)
}

// ObjectTypeName returns the type name of obj, or "".
func (s *Surface) ObjectTypeName(tree host.ObjectTree, obj host.ObjectHandle) string {
	if tree == nil || obj.IsNull() {
		return ""
	}
	return tree.TypeName(obj)
}
