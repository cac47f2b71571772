// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memhost

import (
	"sync"

	"github.com/mfkl/vlclr/internal/host"
)

var (
	_ host.Playlist  = (*Playlist)(nil)
	_ host.Interface = (*Interface)(nil)
)

// Playlist is an in-memory playlist bound to a Player. The playlist lock is
// the player lock, as in the real host.
type Playlist struct {
	player *Player

	mu      sync.Mutex
	items   []host.MediaHandle
	current int64
}

// NewPlaylist creates an empty playlist driving player.
func NewPlaylist(player *Player) *Playlist {
	return &Playlist{player: player, current: -1}
}

// Append adds media items. It does not require the lock.
func (pl *Playlist) Append(items ...host.MediaHandle) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.items = append(pl.items, items...)
}

// Lock implements sync.Locker.
func (pl *Playlist) Lock() {
	pl.player.Lock()
}

// Unlock implements sync.Locker.
func (pl *Playlist) Unlock() {
	pl.player.Unlock()
}

// Player implements host.Playlist.
func (pl *Playlist) Player() host.Player {
	return pl.player
}

func (pl *Playlist) play(index int64) {
	pl.current = index
	p := pl.player
	p.state = host.StatePlaying
	p.emitLocked(host.SlotCurrentMediaChanged, host.PlayerEvent{Media: pl.items[index]})
	p.emitLocked(host.SlotStateChanged, host.PlayerEvent{State: p.state})
}

// Start implements host.Playlist.
func (pl *Playlist) Start() int {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.items) == 0 {
		return statusGeneric
	}
	pl.play(max(pl.current, 0))
	return statusSuccess
}

// Stop implements host.Playlist.
func (pl *Playlist) Stop() {
	pl.player.requireLock()
	p := pl.player
	if p.state == host.StateStopped {
		return
	}
	p.state = host.StateStopped
	p.emitLocked(host.SlotStateChanged, host.PlayerEvent{State: p.state})
}

// Pause implements host.Playlist.
func (pl *Playlist) Pause() {
	pl.player.Pause()
}

// Resume implements host.Playlist.
func (pl *Playlist) Resume() {
	pl.player.Resume()
}

// Next implements host.Playlist.
func (pl *Playlist) Next() int {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.current+1 >= int64(len(pl.items)) {
		return statusGeneric
	}
	pl.play(pl.current + 1)
	return statusSuccess
}

// Prev implements host.Playlist.
func (pl *Playlist) Prev() int {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.current <= 0 {
		return statusGeneric
	}
	pl.play(pl.current - 1)
	return statusSuccess
}

// HasNext implements host.Playlist.
func (pl *Playlist) HasNext() bool {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.current+1 < int64(len(pl.items))
}

// HasPrev implements host.Playlist.
func (pl *Playlist) HasPrev() bool {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.current > 0
}

// Count implements host.Playlist.
func (pl *Playlist) Count() int {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.items)
}

// CurrentIndex implements host.Playlist. Returns -1 before playback starts.
func (pl *Playlist) CurrentIndex() int64 {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.current
}

// GoTo implements host.Playlist. Index -1 deselects the current item.
func (pl *Playlist) GoTo(index int64) int {
	pl.player.requireLock()
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < -1 || index >= int64(len(pl.items)) {
		return statusGeneric
	}
	if index == -1 {
		pl.current = -1
		return statusSuccess
	}
	pl.current = index
	pl.player.emitLocked(host.SlotCurrentMediaChanged, host.PlayerEvent{Media: pl.items[index]})
	return statusSuccess
}

// Interface is an in-memory interface object.
type Interface struct {
	playlist *Playlist
}

// NewInterface creates an interface object whose main playlist is pl, which
// may be nil.
func NewInterface(pl *Playlist) *Interface {
	return &Interface{playlist: pl}
}

// MainPlaylist implements host.Interface.
func (i *Interface) MainPlaylist() host.Playlist {
	if i.playlist == nil {
		return nil
	}
	return i.playlist
}
