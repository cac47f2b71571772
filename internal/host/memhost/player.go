// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memhost

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/mfkl/vlclr/internal/host"
)

var _ host.Player = (*Player)(nil)

type listener struct {
	cbs  *host.PlayerCallbacks
	data uintptr
}

// Player is an in-memory host player.
//
// Transport methods expect the caller to hold the player lock; calls made
// without it are counted as violations. Audio methods count calls made while
// the player lock is held.
type Player struct {
	mu   sync.Mutex
	held atomic.Bool

	locks         atomic.Int64
	violations    atomic.Int64
	lockedAudio   atomic.Int64
	rejectListens atomic.Bool

	state     host.PlayerState
	time      host.Tick
	length    host.Tick
	position  float64
	caps      int
	listeners map[host.ListenerID]listener
	order     []host.ListenerID

	audioMu  sync.Mutex
	hasAudio bool
	volume   float32
	muted    bool
}

// NewPlayer creates a stopped player with an audio output at full volume.
func NewPlayer() *Player {
	return &Player{
		time:      host.TickInvalid,
		length:    host.TickInvalid,
		caps:      host.CapSeek | host.CapPause,
		listeners: make(map[host.ListenerID]listener),
		hasAudio:  true,
		volume:    1.0,
	}
}

// Lock implements sync.Locker.
func (p *Player) Lock() {
	p.mu.Lock()
	p.held.Store(true)
	p.locks.Add(1)
}

// Unlock implements sync.Locker.
func (p *Player) Unlock() {
	p.held.Store(false)
	p.mu.Unlock()
}

func (p *Player) requireLock() {
	if !p.held.Load() {
		p.violations.Add(1)
	}
}

// LockCount returns how many times the player lock was taken.
func (p *Player) LockCount() int64 {
	return p.locks.Load()
}

// Violations returns how many lock-requiring calls ran without the lock.
func (p *Player) Violations() int64 {
	return p.violations.Load()
}

// LockedAudioCalls returns how many audio calls ran while the player lock
// was held.
func (p *Player) LockedAudioCalls() int64 {
	return p.lockedAudio.Load()
}

// RejectListeners makes AddListener fail while reject is true.
func (p *Player) RejectListeners(reject bool) {
	p.rejectListens.Store(reject)
}

// RemoveAudio detaches the audio output; audio calls then report failure.
func (p *Player) RemoveAudio() {
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	p.hasAudio = false
}

// AddListener implements host.Player.
func (p *Player) AddListener(cbs *host.PlayerCallbacks, data uintptr) host.ListenerID {
	p.requireLock()
	if cbs == nil || p.rejectListens.Load() {
		return ""
	}
	id := host.ListenerID(ulid.Make().String())
	p.listeners[id] = listener{cbs: cbs, data: data}
	p.order = append(p.order, id)
	return id
}

// RemoveListener implements host.Player.
func (p *Player) RemoveListener(id host.ListenerID) {
	p.requireLock()
	if _, ok := p.listeners[id]; !ok {
		return
	}
	delete(p.listeners, id)
	for i, other := range p.order {
		if other == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Listeners returns the number of registered listeners. It takes the lock.
func (p *Player) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Emit invokes slot on every listener in registration order, with the player
// lock held. The caller must not hold the lock.
func (p *Player) Emit(slot host.PlayerSlot, ev host.PlayerEvent) {
	p.Lock()
	defer p.Unlock()
	p.emitLocked(slot, ev)
}

func (p *Player) emitLocked(slot host.PlayerSlot, ev host.PlayerEvent) {
	for _, id := range p.order {
		l := p.listeners[id]
		if h := l.cbs[slot]; h != nil {
			h(p, ev, l.data)
		}
	}
}

// SetState changes the state and notifies listeners.
func (p *Player) SetState(state host.PlayerState) {
	p.Lock()
	defer p.Unlock()
	p.state = state
	p.emitLocked(host.SlotStateChanged, host.PlayerEvent{State: state})
}

// SetPosition changes the playback position and notifies listeners.
func (p *Player) SetPosition(t host.Tick, pos float64) {
	p.Lock()
	defer p.Unlock()
	p.time = t
	p.position = pos
	p.emitLocked(host.SlotPositionChanged, host.PlayerEvent{Time: t, Position: pos})
}

// SetMedia changes the current media and notifies listeners.
func (p *Player) SetMedia(media host.MediaHandle, length host.Tick) {
	p.Lock()
	defer p.Unlock()
	p.length = length
	p.emitLocked(host.SlotCurrentMediaChanged, host.PlayerEvent{Media: media})
	p.emitLocked(host.SlotLengthChanged, host.PlayerEvent{Time: length})
}

// SetCapabilities replaces the capability bits.
func (p *Player) SetCapabilities(caps int) {
	p.Lock()
	defer p.Unlock()
	old := p.caps
	p.caps = caps
	p.emitLocked(host.SlotCapabilitiesChanged, host.PlayerEvent{Int: int64(caps), Float: float64(old)})
}

// State implements host.Player.
func (p *Player) State() host.PlayerState {
	p.requireLock()
	return p.state
}

// Time implements host.Player.
func (p *Player) Time() host.Tick {
	p.requireLock()
	return p.time
}

// Length implements host.Player.
func (p *Player) Length() host.Tick {
	p.requireLock()
	return p.length
}

// Position implements host.Player.
func (p *Player) Position() float64 {
	p.requireLock()
	return p.position
}

// Capabilities implements host.Player.
func (p *Player) Capabilities() int {
	p.requireLock()
	return p.caps
}

// Pause implements host.Player.
func (p *Player) Pause() {
	p.requireLock()
	if p.state == host.StatePlaying && p.caps&host.CapPause != 0 {
		p.state = host.StatePaused
		p.emitLocked(host.SlotStateChanged, host.PlayerEvent{State: p.state})
	}
}

// Resume implements host.Player.
func (p *Player) Resume() {
	p.requireLock()
	if p.state == host.StatePaused {
		p.state = host.StatePlaying
		p.emitLocked(host.SlotStateChanged, host.PlayerEvent{State: p.state})
	}
}

// SeekByTime implements host.Player.
func (p *Player) SeekByTime(t host.Tick, _ host.SeekSpeed, whence host.SeekWhence) {
	p.requireLock()
	if p.caps&host.CapSeek == 0 {
		return
	}
	if whence == host.SeekRelative && p.time != host.TickInvalid {
		t += p.time
	}
	p.time = max(t, 0)
	if p.length > 0 {
		p.position = float64(p.time) / float64(p.length)
	}
	p.emitLocked(host.SlotPositionChanged, host.PlayerEvent{Time: p.time, Position: p.position})
}

// SeekByPos implements host.Player.
func (p *Player) SeekByPos(pos float64, _ host.SeekSpeed, whence host.SeekWhence) {
	p.requireLock()
	if p.caps&host.CapSeek == 0 {
		return
	}
	if whence == host.SeekRelative {
		pos += p.position
	}
	p.position = min(max(pos, 0), 1)
	if p.length > 0 {
		p.time = host.Tick(p.position * float64(p.length))
	}
	p.emitLocked(host.SlotPositionChanged, host.PlayerEvent{Time: p.time, Position: p.position})
}

func (p *Player) noteAudio() {
	if p.held.Load() {
		p.lockedAudio.Add(1)
	}
}

// AudioVolume implements host.Player. Returns -1 without an audio output.
func (p *Player) AudioVolume() float32 {
	p.noteAudio()
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	if !p.hasAudio {
		return -1
	}
	return p.volume
}

// SetAudioVolume implements host.Player.
func (p *Player) SetAudioVolume(v float32) int {
	p.noteAudio()
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	if !p.hasAudio {
		return statusGeneric
	}
	p.volume = max(v, 0)
	return statusSuccess
}

// AudioMuted implements host.Player. Returns 1 when muted, 0 when not, -1
// without an audio output.
func (p *Player) AudioMuted() int {
	p.noteAudio()
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	if !p.hasAudio {
		return statusGeneric
	}
	if p.muted {
		return 1
	}
	return 0
}

// SetAudioMute implements host.Player.
func (p *Player) SetAudioMute(mute bool) int {
	p.noteAudio()
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	if !p.hasAudio {
		return statusGeneric
	}
	p.muted = mute
	return statusSuccess
}
