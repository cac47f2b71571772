// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import (
	"math"
	"sync"
)

// Tick is a host timestamp in microseconds.
type Tick int64

// TickInvalid is the host's "no time" marker.
const TickInvalid Tick = math.MinInt64

// PlayerState is the host player's transport state.
type PlayerState int32

// Player states in host order.
const (
	StateStopped  PlayerState = 0
	StateStarted  PlayerState = 1
	StatePlaying  PlayerState = 2
	StatePaused   PlayerState = 3
	StateStopping PlayerState = 4
)

// String returns the state name.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Player capability bits.
const (
	CapSeek  = 1 << 0
	CapPause = 1 << 1
)

// SeekSpeed selects precise or fast seeking.
type SeekSpeed int32

// Seek speeds.
const (
	SeekPrecise SeekSpeed = 0
	SeekFast    SeekSpeed = 1
)

// SeekWhence selects absolute or relative seeking.
type SeekWhence int32

// Seek origins.
const (
	SeekAbsolute SeekWhence = 0
	SeekRelative SeekWhence = 1
)

// MediaHandle is an opaque reference to a host media item. Zero is null.
type MediaHandle uintptr

// ListenerID identifies a registered player listener. The empty ID means
// registration failed.
type ListenerID string

// Player is the host player. Methods other than the audio ones require the
// caller to hold the player lock.
type Player interface {
	sync.Locker

	// AddListener registers a callback table. data is handed back verbatim to
	// every callback. Returns "" on failure.
	AddListener(cbs *PlayerCallbacks, data uintptr) ListenerID
	// RemoveListener unregisters a listener. After it returns the host makes
	// no further calls with that listener's data.
	RemoveListener(id ListenerID)

	State() PlayerState
	Time() Tick
	Length() Tick
	Position() float64
	Capabilities() int
	Pause()
	Resume()
	SeekByTime(t Tick, speed SeekSpeed, whence SeekWhence)
	SeekByPos(pos float64, speed SeekSpeed, whence SeekWhence)

	// Audio methods take the audio output's own lock; the player lock must
	// not be held.
	AudioVolume() float32
	SetAudioVolume(v float32) int
	AudioMuted() int
	SetAudioMute(mute bool) int
}

// Playlist is the host playlist. All methods require the caller to hold the
// playlist lock.
type Playlist interface {
	sync.Locker

	Player() Player
	Start() int
	Stop()
	Pause()
	Resume()
	Next() int
	Prev() int
	HasNext() bool
	HasPrev() bool
	Count() int
	CurrentIndex() int64
	GoTo(index int64) int
}
