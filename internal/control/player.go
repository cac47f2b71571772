// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package control

import (
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// PlayerStatus is a consistent view of the player taken under one lock.
type PlayerStatus struct {
	State    host.PlayerState
	Time     host.Tick
	Length   host.Tick
	Position float64
	CanSeek  bool
	CanPause bool
}

// Status returns the player's transport status. A nil player reports a
// stopped player with invalid times.
func (s *Surface) Status(p host.Player) PlayerStatus {
	if p == nil {
		return PlayerStatus{
			State:    host.StateStopped,
			Time:     host.TickInvalid,
			Length:   host.TickInvalid,
			Position: InvalidPosition,
		}
	}
	return locked(p, func() PlayerStatus {
		caps := p.Capabilities()
		return PlayerStatus{
			State:    p.State(),
			Time:     p.Time(),
			Length:   p.Length(),
			Position: p.Position(),
			CanSeek:  caps&host.CapSeek != 0,
			CanPause: caps&host.CapPause != 0,
		}
	})
}

// State returns the player state, StateStopped for nil.
func (s *Surface) State(p host.Player) host.PlayerState {
	if p == nil {
		return host.StateStopped
	}
	return locked(p, p.State)
}

// Time returns the playback time, TickInvalid for nil.
func (s *Surface) Time(p host.Player) host.Tick {
	if p == nil {
		return host.TickInvalid
	}
	return locked(p, p.Time)
}

// Length returns the media length, TickInvalid for nil.
func (s *Surface) Length(p host.Player) host.Tick {
	if p == nil {
		return host.TickInvalid
	}
	return locked(p, p.Length)
}

// Position returns the playback position in [0, 1], InvalidPosition for nil.
func (s *Surface) Position(p host.Player) float64 {
	if p == nil {
		return InvalidPosition
	}
	return locked(p, p.Position)
}

// CanSeek reports the seek capability, false for nil.
func (s *Surface) CanSeek(p host.Player) bool {
	if p == nil {
		return false
	}
	return locked(p, p.Capabilities)&host.CapSeek != 0
}

// CanPause reports the pause capability, false for nil.
func (s *Surface) CanPause(p host.Player) bool {
	if p == nil {
		return false
	}
	return locked(p, p.Capabilities)&host.CapPause != 0
}

// Pause pauses playback.
func (s *Surface) Pause(p host.Player) error {
	if p == nil {
		return nullHandle("player_pause")
	}
	p.Lock()
	defer p.Unlock()
	p.Pause()
	return nil
}

// Resume resumes playback.
func (s *Surface) Resume(p host.Player) error {
	if p == nil {
		return nullHandle("player_resume")
	}
	p.Lock()
	defer p.Unlock()
	p.Resume()
	return nil
}

// SeekByTime seeks to t.
func (s *Surface) SeekByTime(p host.Player, t host.Tick, speed host.SeekSpeed, whence host.SeekWhence) error {
	if p == nil {
		return nullHandle("player_seek_by_time")
	}
	p.Lock()
	defer p.Unlock()
	p.SeekByTime(t, speed, whence)
	return nil
}

// SeekByPos seeks to position pos.
func (s *Surface) SeekByPos(p host.Player, pos float64, speed host.SeekSpeed, whence host.SeekWhence) error {
	if p == nil {
		return nullHandle("player_seek_by_pos")
	}
	p.Lock()
	defer p.Unlock()
	p.SeekByPos(pos, speed, whence)
	return nil
}

// Volume returns the audio volume, InvalidVolume for nil or when the host
// has no audio output.
func (s *Surface) Volume(p host.Player) float32 {
	if p == nil {
		return InvalidVolume
	}
	return p.AudioVolume()
}

// SetVolume sets the audio volume.
func (s *Surface) SetVolume(p host.Player, v float32) error {
	if p == nil {
		return nullHandle("set_volume")
	}
	if status := p.SetAudioVolume(v); status != errutil.StatusSuccess {
		return s.rejected("set_volume", status)
	}
	return nil
}

// Muted returns 1 when muted, 0 when not and InvalidMute for nil or when the
// host has no audio output.
func (s *Surface) Muted(p host.Player) int {
	if p == nil {
		return InvalidMute
	}
	return p.AudioMuted()
}

// SetMute mutes or unmutes audio.
func (s *Surface) SetMute(p host.Player, mute bool) error {
	if p == nil {
		return nullHandle("set_mute")
	}
	if status := p.SetAudioMute(mute); status != errutil.StatusSuccess {
		return s.rejected("set_mute", status)
	}
	return nil
}

// ToggleMute inverts the mute state.
func (s *Surface) ToggleMute(p host.Player) error {
	if p == nil {
		return nullHandle("toggle_mute")
	}
	muted := p.AudioMuted()
	if muted < 0 {
		return s.rejected("toggle_mute", muted)
	}
	if status := p.SetAudioMute(muted == 0); status != errutil.StatusSuccess {
		return s.rejected("toggle_mute", status)
	}
	return nil
}
