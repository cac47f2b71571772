// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package control

import (
	"github.com/mfkl/vlclr/internal/host"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// playlistStatus runs a status-returning playlist operation under the
// playlist lock.
func (s *Surface) playlistStatus(op string, pl host.Playlist, fn func() int) error {
	if status := locked(pl, fn); status != errutil.StatusSuccess {
		return s.rejected(op, status)
	}
	return nil
}

// playlistDo runs a playlist operation with no result under the lock.
func playlistDo(pl host.Playlist, fn func()) error {
	pl.Lock()
	defer pl.Unlock()
	fn()
	return nil
}

// Start starts playback of the current item.
func (s *Surface) Start(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_start")
	}
	return s.playlistStatus("playlist_start", pl, pl.Start)
}

// Stop stops playback.
func (s *Surface) Stop(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_stop")
	}
	return playlistDo(pl, pl.Stop)
}

// PausePlaylist pauses playback through the playlist.
func (s *Surface) PausePlaylist(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_pause")
	}
	return playlistDo(pl, pl.Pause)
}

// ResumePlaylist resumes playback through the playlist.
func (s *Surface) ResumePlaylist(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_resume")
	}
	return playlistDo(pl, pl.Resume)
}

// Next moves to the next item.
func (s *Surface) Next(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_next")
	}
	return s.playlistStatus("playlist_next", pl, pl.Next)
}

// Prev moves to the previous item.
func (s *Surface) Prev(pl host.Playlist) error {
	if pl == nil {
		return nullHandle("playlist_prev")
	}
	return s.playlistStatus("playlist_prev", pl, pl.Prev)
}

// GoTo moves to index. -1 deselects the current item.
func (s *Surface) GoTo(pl host.Playlist, index int64) error {
	if pl == nil {
		return nullHandle("playlist_goto")
	}
	return s.playlistStatus("playlist_goto", pl, func() int { return pl.GoTo(index) })
}

// HasNext reports whether there is a next item, false for nil.
func (s *Surface) HasNext(pl host.Playlist) bool {
	if pl == nil {
		return false
	}
	return locked(pl, pl.HasNext)
}

// HasPrev reports whether there is a previous item, false for nil.
func (s *Surface) HasPrev(pl host.Playlist) bool {
	if pl == nil {
		return false
	}
	return locked(pl, pl.HasPrev)
}

// Count returns the number of items, 0 for nil.
func (s *Surface) Count(pl host.Playlist) int {
	if pl == nil {
		return 0
	}
	return locked(pl, pl.Count)
}

// CurrentIndex returns the current item index, InvalidIndex for nil or when
// nothing is selected.
func (s *Surface) CurrentIndex(pl host.Playlist) int64 {
	if pl == nil {
		return InvalidIndex
	}
	return locked(pl, pl.CurrentIndex)
}
