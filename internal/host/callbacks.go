// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

// PlayerSlot indexes the player callback table. The order is fixed by the
// host ABI.
type PlayerSlot int

// Player callback slots in host order.
const (
	SlotCurrentMediaChanged PlayerSlot = iota
	SlotStateChanged
	SlotErrorChanged
	SlotBufferingChanged
	SlotRateChanged
	SlotCapabilitiesChanged
	SlotPositionChanged
	SlotLengthChanged
	SlotTrackListChanged
	SlotTrackSelectionChanged
	SlotTrackDelayChanged
	SlotProgramListChanged
	SlotProgramSelectionChanged
	SlotTitlesChanged
	SlotTitleSelectionChanged
	SlotChapterSelectionChanged
	SlotTeletextMenuChanged
	SlotTeletextEnabledChanged
	SlotTeletextPageChanged
	SlotTeletextTransparencyChanged
	SlotCategoryDelayChanged
	SlotAssociatedSubsFpsChanged
	SlotRendererChanged
	SlotRecordingChanged
	SlotSignalChanged
	SlotStatisticsChanged
	SlotAtoBLoopChanged
	SlotMediaMetaChanged
	SlotMediaEpgChanged
	SlotMediaSubitemsChanged
	SlotMediaAttachmentsAdded
	SlotVoutChanged
	SlotCorkChanged
	SlotPlaybackRestoreQueried
	SlotStoppingCurrentMedia

	// NumPlayerSlots is the exact size of the callback table.
	NumPlayerSlots
)

var slotNames = [NumPlayerSlots]string{
	"current_media_changed",
	"state_changed",
	"error_changed",
	"buffering_changed",
	"rate_changed",
	"capabilities_changed",
	"position_changed",
	"length_changed",
	"track_list_changed",
	"track_selection_changed",
	"track_delay_changed",
	"program_list_changed",
	"program_selection_changed",
	"titles_changed",
	"title_selection_changed",
	"chapter_selection_changed",
	"teletext_menu_changed",
	"teletext_enabled_changed",
	"teletext_page_changed",
	"teletext_transparency_changed",
	"category_delay_changed",
	"associated_subs_fps_changed",
	"renderer_changed",
	"recording_changed",
	"signal_changed",
	"statistics_changed",
	"atobloop_changed",
	"media_meta_changed",
	"media_epg_changed",
	"media_subitems_changed",
	"media_attachments_added",
	"vout_changed",
	"cork_changed",
	"playback_restore_queried",
	"stopping_current_media",
}

// String returns the slot's host name.
func (s PlayerSlot) String() string {
	if s < 0 || s >= NumPlayerSlots {
		return "unknown"
	}
	return slotNames[s]
}

// PlayerEvent carries the arguments of a player callback. Which fields are
// set depends on the slot:
//
//   - SlotCurrentMediaChanged: Media
//   - SlotStateChanged: State
//   - SlotPositionChanged: Time, Position
//
// Other slots use Int and Float for their scalar arguments.
type PlayerEvent struct {
	State    PlayerState
	Time     Tick
	Position float64
	Media    MediaHandle
	Int      int64
	Float    float64
}

// PlayerHandler is one callback table entry. data is the value registered
// with AddListener.
type PlayerHandler func(p Player, ev PlayerEvent, data uintptr)

// PlayerCallbacks is the host's fixed-layout player callback table. Nil
// entries are skipped by the host.
type PlayerCallbacks [NumPlayerSlots]PlayerHandler

// Populated returns the slots with a non-nil handler.
func (c *PlayerCallbacks) Populated() []PlayerSlot {
	var slots []PlayerSlot
	for i, h := range c {
		if h != nil {
			slots = append(slots, PlayerSlot(i))
		}
	}
	return slots
}
