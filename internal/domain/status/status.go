// Package status provides the player status snapshot broadcast to observers.
package status

import "github.com/bertibox/bertibox/internal/domain/playlist"

// Snapshot captures the complete player state at one transition. It is
// emitted after every state change and carries everything a UI needs to
// render the box without further queries.
type Snapshot struct {
	// Seq is assigned by the broadcaster; observers use it to discard
	// out-of-order deliveries.
	Seq uint64 `json:"seq"`

	TagUID  string `json:"tag_id"`
	TagName string `json:"tag_name"`

	PlaylistID   int64           `json:"playlist_id"`
	Items        []playlist.Item `json:"items"`
	CurrentIndex int             `json:"current_index"`
	CurrentTrack string          `json:"current_track"`

	IsPlaying bool    `json:"is_playing"`
	IsPaused  bool    `json:"is_paused"`
	Volume    float64 `json:"volume"`

	SleepTimerRemainingMinutes int `json:"sleep_timer_remaining_minutes"`
}

// TagPresent reports whether a tag is currently on the box.
func (s *Snapshot) TagPresent() bool {
	return s.TagUID != ""
}
