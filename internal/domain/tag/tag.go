// Package tag provides the Tag domain entity.
package tag

import "github.com/bertibox/bertibox/internal/domain/playlist"

// Tag represents a physical RFID token known to the box. A tag owns
// zero or more playlists; the control loop only ever plays the first.
type Tag struct {
	ID        int64  // Database ID
	UID       string // Scan identifier reported by the reader, unique
	Name      string // Display name
	Playlists []playlist.Playlist
}

// DefaultName derives the display name used when a tag is
// auto-provisioned on first scan.
func DefaultName(uid string) string {
	short := uid
	if len(short) > 8 {
		short = short[:8]
	}
	return "New Tag " + short
}
