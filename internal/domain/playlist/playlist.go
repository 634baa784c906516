// Package playlist provides the Playlist and Item domain entities.
package playlist

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrOrderViolation indicates that a set of items does not satisfy the
// contiguous zero-based position ordering.
var ErrOrderViolation = errors.New("playlist item positions are not contiguous")

// Playlist represents an ordered list of track references. A playlist
// belongs to at most one tag; orphaned playlists are legal but never
// reachable by the control loop.
type Playlist struct {
	ID    int64  // Database ID
	TagID int64  // Owning tag's database ID, 0 when orphaned
	Name  string // Playlist name
	Items []Item // Items sorted by position
}

// Item represents a single track reference within a playlist.
type Item struct {
	ID         int64  // Database ID
	PlaylistID int64  // Owning playlist's database ID
	TrackFile  string // Track path relative to the media directory
	Position   int    // Zero-based playback position
}

// TrackFiles returns the track paths of all items in item order.
func (p *Playlist) TrackFiles() []string {
	files := make([]string, len(p.Items))
	for i, it := range p.Items {
		files[i] = it.TrackFile
	}
	return files
}

// ValidateOrder checks that the items carry positions exactly {0..n-1}
// and are sorted by position. The store guarantees this after every
// mutation; callers receiving items across a boundary may re-check.
func ValidateOrder(items []Item) error {
	if !sort.SliceIsSorted(items, func(i, j int) bool { return items[i].Position < items[j].Position }) {
		return errors.Wrap(ErrOrderViolation, "items not sorted by position")
	}
	for i, it := range items {
		if it.Position != i {
			return errors.Wrapf(ErrOrderViolation, "item %d has position %d, want %d", it.ID, it.Position, i)
		}
	}
	return nil
}
