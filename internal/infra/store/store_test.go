package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bertibox/bertibox/internal/domain/playlist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedPlaylist creates a tag-less playlist with the given tracks and
// returns it with items loaded.
func seedPlaylist(t *testing.T, s *Store, tracks ...string) *playlist.Playlist {
	t.Helper()
	pl, err := s.CreatePlaylist(0, "test playlist")
	require.NoError(t, err)
	if len(tracks) > 0 {
		_, err = s.AddItems(pl.ID, tracks)
		require.NoError(t, err)
	}
	got, err := s.GetPlaylist(pl.ID)
	require.NoError(t, err)
	return got
}

func trackOrder(items []playlist.Item) []string {
	files := make([]string, len(items))
	for i, it := range items {
		files[i] = it.TrackFile
	}
	return files
}

func requireOrdered(t *testing.T, s *Store, playlistID int64) []playlist.Item {
	t.Helper()
	items, err := s.Items(playlistID)
	require.NoError(t, err)
	require.NoError(t, playlist.ValidateOrder(items))
	return items
}

func TestStore_AddItem_AppendsAtEnd(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s)

	first, err := s.AddItem(pl.ID, "a.mp3")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Position)

	second, err := s.AddItem(pl.ID, "b.mp3")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	items := requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, trackOrder(items))
}

func TestStore_AddItem_UnknownPlaylist(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddItem(9999, "a.mp3")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestStore_AddItem_RejectsInvalidPath(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s)

	tests := []struct {
		name  string
		track string
	}{
		{name: "empty", track: ""},
		{name: "absolute", track: "/etc/passwd.mp3"},
		{name: "traversal", track: "../secret.mp3"},
		{name: "hidden traversal", track: "albums/../../secret.mp3"},
		{name: "unsupported extension", track: "notes.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddItem(pl.ID, tt.track)
			assert.ErrorIs(t, err, ErrInvalidTrackPath)
		})
	}

	items := requireOrdered(t, s, pl.ID)
	assert.Empty(t, items)
}

func TestStore_AddItem_NormalizesStoredPath(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s)

	item, err := s.AddItem(pl.ID, `albums\winter\song.mp3`)
	require.NoError(t, err)
	assert.Equal(t, "albums/winter/song.mp3", item.TrackFile)

	item, err = s.AddItem(pl.ID, "./b.mp3")
	require.NoError(t, err)
	assert.Equal(t, "b.mp3", item.TrackFile)
}

func TestStore_AddItems_Batch(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3")

	items, err := s.AddItems(pl.ID, []string{"b.mp3", "c.mp3", "d.mp3"})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 1, items[0].Position)
	assert.Equal(t, 3, items[2].Position)

	all := requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"}, trackOrder(all))
}

func TestStore_AddItems_AtomicOnFailure(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3")

	// The invalid path fails the whole batch; nothing persists.
	_, err := s.AddItems(pl.ID, []string{"b.mp3", "bad.txt", "c.mp3"})
	assert.ErrorIs(t, err, ErrInvalidTrackPath)

	items := requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"a.mp3"}, trackOrder(items))
}

func TestStore_AddItems_Empty(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s)

	items, err := s.AddItems(pl.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_DeleteItem_Resequences(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3", "b.mp3", "c.mp3")

	ok, err := s.DeleteItem(pl.Items[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	items := requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"a.mp3", "c.mp3"}, trackOrder(items))
	assert.Equal(t, 0, items[0].Position)
	assert.Equal(t, 1, items[1].Position)
}

func TestStore_DeleteItem_LastItem(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3")

	ok, err := s.DeleteItem(pl.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	items := requireOrdered(t, s, pl.ID)
	assert.Empty(t, items)
}

func TestStore_DeleteItem_Unknown(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.DeleteItem(9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_MoveItem(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []string
		moveIdx  int // index of the item to move in the seeded order
		target   int
		expected []string
	}{
		{
			name:     "move first later",
			tracks:   []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"},
			moveIdx:  0,
			target:   2,
			expected: []string{"b.mp3", "c.mp3", "a.mp3", "d.mp3"},
		},
		{
			name:     "move last to front",
			tracks:   []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"},
			moveIdx:  3,
			target:   0,
			expected: []string{"d.mp3", "a.mp3", "b.mp3", "c.mp3"},
		},
		{
			name:     "move middle earlier",
			tracks:   []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"},
			moveIdx:  2,
			target:   1,
			expected: []string{"a.mp3", "c.mp3", "b.mp3", "d.mp3"},
		},
		{
			name:     "move to same position",
			tracks:   []string{"a.mp3", "b.mp3", "c.mp3"},
			moveIdx:  1,
			target:   1,
			expected: []string{"a.mp3", "b.mp3", "c.mp3"},
		},
		{
			name:     "single item to itself",
			tracks:   []string{"a.mp3"},
			moveIdx:  0,
			target:   0,
			expected: []string{"a.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			pl := seedPlaylist(t, s, tt.tracks...)

			ok, err := s.MoveItem(pl.Items[tt.moveIdx].ID, tt.target)
			require.NoError(t, err)
			assert.True(t, ok)

			items := requireOrdered(t, s, pl.ID)
			assert.Equal(t, tt.expected, trackOrder(items))
		})
	}
}

func TestStore_MoveItem_OutOfRange(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3", "b.mp3")

	for _, target := range []int{-1, 2, 100} {
		_, err := s.MoveItem(pl.Items[0].ID, target)
		assert.ErrorIs(t, err, ErrPositionOutOfRange)
	}

	// Rejected moves leave the order untouched.
	items := requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, trackOrder(items))
}

func TestStore_MoveItem_Unknown(t *testing.T) {
	s := openTestStore(t)
	seedPlaylist(t, s, "a.mp3")

	ok, err := s.MoveItem(9999, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

// The invariant must hold after any sequence of mutations, not just a
// single one.
func TestStore_MutationSequencePreservesOrder(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3", "b.mp3", "c.mp3")

	_, err := s.AddItem(pl.ID, "d.mp3")
	require.NoError(t, err)

	items := requireOrdered(t, s, pl.ID)
	ok, err := s.MoveItem(items[3].ID, 0)
	require.NoError(t, err)
	require.True(t, ok)

	items = requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"d.mp3", "a.mp3", "b.mp3", "c.mp3"}, trackOrder(items))

	ok, err = s.DeleteItem(items[2].ID)
	require.NoError(t, err)
	require.True(t, ok)

	items = requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"d.mp3", "a.mp3", "c.mp3"}, trackOrder(items))

	_, err = s.AddItems(pl.ID, []string{"e.mp3", "f.mp3"})
	require.NoError(t, err)

	items = requireOrdered(t, s, pl.ID)
	assert.Equal(t, []string{"d.mp3", "a.mp3", "c.mp3", "e.mp3", "f.mp3"}, trackOrder(items))
}

func TestStore_MutationHook(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s)

	var notified []int64
	s.OnMutation(func(playlistID int64) {
		notified = append(notified, playlistID)
	})

	item, err := s.AddItem(pl.ID, "a.mp3")
	require.NoError(t, err)

	_, err = s.AddItems(pl.ID, []string{"b.mp3", "c.mp3"})
	require.NoError(t, err)

	ok, err := s.MoveItem(item.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.DeleteItem(item.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// One notification per committed mutation; the batch counts once.
	assert.Equal(t, []int64{pl.ID, pl.ID, pl.ID, pl.ID}, notified)
}

func TestStore_MutationHook_NotCalledOnFailure(t *testing.T) {
	s := openTestStore(t)
	pl := seedPlaylist(t, s, "a.mp3")

	calls := 0
	s.OnMutation(func(int64) { calls++ })

	_, err := s.AddItem(pl.ID, "bad.txt")
	assert.ErrorIs(t, err, ErrInvalidTrackPath)

	_, err = s.MoveItem(pl.Items[0].ID, 5)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)

	ok, err := s.DeleteItem(9999)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 0, calls)
}

func TestStore_GetPlaylist_Unknown(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetPlaylist(9999)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}
