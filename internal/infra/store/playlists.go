package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/bertibox/bertibox/internal/domain/playlist"
)

// CreatePlaylist creates a playlist owned by the given tag. A tagID of 0
// creates an orphan playlist.
func (s *Store) CreatePlaylist(tagID int64, name string) (*playlist.Playlist, error) {
	var res sql.Result
	var err error
	if tagID == 0 {
		res, err = s.db.Exec(`INSERT INTO playlists (tag_id, name) VALUES (NULL, ?)`, name)
	} else {
		res, err = s.db.Exec(`INSERT INTO playlists (tag_id, name) VALUES (?, ?)`, tagID, name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert playlist")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist id")
	}

	return &playlist.Playlist{ID: id, TagID: tagID, Name: name, Items: []playlist.Item{}}, nil
}

// GetPlaylist returns a playlist with its items ordered by position.
func (s *Store) GetPlaylist(playlistID int64) (*playlist.Playlist, error) {
	var p playlist.Playlist
	var tagID sql.NullInt64
	err := s.db.QueryRow(`SELECT id, tag_id, name FROM playlists WHERE id = ?`, playlistID).
		Scan(&p.ID, &tagID, &p.Name)
	if err == sql.ErrNoRows {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist")
	}
	p.TagID = tagID.Int64

	items, err := s.Items(p.ID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

// PlaylistForTag resolves the playlist the control loop plays for a tag
// uid: the tag's first playlist. Returns ErrTagNotFound for unknown uids
// and ErrPlaylistNotFound for tags without a playlist.
func (s *Store) PlaylistForTag(uid string) (*playlist.Playlist, error) {
	var tagID int64
	err := s.db.QueryRow(`SELECT id FROM tags WHERE uid = ?`, uid).Scan(&tagID)
	if err == sql.ErrNoRows {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tag")
	}

	var playlistID int64
	err = s.db.QueryRow(`SELECT id FROM playlists WHERE tag_id = ? ORDER BY id LIMIT 1`, tagID).Scan(&playlistID)
	if err == sql.ErrNoRows {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist for tag")
	}

	return s.GetPlaylist(playlistID)
}

// Items returns the items of a playlist ordered by position.
func (s *Store) Items(playlistID int64) ([]playlist.Item, error) {
	rows, err := s.db.Query(
		`SELECT id, playlist_id, track_file, position
		   FROM playlist_items WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist items")
	}
	defer rows.Close()

	items := []playlist.Item{}
	for rows.Next() {
		var it playlist.Item
		if err := rows.Scan(&it.ID, &it.PlaylistID, &it.TrackFile, &it.Position); err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist item")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return items, nil
}

// AddItem appends a track to the end of a playlist. The new item gets
// position = current item count, keeping positions contiguous.
func (s *Store) AddItem(playlistID int64, trackFile string) (*playlist.Item, error) {
	trackFile, err := NormalizeTrackPath(trackFile)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	item, err := addItemTx(tx, playlistID, trackFile)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit append")
	}

	s.notifyMutation(playlistID)
	return item, nil
}

// AddItems appends multiple tracks in input order, assigning sequential
// positions from the current count. The batch commits atomically: on any
// failure no item persists.
func (s *Store) AddItems(playlistID int64, trackFiles []string) ([]playlist.Item, error) {
	if len(trackFiles) == 0 {
		return []playlist.Item{}, nil
	}
	normalized := make([]string, len(trackFiles))
	for i, f := range trackFiles {
		nf, err := NormalizeTrackPath(f)
		if err != nil {
			return nil, err
		}
		normalized[i] = nf
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	items := make([]playlist.Item, 0, len(normalized))
	for _, f := range normalized {
		item, err := addItemTx(tx, playlistID, f)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit batch append")
	}

	s.notifyMutation(playlistID)
	return items, nil
}

func addItemTx(tx *sql.Tx, playlistID int64, trackFile string) (*playlist.Item, error) {
	var exists int
	err := tx.QueryRow(`SELECT 1 FROM playlists WHERE id = ?`, playlistID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to check playlist")
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM playlist_items WHERE playlist_id = ?`, playlistID).Scan(&count); err != nil {
		return nil, errors.Wrap(err, "failed to count playlist items")
	}

	res, err := tx.Exec(
		`INSERT INTO playlist_items (playlist_id, track_file, position) VALUES (?, ?, ?)`,
		playlistID, trackFile, count)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert playlist item")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read item id")
	}

	return &playlist.Item{ID: id, PlaylistID: playlistID, TrackFile: trackFile, Position: count}, nil
}

// DeleteItem removes an item and resequences the remaining items of the
// playlist to rank order, restoring the position invariant in the same
// transaction. Returns false when the item does not exist.
func (s *Store) DeleteItem(itemID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var playlistID int64
	var position int
	err = tx.QueryRow(`SELECT playlist_id, position FROM playlist_items WHERE id = ?`, itemID).
		Scan(&playlistID, &position)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to query item")
	}

	if _, err := tx.Exec(`DELETE FROM playlist_items WHERE id = ?`, itemID); err != nil {
		return false, errors.Wrap(err, "failed to delete item")
	}

	// Resequence by rank rather than shifting: heals any preexisting gap.
	rows, err := tx.Query(
		`SELECT id, position FROM playlist_items WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return false, errors.Wrap(err, "failed to query remaining items")
	}

	type rank struct {
		id       int64
		position int
	}
	var remaining []rank
	for rows.Next() {
		var r rank
		if err := rows.Scan(&r.id, &r.position); err != nil {
			rows.Close()
			return false, errors.Wrap(err, "failed to scan remaining item")
		}
		remaining = append(remaining, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return false, errors.Wrap(err, "row iteration error")
	}
	rows.Close()

	for index, r := range remaining {
		if r.position == index {
			continue
		}
		zlog.Debug().Msgf("store: resequencing item %d from position %d to %d", r.id, r.position, index)
		if _, err := tx.Exec(`UPDATE playlist_items SET position = ? WHERE id = ?`, index, r.id); err != nil {
			return false, errors.Wrap(err, "failed to resequence item")
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit delete")
	}

	s.notifyMutation(playlistID)
	return true, nil
}

// MoveItem relocates an item to targetPosition, shifting only the items
// between the old and new slot so every other item keeps its relative
// order. Out-of-range targets are rejected with ErrPositionOutOfRange.
// Returns false when the item does not exist.
func (s *Store) MoveItem(itemID int64, targetPosition int) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var playlistID int64
	var oldPosition int
	err = tx.QueryRow(`SELECT playlist_id, position FROM playlist_items WHERE id = ?`, itemID).
		Scan(&playlistID, &oldPosition)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to query item")
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM playlist_items WHERE playlist_id = ?`, playlistID).Scan(&count); err != nil {
		return false, errors.Wrap(err, "failed to count playlist items")
	}
	if targetPosition < 0 || targetPosition >= count {
		return false, errors.Wrapf(ErrPositionOutOfRange, "target %d, playlist has %d items", targetPosition, count)
	}

	if targetPosition == oldPosition {
		s.notifyMutation(playlistID)
		return true, nil
	}

	if targetPosition > oldPosition {
		// Moving later: everything in (old, target] slides one slot up.
		_, err = tx.Exec(
			`UPDATE playlist_items SET position = position - 1
			  WHERE playlist_id = ? AND position > ? AND position <= ?`,
			playlistID, oldPosition, targetPosition)
	} else {
		// Moving earlier: everything in [target, old) slides one slot down.
		_, err = tx.Exec(
			`UPDATE playlist_items SET position = position + 1
			  WHERE playlist_id = ? AND position >= ? AND position < ?`,
			playlistID, targetPosition, oldPosition)
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to shift items")
	}

	if _, err := tx.Exec(`UPDATE playlist_items SET position = ? WHERE id = ?`, targetPosition, itemID); err != nil {
		return false, errors.Wrap(err, "failed to set item position")
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit move")
	}

	s.notifyMutation(playlistID)
	return true, nil
}
