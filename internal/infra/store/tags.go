package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/bertibox/bertibox/internal/domain/playlist"
	"github.com/bertibox/bertibox/internal/domain/tag"
)

// CreateTag inserts a new tag.
func (s *Store) CreateTag(uid, name string) (*tag.Tag, error) {
	res, err := s.db.Exec(`INSERT INTO tags (uid, name) VALUES (?, ?)`, uid, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert tag")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tag id")
	}
	return &tag.Tag{ID: id, UID: uid, Name: name}, nil
}

// ProvisionTag creates a tag with its default name and an empty playlist
// in one transaction. Used when an unknown uid is scanned.
func (s *Store) ProvisionTag(uid string) (*tag.Tag, error) {
	name := tag.DefaultName(uid)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO tags (uid, name) VALUES (?, ?)`, uid, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert tag")
	}
	tagID, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tag id")
	}

	res, err = tx.Exec(`INSERT INTO playlists (tag_id, name) VALUES (?, ?)`, tagID, "Playlist for "+name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert default playlist")
	}
	playlistID, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist id")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit provisioning")
	}

	zlog.Info().Msgf("store: provisioned tag %s (id=%d) with empty playlist %d", uid, tagID, playlistID)

	return &tag.Tag{
		ID:   tagID,
		UID:  uid,
		Name: name,
		Playlists: []playlist.Playlist{
			{ID: playlistID, TagID: tagID, Name: "Playlist for " + name, Items: []playlist.Item{}},
		},
	}, nil
}

// GetTag returns a tag with its playlists (including items). Returns
// ErrTagNotFound for unknown uids.
func (s *Store) GetTag(uid string) (*tag.Tag, error) {
	var t tag.Tag
	err := s.db.QueryRow(`SELECT id, uid, name FROM tags WHERE uid = ?`, uid).
		Scan(&t.ID, &t.UID, &t.Name)
	if err == sql.ErrNoRows {
		return nil, ErrTagNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tag")
	}

	playlists, err := s.playlistsOfTag(t.ID)
	if err != nil {
		return nil, err
	}
	t.Playlists = playlists
	return &t, nil
}

// UpdateTagName renames a tag. Returns false for unknown uids.
func (s *Store) UpdateTagName(uid, name string) (bool, error) {
	res, err := s.db.Exec(`UPDATE tags SET name = ? WHERE uid = ?`, name, uid)
	if err != nil {
		return false, errors.Wrap(err, "failed to update tag")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// DeleteTag removes a tag; its playlists and their items cascade.
// Returns false for unknown uids.
func (s *Store) DeleteTag(uid string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM tags WHERE uid = ?`, uid)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete tag")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

// ListTags returns all tags with their playlists.
func (s *Store) ListTags() ([]tag.Tag, error) {
	rows, err := s.db.Query(`SELECT id, uid, name FROM tags ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query tags")
	}
	defer rows.Close()

	var tags []tag.Tag
	for rows.Next() {
		var t tag.Tag
		if err := rows.Scan(&t.ID, &t.UID, &t.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	for i := range tags {
		playlists, err := s.playlistsOfTag(tags[i].ID)
		if err != nil {
			return nil, err
		}
		tags[i].Playlists = playlists
	}
	return tags, nil
}

// AssignTrackToTag appends a track to the first playlist of the tag.
// Mirrors the "drop a file onto a tag" flow of the media explorer.
func (s *Store) AssignTrackToTag(uid, trackFile string) (*playlist.Item, error) {
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

	return s.AddItem(playlistID, trackFile)
}

func (s *Store) playlistsOfTag(tagID int64) ([]playlist.Playlist, error) {
	rows, err := s.db.Query(`SELECT id, name FROM playlists WHERE tag_id = ? ORDER BY id`, tagID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlists")
	}
	defer rows.Close()

	var playlists []playlist.Playlist
	for rows.Next() {
		var p playlist.Playlist
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist")
		}
		p.TagID = tagID
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	for i := range playlists {
		items, err := s.Items(playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].Items = items
	}
	return playlists, nil
}
