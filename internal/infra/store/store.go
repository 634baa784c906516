// Package store provides SQLite-backed persistence for tags, playlists
// and settings. All ordering mutations are transactional and preserve
// the contiguous zero-based position invariant of playlist items.
package store

import (
	"database/sql"
	"sync"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// Errors
var (
	ErrTagNotFound        = errors.New("tag not found")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrItemNotFound       = errors.New("playlist item not found")
	ErrPositionOutOfRange = errors.New("target position out of range")
)

const schema = `
CREATE TABLE IF NOT EXISTS tags (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	uid  TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS playlists (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	tag_id INTEGER REFERENCES tags(id) ON DELETE CASCADE,
	name   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS playlist_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	track_file  TEXT NOT NULL,
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist
	ON playlist_items(playlist_id, position);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// MutationHook is invoked after a committed playlist mutation with the
// id of the affected playlist.
type MutationHook func(playlistID int64)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB

	hookMu     sync.RWMutex
	onMutation MutationHook
}

// Open opens (and initializes if needed) the database at path. The path
// may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// One connection: SQLite is the single local store of an appliance,
	// and in-memory databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// OnMutation registers the hook called after every committed playlist
// mutation. At most one hook is supported; a nil hook disables it.
func (s *Store) OnMutation(hook MutationHook) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onMutation = hook
}

func (s *Store) notifyMutation(playlistID int64) {
	s.hookMu.RLock()
	hook := s.onMutation
	s.hookMu.RUnlock()
	if hook != nil {
		hook(playlistID)
	}
}
