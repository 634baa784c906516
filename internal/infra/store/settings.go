package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
)

// GetSetting returns the value for key, or defaultValue when the key is
// not present.
func (s *Store) GetSetting(key, defaultValue string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultValue, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to query setting")
	}
	return value, nil
}

// SetSetting stores a setting value. With onlyIfAbsent set, an existing
// value is left untouched.
func (s *Store) SetSetting(key, value string, onlyIfAbsent bool) error {
	var query string
	if onlyIfAbsent {
		query = `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`
	} else {
		query = `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	}
	if _, err := s.db.Exec(query, key, value); err != nil {
		return errors.Wrap(err, "failed to store setting")
	}
	return nil
}
