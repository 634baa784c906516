package store

import (
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidTrackPath indicates a track reference that may not be stored.
var ErrInvalidTrackPath = errors.New("invalid track path")

var allowedTrackExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

// NormalizeTrackPath checks that a track reference is a relative path
// with a supported audio extension and returns its cleaned form. Track
// paths are resolved under the media directory at playback time, so
// absolute paths and parent traversal are rejected here, at the storage
// boundary.
func NormalizeTrackPath(trackFile string) (string, error) {
	if trackFile == "" {
		return "", errors.Wrap(ErrInvalidTrackPath, "empty path")
	}

	// Uploads from Windows clients may carry backslashes.
	cleaned := path.Clean(strings.ReplaceAll(trackFile, `\`, "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")

	if strings.HasPrefix(cleaned, "/") {
		return "", errors.Wrapf(ErrInvalidTrackPath, "absolute path %q", trackFile)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Wrapf(ErrInvalidTrackPath, "path %q escapes the media directory", trackFile)
	}

	ext := strings.ToLower(path.Ext(cleaned))
	if !allowedTrackExtensions[ext] {
		return "", errors.Wrapf(ErrInvalidTrackPath, "unsupported extension %q", ext)
	}
	return cleaned, nil
}
