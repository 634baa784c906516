package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTrackPath(t *testing.T) {
	tests := []struct {
		name     string
		track    string
		expected string
		wantErr  bool
	}{
		{name: "plain file", track: "song.mp3", expected: "song.mp3"},
		{name: "subdirectory", track: "albums/winter/song.ogg", expected: "albums/winter/song.ogg"},
		{name: "backslashes", track: `albums\song.wav`, expected: "albums/song.wav"},
		{name: "leading dot slash", track: "./song.flac", expected: "song.flac"},
		{name: "redundant segments", track: "albums//./song.mp3", expected: "albums/song.mp3"},
		{name: "uppercase extension", track: "SONG.MP3", expected: "SONG.MP3"},
		{name: "empty", track: "", wantErr: true},
		{name: "absolute", track: "/media/song.mp3", wantErr: true},
		{name: "parent traversal", track: "../song.mp3", wantErr: true},
		{name: "nested traversal", track: "albums/../../song.mp3", wantErr: true},
		{name: "no extension", track: "song", wantErr: true},
		{name: "unsupported extension", track: "song.m4a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTrackPath(tt.track)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrackPath)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
