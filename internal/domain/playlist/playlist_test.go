package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaylist_TrackFiles(t *testing.T) {
	tests := []struct {
		name     string
		items    []Item
		expected []string
	}{
		{
			name:     "empty playlist",
			items:    []Item{},
			expected: []string{},
		},
		{
			name: "single item",
			items: []Item{
				{ID: 1, TrackFile: "a.mp3", Position: 0},
			},
			expected: []string{"a.mp3"},
		},
		{
			name: "multiple items",
			items: []Item{
				{ID: 1, TrackFile: "a.mp3", Position: 0},
				{ID: 2, TrackFile: "b.mp3", Position: 1},
				{ID: 3, TrackFile: "c.mp3", Position: 2},
			},
			expected: []string{"a.mp3", "b.mp3", "c.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Playlist{ID: 1, Items: tt.items}
			assert.Equal(t, tt.expected, p.TrackFiles())
		})
	}
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr bool
	}{
		{
			name:    "empty",
			items:   []Item{},
			wantErr: false,
		},
		{
			name: "contiguous from zero",
			items: []Item{
				{ID: 1, Position: 0},
				{ID: 2, Position: 1},
				{ID: 3, Position: 2},
			},
			wantErr: false,
		},
		{
			name: "does not start at zero",
			items: []Item{
				{ID: 1, Position: 1},
				{ID: 2, Position: 2},
			},
			wantErr: true,
		},
		{
			name: "gap in positions",
			items: []Item{
				{ID: 1, Position: 0},
				{ID: 2, Position: 2},
			},
			wantErr: true,
		},
		{
			name: "duplicate positions",
			items: []Item{
				{ID: 1, Position: 0},
				{ID: 2, Position: 0},
			},
			wantErr: true,
		},
		{
			name: "not sorted",
			items: []Item{
				{ID: 1, Position: 1},
				{ID: 2, Position: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrder(tt.items)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOrderViolation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
