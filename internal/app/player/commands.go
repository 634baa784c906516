package player

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/bertibox/bertibox/internal/domain/status"
)

// Command errors
var (
	ErrNoPlaylistLoaded = errors.New("no playlist loaded")
	ErrIndexOutOfRange  = errors.New("track index out of range")
)

// PlayPause toggles between playing and paused. When the session is
// stopped but a non-empty playlist is loaded, it starts playback at
// the current index.
func (c *Controller) PlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.isPlaying && !c.isPaused:
		c.engine.Pause()
		c.isPaused = true
	case c.isPlaying && c.isPaused:
		c.engine.Resume()
		c.isPaused = false
	default:
		if len(c.items) == 0 {
			return ErrNoPlaylistLoaded
		}
		c.playFromLocked(c.index)
	}
	c.broadcastLocked()
	return nil
}

// Pause suspends playback. A no-op when nothing is playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isPlaying || c.isPaused {
		return
	}
	c.engine.Pause()
	c.isPaused = true
	c.broadcastLocked()
}

// Resume continues paused playback. A no-op when not paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isPlaying || !c.isPaused {
		return
	}
	c.engine.Resume()
	c.isPaused = false
	c.broadcastLocked()
}

// Next skips to the following track, wrapping to the first after the
// last one.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return ErrNoPlaylistLoaded
	}
	c.engine.Stop()
	c.playFromLocked((c.index + 1) % len(c.items))
	c.broadcastLocked()
	return nil
}

// Previous skips to the preceding track, wrapping to the last before
// the first one.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	if n == 0 {
		return ErrNoPlaylistLoaded
	}
	c.engine.Stop()
	c.playFromLocked((c.index - 1 + n) % n)
	c.broadcastLocked()
	return nil
}

// PlayAtIndex jumps to the track at the given position.
func (c *Controller) PlayAtIndex(idx int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return ErrNoPlaylistLoaded
	}
	if idx < 0 || idx >= len(c.items) {
		return errors.Wrapf(ErrIndexOutOfRange, "%d of %d", idx, len(c.items))
	}
	c.engine.Stop()
	c.playFromLocked(idx)
	c.broadcastLocked()
	return nil
}

// SetVolume applies and persists the output volume.
func (c *Controller) SetVolume(v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.engine.SetVolume(v); err != nil {
		return err
	}
	c.volume = v

	value := strconv.FormatFloat(v, 'f', -1, 64)
	if err := c.store.SetSetting(volumeSettingKey, value, false); err != nil {
		zlog.Error().Msgf("player: failed to persist volume: %v", err)
	}
	c.broadcastLocked()
	return nil
}

// Volume returns the current output volume.
func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// SetSleepTimer arms the sleep timer for the given duration, replacing
// any pending one. When it fires, playback pauses.
func (c *Controller) SetSleepTimer(d time.Duration) error {
	if !c.timer.Set(d) {
		return errors.Newf("invalid sleep timer duration %v", d)
	}
	c.mu.Lock()
	c.broadcastLocked()
	c.mu.Unlock()
	return nil
}

// CancelSleepTimer disarms a pending sleep timer. It reports whether
// one was pending.
func (c *Controller) CancelSleepTimer() bool {
	cancelled := c.timer.Cancel()
	if cancelled {
		c.mu.Lock()
		c.broadcastLocked()
		c.mu.Unlock()
	}
	return cancelled
}

// Status returns a snapshot of the current session.
func (c *Controller) Status() *status.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}
