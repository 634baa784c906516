// Package player provides the session controller: the single writer of
// the playback session, reconciling tag presence, playback completion,
// external playlist mutations and the sleep timer.
package player

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/bertibox/bertibox/internal/app/sleeptimer"
	"github.com/bertibox/bertibox/internal/domain/playlist"
	"github.com/bertibox/bertibox/internal/domain/status"
	"github.com/bertibox/bertibox/internal/domain/tag"
	"github.com/bertibox/bertibox/internal/infra/rfid"
	"github.com/bertibox/bertibox/internal/infra/store"
)

// volumeSettingKey is the settings store key for the persisted volume.
const volumeSettingKey = "global_volume"

// Engine abstracts the audio backend playing one track at a time.
type Engine interface {
	Load(path string) error
	Play() error
	Pause()
	Resume()
	Stop()
	IsBusy() bool
	SetVolume(v float64) error
}

// Store abstracts the persistence the controller needs.
type Store interface {
	GetTag(uid string) (*tag.Tag, error)
	ProvisionTag(uid string) (*tag.Tag, error)
	Items(playlistID int64) ([]playlist.Item, error)
	GetSetting(key, defaultValue string) (string, error)
	SetSetting(key, value string, onlyIfAbsent bool) error
}

// Broadcaster receives a status snapshot after every state transition.
type Broadcaster interface {
	Broadcast(*status.Snapshot) error
}

// Config holds controller configuration.
type Config struct {
	MediaDir        string        // Root directory track paths resolve under
	MonitorInterval time.Duration // Playback completion poll interval
	DefaultVolume   float64       // Used when no valid volume is persisted
}

// Controller owns the playback session. All transitions run under one
// mutex, serializing detector events, monitor ticks, timer callbacks
// and external commands into a total order.
type Controller struct {
	mu sync.Mutex

	config      Config
	store       Store
	engine      Engine
	broadcaster Broadcaster
	timer       *sleeptimer.Timer

	// Session state, cleared to zero values when the tag is removed.
	tagUID       string
	tagName      string
	playlistID   int64
	items        []playlist.Item
	index        int
	isPlaying    bool
	isPaused     bool
	currentTrack string
	volume       float64

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    sync.WaitGroup
}

// NewController creates a controller and restores the persisted volume.
func NewController(cfg Config, st Store, engine Engine, broadcaster Broadcaster) (*Controller, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		config:      cfg,
		store:       st,
		engine:      engine,
		broadcaster: broadcaster,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.timer = sleeptimer.New(c.handleSleepTimerFired)

	if err := c.restoreVolume(); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// restoreVolume loads the persisted volume, falling back to the default
// (and rewriting the setting) when the stored value is unusable.
func (c *Controller) restoreVolume() error {
	fallback := strconv.FormatFloat(c.config.DefaultVolume, 'f', -1, 64)
	raw, err := c.store.GetSetting(volumeSettingKey, fallback)
	if err != nil {
		return errors.Wrap(err, "failed to load volume setting")
	}

	v, parseErr := strconv.ParseFloat(raw, 64)
	if parseErr != nil || v < 0 || v > 1 {
		zlog.Warn().Msgf("player: invalid persisted volume %q, using default %v", raw, c.config.DefaultVolume)
		v = c.config.DefaultVolume
		if err := c.store.SetSetting(volumeSettingKey, fallback, false); err != nil {
			zlog.Error().Msgf("player: failed to rewrite volume setting: %v", err)
		}
	}

	if err := c.engine.SetVolume(v); err != nil {
		return errors.Wrap(err, "failed to apply initial volume")
	}
	c.volume = v
	return nil
}

// Start begins consuming detector events and monitoring playback.
func (c *Controller) Start(events <-chan rfid.Event) {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.done.Add(2)
	go c.tagLoop(events)
	go c.monitorLoop()

	zlog.Info().Msg("player: started")
}

// Close stops the controller: monitor and tag loops exit, any armed
// sleep timer is cancelled and the engine is stopped and released.
// Late timer or monitor callbacks find running=false and no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.cancel()
	c.done.Wait()
	c.timer.Cancel()
	c.engine.Stop()

	zlog.Info().Msg("player: stopped")
}

// tagLoop consumes presence events until shutdown.
func (c *Controller) tagLoop(events <-chan rfid.Event) {
	defer c.done.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-events:
			if ev.Present() {
				c.handleTagDetected(ev.UID)
			} else {
				c.handleTagRemoved()
			}
		}
	}
}

// handleTagDetected processes a debounced detection event.
func (c *Controller) handleTagDetected(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	// Re-detection of the present tag: nothing to reload. When playback
	// stopped earlier (e.g. every track failed to load), a re-placed tag
	// retries instead of staying idle.
	if uid == c.tagUID {
		if !c.isPlaying && len(c.items) > 0 {
			c.playFromLocked(c.index)
		}
		c.broadcastLocked()
		return
	}

	t, err := c.store.GetTag(uid)
	if errors.Is(err, store.ErrTagNotFound) {
		zlog.Info().Msgf("player: unknown tag %s, provisioning", uid)
		t, err = c.store.ProvisionTag(uid)
	}
	if err != nil {
		zlog.Error().Msgf("player: failed to resolve tag %s: %v", uid, err)
		return
	}

	zlog.Info().Msgf("player: tag detected: %s (%s)", t.Name, t.UID)

	if len(t.Playlists) == 0 {
		// Tag without a playlist: present but nothing to play.
		c.stopPlaybackLocked()
		c.tagUID = t.UID
		c.tagName = t.Name
		c.playlistID = 0
		c.items = nil
		c.index = 0
		c.broadcastLocked()
		return
	}

	pl := t.Playlists[0]
	if pl.ID == c.playlistID && (c.isPlaying || c.isPaused) {
		// Another tag mapped onto the playlist already underway.
		c.tagUID = t.UID
		c.tagName = t.Name
		c.broadcastLocked()
		return
	}

	c.stopPlaybackLocked()
	c.tagUID = t.UID
	c.tagName = t.Name
	c.playlistID = pl.ID
	c.items = pl.Items
	c.index = 0

	if len(c.items) == 0 {
		zlog.Info().Msgf("player: playlist %d is empty", pl.ID)
	} else {
		c.playFromLocked(0)
	}
	c.broadcastLocked()
}

// handleTagRemoved clears the session after the detector's removal
// timeout already elapsed.
func (c *Controller) handleTagRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.tagUID == "" {
		return
	}

	zlog.Info().Msgf("player: tag removed: %s", c.tagUID)

	c.stopPlaybackLocked()
	c.tagUID = ""
	c.tagName = ""
	c.playlistID = 0
	c.items = nil
	c.index = 0
	c.broadcastLocked()
}

// NotifyPlaylistMutated refreshes the in-memory snapshot when the
// mutated playlist is the loaded one. The current track keeps playing;
// only what "next" resolves to changes. The index is clamped into the
// new bounds. Notifies for an unloaded playlist (including one whose
// tag was just removed) are ignored.
func (c *Controller) NotifyPlaylistMutated(playlistID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.playlistID == 0 || c.playlistID != playlistID {
		return
	}

	items, err := c.store.Items(playlistID)
	if err != nil {
		zlog.Error().Msgf("player: failed to refresh playlist %d: %v", playlistID, err)
		return
	}

	c.items = items
	if c.index >= len(items) {
		c.index = len(items) - 1
		if c.index < 0 {
			c.index = 0
		}
	}

	zlog.Debug().Msgf("player: refreshed playlist %d snapshot (%d items)", playlistID, len(items))
	c.broadcastLocked()
}

// handleSleepTimerFired pauses playback; the loaded snapshot stays.
func (c *Controller) handleSleepTimerFired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	if c.isPlaying && !c.isPaused {
		c.engine.Pause()
		c.isPaused = true
		zlog.Info().Msg("player: paused by sleep timer")
	}
	c.broadcastLocked()
}

// stopPlaybackLocked stops the engine and clears the playing flags.
func (c *Controller) stopPlaybackLocked() {
	c.engine.Stop()
	c.isPlaying = false
	c.isPaused = false
	c.currentTrack = ""
}

// playFromLocked starts playback at the given index. A track that fails
// to load or play is logged and skipped like a finished track, bounded
// to one full pass over the snapshot so a playlist of missing files
// cannot spin forever.
func (c *Controller) playFromLocked(start int) bool {
	n := len(c.items)
	if n == 0 {
		c.isPlaying = false
		c.isPaused = false
		c.currentTrack = ""
		return false
	}

	for attempt := 0; attempt < n; attempt++ {
		idx := (start + attempt) % n
		if c.playTrackLocked(idx) {
			return true
		}
	}

	zlog.Error().Msgf("player: no playable track in playlist %d, stopping", c.playlistID)
	c.index = start % n
	c.isPlaying = false
	c.isPaused = false
	c.currentTrack = ""
	return false
}

// playTrackLocked loads and plays exactly the track at idx.
func (c *Controller) playTrackLocked(idx int) bool {
	item := c.items[idx]
	path := filepath.Join(c.config.MediaDir, filepath.FromSlash(item.TrackFile))

	if err := c.engine.Load(path); err != nil {
		zlog.Error().Msgf("player: failed to load %s: %v", item.TrackFile, err)
		return false
	}
	if err := c.engine.Play(); err != nil {
		zlog.Error().Msgf("player: failed to play %s: %v", item.TrackFile, err)
		return false
	}

	c.index = idx
	c.isPlaying = true
	c.isPaused = false
	c.currentTrack = item.TrackFile
	zlog.Info().Msgf("player: playing %s (index %d)", item.TrackFile, idx)
	return true
}

// advanceLocked moves to the next track after a natural finish,
// wrapping to the start so the playlist repeats indefinitely.
func (c *Controller) advanceLocked() {
	next := c.index + 1
	if next >= len(c.items) {
		next = 0
		zlog.Info().Msg("player: playlist finished, restarting from the beginning")
	}
	c.playFromLocked(next)
}

// broadcastLocked emits a status snapshot for the current state.
func (c *Controller) broadcastLocked() {
	if c.broadcaster == nil {
		return
	}
	snap := c.snapshotLocked()
	if err := c.broadcaster.Broadcast(snap); err != nil {
		zlog.Error().Msgf("player: failed to broadcast status: %v", err)
	}
}

// snapshotLocked builds a status snapshot with a copied item slice.
func (c *Controller) snapshotLocked() *status.Snapshot {
	items := make([]playlist.Item, len(c.items))
	copy(items, c.items)

	return &status.Snapshot{
		TagUID:                     c.tagUID,
		TagName:                    c.tagName,
		PlaylistID:                 c.playlistID,
		Items:                      items,
		CurrentIndex:               c.index,
		CurrentTrack:               c.currentTrack,
		IsPlaying:                  c.isPlaying,
		IsPaused:                   c.isPaused,
		Volume:                     c.volume,
		SleepTimerRemainingMinutes: c.timer.RemainingMinutes(),
	}
}
