// Package audio provides the audio backend playing local files through
// the system speaker.
package audio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrUnknownEngineType = errors.New("unknown audio engine type")
	ErrNoTrackLoaded     = errors.New("no track loaded")
	ErrVolumeOutOfRange  = errors.New("volume out of range")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// New creates the audio backend selected by type. Settings are
// backend-specific and decoded with mapstructure.
func New(engineType string, settings map[string]any) (*Engine, error) {
	switch engineType {
	case "beep":
		return newEngine(settings)
	default:
		return nil, errors.Wrapf(ErrUnknownEngineType, "%q", engineType)
	}
}

// engineSettings configures the speaker output.
type engineSettings struct {
	SampleRate int `mapstructure:"sample_rate"`
	BufferMs   int `mapstructure:"buffer_ms"`
}

// Engine plays exactly one track at a time through the speaker. All
// methods except IsBusy may have audible side effects; IsBusy is safe
// to poll frequently.
type Engine struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate

	file     *os.File
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	level float64
	busy  atomic.Bool
}

func newEngine(settings map[string]any) (*Engine, error) {
	cfg := engineSettings{SampleRate: 44100, BufferMs: 200}
	if settings != nil {
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode audio settings")
		}
	}

	sr := beep.SampleRate(cfg.SampleRate)
	if err := speaker.Init(sr, sr.N(time.Duration(cfg.BufferMs)*time.Millisecond)); err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}

	zlog.Info().Msgf("audio: speaker initialized at %d Hz (buffer %dms)", cfg.SampleRate, cfg.BufferMs)
	return &Engine{sampleRate: sr, level: 1.0}, nil
}

// Load decodes the given file and prepares it for playback, releasing
// any previously loaded track first.
func (e *Engine) Load(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open track %s", path)
	}

	streamer, format, err := decode(path, f)
	if err != nil {
		f.Close()
		return err
	}

	e.file = f
	e.streamer = streamer

	var src beep.Streamer = streamer
	if format.SampleRate != e.sampleRate {
		src = beep.Resample(4, format.SampleRate, e.sampleRate, streamer)
	}

	e.ctrl = &beep.Ctrl{Streamer: src}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   volumeExponent(e.level),
		Silent:   e.level == 0,
	}
	return nil
}

// Play starts playback of the loaded track.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.volume == nil {
		return ErrNoTrackLoaded
	}

	e.busy.Store(true)
	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		e.busy.Store(false)
	})))
	return nil
}

// Pause suspends audio output; the track stays loaded and busy.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
}

// Resume continues paused output.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
}

// Stop silences the speaker and releases the loaded track.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.streamer == nil && e.file == nil {
		return
	}
	speaker.Clear()
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	if e.file != nil {
		e.file.Close()
		e.file = nil
	}
	e.ctrl = nil
	e.volume = nil
	e.busy.Store(false)
}

// IsBusy reports whether a track is loaded and not yet drained. It is
// side-effect free.
func (e *Engine) IsBusy() bool {
	return e.busy.Load()
}

// SetVolume sets the output volume. Values outside [0,1] are rejected,
// leaving the prior volume in effect.
func (e *Engine) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return errors.Wrapf(ErrVolumeOutOfRange, "%v", v)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = v
	if e.volume != nil {
		speaker.Lock()
		e.volume.Volume = volumeExponent(v)
		e.volume.Silent = v == 0
		speaker.Unlock()
	}
	return nil
}

// Close stops playback and shuts the speaker down.
func (e *Engine) Close() {
	e.Stop()
	speaker.Close()
}

func decode(path string, f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
}

// volumeExponent maps a linear [0,1] level onto the logarithmic volume
// scale (gain = Base^Volume, so full level means exponent 0).
func volumeExponent(level float64) float64 {
	if level <= 0 {
		return 0
	}
	return math.Log2(level)
}
