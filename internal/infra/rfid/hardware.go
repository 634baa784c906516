// Package rfid provides access to the RFID scanner hardware and the
// presence detector that turns raw reads into debounced tag events.
package rfid

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// ErrUnknownReaderType indicates an unsupported reader backend.
var ErrUnknownReaderType = errors.New("unknown reader type")

// Hardware senses the tag currently in the reader field. PollTag is
// non-blocking and returns the empty string when no tag is sensed.
// Transient I/O errors are returned, never panicked.
type Hardware interface {
	PollTag() (string, error)
	Close() error
}

// NewHardware creates the reader backend selected by type. Settings are
// backend-specific and decoded with mapstructure.
func NewHardware(readerType string, settings map[string]any) (Hardware, error) {
	switch readerType {
	case "serial":
		return newLineReader(readerType, settings)
	case "stdin":
		return newLineReader(readerType, settings)
	default:
		return nil, errors.Wrapf(ErrUnknownReaderType, "%q", readerType)
	}
}

// lineSettings configures the line-based reader backends.
type lineSettings struct {
	// Device path of the serial reader, e.g. /dev/ttyUSB0.
	Device string `mapstructure:"device"`
	// How long a scanned uid counts as "still present". Line-based
	// readers emit a uid once per presentation, so presence is held
	// for a window after each line.
	HoldMs int `mapstructure:"hold_ms"`
}

// lineReader reads tag uids line by line from a serial device or stdin.
// Most USB RFID readers enumerate as a character device emitting the
// uid followed by a newline whenever a tag enters the field.
type lineReader struct {
	src    io.ReadCloser
	closer func() error
	hold   time.Duration

	mu       sync.Mutex
	lastUID  string
	lastRead time.Time
	readErr  error

	done chan struct{}
}

func newLineReader(readerType string, settings map[string]any) (*lineReader, error) {
	cfg := lineSettings{Device: "/dev/ttyUSB0", HoldMs: 750}
	if settings != nil {
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode reader settings")
		}
	}

	var src io.ReadCloser
	var closer func() error
	switch readerType {
	case "serial":
		f, err := os.Open(cfg.Device)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open reader device %s", cfg.Device)
		}
		src = f
		closer = f.Close
	case "stdin":
		src = os.Stdin
		closer = func() error { return nil }
	}

	r := &lineReader{
		src:    src,
		closer: closer,
		hold:   time.Duration(cfg.HoldMs) * time.Millisecond,
		done:   make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// readLoop consumes uid lines until the source is closed.
func (r *lineReader) readLoop() {
	defer close(r.done)

	scanner := bufio.NewScanner(r.src)
	for scanner.Scan() {
		uid := scanner.Text()
		if uid == "" {
			continue
		}
		r.mu.Lock()
		r.lastUID = uid
		r.lastRead = time.Now()
		r.mu.Unlock()
	}

	if err := scanner.Err(); err != nil {
		r.mu.Lock()
		r.readErr = err
		r.mu.Unlock()
	}
}

// PollTag returns the most recently scanned uid while it is within the
// hold window, then reverts to "no tag".
func (r *lineReader) PollTag() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.readErr != nil {
		err := r.readErr
		r.readErr = nil
		return "", err
	}
	if r.lastUID == "" || time.Since(r.lastRead) > r.hold {
		return "", nil
	}
	return r.lastUID, nil
}

// Close releases the underlying device.
func (r *lineReader) Close() error {
	err := r.closer()
	select {
	case <-r.done:
	case <-time.After(time.Second):
		zlog.Warn().Msg("rfid: reader loop did not stop in time")
	}
	return err
}
