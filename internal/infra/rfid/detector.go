package rfid

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Event is a presence transition. An empty UID reports tag removal.
type Event struct {
	UID string
}

// Present reports whether the event carries a detected tag.
func (e Event) Present() bool {
	return e.UID != ""
}

// Detector polls the hardware on a fixed interval and emits debounced
// presence events:
//
//   - a detection when the sensed uid differs from the last one, or when
//     the same uid reappears more than tagTimeout after its last
//     positive read (re-arming a briefly missed tag);
//   - a removal when no tag has been sensed for tagTimeout after a
//     positive read.
//
// Between the two timeouts no duplicate or spurious events are emitted.
type Detector struct {
	hw           Hardware
	pollInterval time.Duration
	tagTimeout   time.Duration
	errBackoff   time.Duration

	events chan Event

	lastTag  string
	lastSeen time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDetector creates a detector for the given hardware.
func NewDetector(hw Hardware, pollInterval, tagTimeout time.Duration) *Detector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Detector{
		hw:           hw,
		pollInterval: pollInterval,
		tagTimeout:   tagTimeout,
		errBackoff:   time.Second,
		events:       make(chan Event, 16),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Events returns the presence event stream. The channel is buffered;
// when the consumer falls behind, the oldest pending event is dropped
// so the poll loop never blocks.
func (d *Detector) Events() <-chan Event {
	return d.events
}

// Start launches the polling loop.
func (d *Detector) Start() {
	go d.pollLoop()
}

// Stop terminates the polling loop and waits for it to exit.
func (d *Detector) Stop() {
	d.cancel()
	<-d.done
}

func (d *Detector) pollLoop() {
	defer close(d.done)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.pollOnce()
		}
	}
}

func (d *Detector) pollOnce() {
	uid, err := d.hw.PollTag()
	if err != nil {
		// Transient reader errors are never fatal; back off and retry.
		zlog.Error().Msgf("rfid: read error: %v", err)
		select {
		case <-d.ctx.Done():
		case <-time.After(d.errBackoff):
		}
		return
	}

	now := time.Now()
	if uid != "" {
		if uid != d.lastTag || now.Sub(d.lastSeen) > d.tagTimeout {
			zlog.Debug().Msgf("rfid: tag detected: %s", uid)
			d.emit(Event{UID: uid})
		}
		d.lastTag = uid
		d.lastSeen = now
		return
	}

	if d.lastTag != "" && now.Sub(d.lastSeen) > d.tagTimeout {
		zlog.Debug().Msgf("rfid: tag removed: %s", d.lastTag)
		d.emit(Event{})
		d.lastTag = ""
	}
}

func (d *Detector) emit(e Event) {
	for {
		select {
		case d.events <- e:
			return
		default:
			// Drop the oldest pending event; newer state wins.
			select {
			case <-d.events:
			default:
			}
		}
	}
}
