package player

import "time"

// monitorLoop polls the engine for playback completion. A tick only
// advances when the session is playing, not paused, and the engine has
// drained the current track. Everything else is a no-op, so the poll
// stays cheap.
func (c *Controller) monitorLoop() {
	defer c.done.Done()

	interval := c.config.MonitorInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.monitorTick()
		}
	}
}

func (c *Controller) monitorTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || !c.isPlaying || c.isPaused {
		return
	}
	if c.engine.IsBusy() {
		return
	}

	c.advanceLocked()
	c.broadcastLocked()
}
