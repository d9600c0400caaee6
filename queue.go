package nullnexus

import "time"

// drainLocked writes queued messages head-first while the connection is
// open. The first write failure stops the drain with the failing
// message still at the head and arms the short retry timer; a later
// message is never sent before an earlier undelivered one. Caller
// holds mu.
func (c *Client) drainLocked() {
	if !c.active || c.conn == nil {
		return
	}

	for len(c.queue) > 0 {
		if err := c.writeLocked(c.queue[0]); err != nil {
			c.logger.Debug("queued write failed, will retry", "error", err, "queued", len(c.queue))
			c.scheduleQueueRetryLocked()
			return
		}
		c.queue = c.queue[1:]
	}
}

// scheduleQueueRetryLocked arms the single-shot queue retry timer,
// replacing any pending instance. Caller holds mu.
func (c *Client) scheduleQueueRetryLocked() {
	if c.queueTimer != nil {
		c.queueTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.cfg.QueueRetryDelay, func() { c.queueFired(t) })
	c.queueTimer = t
}

// queueFired runs when the queue retry timer elapses. Same staleness
// guard as retryFired: only the currently armed timer may drain.
func (c *Client) queueFired(t *time.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queueTimer != t {
		return
	}
	c.queueTimer = nil
	c.drainLocked()
}
