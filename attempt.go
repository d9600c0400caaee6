package nullnexus

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// attemptLocked runs one resolve/connect/handshake sequence on a fresh
// connection and reports whether it succeeded. A failure at any step
// aborts the whole attempt; no partial connection is retained. On
// success the read pump is armed and the offline queue is drained.
// Caller holds mu.
func (c *Client) attemptLocked() bool {
	c.attempts++

	u := url.URL{
		Scheme: c.cfg.Scheme,
		Host:   net.JoinHostPort(c.cfg.Host, c.cfg.Port),
		Path:   c.cfg.Path,
	}
	header := http.Header{}
	header.Set("User-Agent", c.cfg.UserAgent)

	// A closed connection is never reused: fresh dialer, fresh conn.
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		c.logger.Warn("connection attempt failed", "url", u.String(), "error", err)
		return false
	}

	c.gen++
	c.conn = conn
	c.readerDone = make(chan struct{})
	go c.readPump(conn, c.gen, c.readerDone)

	c.logger.Info("connected", "url", u.String())

	c.drainLocked()
	return true
}

// scheduleRetryLocked arms the single-shot reconnect timer, replacing
// any pending instance. Caller holds mu.
func (c *Client) scheduleRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(c.cfg.RetryDelay, func() { c.retryFired(t) })
	c.retryTimer = t
}

// retryFired runs when the reconnect timer elapses. A callback whose
// timer is no longer the armed one fired just before a Stop or a
// re-arm and must not start a second retry chain.
func (c *Client) retryFired(t *time.Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retryTimer != t {
		return
	}
	c.retryTimer = nil
	if !c.active || c.conn != nil {
		return
	}
	if !c.attemptLocked() {
		c.scheduleRetryLocked()
	}
}

// readPump keeps exactly one outstanding read in flight, delivering each
// payload to the callback. A read error under a stale generation is the
// expected artifact of Stop or an earlier teardown and is suppressed;
// any other error hands off to a tracked reconnect task and ends the
// pump.
func (c *Client) readPump(conn *websocket.Conn, gen uint64, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := !c.active || gen != c.gen
			c.mu.Unlock()
			if stale {
				return
			}

			c.logger.Warn("read failed", "error", err)

			// Runs off the pump goroutine so the pump's own
			// resources are not torn down from within it.
			c.reconnects.Add(1)
			go func() {
				defer c.reconnects.Done()
				c.reconnect(gen)
			}()
			return
		}

		c.mu.Lock()
		c.delivered++
		c.mu.Unlock()

		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(string(data))
		}
	}
}

// reconnect tears down the failed connection and starts over, as a
// unit, re-checking intent after acquiring the lock so a concurrent
// Stop always wins.
func (c *Client) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || gen != c.gen {
		return
	}

	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.readerDone = nil
	if c.queueTimer != nil {
		c.queueTimer.Stop()
		c.queueTimer = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}

	if !c.attemptLocked() {
		c.scheduleRetryLocked()
	}
}
