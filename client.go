package nullnexus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client maintains one logical WebSocket connection, reconnecting as
// needed for as long as it is active. All methods are safe for
// concurrent use from any goroutine.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	// mu guards every field below. Network writes and connection
	// attempts happen under it, which keeps attempts strictly
	// sequential and whole operations atomic with respect to
	// concurrent Start/Stop calls.
	mu         sync.Mutex
	active     bool            // caller intent, set by Start/Stop
	conn       *websocket.Conn // nil when no live connection
	gen        uint64          // bumped on every install/teardown; stale reads are shutdown artifacts
	queue      []string        // offline queue, FIFO, head at index 0
	retryTimer *time.Timer     // pending reconnect attempt, at most one
	queueTimer *time.Timer     // pending queue drain retry, at most one
	readerDone chan struct{}   // closed when the current read pump exits

	attempts  int64
	delivered int64

	// reconnects tracks in-flight reconnect tasks so Stop can join
	// them instead of leaking a goroutine.
	reconnects sync.WaitGroup
}

// New creates a client. It does not connect; call Start.
func New(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultClientConfig()
	if cfg.Scheme == "" {
		cfg.Scheme = def.Scheme
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.QueueRetryDelay == 0 {
		cfg.QueueRetryDelay = def.QueueRetryDelay
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
	}
}

// Start activates the client and performs the first connection attempt.
// On failure the fixed-delay retry timer takes over. Idempotent.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return
	}
	c.active = true

	c.logger.Info("connecting", "host", c.cfg.Host, "port", c.cfg.Port, "path", c.cfg.Path)

	if !c.attemptLocked() {
		c.scheduleRetryLocked()
	}
}

// Stop deactivates the client, cancels pending timers, closes any live
// connection, and joins the read pump and any in-flight reconnect task.
// The offline queue is kept, so the client is ready for a future Start.
// Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.gen++

	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	if c.queueTimer != nil {
		c.queueTimer.Stop()
		c.queueTimer = nil
	}

	conn := c.conn
	c.conn = nil
	done := c.readerDone
	c.readerDone = nil
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
	if done != nil {
		<-done
	}
	c.reconnects.Wait()

	c.logger.Info("stopped")
}

// Send transmits a message. With queueIfOffline false it performs one
// synchronous write on the current connection and reports whether it
// succeeded; a failed or offline message is dropped, not queued. With
// queueIfOffline true the message is appended to the offline queue and a
// drain is attempted immediately; the return value is true once
// enqueued, regardless of actual delivery.
//
// Queued delivery is at-least-once: a write that fails after partially
// reaching the wire is retried in full, so the peer may observe a
// duplicate.
func (c *Client) Send(payload string, queueIfOffline bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if queueIfOffline {
		c.queue = append(c.queue, payload)
		c.drainLocked()
		return true
	}

	if c.conn == nil {
		return false
	}
	return c.writeLocked(payload) == nil
}

// IsActive reports whether Start has been called without a matching Stop.
func (c *Client) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// IsConnected reports whether a live connection exists right now.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Stats returns a snapshot of client state.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Active:    c.active,
		Connected: c.conn != nil,
		Queued:    len(c.queue),
		Attempts:  c.attempts,
		Delivered: c.delivered,
	}
}

// writeLocked performs one synchronous write on the current connection.
// Caller holds mu and has checked conn is non-nil.
func (c *Client) writeLocked(payload string) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}
