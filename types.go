package nullnexus

import "time"

// ClientConfig configures a WebSocket client. Immutable after New.
type ClientConfig struct {
	Scheme    string // "ws" or "wss"
	Host      string // Server hostname or IP
	Port      string // Server port
	Path      string // Endpoint path (e.g. /stream)
	UserAgent string // User-Agent header sent during the handshake

	// OnMessage is called with each received message, from the read
	// goroutine. It may call Send or Start, but must not call Stop
	// (Stop joins the read goroutine).
	OnMessage func(payload string)

	RetryDelay       time.Duration // Fixed wait between failed connection attempts
	QueueRetryDelay  time.Duration // Fixed wait before retrying a stuck queued send
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial + handshake deadline per attempt
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Scheme:           "ws",
		UserAgent:        "nullnexus-client",
		RetryDelay:       10 * time.Second,
		QueueRetryDelay:  1 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Stats is a snapshot of client state.
type Stats struct {
	Active    bool  // Start has been called and Stop has not
	Connected bool  // A live connection exists right now
	Queued    int   // Messages waiting in the offline queue
	Attempts  int64 // Connection attempts since construction
	Delivered int64 // Messages delivered to the callback
}
