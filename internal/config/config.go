package config

import "time"

// RelayConfig is the top-level configuration for a relay instance.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Database DBConfig       `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// InstanceConfig identifies this relay instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig locates the upstream WebSocket endpoint.
type ServerConfig struct {
	Scheme    string `yaml:"scheme"`     // ws or wss
	Host      string `yaml:"host"`       // Hostname or IP
	Port      string `yaml:"port"`       // Port
	Path      string `yaml:"path"`       // Endpoint path (e.g. /stream)
	UserAgent string `yaml:"user_agent"` // Handshake User-Agent header
}

// ClientConfig tunes the connection state machine.
type ClientConfig struct {
	RetryDelay       time.Duration `yaml:"retry_delay"`       // Fixed wait between failed attempts
	QueueRetryDelay  time.Duration `yaml:"queue_retry_delay"` // Fixed wait before retrying a stuck send
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// DBConfig configures the Postgres archive database.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ArchiveConfig tunes the batching message archiver.
type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}
