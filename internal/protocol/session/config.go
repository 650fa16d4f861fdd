package session

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines protocol timing and sizing defaults.
type Config struct {
	HandshakeInterval time.Duration
	AckTimeout        time.Duration
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	MaxDatagramSize   int
	EventQueueSize    int
	// Backoff paces receive loops after transient socket errors.
	Backoff BackoffConfig
}

// DefaultConfig returns the protocol defaults: CCIN every 2s, actuator ack
// wait of 5s.
func DefaultConfig() Config {
	return Config{
		HandshakeInterval: 2 * time.Second,
		AckTimeout:        5 * time.Second,
		HeartbeatInterval: 5 * time.Second,
		ReadTimeout:       250 * time.Millisecond,
		WriteTimeout:      2 * time.Second,
		MaxDatagramSize:   2048,
		EventQueueSize:    64,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeInterval <= 0 {
		c.HandshakeInterval = def.HandshakeInterval
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = def.AckTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxDatagramSize <= 0 {
		c.MaxDatagramSize = def.MaxDatagramSize
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = def.EventQueueSize
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
