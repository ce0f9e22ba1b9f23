package mymdns

import "time"

// Config tunes the mDNS browse loop.
type Config struct {
	// QueryInterval is the pause between browse queries.
	QueryInterval time.Duration
	// QueryTimeout bounds how long a single query collects answers.
	QueryTimeout time.Duration
	// MissedQueries is how many consecutive queries an instance may be absent from before it is reported removed.
	MissedQueries int
	// MaxQueryFailures closes the feed after that many consecutive failed queries, 0 never gives up.
	MaxQueryFailures int
	DisableIPv6      bool
	// Interface restricts the responder and the queries to one network interface.
	Interface string
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		QueryInterval:    10 * time.Second,
		QueryTimeout:     3 * time.Second,
		MissedQueries:    3,
		MaxQueryFailures: 5,
		DisableIPv6:      true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueryInterval <= 0 {
		c.QueryInterval = d.QueryInterval
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	if c.MissedQueries <= 0 {
		c.MissedQueries = d.MissedQueries
	}
	if c.MaxQueryFailures < 0 {
		c.MaxQueryFailures = 0
	}
	return c
}
