package config

import "time"

// Config holds runtime settings for the RecordBase CLI.
//
// Fields:
//   - Site: base URL of the backend, e.g. "http://localhost:4000".
//   - RequestTimeout: per-request timeout for plain round-trips
//     (subscriptions are exempt and run without a read timeout).
//   - SessionDB: file name of the local session database, created inside
//     the CLI data directory.
type Config struct {
	Site           string
	RequestTimeout time.Duration
	SessionDB      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Site = "http://localhost:4000"
	c.RequestTimeout = 30 * time.Second
	c.SessionDB = "session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
