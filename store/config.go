package store

import "time"

// Config holds run history settings. An empty Path keeps history in memory
// only.
type Config struct {
	Path          string        `yaml:"path"`
	FlushDebounce time.Duration `yaml:"flush_debounce"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.FlushDebounce <= 0 {
		c.FlushDebounce = defaultDebounce
	}
}
