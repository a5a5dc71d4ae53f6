package poller

import "time"

// Config holds scheduled batch settings. A zero Interval disables polling.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	// Jitter is the fraction of Interval added at random to each wait.
	Jitter float64 `yaml:"jitter"`
	// RunOnStart runs a batch immediately instead of waiting one interval.
	RunOnStart bool `yaml:"run_on_start"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = 0.1
	}
}

// Enabled reports whether polling is configured.
func (c Config) Enabled() bool {
	return c.Interval > 0
}
