package discord

import "time"

// Config holds Discord-specific configuration.
type Config struct {
	Token          string        `yaml:"token"`
	CommandChannel string        `yaml:"command_channel"`
	ReportChannel  string        `yaml:"report_channel"`
	MaxNames       int           `yaml:"max_names"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	TopN           int           `yaml:"top_n"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.MaxNames <= 0 {
		c.MaxNames = 10
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = time.Minute
	}
	if c.TopN <= 0 {
		c.TopN = 5
	}
}

// Enabled reports whether a bot token is configured.
func (c Config) Enabled() bool {
	return c.Token != ""
}
