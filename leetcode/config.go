package leetcode

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the public LeetCode stats API.
const DefaultBaseURL = "https://alfa-leetcode-api.onrender.com"

// Config holds LeetCode client and batch configuration.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	// MaxConcurrent bounds the users aggregated at once. Zero means no bound.
	MaxConcurrent int          `yaml:"max_concurrent"`
	HTTPClient    *http.Client `yaml:"-"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = "leetcode-tracker/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxConcurrent < 0 {
		c.MaxConcurrent = 0
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
}
