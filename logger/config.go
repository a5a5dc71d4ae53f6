package logger

// Config holds logger configuration.
type Config struct {
	Level       string   `yaml:"level"`
	OutputPaths []string `yaml:"output_paths"`
	Encoding    string   `yaml:"encoding"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stderr"}
	}
	if c.Encoding == "" {
		c.Encoding = "console"
	}
}
