package metrics

// Config holds metrics configuration.
type Config struct {
	Namespace string `yaml:"namespace"`
	// TextfilePath, when set, receives the metrics in the node-exporter
	// textfile format at the end of every run.
	TextfilePath string `yaml:"textfile_path"`
	// ListenAddr, when set, serves /metrics while the bot is running.
	ListenAddr string `yaml:"listen_addr"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Namespace == "" {
		c.Namespace = defaultNamespace
	}
}
