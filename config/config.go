package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/config"

	"github.com/tnicklin/leetcode_tracker/discord"
	"github.com/tnicklin/leetcode_tracker/leetcode"
	"github.com/tnicklin/leetcode_tracker/logger"
	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/poller"
	"github.com/tnicklin/leetcode_tracker/store"
	"github.com/tnicklin/leetcode_tracker/telemetry"
)

// DefaultFiles are the config files read when none are given.
var DefaultFiles = []string{"config/config.yaml", "config/secrets.yaml"}

// ExportConfig controls the file written after a run.
type ExportConfig struct {
	// Format is csv, json or yaml. Empty disables the export.
	Format string `yaml:"format"`
	Name   string `yaml:"name"`
}

// ReportConfig controls the text report.
type ReportConfig struct {
	TopN       int  `yaml:"top_n"`
	ChartWidth int  `yaml:"chart_width"`
	Chart      bool `yaml:"chart"`
}

// AppConfig holds all application configuration.
type AppConfig struct {
	Logger    logger.Config    `yaml:"logger"`
	LeetCode  leetcode.Config  `yaml:"leetcode"`
	Discord   discord.Config   `yaml:"discord"`
	Store     store.Config     `yaml:"store"`
	Metrics   metrics.Config   `yaml:"metrics"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Poller    poller.Config    `yaml:"poller"`
	Export    ExportConfig     `yaml:"export"`
	Report    ReportConfig     `yaml:"report"`
	// Usernames are fetched when no names are given on the command line.
	Usernames []any `yaml:"usernames"`
}

// envOverrides are the settings that may be supplied through the
// environment. Unset variables leave the file value in place.
type envOverrides struct {
	BaseURL         string        `env:"LEETCODE_BASE_URL"`
	Timeout         time.Duration `env:"LEETCODE_TIMEOUT"`
	MaxConcurrent   int           `env:"LEETCODE_MAX_CONCURRENT"`
	DiscordToken    string        `env:"DISCORD_TOKEN"`
	ReportChannel   string        `env:"DISCORD_REPORT_CHANNEL"`
	LogLevel        string        `env:"TRACKER_LOG_LEVEL"`
	OTELEndpoint    string        `env:"TRACKER_OTEL_ENDPOINT"`
	StorePath       string        `env:"TRACKER_STORE_PATH"`
	MetricsTextfile string        `env:"TRACKER_METRICS_TEXTFILE"`
}

// Load reads configuration from the specified YAML files.
// Files are merged in order, with later files overriding earlier ones.
// Missing files are silently ignored; if none exist Load returns
// os.ErrNotExist.
func Load(files ...string) (*AppConfig, error) {
	opts := make([]config.YAMLOption, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	if len(opts) == 0 {
		return nil, os.ErrNotExist
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration, applies environment overrides and
// fills defaults. Running without any config file is allowed.
func LoadWithDefaults(files ...string) (*AppConfig, error) {
	return loadWithEnv(nil, files...)
}

func loadWithEnv(environment map[string]string, files ...string) (*AppConfig, error) {
	cfg, err := Load(files...)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = &AppConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(environment); err != nil {
		return nil, err
	}
	cfg.Defaults()
	return cfg, nil
}

func (c *AppConfig) applyEnv(environment map[string]string) error {
	var o envOverrides
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&c.LeetCode.BaseURL, o.BaseURL)
	setString(&c.Discord.Token, o.DiscordToken)
	setString(&c.Discord.ReportChannel, o.ReportChannel)
	setString(&c.Logger.Level, o.LogLevel)
	setString(&c.Telemetry.Endpoint, o.OTELEndpoint)
	setString(&c.Store.Path, o.StorePath)
	setString(&c.Metrics.TextfilePath, o.MetricsTextfile)
	if o.Timeout > 0 {
		c.LeetCode.Timeout = o.Timeout
	}
	if o.MaxConcurrent > 0 {
		c.LeetCode.MaxConcurrent = o.MaxConcurrent
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Defaults fills every section's defaults.
func (c *AppConfig) Defaults() {
	c.Logger.Defaults()
	c.LeetCode.Defaults()
	c.Discord.Defaults()
	c.Store.Defaults()
	c.Metrics.Defaults()
	c.Telemetry.Defaults()
	c.Poller.Defaults()

	if c.Export.Name == "" {
		c.Export.Name = "leetcode_profiles"
	}
	if c.Report.TopN <= 0 {
		c.Report.TopN = 5
	}
	if c.Report.ChartWidth <= 0 {
		c.Report.ChartWidth = 40
	}
}

// Names returns the configured usernames that are strings, without
// duplicates. Entries of any other type are returned as failures so they are
// reported with the batch.
func (c *AppConfig) Names() ([]string, []models.Failure) {
	names := make([]string, 0, len(c.Usernames))
	seen := make(map[string]struct{}, len(c.Usernames))
	var invalid []models.Failure
	for _, v := range c.Usernames {
		id, err := models.IdentityFromAny(v)
		if err != nil {
			invalid = append(invalid, models.Failure{Identity: fmt.Sprint(v), Reason: err.Error(), Err: err})
			continue
		}
		if _, ok := seen[id.String()]; ok {
			continue
		}
		seen[id.String()] = struct{}{}
		names = append(names, id.String())
	}
	return names, invalid
}
