package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tnicklin/leetcode_tracker/leetcode"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name: "valid config",
			content: `
logger:
  level: debug
  output_paths:
    - stdout
leetcode:
  base_url: "http://localhost:3000"
  timeout: 3s
  max_concurrent: 4
discord:
  token: "test-token"
  command_channel: "commands"
  report_channel: "reports"
store:
  path: "test.db"
usernames:
  - alice
  - bob
`,
			wantErr: false,
		},
		{
			name:    "empty config",
			content: "",
			wantErr: false,
		},
		{
			name:    "malformed yaml",
			content: "logger: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := Load(configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && cfg == nil {
				t.Error("Load() returned nil config without error")
			}
		})
	}
}

func TestLoadPopulatesSections(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
leetcode:
  base_url: "http://localhost:3000"
  timeout: 3s
  max_concurrent: 4
export:
  format: json
usernames:
  - alice
  - bob
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LeetCode.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q", cfg.LeetCode.BaseURL)
	}
	if cfg.LeetCode.Timeout != 3*time.Second {
		t.Errorf("Timeout = %s", cfg.LeetCode.Timeout)
	}
	if cfg.LeetCode.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d", cfg.LeetCode.MaxConcurrent)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("Export.Format = %q", cfg.Export.Format)
	}
	names, invalid := cfg.Names()
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" || len(invalid) != 0 {
		t.Errorf("Names() = %v, %v", names, invalid)
	}
}

func TestLoadMergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yaml")
	secrets := filepath.Join(dir, "secrets.yaml")
	if err := os.WriteFile(base, []byte("discord:\n  token: placeholder\n  report_channel: reports\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(secrets, []byte("discord:\n  token: real-token\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(base, secrets)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.Token != "real-token" || cfg.Discord.ReportChannel != "reports" {
		t.Errorf("unexpected discord config: %+v", cfg.Discord)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	tests := []struct {
		name          string
		content       string
		wantLogLevel  string
		wantBaseURL   string
		wantStorePath string
	}{
		{
			name:          "applies defaults when values missing",
			content:       "logger:\n  level: \"\"\n",
			wantLogLevel:  "info",
			wantBaseURL:   leetcode.DefaultBaseURL,
			wantStorePath: "",
		},
		{
			name:          "respects provided values",
			content:       "logger:\n  level: debug\nstore:\n  path: custom.db\n",
			wantLogLevel:  "debug",
			wantBaseURL:   leetcode.DefaultBaseURL,
			wantStorePath: "custom.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := loadWithEnv(map[string]string{}, configPath)
			if err != nil {
				t.Fatalf("LoadWithDefaults() error = %v", err)
			}
			if cfg.Logger.Level != tt.wantLogLevel {
				t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, tt.wantLogLevel)
			}
			if cfg.LeetCode.BaseURL != tt.wantBaseURL {
				t.Errorf("LeetCode.BaseURL = %q, want %q", cfg.LeetCode.BaseURL, tt.wantBaseURL)
			}
			if cfg.Store.Path != tt.wantStorePath {
				t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, tt.wantStorePath)
			}
			if cfg.LeetCode.Timeout != 10*time.Second {
				t.Errorf("LeetCode.Timeout = %s, want 10s", cfg.LeetCode.Timeout)
			}
			if cfg.Report.TopN != 5 || cfg.Export.Name != "leetcode_profiles" {
				t.Errorf("unexpected report/export defaults: %+v %+v", cfg.Report, cfg.Export)
			}
		})
	}
}

func TestLoadWithDefaultsWithoutFiles(t *testing.T) {
	cfg, err := loadWithEnv(map[string]string{}, filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected missing config to be allowed, got %v", err)
	}
	if cfg.LeetCode.BaseURL != leetcode.DefaultBaseURL {
		t.Errorf("LeetCode.BaseURL = %q", cfg.LeetCode.BaseURL)
	}
	if cfg.LeetCode.MaxConcurrent != 0 {
		t.Errorf("expected unbounded concurrency by default, got %d", cfg.LeetCode.MaxConcurrent)
	}
}

func TestEnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("leetcode:\n  base_url: http://file\n  timeout: 2s\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := loadWithEnv(map[string]string{
		"LEETCODE_BASE_URL":       "http://env",
		"LEETCODE_MAX_CONCURRENT": "8",
		"DISCORD_TOKEN":           "env-token",
		"TRACKER_LOG_LEVEL":       "debug",
		"TRACKER_OTEL_ENDPOINT":   "localhost:4318",
		"TRACKER_STORE_PATH":      "data/runs.db",
	}, configPath)
	if err != nil {
		t.Fatalf("loadWithEnv() error = %v", err)
	}

	if cfg.LeetCode.BaseURL != "http://env" {
		t.Errorf("BaseURL = %q, want env value", cfg.LeetCode.BaseURL)
	}
	if cfg.LeetCode.Timeout != 2*time.Second {
		t.Errorf("Timeout = %s, want file value", cfg.LeetCode.Timeout)
	}
	if cfg.LeetCode.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d", cfg.LeetCode.MaxConcurrent)
	}
	if cfg.Discord.Token != "env-token" || cfg.Logger.Level != "debug" {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Discord, cfg.Logger)
	}
	if cfg.Telemetry.Endpoint != "localhost:4318" || cfg.Store.Path != "data/runs.db" {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Telemetry, cfg.Store)
	}
}

func TestEnvOverrideRejectsMalformedValue(t *testing.T) {
	_, err := loadWithEnv(map[string]string{"LEETCODE_TIMEOUT": "soon"})
	if err == nil {
		t.Fatal("expected malformed duration to fail")
	}
}

func TestNamesDropsDuplicates(t *testing.T) {
	cfg := AppConfig{Usernames: []any{"alice", "bob", "alice"}}

	names, invalid := cfg.Names()
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" || len(invalid) != 0 {
		t.Fatalf("Names() = %v, %v", names, invalid)
	}
}

func TestNamesRejectsNonStrings(t *testing.T) {
	cfg := AppConfig{Usernames: []any{"alice", 42, " ", "bob"}}

	names, invalid := cfg.Names()
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Fatalf("unexpected names %v", names)
	}
	if len(invalid) != 2 || invalid[0].Identity != "42" {
		t.Fatalf("unexpected invalid entries %#v", invalid)
	}
}
