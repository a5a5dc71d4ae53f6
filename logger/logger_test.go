package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "zero config uses defaults",
			config: Config{},
		},
		{
			name: "debug level json",
			config: Config{
				Level:       "debug",
				OutputPaths: []string{"stdout"},
				Encoding:    "json",
			},
		},
		{
			name: "invalid level falls back to info",
			config: Config{
				Level:       "invalid",
				OutputPaths: []string{"stdout"},
			},
		},
		{
			name: "multiple output paths",
			config: Config{
				Level:       "warn",
				OutputPaths: []string{"stdout", "stderr"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger without error")
			}
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	l, err := New(Config{Level: "info", OutputPaths: []string{path}, Encoding: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.With("run", "r1").InfoW("batch finished", "records", 2)
	l.DebugW("dropped at info level")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "batch finished") || !strings.Contains(out, `"run":"r1"`) {
		t.Fatalf("expected info entry with run field, got %s", out)
	}
	if strings.Contains(out, "dropped at info level") {
		t.Fatalf("debug entry should be filtered at info level: %s", out)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	if logger == nil {
		t.Fatal("NewNop() returned nil")
	}

	logger.DebugW("test debug", "key", "value")
	logger.InfoW("test message", "key", "value")
	logger.WarnW("test warning", "key", "value")
	logger.ErrorW("test error", "key", "value")
	logger.With("key", "value").InfoW("child")

	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() should not error on nop logger: %v", err)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := NewNop()
	if OrNop(l) != Logger(l) {
		t.Fatal("OrNop should return the given logger")
	}
}
