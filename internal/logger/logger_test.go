package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := New(Config{Level: LevelInfo, OutputPath: path, Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("reading saved", "user_id", 7)
	l.Debug("hidden at info level")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"reading saved"`) {
		t.Errorf("expected JSON record in log file, got %q", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("debug record should be filtered at info level")
	}
}

func TestInitWithConfig_WithFieldsTagsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	prev := globalLogger
	t.Cleanup(func() {
		globalLogger = prev
		slog.SetDefault(Discard())
	})

	if err := InitWithConfig(Config{Level: LevelDebug, OutputPath: path, Format: "json"}); err != nil {
		t.Fatalf("InitWithConfig: %v", err)
	}

	WithFields("service", "digiglucose").Info("started")
	Debug("config loaded")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"service":"digiglucose"`) {
		t.Errorf("expected service field, got %q", out)
	}
	if !strings.Contains(out, `"msg":"config loaded"`) {
		t.Errorf("debug record missing at debug level: %q", out)
	}
}
