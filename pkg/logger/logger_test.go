package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/wonny/quantlab/pkg/config"
)

func jsonConfig(level string) *config.Config {
	return &config.Config{Env: "development", LogLevel: level, LogFormat: "json"}
}

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("debug"), &buf)

	log.WithComponent("backtest").
		WithFields(map[string]interface{}{"scenarios": 10, "workers": 2}).
		Info("massive run finished")

	entry := decodeLast(t, &buf)
	if entry["component"] != "backtest" {
		t.Errorf("Expected component=backtest, got %v", entry["component"])
	}
	if entry["scenarios"] != float64(10) {
		t.Errorf("Expected scenarios=10, got %v", entry["scenarios"])
	}
	if entry["env"] != "development" {
		t.Errorf("Expected env field, got %v", entry["env"])
	}
	if entry["message"] != "massive run finished" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("info"), &buf)

	log.WithError(errors.New("dart timeout")).Error("fetch failed")

	entry := decodeLast(t, &buf)
	if entry["error"] != "dart timeout" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
	if entry["level"] != "error" {
		t.Errorf("Expected level=error, got %v", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(jsonConfig("warn"), &buf)

	log.Info("hidden")
	log.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Expected no output below warn, got %q", buf.String())
	}

	log.Warnf("visible %d", 2)
	if entry := decodeLast(t, &buf); entry["message"] != "visible 2" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.WithField("k", "v").Info("discarded")
}
