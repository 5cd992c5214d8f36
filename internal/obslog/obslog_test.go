package obslog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Console: true, Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("pipeline failed", zap.String("stage", "narration"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if entry["msg"] != "pipeline failed" || entry["stage"] != "narration" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLegacyFormatAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "narrator.log")
	logger, err := New(Options{Level: "warn", Format: "bogus", Console: true, File: path, Stdout: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), " | WARN | ") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), "kept") {
		t.Fatalf("file output missing: %v %q", err, b)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_LEVEL", "")
	opt := OptionsFromEnv()
	if opt.File != "" || opt.Level != "info" || !opt.Console {
		t.Fatalf("unexpected options %+v", opt)
	}
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", "")
	if got := OptionsFromEnv().File; got != filepath.Join("logs", "narrator.log") {
		t.Fatalf("default log file = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{"DEBUG": zapcore.DebugLevel, "warning": zapcore.WarnLevel, "error": zapcore.ErrorLevel, "": zapcore.InfoLevel}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v", in, got)
		}
	}
}
