package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_CreatesDirAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, "info")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Info("test_message_from_logging_test")
	log.Debug("filtered_debug_message")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "uptimeworker.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"msg":"test_message_from_logging_test"`) || !strings.Contains(s, `"ts":`) {
		t.Fatalf("unexpected log content: %s", s)
	}
	if strings.Contains(s, "filtered_debug_message") {
		t.Fatalf("debug entry written at info level: %s", s)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
