package cliconfig

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", FormatJSON)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	logger.Info().Msg("hidden")
	logger.Warn().Str("session_id", "s1").Msg("frame dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["message"] != "frame dropped" || entry["session_id"] != "s1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "", "")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info().Msg("session opened")
	if !strings.Contains(buf.String(), "session opened") {
		t.Errorf("output = %q, want message", buf.String())
	}
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output looks like JSON: %q", buf.String())
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := newLogger(&bytes.Buffer{}, "loud", FormatJSON); err == nil {
		t.Error("newLogger() expected error for unknown level")
	}
	if _, err := newLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("newLogger() expected error for unknown format")
	}
}
