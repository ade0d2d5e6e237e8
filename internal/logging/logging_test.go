package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestLoggerWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: Info}).With(F("component", "refresh"))
	logger.Debug("hidden")
	logger.Warn("fetch failed", F("session_key", "agent:main:main"), F("err", errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "fetch failed" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry["component"] != "refresh" || entry["session_key"] != "agent:main:main" {
		t.Fatalf("missing fields: %#v", entry)
	}
	if entry["err"] != "boom" {
		t.Fatalf("expected error field, got %#v", entry["err"])
	}
}

func TestLoggerEnabled(t *testing.T) {
	logger := New(&bytes.Buffer{}, Options{Level: Warn})
	if logger.Enabled(Info) {
		t.Fatalf("expected info disabled at warn level")
	}
	if !logger.Enabled(Error) {
		t.Fatalf("expected error enabled at warn level")
	}
	if Nop().Enabled(Error) {
		t.Fatalf("expected nop logger to be disabled")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"":        Info,
		"verbose": Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewRequestIDIsUUID(t *testing.T) {
	id := NewRequestID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid, got %q: %v", id, err)
	}
}
