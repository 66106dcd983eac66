package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWritesStructuredJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "flow-test"})
	logger.Info().Str("stage", "selection").Msg("stage activated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != "flow-test" {
		t.Fatalf("service = %v, want flow-test", entry["service"])
	}
	if entry["stage"] != "selection" {
		t.Fatalf("stage = %v, want selection", entry["stage"])
	}
	if entry["message"] != "stage activated" {
		t.Fatalf("message = %v", entry["message"])
	}
}

func TestNewDebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	quiet := New(&buf, Config{})
	quiet.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug line to be filtered, got %s", buf.String())
	}

	verbose := New(&buf, Config{Debug: true})
	verbose.Debug().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("expected debug line to be written")
	}
}
