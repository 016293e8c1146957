package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"DEBUG":   DEBUG,
		"info":    INFO,
		"warn":    WARN,
		"WARNING": WARN,
		"error":   ERROR,
		"bogus":   INFO,
		"":        INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, false)
	l.SetOutput(&buf)

	l.Debug("noise")
	l.Info("noise")
	l.Warn("worth keeping")
	l.Error("definitely keeping")

	out := buf.String()
	if strings.Contains(out, "noise") {
		t.Errorf("Expected sub-level messages filtered, got: %s", out)
	}
	if !strings.Contains(out, "worth keeping") || !strings.Contains(out, "definitely keeping") {
		t.Errorf("Expected WARN and ERROR messages, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, true)
	l.SetOutput(&buf)

	l.Info("tick complete", map[string]interface{}{"tick": 7})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log entry: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "tick complete" {
		t.Errorf("Expected message 'tick complete', got %q", entry.Message)
	}
	if entry.Fields["tick"] != float64(7) {
		t.Errorf("Expected tick field 7, got %v", entry.Fields["tick"])
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, true)
	l.SetOutput(&buf)

	child := l.WithField("process", "harvest")
	child.Info("started")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log entry: %v", err)
	}
	if entry.Fields["process"] != "harvest" {
		t.Errorf("Expected inherited field, got %v", entry.Fields)
	}

	// Parent logger is unaffected.
	buf.Reset()
	l.Info("plain")
	entry = LogEntry{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log entry: %v", err)
	}
	if _, ok := entry.Fields["process"]; ok {
		t.Error("Expected parent logger without the child's field")
	}
}

func TestCapabilityAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := New(DEBUG, false)
	l.SetOutput(&buf)

	c := NewCapability(l)
	c.Log("informational")
	c.Warn("advisory")
	c.Error("broken")

	out := buf.String()
	for _, want := range []string{"INFO: informational", "WARN: advisory", "ERROR: broken"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got: %s", want, out)
		}
	}
}
