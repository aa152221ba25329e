package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitJSONOutputWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithNode("n1").Info().Msg("joined cluster")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal log line: %v (line: %s)", err, buf.String())
	}
	if entry["node"] != "n1" {
		t.Fatalf("entry[node] = %v, want n1", entry["node"])
	}
	if entry["message"] != "joined cluster" {
		t.Fatalf("entry[message] = %v, want %q", entry["message"], "joined cluster")
	}
}

func TestInitErrorLevelSuppressesBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: ErrorLevel, JSONOutput: true, Output: &buf})

	WithCluster("alpha").Info().Msg("should not appear")

	if strings.TrimSpace(buf.String()) != "" {
		t.Fatalf("expected no output below ErrorLevel, got %q", buf.String())
	}
}

func TestWithBucketAddsField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithBucket("orders").Warn().Msg("flushed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal log line: %v", err)
	}
	if entry["bucket"] != "orders" {
		t.Fatalf("entry[bucket] = %v, want orders", entry["bucket"])
	}
}
