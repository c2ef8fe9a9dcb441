package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSetOutput_ComponentField(t *testing.T) {
	old := Logger
	defer SetOutput(old)

	var buf bytes.Buffer
	SetOutput(NewJSONLogger(&buf, "debug"))
	Staging.Info().Str("id", "abc").Msg("created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "staging" || entry["id"] != "abc" || entry["message"] != "created" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "error")
	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at error level, got %q", buf.String())
	}

	l = NewJSONLogger(&buf, "disabled")
	l.Error().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}

func TestBenchmark(t *testing.T) {
	var buf bytes.Buffer
	done := Benchmark(NewJSONLogger(&buf, "debug"), "sign")
	done()
	if !bytes.Contains(buf.Bytes(), []byte(`"operation":"sign"`)) {
		t.Errorf("benchmark line missing operation: %q", buf.String())
	}
}
