package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupWriterRenamesKeys(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := SetupWriter("stakingd", "test", &buf)
	logger.Info("stake opened", slog.Uint64("id", 7), MaskField("secret", "hunter2"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["message"] != "stake opened" || entry["severity"] != "INFO" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["service"] != "stakingd" || entry["env"] != "test" {
		t.Fatalf("missing service attributes %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("missing timestamp %v", entry)
	}
	if entry["secret"] != RedactedValue {
		t.Fatalf("expected masked secret, got %v", entry["secret"])
	}
}

func TestMaskValueKeepsEmpty(t *testing.T) {
	if MaskValue("  ") != "  " {
		t.Fatalf("expected empty value untouched")
	}
	if MaskValue("x") != RedactedValue {
		t.Fatalf("expected masked value")
	}
}
