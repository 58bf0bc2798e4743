package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, false, "json")
	log.Info().Int("page", 3).Msg("page ready")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "page ready" || entry["page"] != float64(3) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	var quiet, loud bytes.Buffer
	quietLog := NewWriter(&quiet, false, "json")
	quietLog.Debug().Msg("hidden")
	loudLog := NewWriter(&loud, true, "json")
	loudLog.Debug().Msg("shown")

	if quiet.Len() != 0 {
		t.Errorf("debug line written without verbose: %q", quiet.String())
	}
	if !strings.Contains(loud.String(), "shown") {
		t.Errorf("debug line missing with verbose: %q", loud.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, false, "console")
	log.Warn().Str("ref", "a.png").Msg("missing image")

	out := buf.String()
	if !strings.Contains(out, "missing image") || !strings.Contains(out, "ref=a.png") {
		t.Errorf("unexpected console output: %q", out)
	}
}
