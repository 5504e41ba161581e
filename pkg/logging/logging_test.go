package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{JSON: true, Output: &buf})
	l.Info("session started", zap.Int("nodes", 15))
	l.Debug("hidden")
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one line (debug filtered), got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Line is not JSON: %v", err)
	}
	if entry["msg"] != "session started" || entry["nodes"] != float64(15) {
		t.Errorf("Unexpected entry: %v", entry)
	}
}

func TestNew_VerboseConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Verbose: true, Output: &buf})
	l.Debug("activation decayed", zap.Uint64("generation", 3))
	_ = l.Sync()

	out := buf.String()
	if !strings.Contains(out, "activation decayed") || !strings.Contains(out, `"generation": 3`) {
		t.Errorf("Console output missing message or field: %q", out)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should pass through a non-nil logger")
	}
}
