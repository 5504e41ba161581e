package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTopology(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identigraph.yaml")
	writeTopology(t, path, "seed: 1\n")

	w, err := New(path, Options{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	for i := range 5 {
		writeTopology(t, path, "seed: "+string(rune('2'+i))+"\n")
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a change notification")
	}

	select {
	case <-w.Changes():
		t.Error("Burst should coalesce into one notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identigraph.yaml")
	writeTopology(t, path, "seed: 1\n")

	w, err := New(path, Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	writeTopology(t, filepath.Join(dir, "notes.txt"), "unrelated")

	select {
	case <-w.Changes():
		t.Error("Change to a sibling file should not notify")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_SeesRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identigraph.toml")
	writeTopology(t, path, "seed = 1\n")

	w, err := New(path, Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, ".identigraph.toml.swp")
	writeTopology(t, tmp, "seed = 2\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("Atomic save via rename was not noticed")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identigraph.json")
	writeTopology(t, path, "{}")

	w, err := New(path, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w.Stop() // before Start
	w.Stop()
	if err := w.Start(); err == nil {
		t.Error("Start after Stop should fail")
	}
}
