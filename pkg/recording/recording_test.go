package recording

import (
	"path/filepath"
	"testing"
)

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	r, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Log(KindTarget, [6]float64{1, 2, 3, 4, 5, 6}, 1.0); err != nil {
		t.Fatalf("Log target: %v", err)
	}
	if err := r.Log(KindControl, [][6]float64{{0, 0, 0, 0, 0, 0}, {1, 1, 1, 1, 1, 1}}, 1.1); err != nil {
		t.Fatalf("Log control: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("loaded %d events, want 2", len(events))
	}
	if events[0].Kind != KindTarget {
		t.Errorf("events[0].Kind = %v, want %v", events[0].Kind, KindTarget)
	}
	if events[1].Kind != KindControl {
		t.Errorf("events[1].Kind = %v, want %v", events[1].Kind, KindControl)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/events.jsonl"); err == nil {
		t.Error("expected error for missing file")
	}
}
