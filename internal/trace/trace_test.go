package trace

import (
	"context"
	"errors"
	"testing"

	"go-mas-sim/internal/core"
)

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "run1")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	ctx := context.Background()
	rec := core.Record{ID: "r1", RunID: "run1", Time: 4.5, Sender: "wall0", Receiver: "ball0", Subject: "collision",
		Payload: map[string]interface{}{"new_x": 9.0}}
	if err := w.ObserveOutput(ctx, rec); err != nil {
		t.Fatalf("observe output: %v", err)
	}
	obs := core.Observation{RunID: "run1", Time: 4.5, Agent: "ball0", Values: map[string]interface{}{"x": 9.0}}
	if err := w.ObserveState(ctx, obs); err != nil {
		t.Fatalf("observe state: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.ObserveState(ctx, obs); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	entries, err := Read(Path(dir, "run1"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if e := entries[0]; e.Kind != KindRecord || e.Record == nil || e.Record.Subject != "collision" {
		t.Fatalf("unexpected first entry %+v", e)
	}
	e := entries[1]
	if e.Kind != KindObservation || e.Observation == nil {
		t.Fatalf("unexpected second entry %+v", e)
	}
	if x, _ := e.Observation.Float("x"); x != 9 {
		t.Fatalf("unexpected x %v", x)
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read(Path(t.TempDir(), "none")); err == nil {
		t.Fatal("expected error for missing trace")
	}
}
