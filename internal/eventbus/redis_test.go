package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"go-mas-sim/internal/core"
)

func record(id, subject string) core.Record {
	m := core.NewMessage("ball0", core.Broadcast, subject)
	m.Props.SetNumber("x", 1)
	rec := core.NewRecord("run-1", 2.5, "ball0", m.Wire(core.OutputPort))
	rec.ID = id
	return rec
}

func newBus(t *testing.T) *RedisBus {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	bus := NewRedisBus(&redis.Options{Addr: s.Addr()}, "massim", nil)
	t.Cleanup(func() { bus.Close() })
	return bus
}

func next(t *testing.T, ch <-chan core.Record) core.Record {
	t.Helper()
	select {
	case got := <-ch:
		return got
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for record")
	}
	return core.Record{}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	ch, err := bus.Subscribe(ctx, "ball_position")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	rec := record("1", "ball_position")
	if err := bus.Publish(ctx, rec); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got := next(t, ch)
	if got.ID != rec.ID || got.Subject != "ball_position" || got.Time != 2.5 {
		t.Fatalf("unexpected record %+v", got)
	}
	if x, ok := got.Payload["x"].(float64); !ok || x != 1 {
		t.Fatalf("payload lost: %v", got.Payload)
	}
}

func TestSubscribeFiltersSubjects(t *testing.T) {
	bus := newBus(t)
	ctx := context.Background()
	collisions, err := bus.Subscribe(ctx, "collision")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	all, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe all: %v", err)
	}
	for _, rec := range []core.Record{record("1", "ball_position"), record("2", "collision")} {
		if err := bus.ObserveOutput(ctx, rec); err != nil {
			t.Fatalf("observe: %v", err)
		}
	}
	if got := next(t, collisions); got.ID != "2" {
		t.Fatalf("collision subscriber got %+v", got)
	}
	if a, b := next(t, all), next(t, all); a.ID != "1" || b.ID != "2" {
		t.Fatalf("expected both records in order, got %s %s", a.ID, b.ID)
	}
	if err := bus.ObserveState(ctx, core.Observation{Agent: "ball0"}); err != nil {
		t.Fatalf("observe state: %v", err)
	}
}

func TestChannelNames(t *testing.T) {
	bus := NewRedisBus(&redis.Options{Addr: "localhost:0"}, "massim:records", nil)
	defer bus.Close()
	if got := bus.Channel("collision"); got != "massim:records:collision" {
		t.Fatalf("unexpected channel %q", got)
	}
	if got := bus.Channel(""); got != "massim:records:none" {
		t.Fatalf("unexpected channel %q", got)
	}
}
