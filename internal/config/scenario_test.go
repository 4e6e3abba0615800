package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const bounce = `
name: bounce
until: 20
seed: 7
agents:
  - name: wall0
    kind: wall
    params: {x1: 0, y1: 0, x2: 0, y2: 10}
  - name: ball0
    kind: ball
    params: {x: 5, y: 5, dx: -1, dy: 0.5, radius: 1}
observers:
  trace: /tmp/traces
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounce.yaml")
	if err := os.WriteFile(path, []byte(bounce), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "bounce" || sc.Until != 20 || sc.Seed != 7 || len(sc.Agents) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Observers.Topic != DefaultTopic || sc.Observers.Trace != "/tmp/traces" {
		t.Fatalf("unexpected observers %+v", sc.Observers)
	}
	p, err := sc.Agents[1].Properties()
	if err != nil {
		t.Fatalf("properties: %v", err)
	}
	if dy, _ := p.Number("dy"); dy != 0.5 {
		t.Fatalf("expected dy 0.5, got %v", dy)
	}
	if x, _ := p.Number("x"); x != 5 {
		t.Fatalf("integer params must become numbers, got %v", x)
	}
}

func TestSchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   "agents: [{name: a, kind: comet}]",
		"missing name":   "agents: [{kind: ball}]",
		"unknown field":  "speed: 3",
		"negative until": "until: -1",
		"bad population": "flock: {population: -2}",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalidScenario) {
			t.Fatalf("%s: expected ErrInvalidScenario, got %v", name, err)
		}
	}
}

func TestDuplicateAgents(t *testing.T) {
	doc := "agents: [{name: a, kind: ball}, {name: a, kind: wall}]"
	if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestFlockDefaults(t *testing.T) {
	sc, err := Parse([]byte("flock: {population: 3}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def := DefaultFlock()
	if sc.Flock.Population != 3 || sc.Flock.Sky != def.Sky || sc.Flock.Speed != def.Speed {
		t.Fatalf("unexpected flock %+v", sc.Flock)
	}
	if sc.Until != DefaultUntil {
		t.Fatalf("expected default until, got %v", sc.Until)
	}
}

func TestEmptyScenario(t *testing.T) {
	sc, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Flock != nil || len(sc.Agents) != 0 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
}
