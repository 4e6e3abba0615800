// Package config loads simulation scenarios from YAML.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"go-mas-sim/internal/core"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

// ErrInvalidScenario wraps every semantic validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

type Scenario struct {
	Name      string      `yaml:"name"`
	Until     float64     `yaml:"until"`
	Seed      int64       `yaml:"seed"`
	Agents    []AgentSpec `yaml:"agents"`
	Flock     *Flock      `yaml:"flock,omitempty"`
	Observers Observers   `yaml:"observers"`
}

// AgentSpec is one explicitly placed model.
type AgentSpec struct {
	Name   string                 `yaml:"name"`
	Kind   string                 `yaml:"kind"`
	Params map[string]interface{} `yaml:"params"`
}

// Properties converts Params into a property bag.
func (a AgentSpec) Properties() (core.Properties, error) {
	p, err := core.PropertiesFrom(a.Params)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Name, err)
	}
	return p, nil
}

type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type Bounds struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

// Flock describes a randomly placed bird population and its sky.
type Flock struct {
	Sky        Bounds                 `yaml:"sky"`
	Population int                    `yaml:"population"`
	Radius     Range                  `yaml:"radius"`
	Speed      Range                  `yaml:"speed"`
	Params     map[string]interface{} `yaml:"params"`
}

// Observers selects the observation sinks. Empty fields disable a sink.
type Observers struct {
	Redis string `yaml:"redis"`
	Topic string `yaml:"topic"`
	Trace string `yaml:"trace"`
	DB    string `yaml:"db"`
}

const (
	DefaultUntil = 100.0
	DefaultTopic = "massim:records"
)

// DefaultFlock returns the flock used when a scenario gives only part of
// one.
func DefaultFlock() Flock {
	return Flock{
		Sky:        Bounds{MinX: 0, MaxX: 70, MinY: 0, MaxY: 70},
		Population: 10,
		Radius:     Range{Min: 5, Max: 5},
		Speed:      Range{Min: 1, Max: 1},
	}
}

// Load reads, validates and normalizes the scenario at path.
func Load(path string) (Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := Parse(raw)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a YAML scenario.
func Parse(raw []byte) (Scenario, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Scenario{}, err
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if err := validateSchema(doc); err != nil {
		return Scenario{}, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return Scenario{}, err
	}
	sc.normalize(doc)
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// validateSchema checks the decoded YAML document. The schema validator
// expects JSON types, so the document goes through encoding/json first.
func validateSchema(doc interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("scenario is not JSON compatible: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// normalize fills defaults. doc tells which flock fields were present.
func (s *Scenario) normalize(doc interface{}) {
	if s.Until == 0 {
		s.Until = DefaultUntil
	}
	if s.Observers.Topic == "" {
		s.Observers.Topic = DefaultTopic
	}
	if s.Flock == nil {
		return
	}
	def := DefaultFlock()
	given := map[string]interface{}{}
	if m, ok := doc.(map[string]interface{}); ok {
		if f, ok := m["flock"].(map[string]interface{}); ok {
			given = f
		}
	}
	if _, ok := given["sky"]; !ok {
		s.Flock.Sky = def.Sky
	}
	if _, ok := given["population"]; !ok {
		s.Flock.Population = def.Population
	}
	if _, ok := given["radius"]; !ok {
		s.Flock.Radius = def.Radius
	}
	if _, ok := given["speed"]; !ok {
		s.Flock.Speed = def.Speed
	}
}

// Validate checks what the schema cannot express.
func (s Scenario) Validate() error {
	seen := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidScenario, a.Name)
		}
		seen[a.Name] = true
	}
	if f := s.Flock; f != nil {
		if f.Sky.MinX >= f.Sky.MaxX || f.Sky.MinY >= f.Sky.MaxY {
			return fmt.Errorf("%w: empty sky", ErrInvalidScenario)
		}
		if f.Radius.Min > f.Radius.Max || f.Speed.Min > f.Speed.Max {
			return fmt.Errorf("%w: flock range min above max", ErrInvalidScenario)
		}
		if 2*f.Radius.Max >= f.Sky.MaxX-f.Sky.MinX || 2*f.Radius.Max >= f.Sky.MaxY-f.Sky.MinY {
			return fmt.Errorf("%w: sky too small for radius %g", ErrInvalidScenario, f.Radius.Max)
		}
	}
	return nil
}
