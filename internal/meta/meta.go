// Package meta builds model populations from a scenario.
package meta

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"go-mas-sim/internal/collision"
	"go-mas-sim/internal/config"
	"go-mas-sim/internal/core"
)

// ErrCrowded is returned when no free spot is found for a bird.
var ErrCrowded = errors.New("no room left in the sky")

const maxPlacementTries = 10000

// AgentFactory creates models of various kinds.
type AgentFactory interface {
	Create(name, kind string, params core.Properties) (core.Dynamics, error)
}

// Registrar receives the spawned models, usually a kernel coordinator.
type Registrar interface {
	Add(m core.Dynamics) error
}

// Executive spawns models and keeps track of their kinds.
type Executive struct {
	factory  AgentFactory
	target   Registrar
	registry map[string]string
	rng      *rand.Rand
	logger   *log.Logger
}

// NewExecutive returns an Executive drawing random placements from seed.
func NewExecutive(f AgentFactory, target Registrar, seed int64, logger *log.Logger) *Executive {
	if logger == nil {
		logger = log.Default()
	}
	return &Executive{
		factory:  f,
		target:   target,
		registry: make(map[string]string),
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

// SpawnAgent creates a model and registers it.
func (e *Executive) SpawnAgent(name, kind string, params core.Properties) error {
	m, err := e.factory.Create(name, kind, params)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	if err := e.target.Add(m); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	e.registry[name] = kind
	return nil
}

// AgentIDs returns the spawned model names, sorted.
func (e *Executive) AgentIDs() []string {
	ids := make([]string, 0, len(e.registry))
	for id := range e.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Kind returns the kind a model was spawned as.
func (e *Executive) Kind(name string) (string, bool) {
	k, ok := e.registry[name]
	return k, ok
}

// Populate spawns the explicit agents of sc, then its flock.
func (e *Executive) Populate(sc config.Scenario) error {
	for _, a := range sc.Agents {
		params, err := a.Properties()
		if err != nil {
			return err
		}
		if err := e.SpawnAgent(a.Name, a.Kind, params); err != nil {
			return err
		}
	}
	if sc.Flock != nil {
		if err := e.spawnFlock(*sc.Flock); err != nil {
			return err
		}
	}
	e.logger.Printf("populated %d agents", len(e.registry))
	return nil
}

type placed struct {
	center collision.Point
	radius float64
}

func (e *Executive) spawnFlock(f config.Flock) error {
	sky := core.NewProperties()
	sky.SetNumber("min_x", f.Sky.MinX)
	sky.SetNumber("max_x", f.Sky.MaxX)
	sky.SetNumber("min_y", f.Sky.MinY)
	sky.SetNumber("max_y", f.Sky.MaxY)
	if err := e.SpawnAgent("sky", "sky", sky); err != nil {
		return err
	}

	shared, err := core.PropertiesFrom(f.Params)
	if err != nil {
		return fmt.Errorf("flock params: %w", err)
	}
	var birds []placed
	margin := f.Radius.Max
	for i := 0; i < f.Population; i++ {
		radius := e.between(f.Radius)
		c, err := e.freeSpot(f, margin, radius, birds)
		if err != nil {
			return fmt.Errorf("bird%d: %w", i, err)
		}
		speed := e.between(f.Speed)
		heading := collision.Vector2d{X: 0, Y: 1}.Rotate(e.rng.Float64() * 2 * math.Pi)

		params := shared.Clone()
		params.SetNumber("x", c.X)
		params.SetNumber("y", c.Y)
		params.SetNumber("dx", heading.X*speed)
		params.SetNumber("dy", heading.Y*speed)
		params.SetNumber("radius", radius)
		if err := e.SpawnAgent(fmt.Sprintf("bird%d", i), "bird", params); err != nil {
			return err
		}
		birds = append(birds, placed{center: c, radius: radius})
	}
	return nil
}

// freeSpot draws a position at least margin inside the sky where a bird
// of the given radius overlaps no placed bird.
func (e *Executive) freeSpot(f config.Flock, margin, radius float64, birds []placed) (collision.Point, error) {
	for try := 0; try < maxPlacementTries; try++ {
		p := collision.Point{
			X: f.Sky.MinX + margin + e.rng.Float64()*(f.Sky.MaxX-f.Sky.MinX-2*margin),
			Y: f.Sky.MinY + margin + e.rng.Float64()*(f.Sky.MaxY-f.Sky.MinY-2*margin),
		}
		free := true
		for _, b := range birds {
			if p.Distance(b.center) <= b.radius+radius {
				free = false
				break
			}
		}
		if free {
			return p, nil
		}
	}
	return collision.Point{}, ErrCrowded
}

func (e *Executive) between(r config.Range) float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + e.rng.Float64()*(r.Max-r.Min)
}
