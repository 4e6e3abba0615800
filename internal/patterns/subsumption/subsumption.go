// Package subsumption arbitrates between prioritised steering layers.
// The highest priority layer whose condition holds decides the turn and
// suppresses the layers listed in its Suppress set.
package subsumption

import (
	"log"
	"math"
	"sort"

	"go-mas-sim/internal/collision"
)

// Neighbor is a perceived flockmate.
type Neighbor struct {
	Name     string
	Position collision.Point
	Heading  collision.Vector2d
}

// Sense is what a layer sees when asked to act.
type Sense struct {
	Position  collision.Point
	Heading   collision.Vector2d
	Neighbors []Neighbor
}

// Nearest returns the closest neighbour and its distance.
func (s Sense) Nearest() (Neighbor, float64, bool) {
	var best Neighbor
	dist := math.Inf(1)
	for _, n := range s.Neighbors {
		if d := s.Position.Distance(n.Position); d < dist {
			best, dist = n, d
		}
	}
	return best, dist, len(s.Neighbors) > 0
}

// Layer represents a behavior layer with priority.
type Layer interface {
	Priority() int
	Name() string
	Check(s Sense) bool
	// Execute returns the heading change in radians.
	Execute(s Sense) float64
	Suppress() []int
}

// BaseLayer provides common functionality.
type BaseLayer struct {
	priority int
	name     string
	suppress []int
}

func (l BaseLayer) Priority() int   { return l.priority }
func (l BaseLayer) Name() string    { return l.name }
func (l BaseLayer) Suppress() []int { return l.suppress }

// SeparationLayer turns away from a neighbour closer than Distance.
type SeparationLayer struct {
	BaseLayer
	Distance float64
	MaxTurn  float64 // degrees
}

func NewSeparationLayer(distance, maxTurnDeg float64) *SeparationLayer {
	return &SeparationLayer{
		BaseLayer: BaseLayer{priority: 100, name: "separation", suppress: []int{50, 10}},
		Distance:  distance,
		MaxTurn:   maxTurnDeg,
	}
}

func (l *SeparationLayer) Check(s Sense) bool {
	_, d, ok := s.Nearest()
	return ok && d < l.Distance
}

func (l *SeparationLayer) Execute(s Sense) float64 {
	n, _, _ := s.Nearest()
	return ClampDegrees(n.Heading.Angle(s.Heading), l.MaxTurn)
}

// AlignmentLayer steers towards the mean heading of the neighbours.
type AlignmentLayer struct {
	BaseLayer
	MaxTurn float64 // degrees
}

func NewAlignmentLayer(maxTurnDeg float64) *AlignmentLayer {
	return &AlignmentLayer{
		BaseLayer: BaseLayer{priority: 50, name: "alignment", suppress: []int{10}},
		MaxTurn:   maxTurnDeg,
	}
}

func (l *AlignmentLayer) Check(s Sense) bool { return len(s.Neighbors) > 0 }

func (l *AlignmentLayer) Execute(s Sense) float64 {
	var mean collision.Vector2d
	for _, n := range s.Neighbors {
		mean = mean.Add(n.Heading)
	}
	mean = mean.Scale(1 / float64(len(s.Neighbors)))
	return ClampDegrees(s.Heading.Angle(mean), l.MaxTurn)
}

// CruiseLayer keeps the current heading.
type CruiseLayer struct {
	BaseLayer
}

func NewCruiseLayer() *CruiseLayer {
	return &CruiseLayer{BaseLayer: BaseLayer{priority: 10, name: "cruise"}}
}

func (l *CruiseLayer) Check(s Sense) bool      { return true }
func (l *CruiseLayer) Execute(s Sense) float64 { return 0 }

// Arbiter holds the layers of one agent, highest priority first.
type Arbiter struct {
	layers []Layer
	logger *log.Logger

	activeLayer string
	suppressed  map[string]bool
}

func NewArbiter(logger *log.Logger, layers ...Layer) *Arbiter {
	if logger == nil {
		logger = log.Default()
	}
	a := &Arbiter{logger: logger, suppressed: make(map[string]bool)}
	for _, l := range layers {
		a.AddLayer(l)
	}
	return a
}

func (a *Arbiter) AddLayer(layer Layer) {
	a.layers = append(a.layers, layer)
	sort.SliceStable(a.layers, func(i, j int) bool {
		return a.layers[i].Priority() > a.layers[j].Priority()
	})
}

// Arbitrate runs the first layer whose condition holds and returns its
// turn. With no applicable layer the turn is zero.
func (a *Arbiter) Arbitrate(s Sense) float64 {
	a.suppressed = make(map[string]bool)

	var active Layer
	for _, l := range a.layers {
		if l.Check(s) {
			active = l
			break
		}
	}
	if active == nil {
		return 0
	}
	for _, p := range active.Suppress() {
		for _, l := range a.layers {
			if l.Priority() <= p {
				a.suppressed[l.Name()] = true
			}
		}
	}
	if a.activeLayer != active.Name() {
		a.logger.Printf("steering switch %s -> %s", a.activeLayer, active.Name())
		a.activeLayer = active.Name()
	}
	return active.Execute(s)
}

// Active returns the name of the layer that decided the last turn.
func (a *Arbiter) Active() string { return a.activeLayer }

// Suppressed reports whether the last arbitration suppressed layer name.
func (a *Arbiter) Suppressed(name string) bool { return a.suppressed[name] }

// ClampDegrees limits rad to [-maxDeg, maxDeg] degrees.
func ClampDegrees(rad, maxDeg float64) float64 {
	limit := maxDeg / 180 * math.Pi
	switch {
	case rad > limit:
		return limit
	case rad < -limit:
		return -limit
	}
	return rad
}
