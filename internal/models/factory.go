package models

import (
	"errors"
	"fmt"
	"log"

	"go-mas-sim/internal/agent"
	"go-mas-sim/internal/core"
)

// Model kinds known to the Factory.
const (
	KindBall = "ball"
	KindWall = "wall"
	KindBird = "bird"
	KindSky  = "sky"
)

// ErrUnknownKind is returned for a kind the Factory cannot build.
var ErrUnknownKind = errors.New("unknown model kind")

// Factory builds models from their kind and parameters.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &Factory{logger: logger}
}

// Create returns a ready-to-add model named name.
func (f *Factory) Create(name, kind string, params core.Properties) (core.Dynamics, error) {
	if params == nil {
		params = core.NewProperties()
	}
	opt := agent.WithLogger(f.logger)
	switch kind {
	case KindBall:
		b := NewBall(
			params.NumberOr(attrX, 0),
			params.NumberOr(attrY, 0),
			params.NumberOr(attrDX, 0),
			params.NumberOr(attrDY, 0),
			params.NumberOr(attrRadius, 1),
		)
		return agent.New[core.Event](name, b, opt), nil
	case KindWall:
		var c [4]float64
		for i, key := range []string{"x1", "y1", "x2", "y2"} {
			v, err := params.Number(key)
			if err != nil {
				return nil, fmt.Errorf("wall %s: %w", name, err)
			}
			c[i] = v
		}
		return agent.New[core.Event](name, NewWall(c[0], c[1], c[2], c[3]), opt), nil
	case KindBird:
		def := DefaultBirdParams()
		p := BirdParams{
			Separation:      params.NumberOr("separation", def.Separation),
			MaxSeparateTurn: params.NumberOr("maxSeparateTurn", def.MaxSeparateTurn),
			MaxAlignTurn:    params.NumberOr("maxAlignTurn", def.MaxAlignTurn),
			Perception:      params.NumberOr("perception", def.Perception),
		}
		b := NewBird(
			params.NumberOr(attrX, 0),
			params.NumberOr(attrY, 0),
			params.NumberOr(attrDX, 0),
			params.NumberOr(attrDY, 1),
			params.NumberOr(attrRadius, 1),
			p,
		)
		return agent.New[core.Effect](name, b, opt), nil
	case KindSky:
		var c [4]float64
		for i, key := range []string{attrMinX, attrMaxX, attrMinY, attrMaxY} {
			v, err := params.Number(key)
			if err != nil {
				return nil, fmt.Errorf("sky %s: %w", name, err)
			}
			c[i] = v
		}
		if c[0] >= c[1] || c[2] >= c[3] {
			return nil, fmt.Errorf("sky %s: empty bounds [%g,%g]x[%g,%g]", name, c[0], c[1], c[2], c[3])
		}
		return agent.New[core.Event](name, &Sky{MinX: c[0], MaxX: c[1], MinY: c[2], MaxY: c[3]}, opt), nil
	}
	return nil, fmt.Errorf("%s: %q: %w", name, kind, ErrUnknownKind)
}
