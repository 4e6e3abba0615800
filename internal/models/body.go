// Package models holds the concrete agents: bouncing balls, walls,
// flocking birds and the sky they wrap around in.
package models

import (
	"go-mas-sim/internal/collision"
	"go-mas-sim/internal/core"
)

// Message subjects and wire attributes shared by the models.
const (
	SubjectBallPosition = "ball_position"
	SubjectBallState    = "ball_state"
	SubjectCollision    = "collision"
	SubjectBirdPosition = "birdPosition"
	SubjectAskPosition  = "askBirdPosition"
	SubjectEnterAgain   = "enterAgain"

	attrX        = "x"
	attrY        = "y"
	attrDX       = "dx"
	attrDY       = "dy"
	attrRadius   = "radius"
	attrNewX     = "new_x"
	attrNewY     = "new_y"
	attrNewDX    = "new_dx"
	attrNewDY    = "new_dy"
	attrDistance = "collision_distance"
	attrWith     = "with"
)

// body is a circle moving in a straight line since a reference time.
type body struct {
	center collision.Point
	dir    collision.Vector2d
	radius float64
	since  core.Time
}

// at returns the circle at t.
func (b body) at(t core.Time) collision.Circle {
	return collision.NewCircle(b.center, b.radius).Advance(b.dir, t-b.since)
}

// rebase moves the reference time to t.
func (b *body) rebase(t core.Time) {
	b.center = b.at(t).Center
	b.since = t
}

// state writes position, heading and radius at t into p.
func (b body) state(t core.Time, p core.Properties) core.Properties {
	c := b.at(t)
	p.SetNumber(attrX, c.Center.X)
	p.SetNumber(attrY, c.Center.Y)
	p.SetNumber(attrDX, b.dir.X)
	p.SetNumber(attrDY, b.dir.Y)
	p.SetNumber(attrRadius, b.radius)
	return p
}

// bodyFrom reads a body from x, y, dx, dy, radius.
func bodyFrom(p core.Properties, t core.Time) (body, error) {
	var vals [5]float64
	for i, key := range []string{attrX, attrY, attrDX, attrDY, attrRadius} {
		f, err := p.Number(key)
		if err != nil {
			return body{}, err
		}
		vals[i] = f
	}
	return body{
		center: collision.Point{X: vals[0], Y: vals[1]},
		dir:    collision.Vector2d{X: vals[2], Y: vals[3]},
		radius: vals[4],
		since:  t,
	}, nil
}
