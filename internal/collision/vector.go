// Package collision predicts impacts between moving circles and walls.
// All functions are pure; degenerate inputs report ok == false.
package collision

import "math"

// Vector2d is a 2D displacement or velocity.
type Vector2d struct {
	X, Y float64
}

func (v Vector2d) Add(o Vector2d) Vector2d { return Vector2d{v.X + o.X, v.Y + o.Y} }

func (v Vector2d) Sub(o Vector2d) Vector2d { return Vector2d{v.X - o.X, v.Y - o.Y} }

func (v Vector2d) Scale(k float64) Vector2d { return Vector2d{v.X * k, v.Y * k} }

func (v Vector2d) Neg() Vector2d { return Vector2d{-v.X, -v.Y} }

func (v Vector2d) Dot(o Vector2d) float64 { return v.X*o.X + v.Y*o.Y }

// Cross is the determinant of (v, o).
func (v Vector2d) Cross(o Vector2d) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vector2d) Norm() float64 { return math.Hypot(v.X, v.Y) }

func (v Vector2d) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns the unit vector; ok is false for the zero vector.
func (v Vector2d) Normalize() (Vector2d, bool) {
	n := v.Norm()
	if n == 0 {
		return Vector2d{}, false
	}
	return Vector2d{v.X / n, v.Y / n}, true
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vector2d) Rotate(angle float64) Vector2d {
	s, c := math.Sincos(angle)
	return Vector2d{c*v.X - s*v.Y, s*v.X + c*v.Y}
}

// Perp is v turned a quarter clockwise.
func (v Vector2d) Perp() Vector2d { return Vector2d{v.Y, -v.X} }

// Angle is the signed angle in radians turning v onto o, in [-pi, pi].
// Zero vectors give 0.
func (v Vector2d) Angle(o Vector2d) float64 {
	if v.IsZero() || o.IsZero() {
		return 0
	}
	return math.Atan2(v.Cross(o), v.Dot(o))
}

// Collinear reports whether a and b are parallel (or either is zero).
func Collinear(a, b Vector2d) bool { return a.Cross(b) == 0 }

// Point is a position in the plane.
type Point struct {
	X, Y float64
}

func (p Point) Add(v Vector2d) Point { return Point{p.X + v.X, p.Y + v.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Vector2d { return Vector2d{p.X - q.X, p.Y - q.Y} }

func (p Point) Distance(q Point) float64 { return p.Sub(q).Norm() }
