package collision

import "math"

// Circle is a round body, re-derived each step from its last known
// position rather than moved incrementally.
type Circle struct {
	Center Point
	Radius float64
}

func NewCircle(center Point, radius float64) Circle {
	return Circle{Center: center, Radius: radius}
}

// Advance returns the circle moved along v for dt.
func (c Circle) Advance(v Vector2d, dt float64) Circle {
	return Circle{Center: c.Center.Add(v.Scale(dt)), Radius: c.Radius}
}

// SegmentImpact describes a circle hitting a wall.
type SegmentImpact struct {
	// Center is where the circle's center is at impact.
	Center Point
	// Contact is the touching point on the wall.
	Contact Point
	// Distance travelled by the center until impact.
	Distance float64
	// Time until impact at the given velocity.
	Time float64
}

// SegmentImpact predicts when a circle moving at v meets seg.
func (c Circle) SegmentImpact(seg Segment, v Vector2d) (SegmentImpact, bool) {
	wall, ok := seg.Direction().Normalize()
	if !ok {
		return SegmentImpact{}, false
	}
	dir, ok := v.Normalize()
	if !ok {
		return SegmentImpact{}, false
	}
	if Collinear(wall, dir) {
		return SegmentImpact{}, false
	}
	n, _ := seg.NormalToward(c.Center)
	if n.Dot(v) >= 0 {
		return SegmentImpact{}, false
	}

	extended := seg.Extend(c.Radius)
	offset := extended.Translate(n.Scale(c.Radius))
	center, ok := LineIntersection(offset.End1, offset.End2, c.Center, c.Center.Add(v))
	if !ok {
		return SegmentImpact{}, false
	}
	travel := center.Sub(c.Center)
	if travel.Dot(v) < 0 {
		// Already overlapping the wall.
		return SegmentImpact{}, false
	}
	contact := center.Add(n.Scale(-c.Radius))
	if !extended.Spans(contact) {
		return SegmentImpact{}, false
	}
	dist := travel.Norm()
	return SegmentImpact{
		Center:   center,
		Contact:  contact,
		Distance: dist,
		Time:     dist / v.Norm(),
	}, true
}

// InCollision reports whether a circle moving at v will hit seg.
func (c Circle) InCollision(seg Segment, v Vector2d) bool {
	_, ok := c.SegmentImpact(seg, v)
	return ok
}

// ReflectOffSegment returns the direction after an elastic bounce on seg:
// the normal component is inverted, the wall-parallel one preserved.
func (c Circle) ReflectOffSegment(seg Segment, v Vector2d) Vector2d {
	wall, ok := seg.Direction().Normalize()
	if !ok {
		return v.Neg()
	}
	n, _ := seg.NormalToward(c.Center)
	along := wall.Scale(wall.Dot(v))
	across := n.Scale(-n.Dot(v))
	return along.Add(across)
}

// CircleImpact describes two circles touching.
type CircleImpact struct {
	// Center of this circle at impact.
	Center Point
	// OtherCenter of the other circle at impact.
	OtherCenter Point
	// Contact is the touching point.
	Contact Point
	// Time until impact.
	Time float64
	// Distance travelled by this circle until impact.
	Distance float64
	// Leaving is set when the circles already overlap: Time is then when
	// they separate.
	Leaving bool
}

// CircleImpact predicts when this circle moving at v and other moving at
// ov have center distance equal to the sum of their radii.
func (c Circle) CircleImpact(v Vector2d, other Circle, ov Vector2d) (CircleImpact, bool) {
	vab := v.Sub(ov)
	pab := c.Center.Sub(other.Center)
	sum := c.Radius + other.Radius

	a := vab.Dot(vab)
	b := 2 * pab.Dot(vab)
	cc := pab.Dot(pab) - sum*sum
	if a == 0 {
		return CircleImpact{}, false
	}
	disc := b*b - 4*a*cc
	if disc < 0 {
		return CircleImpact{}, false
	}
	sq := math.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)

	leaving := cc < 0
	t := t0
	if leaving {
		t = t1
	}
	if t < 0 {
		return CircleImpact{}, false
	}

	ca := c.Center.Add(v.Scale(t))
	cb := other.Center.Add(ov.Scale(t))
	var contact Point
	if sum > 0 {
		contact = cb.Add(ca.Sub(cb).Scale(other.Radius / sum))
	} else {
		contact = ca
	}
	return CircleImpact{
		Center:      ca,
		OtherCenter: cb,
		Contact:     contact,
		Time:        t,
		Distance:    v.Norm() * t,
		Leaving:     leaving,
	}, true
}

// ReflectOffCircle returns this circle's direction after touching other:
// the component along the line of centers is inverted, the perpendicular
// one preserved. Both circles are taken at the moment of impact.
func (c Circle) ReflectOffCircle(v Vector2d, other Circle) Vector2d {
	axis, ok := other.Center.Sub(c.Center).Normalize()
	if !ok {
		return v.Neg()
	}
	perp := axis.Perp()
	return perp.Scale(perp.Dot(v)).Add(axis.Scale(-axis.Dot(v)))
}

// Impact is the part of a prediction used to detect corner cases.
type Impact struct {
	Position Point
	Distance float64
	Time     float64
}

// IsCorner reports whether two predicted impacts coincide on position,
// distance or time. Their reflections cannot both be trusted then.
func IsCorner(a, b Impact) bool {
	return (same(a.Position.X, b.Position.X) && same(a.Position.Y, b.Position.Y)) ||
		same(a.Distance, b.Distance) || same(a.Time, b.Time)
}

// same compares with a relative tolerance. NaN is never the same.
func same(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-9*scale
}
