package collision

// End names one extremity of a segment.
type End int

const (
	End1 End = iota
	End2
)

// Segment is a wall between two points.
type Segment struct {
	End1, End2 Point
}

func NewSegment(p1, p2 Point) Segment { return Segment{End1: p1, End2: p2} }

// Direction points from End2 to End1.
func (s Segment) Direction() Vector2d { return s.End1.Sub(s.End2) }

// ExtendEnd moves one end outward along the segment axis by d.
func (s Segment) ExtendEnd(e End, d float64) Segment {
	u, ok := s.Direction().Normalize()
	if !ok {
		return s
	}
	switch e {
	case End1:
		s.End1 = s.End1.Add(u.Scale(d))
	case End2:
		s.End2 = s.End2.Add(u.Scale(-d))
	}
	return s
}

// Extend moves both ends outward by d.
func (s Segment) Extend(d float64) Segment {
	return s.ExtendEnd(End1, d).ExtendEnd(End2, d)
}

// Translate shifts both ends by v.
func (s Segment) Translate(v Vector2d) Segment {
	return Segment{End1: s.End1.Add(v), End2: s.End2.Add(v)}
}

// Spans reports whether the projection of p falls between the two ends.
func (s Segment) Spans(p Point) bool {
	axis := s.End2.Sub(s.End1)
	return p.Sub(s.End1).Dot(axis) >= 0 && p.Sub(s.End2).Dot(axis.Neg()) >= 0
}

// NormalToward is the unit normal of the segment oriented toward p.
func (s Segment) NormalToward(p Point) (Vector2d, bool) {
	u, ok := s.Direction().Normalize()
	if !ok {
		return Vector2d{}, false
	}
	n := u.Perp()
	if n.Dot(p.Sub(s.End1)) < 0 {
		n = n.Neg()
	}
	return n, true
}

// LineIntersection intersects line (p1,p2) with line (p3,p4). ok is
// false when the lines are parallel.
func LineIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	div := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if div == 0 {
		return Point{}, false
	}
	a := p1.X*p2.Y - p1.Y*p2.X
	b := p3.X*p4.Y - p3.Y*p4.X
	x := (a*(p3.X-p4.X) - (p1.X-p2.X)*b) / div
	y := (a*(p3.Y-p4.Y) - (p1.Y-p2.Y)*b) / div
	return Point{x, y}, true
}
