package collision

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestLineIntersection(t *testing.T) {
	p, ok := LineIntersection(Point{0, 0}, Point{10, 10}, Point{0, 10}, Point{10, 0})
	if !ok || !near(p.X, 5) || !near(p.Y, 5) {
		t.Fatalf("expected (5,5), got %v ok=%v", p, ok)
	}
	if _, ok := LineIntersection(Point{0, 0}, Point{1, 0}, Point{0, 1}, Point{1, 1}); ok {
		t.Fatal("parallel lines must not intersect")
	}
}

func TestSegmentExtend(t *testing.T) {
	s := NewSegment(Point{0, 0}, Point{0, 10}).Extend(1)
	if !near(s.End1.Y, -1) || !near(s.End2.Y, 11) {
		t.Fatalf("unexpected extension %+v", s)
	}
	one := NewSegment(Point{0, 0}, Point{10, 0}).ExtendEnd(End2, 2)
	if !near(one.End1.X, 0) || !near(one.End2.X, 12) {
		t.Fatalf("unexpected single extension %+v", one)
	}
}

func TestPerpendicularWallImpact(t *testing.T) {
	wall := NewSegment(Point{10, -5}, Point{10, 5})
	c := NewCircle(Point{0, 0}, 1)
	speed := 2.0
	hit, ok := c.SegmentImpact(wall, Vector2d{speed, 0})
	if !ok {
		t.Fatal("expected collision")
	}
	d := 10 - c.Radius
	if !near(hit.Time, d/speed) {
		t.Fatalf("expected time %v got %v", d/speed, hit.Time)
	}
	if !near(hit.Center.X, 10-c.Radius) || !near(hit.Center.Y, 0) {
		t.Fatalf("center should stop one radius before the wall, got %v", hit.Center)
	}
	if !near(hit.Contact.X, 10) {
		t.Fatalf("contact should lie on the wall, got %v", hit.Contact)
	}
}

func TestParallelMotionNeverHits(t *testing.T) {
	wall := NewSegment(Point{10, -5}, Point{10, 5})
	c := NewCircle(Point{0, 0}, 1)
	if c.InCollision(wall, Vector2d{0, 1}) {
		t.Fatal("parallel motion must not collide")
	}
	if c.InCollision(wall, Vector2d{}) {
		t.Fatal("a resting circle must not collide")
	}
}

func TestMovingAwayNeverHits(t *testing.T) {
	wall := NewSegment(Point{10, -5}, Point{10, 5})
	c := NewCircle(Point{0, 0}, 1)
	if c.InCollision(wall, Vector2d{-1, 0}) {
		t.Fatal("moving away must not collide")
	}
}

func TestWallSpan(t *testing.T) {
	wall := NewSegment(Point{0, 0}, Point{0, 10})
	for s := -5.0; s <= 15.0; s += 0.25 {
		c := NewCircle(Point{5, s}, 1)
		got := c.InCollision(wall, Vector2d{-1, 0})
		want := s >= -1 && s <= 11
		if got != want {
			t.Fatalf("s=%v: expected %v got %v", s, want, got)
		}
	}
}

func TestObliqueImpactTouchesWall(t *testing.T) {
	wall := NewSegment(Point{0, 0}, Point{0, 10})
	c := NewCircle(Point{5, 2}, 1)
	hit, ok := c.SegmentImpact(wall, Vector2d{-1, 1})
	if !ok {
		t.Fatal("expected collision")
	}
	if !near(hit.Center.X, 1) || !near(hit.Center.Y, 6) {
		t.Fatalf("unexpected center %v", hit.Center)
	}
	if !near(hit.Center.Distance(hit.Contact), c.Radius) || !near(hit.Contact.X, 0) {
		t.Fatalf("contact %v not on wall at radius distance", hit.Contact)
	}
	if !near(hit.Time, 4) {
		t.Fatalf("expected time 4, got %v", hit.Time)
	}
}

func TestReflectPerpendicular(t *testing.T) {
	wall := NewSegment(Point{10, -5}, Point{10, 5})
	c := NewCircle(Point{9, 0}, 1)
	got := c.ReflectOffSegment(wall, Vector2d{2, 0})
	if !near(got.X, -2) || !near(got.Y, 0) {
		t.Fatalf("expected (-2,0) got %v", got)
	}
}

func TestReflect45(t *testing.T) {
	wall := NewSegment(Point{-10, 0}, Point{10, 0})
	c := NewCircle(Point{0, 5}, 1)
	got := c.ReflectOffSegment(wall, Vector2d{1, -1})
	if !near(got.X, 1) || !near(got.Y, 1) {
		t.Fatalf("expected (1,1) got %v", got)
	}
}

func TestReflectDiagonalWalls(t *testing.T) {
	c := NewCircle(Point{0, 1}, 0.1)
	got := c.ReflectOffSegment(NewSegment(Point{0, 0}, Point{10, 10}), Vector2d{-1, -1})
	if !near(got.X, -1) || !near(got.Y, -1) {
		t.Fatalf("parallel direction should be kept, got %v", got)
	}
	c = NewCircle(Point{0, 0}, 0.1)
	got = c.ReflectOffSegment(NewSegment(Point{0, 10}, Point{10, 0}), Vector2d{20, 20})
	if !near(got.X, -20) || !near(got.Y, -20) {
		t.Fatalf("expected (-20,-20) got %v", got)
	}
}

func TestCircleHeadOn(t *testing.T) {
	r, D, v := 1.0, 10.0, 1.0
	a := NewCircle(Point{0, 0}, r)
	b := NewCircle(Point{D, 0}, r)
	hit, ok := a.CircleImpact(Vector2d{v, 0}, b, Vector2d{-v, 0})
	if !ok {
		t.Fatal("expected collision")
	}
	want := (D - 2*r) / (2 * v)
	if !near(hit.Time, want) {
		t.Fatalf("expected %v got %v", want, hit.Time)
	}
	if !near(hit.Center.X, 4) || !near(hit.OtherCenter.X, 6) || !near(hit.Contact.X, 5) {
		t.Fatalf("unexpected impact %+v", hit)
	}
	if hit.Leaving {
		t.Fatal("approaching circles are not leaving")
	}

	still, ok := a.CircleImpact(Vector2d{1, 0}, NewCircle(Point{D, 0}, r), Vector2d{})
	if !ok || !near(still.Time, D-2*r) {
		t.Fatalf("closing speed v: expected %v got %+v", D-2*r, still)
	}
}

func TestCircleSameVelocity(t *testing.T) {
	a := NewCircle(Point{0, 0}, 1)
	b := NewCircle(Point{3, 0}, 1)
	if _, ok := a.CircleImpact(Vector2d{1, 1}, b, Vector2d{1, 1}); ok {
		t.Fatal("lockstep motion must not collide")
	}
}

func TestCircleCollisionCases(t *testing.T) {
	cases := []struct {
		name   string
		c1, c2 Circle
		d1, d2 Vector2d
		hit    bool
	}{
		{"close head-on", NewCircle(Point{1, 1}, 0.1), NewCircle(Point{2, 1}, 0.1), Vector2d{1, 0}, Vector2d{-1, 0}, true},
		{"offset graze", NewCircle(Point{0, 0}, 0.5), NewCircle(Point{3, 1}, 0.5), Vector2d{1, 0}, Vector2d{-1, 0}, true},
		{"offset miss", NewCircle(Point{0, 0}, 0.5), NewCircle(Point{3, 1.01}, 0.5), Vector2d{1, 0}, Vector2d{-1, 0}, false},
		{"converging", NewCircle(Point{0, 0}, 0.5), NewCircle(Point{3, 0}, 0.5), Vector2d{1, 1}, Vector2d{-1, 1}, true},
		{"too fast", NewCircle(Point{0, 0}, 0.5), NewCircle(Point{3, 0}, 0.5), Vector2d{1, 1}, Vector2d{-2.1, 2.1}, false},
		{"just right", NewCircle(Point{0, 0}, 0.5), NewCircle(Point{3, 0}, 0.5), Vector2d{1, 1}, Vector2d{-2, 2}, true},
	}
	for _, tc := range cases {
		_, ok := tc.c1.CircleImpact(tc.d1, tc.c2, tc.d2)
		if ok != tc.hit {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.hit, ok)
		}
		if _, ok := tc.c1.CircleImpact(tc.d1.Neg(), tc.c2, tc.d2.Neg()); ok {
			t.Fatalf("%s: diverging circles must not collide", tc.name)
		}
	}
}

func TestCircleImpactPoints(t *testing.T) {
	a := NewCircle(Point{0, 0}, 0.5)
	b := NewCircle(Point{3, 0}, 0.5)
	hit, ok := a.CircleImpact(Vector2d{1, 1}, b, Vector2d{-1, 1})
	if !ok {
		t.Fatal("expected collision")
	}
	if !near(hit.Center.X, 1) || !near(hit.Center.Y, 1) {
		t.Fatalf("unexpected center %v", hit.Center)
	}
	if !near(hit.Contact.X, 1.5) || !near(hit.Contact.Y, 1) {
		t.Fatalf("unexpected contact %v", hit.Contact)
	}
	if !near(hit.Center.Distance(hit.Contact), 0.5) {
		t.Fatal("contact must be one radius from the center")
	}

	hit, _ = a.CircleImpact(Vector2d{1, 0}, b, Vector2d{-2, 0})
	if !near(hit.Center.X, 2.0/3.0) || !near(hit.Contact.X, 2.0/3.0+0.5) {
		t.Fatalf("unexpected impact %+v", hit)
	}
}

func TestCircleLeaving(t *testing.T) {
	sense := NewCircle(Point{0, 0}, 5)
	p := NewCircle(Point{2, 0}, 0)
	hit, ok := sense.CircleImpact(Vector2d{1, 0}, p, Vector2d{})
	if !ok || !hit.Leaving {
		t.Fatalf("expected leaving prediction, got %+v ok=%v", hit, ok)
	}
	if !near(hit.Time, 7) {
		t.Fatalf("expected exit at 7, got %v", hit.Time)
	}
}

func TestReflectOffCircle(t *testing.T) {
	a := NewCircle(Point{4, 0}, 1)
	b := NewCircle(Point{6, 0}, 1)
	got := a.ReflectOffCircle(Vector2d{1, 0.5}, b)
	if !near(got.X, -1) || !near(got.Y, 0.5) {
		t.Fatalf("expected (-1,0.5) got %v", got)
	}
}

func TestVectorHelpers(t *testing.T) {
	v := Vector2d{0, 1}.Rotate(math.Pi / 2)
	if !near(v.X, -1) || math.Abs(v.Y) > eps {
		t.Fatalf("rotate: %v", v)
	}
	if a := (Vector2d{1, 0}).Angle(Vector2d{0, 1}); !near(a, math.Pi/2) {
		t.Fatalf("angle: %v", a)
	}
	if _, ok := (Vector2d{}).Normalize(); ok {
		t.Fatal("zero vector has no direction")
	}
	if !Collinear(Vector2d{1, 2}, Vector2d{-2, -4}) {
		t.Fatal("expected collinear")
	}
}

func TestIsCorner(t *testing.T) {
	a := Impact{Position: Point{1, 1}, Distance: 3, Time: 5}
	if !IsCorner(a, Impact{Position: Point{1, 1}, Distance: 4, Time: 6}) {
		t.Fatal("same position is a corner")
	}
	if !IsCorner(a, Impact{Position: Point{2, 2}, Distance: 4, Time: 5}) {
		t.Fatal("same time is a corner")
	}
	if !IsCorner(a, Impact{Position: Point{2, 2}, Distance: 3, Time: 6}) {
		t.Fatal("same distance is a corner")
	}
	if !IsCorner(a, Impact{Position: Point{2, 2}, Distance: 3 + 1e-12, Time: 6}) {
		t.Fatal("distances equal up to rounding are a corner")
	}
	if IsCorner(a, Impact{Position: Point{1, 2}, Distance: 4, Time: 6}) {
		t.Fatal("one matching coordinate is not a corner")
	}
	if IsCorner(a, Impact{Position: Point{2, 2}, Distance: 4, Time: 6}) {
		t.Fatal("distinct impacts are not a corner")
	}
	nan := math.NaN()
	if IsCorner(Impact{Position: Point{nan, nan}, Distance: nan, Time: 5}, Impact{Position: Point{nan, nan}, Distance: nan, Time: 6}) {
		t.Fatal("absent fields never match")
	}
}
