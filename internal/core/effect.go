package core

// EffectKind enumerates the deferred actions of one agent type. Each
// agent type declares its own kinds and binds them to handlers.
type EffectKind uint16

// Effect is a deferred action an agent applies to itself at Time.
// Identity is (Kind, Origin): rescheduling keeps the same effect.
type Effect struct {
	Time   Time
	Kind   EffectKind
	Origin string
	Props  Properties
}

func NewEffect(t Time, kind EffectKind, origin string) Effect {
	return Effect{Time: t, Kind: kind, Origin: origin, Props: NewProperties()}
}

func (e Effect) When() Time { return e.Time }

func (e Effect) SameAs(o Effect) bool { return e.Kind == o.Kind && e.Origin == o.Origin }

func (e Effect) Less(o Effect) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	if e.Kind != o.Kind {
		return e.Kind < o.Kind
	}
	return e.Origin < o.Origin
}

// At returns a copy rescheduled to t.
func (e Effect) At(t Time) Effect {
	c := e.Clone()
	c.Time = t
	return c
}

func (e Effect) Clone() Effect {
	return Effect{Time: e.Time, Kind: e.Kind, Origin: e.Origin, Props: e.Props.Clone()}
}
