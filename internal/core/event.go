package core

// Tie-break keys compared, in order, when two events share a time.
var eventTieBreak = []string{"new_x", "new_y", "collision_distance"}

// Event is a timestamped property bag, scheduled by an agent or carried
// on the wire.
type Event struct {
	ID    string
	Time  Time
	Props Properties
}

// NewKeyedEvent returns an event whose identity is key, so that a later
// event with the same key supersedes it in a scheduler.
func NewKeyedEvent(key string, t Time) Event {
	return Event{ID: key, Time: t, Props: NewProperties()}
}

func (e Event) When() Time { return e.Time }

func (e Event) SameAs(o Event) bool { return e.ID == o.ID }

// Less orders by time, then by new_x, new_y, collision_distance (absent
// after present), then by content and finally by identity.
func (e Event) Less(o Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	for _, key := range eventTieBreak {
		a, aerr := e.Props.Number(key)
		b, berr := o.Props.Number(key)
		switch {
		case aerr != nil && berr != nil:
			continue
		case aerr != nil:
			return false
		case berr != nil:
			return true
		case a != b:
			return a < b
		}
	}
	if fa, fb := e.Props.Fingerprint(), o.Props.Fingerprint(); fa != fb {
		return fa < fb
	}
	return e.ID < o.ID
}

func (e Event) Clone() Event {
	return Event{ID: e.ID, Time: e.Time, Props: e.Props.Clone()}
}
