package core

// Dynamics is the contract between an agent and the simulation kernel.
// The kernel calls exactly one method at a time.
type Dynamics interface {
	Name() string
	// Init is the one-shot entry point. It returns the delay until the
	// first internal transition.
	Init(t Time) (Time, error)
	// TimeAdvance returns the delay until the next internal transition,
	// or Infinity.
	TimeAdvance() (Time, error)
	InternalTransition(t Time) error
	ExternalTransition(events []WireEvent, t Time) error
	Output(t Time) []WireEvent
}

// Observable is implemented by models exposing their state to observers.
// A nil result means nothing to observe.
type Observable interface {
	Observation(t Time) Properties
}
