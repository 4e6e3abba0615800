package core

import "math"

// Time is a simulated instant or delay.
type Time = float64

// Infinity is the "never" time: no wake-up is requested.
var Infinity Time = math.Inf(1)

// IsInfinite reports whether t means "never".
func IsInfinite(t Time) bool { return math.IsInf(t, 1) }

// Port names used on the wire between agents.
const (
	OutputPort = "agent_output"
	InputPort  = "agent_input"
)

// Broadcast is the reserved receiver meaning every live agent.
const Broadcast = "BROADCAST"

// Well-known wire attributes.
const (
	AttrSender   = "sender"
	AttrReceiver = "receiver"
	AttrSubject  = "subject"
	AttrFrom     = "from"
	AttrTo       = "to"
	AttrTime     = "time"
	AttrType     = "type"
)
