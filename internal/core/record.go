package core

import (
	"github.com/google/uuid"
)

// Record is one routed wire event as seen by observers.
type Record struct {
	ID       string                 `json:"id"`
	RunID    string                 `json:"run_id"`
	Time     Time                   `json:"time"`
	Sender   string                 `json:"sender"`
	Receiver string                 `json:"receiver"`
	Subject  string                 `json:"subject"`
	Payload  map[string]interface{} `json:"payload"`
}

// NewRecord captures ev emitted by sender at t.
func NewRecord(runID string, t Time, sender string, ev WireEvent) Record {
	return Record{
		ID:       uuid.NewString(),
		RunID:    runID,
		Time:     t,
		Sender:   ev.Attrs.TextOr(AttrSender, sender),
		Receiver: ev.Attrs.TextOr(AttrReceiver, Broadcast),
		Subject:  ev.Attrs.TextOr(AttrSubject, ev.Attrs.TextOr(AttrType, "")),
		Payload:  ev.Attrs.Interface(),
	}
}

// Observation is the observable state of one agent at Time.
type Observation struct {
	RunID  string                 `json:"run_id"`
	Time   Time                   `json:"time"`
	Agent  string                 `json:"agent"`
	Values map[string]interface{} `json:"values"`
}

func NewObservation(runID string, t Time, agent string, p Properties) Observation {
	return Observation{RunID: runID, Time: t, Agent: agent, Values: p.Interface()}
}

// Float returns a numeric observed value.
func (o Observation) Float(key string) (float64, bool) {
	f, ok := o.Values[key].(float64)
	return f, ok
}
