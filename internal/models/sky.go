package models

import (
	"go-mas-sim/internal/agent"
	"go-mas-sim/internal/core"
)

const (
	attrMinX = "min_x"
	attrMaxX = "max_x"
	attrMinY = "min_y"
	attrMaxY = "max_y"
)

// Sky is the rectangle birds fly in. It tells every bird that moves
// where the bounds are.
type Sky struct {
	MinX, MaxX, MinY, MaxY float64
}

func (s *Sky) Init(a *agent.Agent[core.Event]) error { return nil }

func (s *Sky) Dynamic(a *agent.Agent[core.Event]) error { return nil }

func (s *Sky) HandleMessage(a *agent.Agent[core.Event], msg core.Message) error {
	if msg.Subject != SubjectBirdPosition {
		return nil
	}
	m := core.NewMessage(a.Name(), msg.Sender, SubjectEnterAgain)
	m.Props.SetNumber(attrMinX, s.MinX)
	m.Props.SetNumber(attrMaxX, s.MaxX)
	m.Props.SetNumber(attrMinY, s.MinY)
	m.Props.SetNumber(attrMaxY, s.MaxY)
	a.Send(m)
	return nil
}
