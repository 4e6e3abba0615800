package blackboard

import (
	"context"
	"errors"

	"go-mas-sim/internal/core"
)

// ErrNotFound is returned by Get for an agent with no stored observation.
var ErrNotFound = errors.New("no observation stored")

// Update is published whenever an agent's observation changes.
type Update struct {
	Agent       string           `json:"agent"`
	Version     int64            `json:"version"`
	Observation core.Observation `json:"observation"`
}

// Store keeps the latest observation of every agent.
type Store interface {
	Put(ctx context.Context, obs core.Observation) (int64, error)
	Get(ctx context.Context, agent string) (core.Observation, int64, error)
	Txn(ctx context.Context, batch []core.Observation) error
	Snapshot(ctx context.Context) (map[string]core.Observation, error)
	Watch(ctx context.Context, agentPattern string) (<-chan Update, error)
	Delete(ctx context.Context, agent string) error
	Close() error
}
