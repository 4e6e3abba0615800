package eventbus

import (
	"context"

	"go-mas-sim/internal/core"
)

// Bus carries the routed records of a run, one channel per subject.
type Bus interface {
	Publish(ctx context.Context, rec core.Record) error
	// Subscribe receives the records of the given subjects, or of every
	// subject when none is given.
	Subscribe(ctx context.Context, subjects ...string) (<-chan core.Record, error)
	Close() error
}
