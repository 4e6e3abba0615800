package agent

import (
	"errors"
	"fmt"

	"go-mas-sim/internal/core"
)

// ErrUnknownEffect is returned when no handler is bound to an effect kind.
var ErrUnknownEffect = errors.New("unknown effect")

// EffectFunc applies an effect to the agent that scheduled it.
type EffectFunc func(e core.Effect) error

type effectHandler struct {
	name string
	fn   EffectFunc
}

// EffectTable binds the effect kinds of one agent type to handlers.
type EffectTable struct {
	handlers map[core.EffectKind]effectHandler
}

func NewEffectTable() *EffectTable {
	return &EffectTable{handlers: make(map[core.EffectKind]effectHandler)}
}

// Register binds kind to fn. Registering a kind twice replaces it.
func (t *EffectTable) Register(kind core.EffectKind, name string, fn EffectFunc) {
	t.handlers[kind] = effectHandler{name: name, fn: fn}
}

// Apply runs the handler bound to e.Kind.
func (t *EffectTable) Apply(e core.Effect) error {
	h, ok := t.handlers[e.Kind]
	if !ok {
		return fmt.Errorf("kind %d from %q: %w", e.Kind, e.Origin, ErrUnknownEffect)
	}
	if err := h.fn(e); err != nil {
		return fmt.Errorf("%s: %w", h.name, err)
	}
	return nil
}
