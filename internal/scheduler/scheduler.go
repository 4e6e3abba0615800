// Package scheduler keeps an agent's pending items in time order.
package scheduler

import (
	"errors"
	"sort"
)

var (
	ErrEmpty     = errors.New("scheduler is empty")
	ErrDuplicate = errors.New("item already scheduled")
	ErrNotFound  = errors.New("item not scheduled")
)

// Item is anything a Scheduler can order and identify.
type Item[T any] interface {
	// Less is a strict total order.
	Less(other T) bool
	// SameAs reports identity, independent of ordering fields.
	SameAs(other T) bool
}

type options struct {
	duplicates bool
}

// Option configures a Scheduler.
type Option func(*options)

// AllowDuplicates makes Add append unconditionally.
func AllowDuplicates() Option {
	return func(o *options) { o.duplicates = true }
}

// Scheduler is a sorted queue of T. It is not safe for concurrent use;
// an agent owns its scheduler.
type Scheduler[T Item[T]] struct {
	items []T
	opts  options
}

// New returns an empty scheduler. By default at most one item per
// identity is kept.
func New[T Item[T]](opts ...Option) *Scheduler[T] {
	s := &Scheduler[T]{}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Add schedules item.
func (s *Scheduler[T]) Add(item T) error {
	if !s.opts.duplicates && s.index(item) >= 0 {
		return ErrDuplicate
	}
	i := sort.Search(len(s.items), func(i int) bool { return item.Less(s.items[i]) })
	var zero T
	s.items = append(s.items, zero)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
	return nil
}

// PeekNext returns the minimum item.
func (s *Scheduler[T]) PeekNext() (T, error) {
	if len(s.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return s.items[0], nil
}

// RemoveNext removes and returns the minimum item.
func (s *Scheduler[T]) RemoveNext() (T, error) {
	if len(s.items) == 0 {
		var zero T
		return zero, ErrEmpty
	}
	next := s.items[0]
	copy(s.items, s.items[1:])
	var zero T
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	return next, nil
}

// Exists reports whether an item with the same identity is scheduled.
func (s *Scheduler[T]) Exists(item T) bool { return s.index(item) >= 0 }

// Get returns the scheduled item sharing item's identity.
func (s *Scheduler[T]) Get(item T) (T, bool) {
	if i := s.index(item); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Update replaces the item with the same identity and restores order.
func (s *Scheduler[T]) Update(item T) error {
	i := s.index(item)
	if i < 0 {
		return ErrNotFound
	}
	s.items[i] = item
	sort.SliceStable(s.items, func(a, b int) bool { return s.items[a].Less(s.items[b]) })
	return nil
}

// Upsert updates item when its identity is scheduled, adds it otherwise.
func (s *Scheduler[T]) Upsert(item T) {
	if s.Exists(item) {
		_ = s.Update(item)
		return
	}
	_ = s.Add(item)
}

func (s *Scheduler[T]) Len() int { return len(s.items) }

func (s *Scheduler[T]) Empty() bool { return len(s.items) == 0 }

// Items returns the scheduled items in order.
func (s *Scheduler[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Scheduler[T]) Clear() { s.items = nil }

func (s *Scheduler[T]) index(item T) int {
	for i := range s.items {
		if s.items[i].SameAs(item) {
			return i
		}
	}
	return -1
}
