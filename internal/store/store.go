package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmcdole/crate/internal/domain"
)

// FetchFunc lists the collection for one scope
type FetchFunc[T domain.Entity] func(ctx context.Context, scope string) ([]T, error)

// Ticket identifies one dispatched refresh. Only the ticket of the most
// recently dispatched refresh for the current scope may settle the store.
type Ticket struct {
	Scope string
	epoch uint64
	seq   uint64
}

// WriteTicket identifies the scope a create or delete was dispatched in
type WriteTicket struct {
	Scope string
	epoch uint64
}

type change[T domain.Entity] struct {
	insert  bool
	item    T
	removed string
}

// Store owns one scope's collection snapshot and its view state.
//
// Reads follow last-dispatched-wins: Begin hands out tickets in dispatch
// order and Settle applies a result only for the newest ticket. Writes that
// settle while a refresh is in flight are journaled and replayed on top of
// that refresh's result, so a stale read can neither drop a created entity
// nor resurrect a deleted one.
type Store[T domain.Entity] struct {
	name   string
	fetch  FetchFunc[T]
	logger *slog.Logger

	mu      sync.Mutex
	scope   string
	epoch   uint64 // Bumped on scope change; invalidates all tickets
	seq     uint64 // Last dispatched refresh
	done    uint64 // Last settled refresh that was applied
	state   domain.ViewState[T]
	journal []change[T]
	subs    []func(domain.ViewState[T])
}

// New creates a store bound to scope
func New[T domain.Entity](name, scope string, fetch FetchFunc[T], logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		name:   name,
		fetch:  fetch,
		logger: logger,
		scope:  scope,
		state:  domain.Loading[T](),
	}
}

// State returns the current view state
func (s *Store[T]) State() domain.ViewState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Scope returns the current scope
func (s *Store[T]) Scope() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Subscribe registers fn to be called after every state transition.
// fn runs on the goroutine that caused the transition, outside the lock.
func (s *Store[T]) Subscribe(fn func(domain.ViewState[T])) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Rescope switches the store to a new scope. Every outstanding ticket is
// invalidated, pending journal entries are dropped and the state resets to
// loading until the next refresh settles.
func (s *Store[T]) Rescope(scope string) {
	s.mu.Lock()
	s.scope = scope
	s.epoch++
	s.done = s.seq
	s.journal = nil
	s.state = domain.Loading[T]()
	s.mu.Unlock()

	s.logger.Debug("store rescoped", "store", s.name, "scope", scope)
}

// Begin dispatches a refresh: the state moves to loading and the returned
// ticket must be passed to Settle (or Fetch) when the read completes.
func (s *Store[T]) Begin() Ticket {
	s.mu.Lock()
	s.seq++
	t := Ticket{Scope: s.scope, epoch: s.epoch, seq: s.seq}
	s.state = domain.Loading[T]()
	state, subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, state)
	return t
}

// Fetch performs the read for t and settles it. It reports whether the
// result was applied and returns the read error either way.
func (s *Store[T]) Fetch(ctx context.Context, t Ticket) (bool, error) {
	items, err := s.fetch(ctx, t.Scope)
	return s.Settle(t, items, err), err
}

// Refresh dispatches and performs a refresh
func (s *Store[T]) Refresh(ctx context.Context) error {
	_, err := s.Fetch(ctx, s.Begin())
	return err
}

// Settle applies a read result. It reports false when t was superseded by a
// later refresh or by a scope change, in which case nothing changes.
func (s *Store[T]) Settle(t Ticket, items []T, err error) bool {
	s.mu.Lock()
	if t.epoch != s.epoch || t.seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale refresh", "store", s.name, "scope", t.Scope, "seq", t.seq)
		return false
	}

	s.done = t.seq
	if err != nil {
		s.state = domain.Failed[T](domain.Describe(err))
		s.journal = nil
	} else {
		items = slices.Clone(items)
		for _, c := range s.journal {
			items = apply(items, c)
		}
		s.journal = nil
		s.state = domain.Loaded(items)
	}
	state, subs := s.snapshot()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("refresh failed", "store", s.name, "scope", t.Scope, "error", err)
	}
	notify(subs, state)
	return true
}

// BeginWrite records the scope a create or delete is dispatched in
func (s *Store[T]) BeginWrite() WriteTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteTicket{Scope: s.scope, epoch: s.epoch}
}

// Inserted applies a successful create. Entities already present (by ID)
// are not added again. It reports false when the store holds an error state
// and the entity could not be placed; the caller should refresh.
func (s *Store[T]) Inserted(w WriteTicket, item T) bool {
	return s.write(w, change[T]{insert: true, item: item})
}

// Removed applies a successful delete
func (s *Store[T]) Removed(w WriteTicket, id string) {
	s.write(w, change[T]{removed: id})
}

func (s *Store[T]) write(w WriteTicket, c change[T]) bool {
	s.mu.Lock()
	if w.epoch != s.epoch {
		// Scope was abandoned while the write was in flight
		s.mu.Unlock()
		return true
	}
	if s.seq != s.done {
		s.journal = append(s.journal, c)
		s.mu.Unlock()
		return true
	}
	if !s.state.IsSettled() {
		s.mu.Unlock()
		return false
	}

	s.state = domain.Loaded(apply(slices.Clone(s.state.Items), c))
	state, subs := s.snapshot()
	s.mu.Unlock()

	notify(subs, state)
	return true
}

func (s *Store[T]) snapshot() (domain.ViewState[T], []func(domain.ViewState[T])) {
	return s.state, slices.Clone(s.subs)
}

func notify[T any](subs []func(domain.ViewState[T]), state domain.ViewState[T]) {
	for _, fn := range subs {
		fn(state)
	}
}

// apply folds one journaled write into a collection
func apply[T domain.Entity](items []T, c change[T]) []T {
	if c.insert {
		if slices.ContainsFunc(items, func(it T) bool { return it.GetID() == c.item.GetID() }) {
			return items
		}
		return append(items, c.item)
	}
	return slices.DeleteFunc(items, func(it T) bool { return it.GetID() == c.removed })
}
