// Package vars supplies values for named test-data variables under a
// distribution policy, including row-aligned combination groups.
package vars

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// Kind selects how values are handed out across draws.
type Kind string

const (
	// KindSequential iterates through values in order.
	KindSequential Kind = "sequential"
	// KindRandom samples uniformly with replacement.
	KindRandom Kind = "random"
	// KindUnique iterates in order, intended for never-repeat data sets.
	KindUnique Kind = "unique"
)

// ErrExhausted is returned when a variable or combination group has handed
// out its last value and recycling is disabled. Callers must treat it as a
// hard stop for the whole user context, not as a failed draw.
var ErrExhausted = errors.New("variable values exhausted")

// Variable is an immutable registration: the value sequence never changes
// after Register. The mutable cursor lives in the store.
type Variable struct {
	Name    string
	Kind    Kind
	Values  []string
	Recycle bool   // wrap to the first value on exhaustion
	Group   string // combination group name, empty for standalone variables
}

type variableState struct {
	def    Variable
	mu     sync.Mutex
	cursor int
}

// group members advance a shared cursor: one row per full pass over the
// declared member order. The cursor is only bumped when the last declared
// member is drawn, so callers must draw members in declared order within a
// row. Member value sequences are assumed equal length; neither contract is
// enforced here.
type group struct {
	members []string
	mu      sync.Mutex
	cursor  int
}

// Store owns all variable and group cursors. Safe for concurrent use; locks
// are per variable and per group so unrelated draws never serialize.
type Store struct {
	mu        sync.RWMutex
	variables map[string]*variableState
	groups    map[string]*group

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewStore creates an empty variable store.
func NewStore() *Store {
	return &Store{
		variables: make(map[string]*variableState),
		groups:    make(map[string]*group),
		rng:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// Register adds a variable. Registering the same name again replaces the
// definition and resets its cursor.
func (s *Store) Register(v Variable) {
	if v.Kind == "" {
		v.Kind = KindSequential
	}
	s.mu.Lock()
	s.variables[v.Name] = &variableState{def: v}
	s.mu.Unlock()
}

// RegisterGroup declares a combination group. Member order defines row
// composition; the last member is the row-advance trigger.
func (s *Store) RegisterGroup(name string, members []string) {
	s.mu.Lock()
	s.groups[name] = &group{members: members}
	s.mu.Unlock()
}

// Placeholder returns the literal placeholder form of a variable name,
// used as the visible fallback for configuration gaps.
func Placeholder(name string) string {
	return fmt.Sprintf("${%s}", name)
}

// Draw returns the next value for the named variable. Unregistered names and
// empty value sequences resolve to the literal placeholder so output shows
// the configuration gap instead of aborting. ErrExhausted is returned when a
// non-recycling sequential/unique variable or combination group hits its
// bound; it terminates the calling user context's run.
func (s *Store) Draw(name, userID string) (string, error) {
	s.mu.RLock()
	state := s.variables[name]
	s.mu.RUnlock()

	if state == nil || len(state.def.Values) == 0 {
		return Placeholder(name), nil
	}

	def := state.def
	if def.Group != "" {
		s.mu.RLock()
		g := s.groups[def.Group]
		s.mu.RUnlock()
		if g != nil {
			return s.drawFromGroup(g, state)
		}
	}

	switch def.Kind {
	case KindRandom:
		s.rngMu.Lock()
		idx := s.rng.Intn(len(def.Values))
		s.rngMu.Unlock()
		return def.Values[idx], nil

	case KindUnique:
		state.mu.Lock()
		defer state.mu.Unlock()
		idx := state.cursor
		if idx >= len(def.Values) {
			if !def.Recycle {
				return "", fmt.Errorf("variable %q: %w", name, ErrExhausted)
			}
			idx = 0
			state.cursor = 0
		}
		state.cursor++
		return def.Values[idx], nil

	default: // KindSequential
		state.mu.Lock()
		defer state.mu.Unlock()
		idx := state.cursor
		if idx >= len(def.Values) {
			if def.Recycle {
				idx = 0
				state.cursor = 0
			} else {
				return "", fmt.Errorf("variable %q: %w", name, ErrExhausted)
			}
		}
		state.cursor++
		return def.Values[idx], nil
	}
}

// drawFromGroup reads the drawn variable's own value sequence at the shared
// row index. The row advances exactly once per full row, when the last
// declared member is drawn.
func (s *Store) drawFromGroup(g *group, state *variableState) (string, error) {
	def := state.def

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := g.cursor
	if idx >= len(def.Values) {
		if def.Recycle {
			idx = 0
			g.cursor = 0
		} else {
			return "", fmt.Errorf("combination group %q: %w", def.Group, ErrExhausted)
		}
	}
	value := def.Values[idx]
	if len(g.members) > 0 && def.Name == g.members[len(g.members)-1] {
		g.cursor++
	}
	return value, nil
}
