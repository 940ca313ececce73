package hsmx

import (
	"cmp"
	"slices"
)

type transitionKey struct {
	state StateID
	event EventID
}

// TransitionTable maps (state, event) to a single transition.
type TransitionTable struct {
	entries map[transitionKey]Transition
}

func newTransitionTable() *TransitionTable {
	return &TransitionTable{entries: make(map[transitionKey]Transition)}
}

// add registers t. It never overwrites; the caller turns false into an error.
func (tt *TransitionTable) add(t Transition) bool {
	k := transitionKey{state: t.From, event: t.Event.ID}
	if _, exists := tt.entries[k]; exists {
		return false
	}
	tt.entries[k] = t
	return true
}

// Lookup returns the transition registered for (state, event).
func (tt *TransitionTable) Lookup(state StateID, event EventID) (Transition, bool) {
	t, ok := tt.entries[transitionKey{state: state, event: event}]
	return t, ok
}

// Len returns the number of registered transitions.
func (tt *TransitionTable) Len() int {
	return len(tt.entries)
}

// All returns every transition ordered by source state then event.
func (tt *TransitionTable) All() []Transition {
	out := make([]Transition, 0, len(tt.entries))
	for _, t := range tt.entries {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Transition) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return a.Event.Compare(b.Event)
	})
	return out
}

func (tt *TransitionTable) events() []EventID {
	seen := make(map[EventID]struct{}, len(tt.entries))
	out := make([]EventID, 0, len(tt.entries))
	for k := range tt.entries {
		if _, ok := seen[k.event]; ok {
			continue
		}
		seen[k.event] = struct{}{}
		out = append(out, k.event)
	}
	return out
}
