package hsmx

import (
	"fmt"
	"sync/atomic"
)

// MachineRef is a stable index into the chart arena. Parent links are stored as
// refs, never as pointers.
type MachineRef int

// NoMachine marks the absence of a parent.
const NoMachine MachineRef = -1

// Status is the lifecycle of a machine.
type Status uint32

const (
	StatusIdle Status = iota
	StatusActive
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

type historyRule struct {
	pause  EventID
	resume EventID
}

// Machine owns a transition table over its own states. A machine is either the
// chart root or attached to exactly one slot (nested state or orthogonal region)
// of another machine.
type Machine struct {
	ref   MachineRef
	name  string
	chart *Chart

	table  *TransitionTable
	states []StateID
	start  StateID
	stop   StateID

	parent MachineRef
	host   StateID

	retain []historyRule
	vocab  map[EventID]struct{}

	// written by the dispatch consumer only
	active atomic.Int64
	status atomic.Uint32
}

func (m *Machine) Ref() MachineRef { return m.ref }
func (m *Machine) Name() string    { return m.name }
func (m *Machine) Chart() *Chart   { return m.chart }

// Host returns the slot state holding this machine, or NoState for the root.
func (m *Machine) Host() StateID { return m.host }

// Parent returns the machine owning the host slot, or nil for the root.
func (m *Machine) Parent() *Machine {
	return m.chart.machine(m.parent)
}

// StartState returns the designated start state.
func (m *Machine) StartState() StateID { return m.start }

// StopState returns the designated stop state, or NoState.
func (m *Machine) StopState() StateID { return m.stop }

// Active returns the active state, NoState outside entry/exit of the machine.
func (m *Machine) Active() StateID {
	return StateID(m.active.Load())
}

func (m *Machine) Status() Status {
	return Status(m.status.Load())
}

func (m *Machine) setActive(id StateID) {
	m.active.Store(int64(id))
}

func (m *Machine) setStatus(s Status) {
	m.status.Store(uint32(s))
}

// States returns the machine's states in declaration order.
func (m *Machine) States() []*State {
	out := make([]*State, 0, len(m.states))
	for _, id := range m.states {
		out = append(out, m.chart.states[id])
	}
	return out
}

// Transitions returns the machine's transition table, ordered.
func (m *Machine) Transitions() []Transition {
	return m.table.All()
}

// Lookup exposes the machine's table.
func (m *Machine) Lookup(state StateID, event EventID) (Transition, bool) {
	return m.table.Lookup(state, event)
}

// Handles reports whether evt appears in this machine's table or in the table of
// any machine below it. Valid once the chart is started.
func (m *Machine) Handles(evt Event) bool {
	_, ok := m.vocab[evt.ID]
	return ok
}

// State declares a leaf state.
func (m *Machine) State(name string, opts ...StateOption) *State {
	m.chart.mustBeOpen()
	return m.declare(name, KindLeaf, opts)
}

// Nested declares a state slot holding sub. Entering the slot starts sub from its
// start state; leaving it exits sub first.
func (m *Machine) Nested(name string, sub *Machine, opts ...StateOption) (*State, error) {
	if err := m.chart.checkOpen(); err != nil {
		return nil, err
	}
	if err := m.canAttach(sub); err != nil {
		return nil, err
	}
	s := m.declare(name, KindNested, opts)
	s.sub = sub.ref
	sub.parent = m.ref
	sub.host = s.id
	return s, nil
}

// Orthogonal declares a state slot whose regions are all active together.
func (m *Machine) Orthogonal(name string, regions []*Machine, opts ...StateOption) (*State, error) {
	if err := m.chart.checkOpen(); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("orthogonal state %q: %w: no regions", name, ErrInvalidAttachment)
	}
	seen := make(map[MachineRef]struct{}, len(regions))
	for _, r := range regions {
		if err := m.canAttach(r); err != nil {
			return nil, fmt.Errorf("orthogonal state %q: %w", name, err)
		}
		if _, dup := seen[r.ref]; dup {
			return nil, fmt.Errorf("orthogonal state %q: region %q: %w", name, r.name, ErrMachineAttached)
		}
		seen[r.ref] = struct{}{}
	}
	s := m.declare(name, KindOrthogonal, opts)
	for _, r := range regions {
		s.regions = append(s.regions, r.ref)
		r.parent = m.ref
		r.host = s.id
	}
	return s, nil
}

// MustNested is like Nested but panics on error.
func (m *Machine) MustNested(name string, sub *Machine, opts ...StateOption) *State {
	s, err := m.Nested(name, sub, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// MustOrthogonal is like Orthogonal but panics on error.
func (m *Machine) MustOrthogonal(name string, regions []*Machine, opts ...StateOption) *State {
	s, err := m.Orthogonal(name, regions, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Add registers from --evt--> to. A second registration for (from, evt) is
// rejected with a *DuplicateTransitionError.
func (m *Machine) Add(from *State, evt Event, to *State, opts ...TransitionOption) error {
	if err := m.chart.checkOpen(); err != nil {
		return err
	}
	if from == nil || to == nil {
		return fmt.Errorf("machine %q: %w", m.name, ErrForeignState)
	}
	if from.owner != m.ref {
		return fmt.Errorf("machine %q: from %q: %w", m.name, from.name, ErrForeignState)
	}
	if to.owner != m.ref {
		return fmt.Errorf("machine %q: to %q: %w", m.name, to.name, ErrForeignState)
	}
	if evt.IsNull() {
		return fmt.Errorf("machine %q: %w", m.name, ErrNullEvent)
	}
	t := Transition{From: from.id, Event: evt, To: to.id}
	for _, opt := range opts {
		opt(&t)
	}
	if !m.table.add(t) {
		return &DuplicateTransitionError{Machine: m.name, State: from.name, Event: evt.String()}
	}
	return nil
}

// MustAdd is like Add but panics on error.
func (m *Machine) MustAdd(from *State, evt Event, to *State, opts ...TransitionOption) {
	if err := m.Add(from, evt, to, opts...); err != nil {
		panic(err)
	}
}

// SetStart designates the state entered when the machine starts.
func (m *Machine) SetStart(s *State) error {
	if err := m.chart.checkOpen(); err != nil {
		return err
	}
	if s == nil || s.owner != m.ref {
		return fmt.Errorf("machine %q: start: %w", m.name, ErrForeignState)
	}
	m.start = s.id
	return nil
}

// SetStop designates a state that terminates the machine as soon as it is
// entered.
func (m *Machine) SetStop(s *State) error {
	if err := m.chart.checkOpen(); err != nil {
		return err
	}
	if s == nil || s.owner != m.ref {
		return fmt.Errorf("machine %q: stop: %w", m.name, ErrForeignState)
	}
	m.stop = s.id
	return nil
}

// RetainHistory makes the machine remember its active state when it is exited
// because of pause, and resume from it when re-entered because of resume. Any
// other exit or entry forgets and replays the start state.
func (m *Machine) RetainHistory(pause, resume Event) {
	m.chart.mustBeOpen()
	m.retain = append(m.retain, historyRule{pause: pause.ID, resume: resume.ID})
}

func (m *Machine) pausesOn(evt Event) bool {
	for _, r := range m.retain {
		if r.pause == evt.ID {
			return true
		}
	}
	return false
}

func (m *Machine) resumesOn(evt Event) bool {
	for _, r := range m.retain {
		if r.resume == evt.ID {
			return true
		}
	}
	return false
}

func (m *Machine) declare(name string, kind StateKind, opts []StateOption) *State {
	s := &State{
		id:    m.chart.ids.NextStateID(),
		name:  name,
		kind:  kind,
		owner: m.ref,
		sub:   NoMachine,
	}
	for _, opt := range opts {
		opt(s)
	}
	m.chart.states[s.id] = s
	m.states = append(m.states, s.id)
	return s
}

func (m *Machine) canAttach(sub *Machine) error {
	switch {
	case sub == nil:
		return fmt.Errorf("%w: nil machine", ErrInvalidAttachment)
	case sub.chart != m.chart:
		return fmt.Errorf("%w: machine %q belongs to another chart", ErrInvalidAttachment, sub.name)
	case sub.ref == m.chart.root:
		return fmt.Errorf("%w: root machine cannot be nested", ErrInvalidAttachment)
	case sub.parent != NoMachine:
		return fmt.Errorf("machine %q: %w", sub.name, ErrMachineAttached)
	}
	for anc := m; anc != nil; anc = anc.Parent() {
		if anc.ref == sub.ref {
			return fmt.Errorf("%w: machine %q would contain itself", ErrInvalidAttachment, sub.name)
		}
	}
	return nil
}
