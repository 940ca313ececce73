package hsmx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/comalice/hsmx/internal/logging"
)

// ChartOption configures a Chart at construction.
type ChartOption func(*Chart)

// WithIDAllocator shares an id allocator between charts.
func WithIDAllocator(a *IDAllocator) ChartOption {
	return func(c *Chart) {
		if a != nil {
			c.ids = a
		}
	}
}

// WithLogger sets the logger used for transitions and unhandled events. A nil
// logger disables logging.
func WithLogger(l *slog.Logger) ChartOption {
	return func(c *Chart) {
		if l == nil {
			l = logging.NewNop()
		}
		c.logger = l
	}
}

// Chart is the arena owning every machine and state of one hierarchical state
// machine. Structure is declared first, then frozen by Start. Only the
// dispatch consumer mutates active states afterwards.
type Chart struct {
	name   string
	ids    *IDAllocator
	logger *slog.Logger

	machines []*Machine
	states   map[StateID]*State
	root     MachineRef
	history  *HistoryManager
	sealed   atomic.Bool

	eventsMu sync.RWMutex
	events   map[string]Event
}

// NewChart creates a chart with a root machine named name.
func NewChart(name string, opts ...ChartOption) *Chart {
	c := &Chart{
		name:    name,
		ids:     NewIDAllocator(),
		logger:  slog.Default(),
		states:  make(map[StateID]*State),
		events:  make(map[string]Event),
		history: NewHistoryManager(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root = c.NewMachine(name).ref
	return c
}

func (c *Chart) Name() string         { return c.name }
func (c *Chart) Logger() *slog.Logger { return c.logger }
func (c *Chart) Root() *Machine       { return c.machines[c.root] }

// History exposes the retained states of machines using RetainHistory.
func (c *Chart) History() *HistoryManager { return c.history }

// NewMachine allocates a detached machine in the arena. It must be attached with
// Machine.Nested or Machine.Orthogonal before the chart starts.
func (c *Chart) NewMachine(name string) *Machine {
	c.mustBeOpen()
	m := &Machine{
		ref:    MachineRef(len(c.machines)),
		name:   name,
		chart:  c,
		table:  newTransitionTable(),
		parent: NoMachine,
	}
	c.machines = append(c.machines, m)
	return m
}

// Event returns the event registered under name, allocating it on first use.
func (c *Chart) Event(name string) Event {
	c.eventsMu.RLock()
	evt, ok := c.events[name]
	c.eventsMu.RUnlock()
	if ok {
		return evt
	}

	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	if evt, ok := c.events[name]; ok {
		return evt
	}
	evt = Event{ID: c.ids.NextEventID(), Name: name}
	c.events[name] = evt
	return evt
}

// LookupEvent returns the event registered under name without allocating.
func (c *Chart) LookupEvent(name string) (Event, bool) {
	c.eventsMu.RLock()
	defer c.eventsMu.RUnlock()
	evt, ok := c.events[name]
	return evt, ok
}

// Machines returns every machine in arena order, root first.
func (c *Chart) Machines() []*Machine {
	return append([]*Machine(nil), c.machines...)
}

// MachineAt resolves an arena ref. It returns nil for NoMachine.
func (c *Chart) MachineAt(ref MachineRef) *Machine {
	return c.machine(ref)
}

func (c *Chart) machine(ref MachineRef) *Machine {
	if ref < 0 || int(ref) >= len(c.machines) {
		return nil
	}
	return c.machines[ref]
}

// State returns the state with the given id, or nil.
func (c *Chart) State(id StateID) *State {
	return c.states[id]
}

// Find returns the first state named name, searching machines in arena order.
func (c *Chart) Find(name string) *State {
	for _, m := range c.machines {
		for _, id := range m.states {
			if s := c.states[id]; s.name == name {
				return s
			}
		}
	}
	return nil
}

// StateName returns the name of id, or a placeholder for unknown ids.
func (c *Chart) StateName(id StateID) string {
	if id == NoState {
		return "<none>"
	}
	if s := c.states[id]; s != nil {
		return s.String()
	}
	return fmt.Sprintf("state#%d", id)
}

// Status is the lifecycle status of the root machine.
func (c *Chart) Status() Status {
	return c.Root().Status()
}

// CurrentState returns the deepest active state reachable through nested slots.
// Descent stops at an orthogonal slot, whose regions are listed by
// Configuration.
func (c *Chart) CurrentState() StateID {
	m := c.Root()
	for {
		id := m.Active()
		s := c.states[id]
		if s == nil || s.kind != KindNested {
			return id
		}
		sub := c.machines[s.sub]
		if sub.Status() != StatusActive {
			return id
		}
		m = sub
	}
}

// Configuration returns every active state, outer states before inner ones and
// regions in declaration order.
func (c *Chart) Configuration() []StateID {
	var out []StateID
	var walk func(m *Machine)
	walk = func(m *Machine) {
		if m.Status() != StatusActive {
			return
		}
		s := c.states[m.Active()]
		if s == nil {
			return
		}
		out = append(out, s.id)
		switch s.kind {
		case KindNested:
			walk(c.machines[s.sub])
		case KindOrthogonal:
			for _, r := range s.regions {
				walk(c.machines[r])
			}
		}
	}
	walk(c.Root())
	return out
}

// IsActive reports whether id is part of the active configuration.
func (c *Chart) IsActive(id StateID) bool {
	s := c.states[id]
	if s == nil {
		return false
	}
	for m := c.machines[s.owner]; m != nil; {
		if m.Status() != StatusActive || m.Active() != id {
			return false
		}
		if m.parent == NoMachine {
			return true
		}
		id = m.host
		m = c.machines[m.parent]
	}
	return false
}

// Validate checks the structure. It is called by Start; calling it earlier
// surfaces definition errors sooner. A started chart is frozen and always valid.
func (c *Chart) Validate() error {
	if c.sealed.Load() {
		return nil
	}
	var errs []error
	reached := make(map[MachineRef]bool, len(c.machines))
	var visit func(m *Machine)
	visit = func(m *Machine) {
		if reached[m.ref] {
			return
		}
		reached[m.ref] = true
		if m.start == NoState {
			errs = append(errs, fmt.Errorf("machine %q: %w", m.name, ErrNoStartState))
		}
		for _, id := range m.states {
			s := c.states[id]
			switch s.kind {
			case KindNested:
				visit(c.machines[s.sub])
			case KindOrthogonal:
				for _, r := range s.regions {
					visit(c.machines[r])
				}
			}
		}
	}
	visit(c.Root())
	for _, m := range c.machines {
		if !reached[m.ref] {
			errs = append(errs, fmt.Errorf("machine %q: %w", m.name, ErrDetachedMachine))
		}
	}
	return errors.Join(errs...)
}

// vocabularies computes the events each machine or anything below it handles.
// Start publishes the result before sealing.
func (c *Chart) vocabularies() map[MachineRef]map[EventID]struct{} {
	out := make(map[MachineRef]map[EventID]struct{}, len(c.machines))
	c.vocabulary(c.Root(), out)
	return out
}

func (c *Chart) vocabulary(m *Machine, out map[MachineRef]map[EventID]struct{}) map[EventID]struct{} {
	if v, ok := out[m.ref]; ok {
		return v
	}
	v := make(map[EventID]struct{})
	for _, id := range m.table.events() {
		v[id] = struct{}{}
	}
	for _, sid := range m.states {
		s := c.states[sid]
		switch s.kind {
		case KindNested:
			for id := range c.vocabulary(c.machines[s.sub], out) {
				v[id] = struct{}{}
			}
		case KindOrthogonal:
			for _, r := range s.regions {
				for id := range c.vocabulary(c.machines[r], out) {
					v[id] = struct{}{}
				}
			}
		}
	}
	out[m.ref] = v
	return v
}

func (c *Chart) checkOpen() error {
	if c.sealed.Load() {
		return fmt.Errorf("chart %q: %w", c.name, ErrChartSealed)
	}
	return nil
}

func (c *Chart) mustBeOpen() {
	if err := c.checkOpen(); err != nil {
		panic(err)
	}
}
