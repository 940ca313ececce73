package hsmx

import (
	"context"
	"fmt"
)

// Outcome classifies what a dispatch did. None of these are errors.
type Outcome uint8

const (
	OutcomeHandled Outcome = iota + 1
	OutcomeInternal
	OutcomeGuardRejected
	OutcomeUnhandled
	OutcomeTerminated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeInternal:
		return "internal"
	case OutcomeGuardRejected:
		return "guard_rejected"
	case OutcomeUnhandled:
		return "unhandled"
	case OutcomeTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Result describes a single dispatch. From and To are only set when a machine
// matched the event.
type Result struct {
	Event   Event
	Outcome Outcome
	Machine string
	Leaf    StateID
	From    StateID
	To      StateID
}

// Transitioned reports whether the active configuration changed.
func (r Result) Transitioned() bool {
	return r.Outcome == OutcomeHandled
}

// Start enters the root start state and, recursively, the start states of every
// nested machine and region. Starting an active chart is a no-op.
func (c *Chart) Start(ctx context.Context) error {
	root := c.Root()
	switch root.Status() {
	case StatusActive:
		return nil
	case StatusTerminated:
		return fmt.Errorf("chart %q: %w", c.name, ErrTerminated)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("chart %q: %w", c.name, err)
	}
	if !c.sealed.Load() {
		for ref, v := range c.vocabularies() {
			c.machines[ref].vocab = v
		}
		c.sealed.Store(true)
	}

	c.logger.Debug("chart starting", "chart", c.name)
	return c.enterMachine(ctx, root, NullEvent)
}

// Stop exits the whole active configuration, innermost first, and terminates the
// chart. Stopping a chart that is not active is a no-op.
func (c *Chart) Stop(ctx context.Context) error {
	root := c.Root()
	if root.Status() != StatusActive {
		return nil
	}
	err := c.exitState(ctx, root, c.states[root.Active()], NullEvent)
	root.setActive(NoState)
	root.setStatus(StatusTerminated)
	c.logger.Debug("chart stopped", "chart", c.name)
	return err
}

// Dispatch delivers evt to the deepest active machine and escalates it towards
// the root until a machine has a transition for it. It must only be called by
// one goroutine at a time; execution policies guarantee that.
func (c *Chart) Dispatch(ctx context.Context, evt Event) (Result, error) {
	root := c.Root()
	switch root.Status() {
	case StatusIdle:
		return Result{Event: evt}, fmt.Errorf("chart %q: %w", c.name, ErrNotStarted)
	case StatusTerminated:
		c.logger.Debug("event dropped", "chart", c.name, "event", evt.String(), "reason", "terminated")
		return Result{Event: evt, Outcome: OutcomeTerminated}, nil
	}

	leaf := c.descend(root, evt)
	res := Result{Event: evt, Leaf: leaf.Active()}
	for m := leaf; m != nil; m = m.Parent() {
		t, ok := m.table.Lookup(m.Active(), evt.ID)
		if !ok {
			continue
		}
		res.Machine = m.name
		res.From = t.From
		res.To = t.To
		return c.fire(ctx, m, t, evt, res)
	}

	c.logger.Debug("unhandled event",
		"chart", c.name,
		"event", evt.String(),
		"leaf", c.StateName(res.Leaf),
	)
	res.Outcome = OutcomeUnhandled
	return res, nil
}

// descend follows nested slots and claiming regions down to the machine whose
// active state is the effective dispatch target for evt.
func (c *Chart) descend(m *Machine, evt Event) *Machine {
	for {
		s := c.states[m.Active()]
		if s == nil {
			return m
		}
		switch s.kind {
		case KindNested:
			sub := c.machines[s.sub]
			if sub.Status() != StatusActive {
				return m
			}
			m = sub
		case KindOrthogonal:
			var claimed *Machine
			for _, ref := range s.regions {
				r := c.machines[ref]
				if r.Status() == StatusActive && r.Handles(evt) {
					claimed = r
					break
				}
			}
			if claimed == nil {
				return m
			}
			m = claimed
		default:
			return m
		}
	}
}

func (c *Chart) fire(ctx context.Context, m *Machine, t Transition, evt Event, res Result) (Result, error) {
	from := c.states[t.From]
	if t.Guard != nil {
		ok, err := t.Guard(ctx, evt)
		if err != nil {
			return res, &CallbackError{Phase: PhaseGuard, State: from.name, Event: evt, Err: err}
		}
		if !ok {
			c.logger.Debug("guard rejected",
				"chart", c.name,
				"machine", m.name,
				"event", evt.String(),
				"from", from.String(),
			)
			res.Outcome = OutcomeGuardRejected
			return res, nil
		}
	}

	if err := c.call(ctx, PhaseExecute, from, from.execute, evt); err != nil {
		return res, err
	}

	if t.Internal() {
		if err := c.call(ctx, PhaseAction, from, t.Action, evt); err != nil {
			return res, err
		}
		res.Outcome = OutcomeInternal
		return res, nil
	}

	if err := c.exitState(ctx, m, from, evt); err != nil {
		return res, err
	}
	if err := c.call(ctx, PhaseAction, from, t.Action, evt); err != nil {
		return res, err
	}
	to := c.states[t.To]
	if err := c.enterState(ctx, m, to, evt); err != nil {
		return res, err
	}

	c.logger.Debug("transition",
		"chart", c.name,
		"machine", m.name,
		"event", evt.String(),
		"from", from.String(),
		"to", to.String(),
	)
	res.Outcome = OutcomeHandled
	return res, nil
}

func (c *Chart) enterMachine(ctx context.Context, m *Machine, evt Event) error {
	target := m.start
	if m.resumesOn(evt) {
		if id, ok := c.history.Restore(m.ref); ok {
			target = id
		}
	}
	c.history.Clear(m.ref)

	m.setStatus(StatusActive)
	return c.enterState(ctx, m, c.states[target], evt)
}

// enterState runs s's entry, publishes it as m's active state, then enters
// whatever s holds. Entering the stop state terminates m right away.
func (c *Chart) enterState(ctx context.Context, m *Machine, s *State, evt Event) error {
	if err := c.call(ctx, PhaseEntry, s, s.entry, evt); err != nil {
		return err
	}
	m.setActive(s.id)

	switch s.kind {
	case KindNested:
		if err := c.enterMachine(ctx, c.machines[s.sub], evt); err != nil {
			return err
		}
	case KindOrthogonal:
		for _, r := range s.regions {
			if err := c.enterMachine(ctx, c.machines[r], evt); err != nil {
				return err
			}
		}
	}

	if s.id == m.stop {
		return c.terminate(ctx, m, evt)
	}
	return nil
}

func (c *Chart) exitMachine(ctx context.Context, m *Machine, evt Event) error {
	if m.Status() != StatusActive {
		return nil
	}
	if m.pausesOn(evt) {
		c.history.Record(m.ref, m.Active())
	}
	err := c.exitState(ctx, m, c.states[m.Active()], evt)
	m.setActive(NoState)
	m.setStatus(StatusIdle)
	return err
}

// exitState exits whatever s holds, then runs s's own exit.
func (c *Chart) exitState(ctx context.Context, m *Machine, s *State, evt Event) error {
	if s == nil {
		return nil
	}
	switch s.kind {
	case KindNested:
		if err := c.exitMachine(ctx, c.machines[s.sub], evt); err != nil {
			return err
		}
	case KindOrthogonal:
		for _, r := range s.regions {
			if err := c.exitMachine(ctx, c.machines[r], evt); err != nil {
				return err
			}
		}
	}
	return c.call(ctx, PhaseExit, s, s.exit, evt)
}

// terminate stops m after it entered its stop state. A terminated nested machine
// leaves its host slot as a plain leaf until the slot is re-entered.
func (c *Chart) terminate(ctx context.Context, m *Machine, evt Event) error {
	err := c.exitState(ctx, m, c.states[m.Active()], evt)
	m.setActive(NoState)
	m.setStatus(StatusTerminated)
	c.logger.Debug("machine terminated", "chart", c.name, "machine", m.name)
	return err
}

func (c *Chart) call(ctx context.Context, phase Phase, s *State, fn Action, evt Event) error {
	if fn == nil {
		return nil
	}
	if err := fn(ctx, evt); err != nil {
		return &CallbackError{Phase: phase, State: s.name, Event: evt, Err: err}
	}
	return nil
}
