package hsmx

import (
	"errors"
	"fmt"
	"strings"
)

type nodeKind uint8

const (
	nodeLeaf nodeKind = iota
	nodeCompound
	nodeParallel
)

// node is a state declared through the builder, resolved into machines on Build.
type node struct {
	path     string
	parent   *node
	children []*node
	kind     nodeKind
	initial  string
	final    bool

	entry, exit, execute Action
	retain               [][2]string
}

type pendingTransition struct {
	from, event, to string
	opts            []TransitionOption
}

// Builder provides a fluent API for constructing charts using dot-separated
// state paths instead of explicit machines. A compound state becomes a nested
// machine over its children; each child of a parallel state becomes a region.
type Builder struct {
	chart       *Chart
	root        *node
	nodes       map[string]*node
	transitions []pendingTransition
	states      map[string]*State
	built       bool
}

// StateBuilder provides fluent methods for configuring individual states.
type StateBuilder struct {
	b *Builder
	n *node
}

// NewBuilder creates a builder whose root machine starts in initial.
func NewBuilder(rootName, initial string, opts ...ChartOption) *Builder {
	root := &node{kind: nodeCompound, initial: initial}
	return &Builder{
		chart: NewChart(rootName, opts...),
		root:  root,
		nodes: map[string]*node{"": root},
	}
}

// Chart returns the chart under construction.
func (b *Builder) Chart() *Chart { return b.chart }

// Event returns the chart event named name.
func (b *Builder) Event(name string) Event { return b.chart.Event(name) }

// State creates or retrieves a state by path.
// Supports dot notation for hierarchical states (e.g., "parent.child").
// Missing parents are created as compound states.
func (b *Builder) State(path string) *StateBuilder {
	return &StateBuilder{b: b, n: b.node(path)}
}

func (b *Builder) node(path string) *node {
	if n, ok := b.nodes[path]; ok {
		return n
	}
	parentPath, _ := splitPath(path)
	parent := b.node(parentPath)
	if parent.kind == nodeLeaf {
		parent.kind = nodeCompound
	}
	n := &node{path: path, parent: parent}
	parent.children = append(parent.children, n)
	b.nodes[path] = n
	return n
}

// ID returns the id of the state at path once Build succeeded, or NoState.
func (b *Builder) ID(path string) StateID {
	if s := b.states[path]; s != nil {
		return s.id
	}
	return NoState
}

// Lookup returns the state at path once Build succeeded.
func (b *Builder) Lookup(path string) *State {
	return b.states[path]
}

// Build resolves the declared tree into machines and transitions. It can only
// be called once.
func (b *Builder) Build() (*Chart, error) {
	if b.built {
		return nil, errors.New("builder: already built")
	}
	b.built = true
	b.states = make(map[string]*State, len(b.nodes))

	if err := b.fill(b.chart.Root(), b.root); err != nil {
		return nil, err
	}

	var errs []error
	for _, t := range b.transitions {
		if err := b.addTransition(t); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := b.chart.Validate(); err != nil {
		return nil, err
	}
	return b.chart, nil
}

// fill declares the children of n as states of m.
func (b *Builder) fill(m *Machine, n *node) error {
	if n.kind == nodeParallel {
		return fmt.Errorf("builder: parallel state %q used as a region", n.path)
	}
	if len(n.children) == 0 {
		return fmt.Errorf("builder: state %q has no children", displayPath(n.path, b.chart.name))
	}
	for _, c := range n.children {
		opts := []StateOption{OnEntry(c.entry), OnExit(c.exit), OnExecute(c.execute)}
		var s *State
		var err error
		switch c.kind {
		case nodeLeaf:
			s = m.State(c.path, opts...)
		case nodeCompound:
			sub := b.chart.NewMachine(c.path)
			if err := b.fill(sub, c); err != nil {
				return err
			}
			s, err = m.Nested(c.path, sub, opts...)
		case nodeParallel:
			regions := make([]*Machine, 0, len(c.children))
			for _, r := range c.children {
				if r.kind == nodeLeaf {
					return fmt.Errorf("builder: region %q of parallel state %q has no states", r.path, c.path)
				}
				rm := b.chart.NewMachine(r.path)
				if err := b.fill(rm, r); err != nil {
					return err
				}
				regions = append(regions, rm)
			}
			s, err = m.Orthogonal(c.path, regions, opts...)
		}
		if err != nil {
			return fmt.Errorf("builder: %w", err)
		}
		b.states[c.path] = s
		if c.final {
			if err := m.SetStop(s); err != nil {
				return fmt.Errorf("builder: %w", err)
			}
		}
	}

	if n.initial == "" {
		return fmt.Errorf("builder: compound state %q must have an initial state", displayPath(n.path, b.chart.name))
	}
	start := b.states[joinPath(n.path, n.initial)]
	if start == nil || start.owner != m.ref {
		return fmt.Errorf("builder: state %q has invalid initial state %q", displayPath(n.path, b.chart.name), n.initial)
	}
	if err := m.SetStart(start); err != nil {
		return fmt.Errorf("builder: %w", err)
	}
	for _, r := range n.retain {
		m.RetainHistory(b.chart.Event(r[0]), b.chart.Event(r[1]))
	}
	return nil
}

func (b *Builder) addTransition(t pendingTransition) error {
	from := b.states[t.from]
	if from == nil {
		return fmt.Errorf("builder: transition on %q from unknown state %q", t.event, t.from)
	}
	to := b.states[t.to]
	if to == nil {
		return fmt.Errorf("builder: transition on %q from %q to unknown state %q", t.event, t.from, t.to)
	}
	if from.owner != to.owner {
		return fmt.Errorf("builder: transition on %q from %q to %q crosses machines: %w", t.event, t.from, t.to, ErrForeignState)
	}
	return b.chart.machines[from.owner].Add(from, b.chart.Event(t.event), to, t.opts...)
}

// splitPath splits a hierarchical path into parent and name components.
// For example, "parent.child" returns ("parent", "child").
// For "child", returns ("", "child").
func splitPath(path string) (parent, name string) {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func displayPath(path, root string) string {
	if path == "" {
		return root
	}
	return path
}

// StateBuilder fluent methods

// Compound marks this state as a compound state with the given initial child.
// initial is the child name relative to this state.
func (sb *StateBuilder) Compound(initial string) *StateBuilder {
	sb.n.kind = nodeCompound
	sb.n.initial = initial
	return sb
}

// Parallel marks this state as a parallel state. Each child is a region and
// must itself be a compound state.
func (sb *StateBuilder) Parallel() *StateBuilder {
	sb.n.kind = nodeParallel
	return sb
}

// Final marks this state as the stop state of its machine. Entering it
// terminates that machine.
func (sb *StateBuilder) Final() *StateBuilder {
	sb.n.final = true
	return sb
}

// Entry sets the entry action for this state.
func (sb *StateBuilder) Entry(action Action) *StateBuilder {
	sb.n.entry = action
	return sb
}

// Exit sets the exit action for this state.
func (sb *StateBuilder) Exit(action Action) *StateBuilder {
	sb.n.exit = action
	return sb
}

// Execute sets the action run before any transition leaves this state.
func (sb *StateBuilder) Execute(action Action) *StateBuilder {
	sb.n.execute = action
	return sb
}

// RetainHistory makes this compound state resume its last active child when it
// is left on pause and re-entered on resume.
func (sb *StateBuilder) RetainHistory(pause, resume string) *StateBuilder {
	sb.n.retain = append(sb.n.retain, [2]string{pause, resume})
	return sb
}

// On adds a transition to the sibling state at target path.
func (sb *StateBuilder) On(event, target string, opts ...TransitionOption) *StateBuilder {
	sb.b.transitions = append(sb.b.transitions, pendingTransition{
		from:  sb.n.path,
		event: event,
		to:    target,
		opts:  opts,
	})
	return sb
}

// OnInternal adds a transition that runs its action without leaving the state.
func (sb *StateBuilder) OnInternal(event string, opts ...TransitionOption) *StateBuilder {
	return sb.On(event, sb.n.path, opts...)
}

// Path returns the full path of the state.
func (sb *StateBuilder) Path() string { return sb.n.path }
