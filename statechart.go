package hsmx

import (
	"cmp"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
)

// StateID identifies a state within its chart.
type StateID int

// EventID identifies an event name within its chart.
type EventID int

// NoState is the zero StateID. No allocated state ever carries it.
const NoState StateID = 0

// NullEventID is reserved for the synthetic event used on start and stop.
const NullEventID EventID = 0

// Event is a value type identified by ID. Name and Payload never take part in
// comparisons.
type Event struct {
	ID      EventID
	Name    string
	Payload any
}

// NullEvent is delivered to entry and exit callbacks run by Start and Stop.
var NullEvent = Event{ID: NullEventID, Name: "null"}

// With returns a copy of the event carrying payload.
func (e Event) With(payload any) Event {
	e.Payload = payload
	return e
}

// Is reports whether e and o are the same event.
func (e Event) Is(o Event) bool {
	return e.ID == o.ID
}

// IsNull reports whether e is the synthetic start/stop signal.
func (e Event) IsNull() bool {
	return e.ID == NullEventID
}

// Compare orders events by ID.
func (e Event) Compare(o Event) int {
	return cmp.Compare(e.ID, o.ID)
}

// Decode copies the payload into out, which must be a pointer. Map payloads are
// decoded field by field, so producers may send a map[string]any while the
// state code reads a struct.
func (e Event) Decode(out any) error {
	if e.Payload == nil {
		return fmt.Errorf("event %s: empty payload", e)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "hsmx",
	})
	if err != nil {
		return fmt.Errorf("event %s: %w", e, err)
	}
	if err := dec.Decode(e.Payload); err != nil {
		return fmt.Errorf("event %s: decode payload: %w", e, err)
	}
	return nil
}

func (e Event) String() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("event#%d", e.ID)
}

// Action is the signature of entry, exit, execute and transition callbacks.
type Action func(ctx context.Context, evt Event) error

// Guard decides whether a matched transition fires.
type Guard func(ctx context.Context, evt Event) (bool, error)

// StateKind tags what a state slot holds.
type StateKind uint8

const (
	KindLeaf StateKind = iota
	KindNested
	KindOrthogonal
)

func (k StateKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindNested:
		return "nested"
	case KindOrthogonal:
		return "orthogonal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// State is a node owned by exactly one Machine. Its structure never changes after
// it is declared.
type State struct {
	id    StateID
	name  string
	kind  StateKind
	owner MachineRef

	sub     MachineRef
	regions []MachineRef

	entry   Action
	exit    Action
	execute Action
}

func (s *State) ID() StateID       { return s.id }
func (s *State) Name() string      { return s.name }
func (s *State) Kind() StateKind   { return s.kind }
func (s *State) Owner() MachineRef { return s.owner }

// Sub returns the nested machine of a KindNested state, or NoMachine.
func (s *State) Sub() MachineRef {
	if s.kind != KindNested {
		return NoMachine
	}
	return s.sub
}

// Regions returns the regions of a KindOrthogonal state in declaration order.
func (s *State) Regions() []MachineRef {
	return append([]MachineRef(nil), s.regions...)
}

func (s *State) String() string {
	if s.name != "" {
		return s.name
	}
	return fmt.Sprintf("state#%d", s.id)
}

// StateOption configures a state when it is declared.
type StateOption func(*State)

// OnEntry sets the callback run when the state becomes active.
func OnEntry(a Action) StateOption {
	return func(s *State) { s.entry = a }
}

// OnExit sets the callback run when the state is left.
func OnExit(a Action) StateOption {
	return func(s *State) { s.exit = a }
}

// OnExecute sets the do-behaviour run on the state before any transition out of
// it (or internal transition on it) is applied.
func OnExecute(a Action) StateOption {
	return func(s *State) { s.execute = a }
}

// Transition maps (From, Event) to To. From == To marks an internal transition.
type Transition struct {
	From   StateID
	Event  Event
	To     StateID
	Guard  Guard
	Action Action
}

// Internal reports whether the transition skips exit and entry.
func (t Transition) Internal() bool {
	return t.From == t.To
}

// TransitionOption configures a transition at registration.
type TransitionOption func(*Transition)

// WithGuard gates the transition. A nil guard always passes.
func WithGuard(g Guard) TransitionOption {
	return func(t *Transition) { t.Guard = g }
}

// WithAction sets the side effect run between exit(from) and entry(to). It only
// runs when the guard passes.
func WithAction(a Action) TransitionOption {
	return func(t *Transition) { t.Action = a }
}

// IDAllocator hands out monotonic state and event ids. A chart owns one unless
// WithIDAllocator shares an allocator between charts.
type IDAllocator struct {
	states atomic.Int64
	events atomic.Int64
}

// NewIDAllocator returns an allocator whose first ids are 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// NextStateID returns the next unused state id.
func (a *IDAllocator) NextStateID() StateID {
	return StateID(a.states.Add(1))
}

// NextEventID returns the next unused event id.
func (a *IDAllocator) NextEventID() EventID {
	return EventID(a.events.Add(1))
}
