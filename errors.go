package hsmx

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTransition = errors.New("duplicate transition")
	ErrForeignState        = errors.New("state does not belong to machine")
	ErrNullEvent           = errors.New("null event cannot trigger a transition")
	ErrNoStartState        = errors.New("machine has no start state")
	ErrMachineAttached     = errors.New("machine already attached")
	ErrInvalidAttachment   = errors.New("invalid machine attachment")
	ErrDetachedMachine     = errors.New("machine not reachable from root")
	ErrNotStarted          = errors.New("chart not started")
	ErrTerminated          = errors.New("chart terminated")
	ErrQueueStopped        = errors.New("event queue stopped")
	ErrQueueFull           = errors.New("event queue full (backpressure)")
	ErrRuntimeStopped      = errors.New("runtime stopped")
	ErrChartSealed         = errors.New("chart structure is sealed once started")
)

// DuplicateTransitionError is returned when (state, event) is registered twice on
// the same machine.
type DuplicateTransitionError struct {
	Machine string
	State   string
	Event   string
}

func (e *DuplicateTransitionError) Error() string {
	return fmt.Sprintf("machine %q: transition from state %q on event %q already registered", e.Machine, e.State, e.Event)
}

func (e *DuplicateTransitionError) Unwrap() error {
	return ErrDuplicateTransition
}

// Phase names the callback slot that failed.
type Phase string

const (
	PhaseGuard   Phase = "guard"
	PhaseEntry   Phase = "entry"
	PhaseExit    Phase = "exit"
	PhaseExecute Phase = "execute"
	PhaseAction  Phase = "action"
)

// CallbackError wraps an error returned by user code during dispatch, start or
// stop. The engine does not recover from it; the chart keeps whatever state the
// sequence reached.
type CallbackError struct {
	Phase Phase
	State string
	Event Event
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback of state %q failed on event %s: %v", e.Phase, e.State, e.Event, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// IsDuplicateTransitionError reports whether err wraps a *DuplicateTransitionError.
func IsDuplicateTransitionError(err error) bool {
	var e *DuplicateTransitionError
	return errors.As(err, &e)
}

// IsCallbackError reports whether err wraps a *CallbackError.
func IsCallbackError(err error) bool {
	var e *CallbackError
	return errors.As(err, &e)
}
