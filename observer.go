package hsmx

import (
	"context"
	"sync"
	"time"
)

// Notification is published after every dispatch performed by a runtime.
type Notification struct {
	Chart     string
	RuntimeID string
	Policy    string
	Seq       uint64
	Result    Result
	Err       error
	Elapsed   time.Duration
	// Current is the deepest active state after the dispatch.
	Current StateID
}

// Observer receives notifications on the dispatching goroutine, before the
// runtime waits for the next event. Implementations must not block.
type Observer interface {
	Observe(n Notification)
}

// StartObserver is implemented by observers that also want the state entered by
// Start. Runtimes call Started once, before the first dispatch is reported.
type StartObserver interface {
	Started(current StateID)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) Observe(n Notification) { f(n) }

// Waiter counts dispatches and lets other goroutines block until a number of
// them happened or a state became current. Register it with WithObserver before
// Start; the runtime seeds it with the start state.
type Waiter struct {
	mu      sync.Mutex
	count   uint64
	current StateID
	changed chan struct{}
}

func NewWaiter() *Waiter {
	return &Waiter{changed: make(chan struct{})}
}

func (w *Waiter) Observe(n Notification) {
	w.mu.Lock()
	w.count++
	w.current = n.Current
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// Started records the state entered by Start without counting a dispatch.
func (w *Waiter) Started(current StateID) {
	w.mu.Lock()
	w.current = current
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// Dispatched returns the number of observed dispatches.
func (w *Waiter) Dispatched() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Wait blocks until at least n dispatches were observed or ctx is done.
func (w *Waiter) Wait(ctx context.Context, n uint64) error {
	return w.waitFor(ctx, func() bool { return w.count >= n })
}

// WaitForState blocks until id is the current state, as left by Start or by the
// latest dispatch, or ctx is done.
func (w *Waiter) WaitForState(ctx context.Context, id StateID) error {
	return w.waitFor(ctx, func() bool { return w.current == id })
}

func (w *Waiter) waitFor(ctx context.Context, done func() bool) error {
	for {
		w.mu.Lock()
		if done() {
			w.mu.Unlock()
			return nil
		}
		ch := w.changed
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
