package hsmx

import (
	"context"
)

// ObservedRuntime is an AsyncRuntime that reports every dispatch to a notify
// callback and to a Waiter, so callers can block until the worker caught up
// instead of sleeping.
type ObservedRuntime struct {
	*AsyncRuntime
	waiter *Waiter
}

var _ Runtime = (*ObservedRuntime)(nil)

// NewObservedRuntime creates an observed runtime. notify may be nil; when set it
// runs on the worker after each dispatch, before the Waiter is released.
func NewObservedRuntime(chart *Chart, notify func(Notification), opts ...RuntimeOption) *ObservedRuntime {
	w := NewWaiter()
	all := make([]RuntimeOption, 0, len(opts)+3)
	all = append(all, WithPolicyName(PolicyObserved))
	all = append(all, opts...)
	if notify != nil {
		all = append(all, WithObserver(ObserverFunc(notify)))
	}
	all = append(all, WithObserver(w))
	return &ObservedRuntime{
		AsyncRuntime: NewAsyncRuntime(chart, all...),
		waiter:       w,
	}
}

// Waiter returns the dispatch counter fed by the worker.
func (r *ObservedRuntime) Waiter() *Waiter { return r.waiter }

// Dispatched returns the number of completed dispatches.
func (r *ObservedRuntime) Dispatched() uint64 { return r.waiter.Dispatched() }

// Wait blocks until n dispatches completed in total or ctx is done.
func (r *ObservedRuntime) Wait(ctx context.Context, n uint64) error {
	return r.waiter.Wait(ctx, n)
}

// WaitForState blocks until a dispatch leaves id as the current state.
func (r *ObservedRuntime) WaitForState(ctx context.Context, id StateID) error {
	return r.waiter.WaitForState(ctx, id)
}
