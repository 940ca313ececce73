// Package testutil runs one test body against every execution policy.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/realtime"
)

// RuntimeAdapter provides a common interface for every execution policy.
// This allows running the same test suite on each runtime.
type RuntimeAdapter interface {
	Start(ctx context.Context) error
	Stop() error
	SendEvent(evt hsmx.Event) error
	IsInState(id hsmx.StateID) bool
	CurrentState() hsmx.StateID
	// WaitForStability returns once every event sent so far was dispatched.
	WaitForStability(timeout time.Duration) error
}

// Factory names a policy and creates adapters for it.
type Factory struct {
	Policy string
	New    func(chart *hsmx.Chart) RuntimeAdapter
}

// Factories returns one factory per execution policy. The realtime adapter
// requests no scheduling changes so it runs unprivileged.
func Factories() []Factory {
	return []Factory{
		{hsmx.PolicySync, func(c *hsmx.Chart) RuntimeAdapter { return NewSyncAdapter(c) }},
		{hsmx.PolicyAsync, func(c *hsmx.Chart) RuntimeAdapter { return NewAsyncAdapter(c) }},
		{hsmx.PolicyObserved, func(c *hsmx.Chart) RuntimeAdapter { return NewObservedAdapter(c) }},
		{hsmx.PolicyRealtime, func(c *hsmx.Chart) RuntimeAdapter { return NewRealtimeAdapter(c, realtime.Config{}) }},
	}
}

// SyncAdapter wraps the synchronous runtime. Events are dispatched when the
// test waits for stability.
type SyncAdapter struct {
	rt *hsmx.SyncRuntime
}

func NewSyncAdapter(chart *hsmx.Chart, opts ...hsmx.RuntimeOption) *SyncAdapter {
	return &SyncAdapter{rt: hsmx.NewSyncRuntime(chart, opts...)}
}

func (a *SyncAdapter) Start(ctx context.Context) error { return a.rt.Start(ctx) }
func (a *SyncAdapter) Stop() error                     { return a.rt.Stop() }
func (a *SyncAdapter) SendEvent(evt hsmx.Event) error  { return a.rt.SendEvent(evt) }
func (a *SyncAdapter) IsInState(id hsmx.StateID) bool  { return a.rt.Chart().IsActive(id) }
func (a *SyncAdapter) CurrentState() hsmx.StateID      { return a.rt.CurrentState() }
func (a *SyncAdapter) Runtime() *hsmx.SyncRuntime      { return a.rt }
func (a *SyncAdapter) WaitForStability(time.Duration) error {
	_, err := a.rt.Drain()
	return err
}

// WorkerAdapter wraps a runtime with a worker goroutine and counts sent events
// so waiting does not depend on sleeps.
type WorkerAdapter struct {
	rt     hsmx.Runtime
	waiter *hsmx.Waiter
	sent   atomic.Uint64
}

// NewAsyncAdapter creates an adapter for the asynchronous runtime.
func NewAsyncAdapter(chart *hsmx.Chart, opts ...hsmx.RuntimeOption) *WorkerAdapter {
	w := hsmx.NewWaiter()
	return &WorkerAdapter{
		rt:     hsmx.NewAsyncRuntime(chart, append(opts, hsmx.WithObserver(w))...),
		waiter: w,
	}
}

// NewObservedAdapter creates an adapter waiting on the runtime's own Waiter.
func NewObservedAdapter(chart *hsmx.Chart, opts ...hsmx.RuntimeOption) *WorkerAdapter {
	rt := hsmx.NewObservedRuntime(chart, nil, opts...)
	return &WorkerAdapter{rt: rt, waiter: rt.Waiter()}
}

// NewRealtimeAdapter creates an adapter for the real-time runtime.
func NewRealtimeAdapter(chart *hsmx.Chart, cfg realtime.Config, opts ...hsmx.RuntimeOption) *WorkerAdapter {
	w := hsmx.NewWaiter()
	return &WorkerAdapter{
		rt:     realtime.NewRuntime(chart, cfg, append(opts, hsmx.WithObserver(w))...),
		waiter: w,
	}
}

func (a *WorkerAdapter) Start(ctx context.Context) error { return a.rt.Start(ctx) }
func (a *WorkerAdapter) Stop() error                     { return a.rt.Stop() }
func (a *WorkerAdapter) IsInState(id hsmx.StateID) bool  { return a.rt.Chart().IsActive(id) }
func (a *WorkerAdapter) CurrentState() hsmx.StateID      { return a.rt.CurrentState() }
func (a *WorkerAdapter) Runtime() hsmx.Runtime           { return a.rt }

func (a *WorkerAdapter) SendEvent(evt hsmx.Event) error {
	if err := a.rt.SendEvent(evt); err != nil {
		return err
	}
	a.sent.Add(1)
	return nil
}

func (a *WorkerAdapter) WaitForStability(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.waiter.Wait(ctx, a.sent.Load())
}
