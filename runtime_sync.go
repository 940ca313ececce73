package hsmx

import (
	"context"
	"sync"
)

// SyncRuntime dispatches on the caller goroutine. Events queue up until Step or
// Drain is called.
type SyncRuntime struct {
	base

	mu      sync.Mutex
	ctx     context.Context
	started bool
	stopped bool
}

var _ Runtime = (*SyncRuntime)(nil)

// NewSyncRuntime creates a synchronous runtime for chart.
func NewSyncRuntime(chart *Chart, opts ...RuntimeOption) *SyncRuntime {
	r := &SyncRuntime{}
	r.configure(chart, PolicySync, opts)
	return r
}

// Start runs the worker hooks and enters the chart. ctx is handed to every
// callback run by later Steps.
func (r *SyncRuntime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrRuntimeStopped
	}
	if r.started {
		return nil
	}
	if err := r.runInit(ctx); err != nil {
		return err
	}
	if err := r.chart.Start(ctx); err != nil {
		return err
	}
	r.notifyStarted()
	r.ctx = ctx
	r.started = true
	r.logger.Debug("runtime started", "chart", r.chart.name)
	return nil
}

// Step dispatches at most one queued event. It reports whether an event was
// consumed; the error is the dispatch error, if any.
func (r *SyncRuntime) Step() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return false, ErrNotStarted
	}
	if r.stopped {
		return false, ErrRuntimeStopped
	}
	evt, ok := r.queue.TryNext()
	if !ok {
		return false, nil
	}
	_, err := r.dispatch(r.ctx, evt)
	return true, err
}

// Drain steps until the queue is empty or a dispatch fails. It returns the
// number of consumed events.
func (r *SyncRuntime) Drain() (int, error) {
	n := 0
	for {
		ok, err := r.Step()
		if ok {
			n++
		}
		if err != nil || !ok {
			return n, err
		}
	}
}

// Stop closes the queue and exits the chart. Pending events are dropped.
func (r *SyncRuntime) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	r.queue.Stop()
	dropped := r.queue.Clear()
	if !r.started {
		return nil
	}
	err := r.chart.Stop(context.WithoutCancel(r.ctx))
	r.logger.Debug("runtime stopped", "chart", r.chart.name, "dropped", dropped)
	return err
}
