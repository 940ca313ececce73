package hsmx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// AsyncRuntime dispatches on one dedicated worker goroutine. Producers only
// touch the queue.
//
// Stop drains every event accepted before it, unless WithDiscardOnStop is set,
// in which case pending events are dropped and the worker exits after the
// dispatch in progress.
type AsyncRuntime struct {
	base

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	started bool

	stopOnce  sync.Once
	stopErr   error
	interrupt atomic.Bool
}

var _ Runtime = (*AsyncRuntime)(nil)

// NewAsyncRuntime creates an asynchronous runtime for chart.
func NewAsyncRuntime(chart *Chart, opts ...RuntimeOption) *AsyncRuntime {
	r := &AsyncRuntime{done: make(chan struct{})}
	r.configure(chart, PolicyAsync, opts)
	return r
}

// Start launches the worker, waits for its init hooks, enters the chart on the
// calling goroutine and lets the worker consume events. Cancelling ctx stops
// the queue; the worker then drains and exits.
func (r *AsyncRuntime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue.Stopped() {
		return ErrRuntimeStopped
	}
	if r.started {
		return nil
	}

	wctx, cancel := context.WithCancel(ctx)
	g := new(errgroup.Group)
	ready := make(chan error, 1)
	begin := make(chan bool, 1)
	g.Go(func() error {
		defer close(r.done)
		if err := r.runInit(wctx); err != nil {
			ready <- err
			return err
		}
		ready <- nil
		if !<-begin {
			return nil
		}
		return r.loop(wctx)
	})

	fail := func(err error) error {
		r.queue.Stop()
		_ = g.Wait()
		cancel()
		return err
	}
	if err := <-ready; err != nil {
		return fail(fmt.Errorf("worker init: %w", err))
	}
	if err := r.chart.Start(ctx); err != nil {
		begin <- false
		return fail(err)
	}
	r.notifyStarted()
	begin <- true

	context.AfterFunc(wctx, r.queue.Stop)
	r.ctx = context.WithoutCancel(ctx)
	r.cancel = cancel
	r.group = g
	r.started = true
	r.logger.Info("runtime started", "chart", r.chart.name)
	return nil
}

func (r *AsyncRuntime) loop(ctx context.Context) error {
	for {
		evt, err := r.queue.Next()
		if err != nil {
			return nil
		}
		if r.interrupt.Load() {
			return nil
		}
		if _, err := r.dispatch(ctx, evt); err != nil {
			if herr := r.handle(evt, err); herr != nil {
				r.logger.Error("worker stopped", "chart", r.chart.name, "event", evt.String(), "error", herr)
				r.queue.Stop()
				return herr
			}
			r.logger.Warn("dispatch failed", "chart", r.chart.name, "event", evt.String(), "error", err)
		}
	}
}

// Done is closed when the worker has exited, whether through Stop, a worker
// error or cancellation of the Start context.
func (r *AsyncRuntime) Done() <-chan struct{} {
	return r.done
}

// Stop closes the queue, joins the worker and exits the chart. It returns the
// worker error, if any, joined with the exit error. It must not be called from
// a callback or observer running on the worker.
func (r *AsyncRuntime) Stop() error {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.opts.discard {
			r.interrupt.Store(true)
		}
		r.queue.Stop()
		if !r.started {
			r.queue.Clear()
			select {
			case <-r.done:
			default:
				close(r.done)
			}
			return
		}
		if r.opts.discard {
			if n := r.queue.Clear(); n > 0 {
				r.logger.Debug("pending events discarded", "chart", r.chart.name, "count", n)
			}
		}

		werr := r.group.Wait()
		r.cancel()
		cerr := r.chart.Stop(r.ctx)
		r.stopErr = errors.Join(werr, cerr)
		r.logger.Info("runtime stopped", "chart", r.chart.name)
	})
	return r.stopErr
}
