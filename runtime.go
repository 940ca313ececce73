package hsmx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Policy names used in logs, metrics and configuration.
const (
	PolicySync     = "sync"
	PolicyAsync    = "async"
	PolicyObserved = "observed"
	PolicyRealtime = "realtime"
)

// Runtime is the contract shared by every execution policy. One chart must be
// driven by at most one runtime.
type Runtime interface {
	// Start enters the chart and begins consuming events. Idempotent.
	Start(ctx context.Context) error
	// Stop ends event consumption and exits the chart. Idempotent.
	Stop() error
	// SendEvent enqueues evt. Safe from any goroutine, also before Start.
	SendEvent(evt Event) error
	CurrentState() StateID
	Chart() *Chart
}

// ErrorHandler decides what a worker does with a dispatch error. Returning nil
// keeps the worker running; returning an error terminates it with that error.
type ErrorHandler func(evt Event, err error) error

// WorkerInit runs on the worker goroutine before the first event is consumed.
// An error aborts Start.
type WorkerInit func(ctx context.Context) error

type runtimeOptions struct {
	capacity  int
	observers []Observer
	onError   ErrorHandler
	discard   bool
	init      []WorkerInit
	id        string
	policy    string
}

// RuntimeOption configures a runtime at construction.
type RuntimeOption func(*runtimeOptions)

// WithQueueCapacity bounds the event queue. Sends beyond it fail with
// ErrQueueFull.
func WithQueueCapacity(n int) RuntimeOption {
	return func(o *runtimeOptions) { o.capacity = n }
}

// WithObserver adds an observer notified after every dispatch, in registration
// order.
func WithObserver(obs Observer) RuntimeOption {
	return func(o *runtimeOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithErrorHandler replaces the default handler, which stops the worker on the
// first dispatch error.
func WithErrorHandler(h ErrorHandler) RuntimeOption {
	return func(o *runtimeOptions) { o.onError = h }
}

// WithDiscardOnStop makes Stop drop pending events instead of draining them.
func WithDiscardOnStop() RuntimeOption {
	return func(o *runtimeOptions) { o.discard = true }
}

// WithWorkerInit adds a hook run on the worker goroutine before it consumes
// events. Synchronous runtimes have no worker and run it inside Start.
func WithWorkerInit(fn WorkerInit) RuntimeOption {
	return func(o *runtimeOptions) {
		if fn != nil {
			o.init = append(o.init, fn)
		}
	}
}

// WithRuntimeID overrides the generated instance id.
func WithRuntimeID(id string) RuntimeOption {
	return func(o *runtimeOptions) { o.id = id }
}

// WithPolicyName overrides the policy label reported in logs and notifications.
func WithPolicyName(name string) RuntimeOption {
	return func(o *runtimeOptions) { o.policy = name }
}

// base holds what every policy shares: the chart, the queue and the dispatch
// bookkeeping.
type base struct {
	id     string
	policy string
	chart  *Chart
	queue  *EventQueue
	opts   runtimeOptions
	logger *slog.Logger
	seq    atomic.Uint64
}

func (b *base) configure(chart *Chart, policy string, opts []RuntimeOption) {
	o := runtimeOptions{policy: policy}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	b.id = o.id
	b.policy = o.policy
	b.chart = chart
	b.queue = NewEventQueue(o.capacity)
	b.opts = o
	b.logger = chart.Logger().With("runtime_id", o.id, "policy", o.policy)
}

// ID returns the runtime instance id.
func (b *base) ID() string { return b.id }

// Policy returns the policy label.
func (b *base) Policy() string { return b.policy }

func (b *base) Chart() *Chart { return b.chart }

// Queue exposes the event queue, mainly for producers that want SendFront or
// Len.
func (b *base) Queue() *EventQueue { return b.queue }

func (b *base) CurrentState() StateID { return b.chart.CurrentState() }

// SendEvent enqueues evt at the back of the queue.
func (b *base) SendEvent(evt Event) error {
	if err := b.queue.Send(evt); err != nil {
		return b.sendErr(err)
	}
	return nil
}

// SendFront enqueues evt ahead of every pending event.
func (b *base) SendFront(evt Event) error {
	if err := b.queue.SendFront(evt); err != nil {
		return b.sendErr(err)
	}
	return nil
}

func (b *base) sendErr(err error) error {
	if errors.Is(err, ErrQueueStopped) {
		return fmt.Errorf("%w: %w", ErrRuntimeStopped, err)
	}
	return err
}

// runInit runs the worker hooks in registration order.
func (b *base) runInit(ctx context.Context) error {
	for _, fn := range b.opts.init {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// notifyStarted tells start observers which state the chart entered.
func (b *base) notifyStarted() {
	current := b.chart.CurrentState()
	for _, o := range b.opts.observers {
		if so, ok := o.(StartObserver); ok {
			so.Started(current)
		}
	}
}

// dispatch delivers one event to the chart and notifies observers.
func (b *base) dispatch(ctx context.Context, evt Event) (Result, error) {
	start := time.Now()
	res, err := b.chart.Dispatch(ctx, evt)
	if len(b.opts.observers) == 0 {
		return res, err
	}
	n := Notification{
		Chart:     b.chart.name,
		RuntimeID: b.id,
		Policy:    b.policy,
		Seq:       b.seq.Add(1),
		Result:    res,
		Err:       err,
		Elapsed:   time.Since(start),
		Current:   b.chart.CurrentState(),
	}
	for _, o := range b.opts.observers {
		o.Observe(n)
	}
	return res, err
}

// handle applies the error policy to a failed dispatch.
func (b *base) handle(evt Event, err error) error {
	if b.opts.onError == nil {
		return err
	}
	return b.opts.onError(evt, err)
}
