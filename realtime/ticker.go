package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/hsmx"
)

// Sender accepts events. Every hsmx runtime is one.
type Sender interface {
	SendEvent(evt hsmx.Event) error
}

// Tick is the payload carried by tick events.
type Tick struct {
	N  uint64    // 1 for the first tick
	At time.Time // scheduled deadline of this tick
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithTickLimit stops the ticker after n delivered ticks. Zero means no limit.
func WithTickLimit(n uint64) TickerOption {
	return func(t *Ticker) { t.limit = n }
}

// WithTickerLogger sets the logger for dropped ticks.
func WithTickerLogger(l *slog.Logger) TickerOption {
	return func(t *Ticker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Ticker delivers a tick event at a fixed period on its own goroutine.
type Ticker struct {
	target Sender
	event  hsmx.Event
	period time.Duration
	limit  uint64
	logger *slog.Logger

	ticks   atomic.Uint64
	dropped atomic.Uint64

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTicker creates a ticker sending tick to target every period.
func NewTicker(target Sender, tick hsmx.Event, period time.Duration, opts ...TickerOption) *Ticker {
	t := &Ticker{
		target: target,
		event:  tick,
		period: period,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the tick goroutine. The first tick is due one period after
// Start. The ticker ends on Stop, when ctx is done, when the limit is reached
// or when the target rejects events because it stopped.
func (t *Ticker) Start(ctx context.Context) error {
	if t.period <= 0 {
		return fmt.Errorf("ticker: period must be positive, got %s", t.period)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("ticker: already started")
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	go t.loop(ctx, time.Now())
	return nil
}

func (t *Ticker) loop(ctx context.Context, start time.Time) {
	defer close(t.done)
	timer := time.NewTimer(t.period)
	defer timer.Stop()

	for n := uint64(1); ; n++ {
		deadline := start.Add(time.Duration(n) * t.period)
		timer.Reset(time.Until(deadline))
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		err := t.target.SendEvent(t.event.With(Tick{N: n, At: deadline}))
		switch {
		case err == nil:
			t.ticks.Add(1)
		case errors.Is(err, hsmx.ErrQueueStopped):
			return
		default:
			t.dropped.Add(1)
			t.logger.Warn("tick dropped", "event", t.event.String(), "tick", n, "error", err)
		}

		if t.limit > 0 && t.ticks.Load() >= t.limit {
			return
		}
	}
}

// Stop ends the tick goroutine and waits for it. Safe to call more than once,
// and before Start.
func (t *Ticker) Stop() {
	t.mu.Lock()
	started := t.started
	cancel := t.cancel
	t.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-t.done
}

// Done is closed when the tick goroutine has exited.
func (t *Ticker) Done() <-chan struct{} { return t.done }

// Ticks returns the number of ticks delivered.
func (t *Ticker) Ticks() uint64 { return t.ticks.Load() }

// Dropped returns the number of ticks the target refused.
func (t *Ticker) Dropped() uint64 { return t.dropped.Load() }
