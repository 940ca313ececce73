package realtime

import (
	"context"
	"runtime"
	"sync"

	"github.com/comalice/hsmx"
)

// Config configures the real-time runtime
type Config struct {
	CPUs     []int // pin the worker to these CPUs; empty leaves affinity alone
	Priority int   // SCHED_FIFO priority (1-99); 0 keeps the default policy
	Nice     int   // nice value for the worker thread; 0 leaves it alone
	Strict   bool  // fail Start when a setting cannot be applied
}

func (c Config) wantsScheduling() bool {
	return len(c.CPUs) > 0 || c.Priority != 0 || c.Nice != 0
}

// Runtime is an asynchronous runtime with a dedicated, tuned OS thread.
type Runtime struct {
	*hsmx.AsyncRuntime
	cfg Config

	mu       sync.Mutex
	schedErr error
	applied  bool
}

// NewRuntime creates a real-time runtime for chart.
func NewRuntime(chart *hsmx.Chart, cfg Config, opts ...hsmx.RuntimeOption) *Runtime {
	r := &Runtime{cfg: cfg}
	all := make([]hsmx.RuntimeOption, 0, len(opts)+2)
	all = append(all, hsmx.WithPolicyName(hsmx.PolicyRealtime))
	all = append(all, opts...)
	all = append(all, hsmx.WithWorkerInit(r.prepare))
	r.AsyncRuntime = hsmx.NewAsyncRuntime(chart, all...)
	return r
}

// Config returns the requested scheduling settings.
func (r *Runtime) Config() Config { return r.cfg }

// Scheduling reports whether the worker has been prepared and the error from
// applying the settings, if any.
func (r *Runtime) Scheduling() (applied bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied, r.schedErr
}

// SendEventWithPriority queues evt. A positive priority puts it ahead of every
// pending event.
func (r *Runtime) SendEventWithPriority(evt hsmx.Event, priority int) error {
	if priority > 0 {
		return r.SendFront(evt)
	}
	return r.SendEvent(evt)
}

// prepare runs on the worker goroutine before the first event.
func (r *Runtime) prepare(ctx context.Context) error {
	runtime.LockOSThread()

	var err error
	if r.cfg.wantsScheduling() {
		err = apply(r.cfg)
	}
	r.mu.Lock()
	r.applied = err == nil
	r.schedErr = err
	r.mu.Unlock()

	logger := r.Chart().Logger().With("runtime_id", r.ID(), "policy", r.Policy())
	if err == nil {
		logger.Debug("worker prepared",
			"cpus", r.cfg.CPUs,
			"priority", r.cfg.Priority,
			"nice", r.cfg.Nice,
		)
		return nil
	}
	if r.cfg.Strict {
		return err
	}
	logger.Warn("real-time scheduling unavailable, using default scheduler", "error", err)
	return nil
}
