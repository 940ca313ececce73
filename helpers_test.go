package hsmx

import (
	"context"
	"sync"
)

// recorder collects callback traces in call order.
type recorder struct {
	mu    sync.Mutex
	trace []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.trace = append(r.trace, s)
	r.mu.Unlock()
}

func (r *recorder) log(label string) Action {
	return func(context.Context, Event) error {
		r.add(label)
		return nil
	}
}

func (r *recorder) hooks(name string) []StateOption {
	return []StateOption{
		OnEntry(r.log("entry:" + name)),
		OnExit(r.log("exit:" + name)),
		OnExecute(r.log("execute:" + name)),
	}
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.trace
	r.trace = nil
	return out
}

func always(ok bool) Guard {
	return func(context.Context, Event) (bool, error) { return ok, nil }
}

// switchChart builds on <-> off toggling on "toggle".
func switchChart(opts ...ChartOption) (c *Chart, on, off *State, toggle Event) {
	c = NewChart("switch", append([]ChartOption{WithLogger(nil)}, opts...)...)
	root := c.Root()
	off = root.State("off")
	on = root.State("on")
	toggle = c.Event("toggle")
	root.MustAdd(off, toggle, on)
	root.MustAdd(on, toggle, off)
	if err := root.SetStart(off); err != nil {
		panic(err)
	}
	return c, on, off, toggle
}
