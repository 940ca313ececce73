// Package benchmarks provides chart generators shared by the benchmarks.
package benchmarks

import (
	"context"
	"fmt"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/internal/logging"
)

// Tick is the event name every generated chart reacts to.
const Tick = "tick"

func quiet() hsmx.ChartOption { return hsmx.WithLogger(logging.NewNop()) }

// GenFlat creates a flat chart with n leaf states cycling via tick events.
func GenFlat(n int) *hsmx.Chart {
	if n < 1 {
		n = 1
	}
	c := hsmx.NewChart(fmt.Sprintf("flat_%d", n), quiet())
	root := c.Root()
	tick := c.Event(Tick)
	states := make([]*hsmx.State, n)
	for i := range states {
		states[i] = root.State(fmt.Sprintf("s%d", i))
	}
	for i, s := range states {
		root.MustAdd(s, tick, states[(i+1)%n])
	}
	mustOK(root.SetStart(states[0]))
	return c
}

// GenDeep creates depth nested machines. The innermost machine flips between
// two leaves on tick, so every dispatch descends the whole hierarchy.
func GenDeep(depth int) *hsmx.Chart {
	if depth < 1 {
		depth = 1
	}
	c := hsmx.NewChart(fmt.Sprintf("deep_%d", depth), quiet())
	tick := c.Event(Tick)

	inner := c.NewMachine(fmt.Sprintf("m%d", depth))
	leaf1 := inner.State(fmt.Sprintf("leaf1_%d", depth))
	leaf2 := inner.State(fmt.Sprintf("leaf2_%d", depth))
	inner.MustAdd(leaf1, tick, leaf2)
	inner.MustAdd(leaf2, tick, leaf1)
	mustOK(inner.SetStart(leaf1))

	for i := depth - 1; i >= 0; i-- {
		var m *hsmx.Machine
		if i == 0 {
			m = c.Root()
		} else {
			m = c.NewMachine(fmt.Sprintf("m%d", i))
		}
		slot := m.MustNested(fmt.Sprintf("c%d", i), inner)
		mustOK(m.SetStart(slot))
		inner = m
	}
	return c
}

// GenWide creates one hub state with n outgoing events, each leading to its own
// leaf that returns to the hub on tick.
func GenWide(n int) (*hsmx.Chart, []hsmx.Event) {
	if n < 1 {
		n = 1
	}
	c := hsmx.NewChart(fmt.Sprintf("wide_%d", n), quiet())
	root := c.Root()
	tick := c.Event(Tick)
	hub := root.State("hub")
	events := make([]hsmx.Event, n)
	for i := range events {
		events[i] = c.Event(fmt.Sprintf("go%d", i))
		target := root.State(fmt.Sprintf("target%d", i))
		root.MustAdd(hub, events[i], target)
		root.MustAdd(target, tick, hub)
	}
	mustOK(root.SetStart(hub))
	return c, events
}

// GenOrthogonal creates n regions that all flip on tick. Tick is only claimed by
// the first region.
func GenOrthogonal(n int) *hsmx.Chart {
	if n < 1 {
		n = 1
	}
	c := hsmx.NewChart(fmt.Sprintf("orthogonal_%d", n), quiet())
	regions := make([]*hsmx.Machine, n)
	for i := range regions {
		r := c.NewMachine(fmt.Sprintf("r%d", i))
		on := r.State(fmt.Sprintf("on%d", i))
		off := r.State(fmt.Sprintf("off%d", i))
		ev := c.Event(fmt.Sprintf("flip%d", i))
		if i == 0 {
			ev = c.Event(Tick)
		}
		r.MustAdd(off, ev, on)
		r.MustAdd(on, ev, off)
		mustOK(r.SetStart(off))
		regions[i] = r
	}
	root := c.Root()
	mustOK(root.SetStart(root.MustOrthogonal("parallel", regions)))
	return c
}

// GenGuarded creates a two-state toggle whose transitions carry a guard and an
// action.
func GenGuarded() *hsmx.Chart {
	c := hsmx.NewChart("guarded", quiet())
	root := c.Root()
	tick := c.Event(Tick)
	a := root.State("a")
	b := root.State("b")
	guard := hsmx.WithGuard(func(context.Context, hsmx.Event) (bool, error) { return true, nil })
	action := hsmx.WithAction(func(context.Context, hsmx.Event) error { return nil })
	root.MustAdd(a, tick, b, guard, action)
	root.MustAdd(b, tick, a, guard, action)
	mustOK(root.SetStart(a))
	return c
}

// Started starts c and returns its tick event.
func Started(c *hsmx.Chart) hsmx.Event {
	mustOK(c.Start(context.Background()))
	return c.Event(Tick)
}

func mustOK(err error) {
	if err != nil {
		panic(err)
	}
}
