package demo

import (
	"context"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/realtime"
)

const EventTick = "tick"

// Phase lengths in ticks.
const (
	G1Ticks = 30
	Y1Ticks = 5
	G2Ticks = 60
	Y2Ticks = 5

	CycleTicks = G1Ticks + Y1Ticks + G2Ticks + Y2Ticks
)

// TrafficLight cycles G1 -> Y1 -> G2 -> Y2 -> G1, each phase lasting a fixed
// number of ticks. Ticks carry a realtime.Tick payload; the phase length is
// measured against the tick number seen on entry.
type TrafficLight struct {
	Chart          *hsmx.Chart
	G1, Y1, G2, Y2 *hsmx.State

	// tick number at entry of the active phase; dispatch goroutine only
	entered uint64
}

func NewTrafficLight(opts ...hsmx.ChartOption) *TrafficLight {
	l := &TrafficLight{Chart: hsmx.NewChart("traffic", opts...)}
	c := l.Chart
	root := c.Root()

	mark := hsmx.OnEntry(func(_ context.Context, evt hsmx.Event) error {
		l.entered = tickNumber(evt)
		return nil
	})
	l.G1 = root.State("G1", mark)
	l.Y1 = root.State("Y1", mark)
	l.G2 = root.State("G2", mark)
	l.Y2 = root.State("Y2", mark)

	tick := c.Event(EventTick)
	root.MustAdd(l.G1, tick, l.Y1, hsmx.WithGuard(l.elapsed(G1Ticks)))
	root.MustAdd(l.Y1, tick, l.G2, hsmx.WithGuard(l.elapsed(Y1Ticks)))
	root.MustAdd(l.G2, tick, l.Y2, hsmx.WithGuard(l.elapsed(G2Ticks)))
	root.MustAdd(l.Y2, tick, l.G1, hsmx.WithGuard(l.elapsed(Y2Ticks)))

	if err := root.SetStart(l.G1); err != nil {
		panic(err)
	}
	return l
}

func (l *TrafficLight) elapsed(n uint64) hsmx.Guard {
	return func(_ context.Context, evt hsmx.Event) (bool, error) {
		return tickNumber(evt)-l.entered >= n, nil
	}
}

func tickNumber(evt hsmx.Event) uint64 {
	if t, ok := evt.Payload.(realtime.Tick); ok {
		return t.N
	}
	return 0
}
