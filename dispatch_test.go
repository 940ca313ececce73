package hsmx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_NotStarted(t *testing.T) {
	c, _, _, toggle := switchChart()
	_, err := c.Dispatch(context.Background(), toggle)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestDispatch_TransitionOrder(t *testing.T) {
	rec := &recorder{}
	c := NewChart("order", WithLogger(nil))
	root := c.Root()
	a := root.State("a", rec.hooks("a")...)
	b := root.State("b", rec.hooks("b")...)
	go_ := c.Event("go")
	root.MustAdd(a, go_, b,
		WithGuard(func(context.Context, Event) (bool, error) {
			rec.add("guard")
			return true, nil
		}),
		WithAction(rec.log("action")),
	)
	require.NoError(t, root.SetStart(a))

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"entry:a"}, rec.take())

	res, err := c.Dispatch(ctx, go_)
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandled, res.Outcome)
	assert.True(t, res.Transitioned())
	assert.Equal(t, a.ID(), res.From)
	assert.Equal(t, b.ID(), res.To)
	assert.Equal(t, "order", res.Machine)
	assert.Equal(t, b.ID(), c.CurrentState())
	assert.Equal(t, []string{"guard", "execute:a", "exit:a", "action", "entry:b"}, rec.take())
}

func TestDispatch_EveryRegisteredPairReachesTarget(t *testing.T) {
	c := NewChart("grid", WithLogger(nil))
	root := c.Root()
	states := []*State{root.State("s0"), root.State("s1"), root.State("s2")}
	events := []Event{c.Event("e0"), c.Event("e1"), c.Event("e2")}
	for i, from := range states {
		for j, e := range events {
			root.MustAdd(from, e, states[(i+j)%len(states)])
		}
	}
	require.NoError(t, root.SetStart(states[0]))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	for i := range states {
		for j, e := range events {
			// put the chart into states[i]
			for c.CurrentState() != states[i].ID() {
				_, err := c.Dispatch(ctx, events[1])
				require.NoError(t, err)
			}
			_, err := c.Dispatch(ctx, e)
			require.NoError(t, err)
			assert.Equal(t, states[(i+j)%len(states)].ID(), c.CurrentState())
		}
	}
}

func TestDispatch_UnknownEventIsIdempotent(t *testing.T) {
	rec := &recorder{}
	c := NewChart("c", WithLogger(nil))
	root := c.Root()
	a := root.State("a", rec.hooks("a")...)
	b := root.State("b", rec.hooks("b")...)
	root.MustAdd(a, c.Event("go"), b)
	require.NoError(t, root.SetStart(a))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	rec.take()

	for _, name := range []string{"noise", "static", "hum"} {
		res, err := c.Dispatch(ctx, c.Event(name))
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnhandled, res.Outcome)
		assert.False(t, res.Transitioned())
		assert.Equal(t, a.ID(), c.CurrentState())
	}
	assert.Empty(t, rec.take())
}

func TestDispatch_GuardRejectedIsConsumed(t *testing.T) {
	rec := &recorder{}
	c := NewChart("c", WithLogger(nil))
	root := c.Root()
	outer := root.State("outer")
	done := root.State("done")
	inner := c.NewMachine("inner")
	x := inner.State("x", rec.hooks("x")...)
	y := inner.State("y")
	require.NoError(t, inner.SetStart(x))
	slot := root.MustNested("slot", inner)
	e := c.Event("e")
	inner.MustAdd(x, e, y, WithGuard(always(false)), WithAction(rec.log("action")))
	// the parent also handles e; a rejected inner guard must not fall through
	root.MustAdd(slot, e, done)
	_ = outer
	require.NoError(t, root.SetStart(slot))

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	rec.take()

	res, err := c.Dispatch(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGuardRejected, res.Outcome)
	assert.Equal(t, "inner", res.Machine)
	assert.Equal(t, x.ID(), c.CurrentState())
	assert.Equal(t, slot.ID(), root.Active())
	assert.Empty(t, rec.take())
}

func TestDispatch_InternalTransition(t *testing.T) {
	rec := &recorder{}
	c := NewChart("c", WithLogger(nil))
	root := c.Root()
	a := root.State("a", rec.hooks("a")...)
	tick := c.Event("tick")
	root.MustAdd(a, tick, a, WithAction(rec.log("count")))
	require.NoError(t, root.SetStart(a))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	rec.take()

	res, err := c.Dispatch(ctx, tick)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInternal, res.Outcome)
	assert.False(t, res.Transitioned())
	assert.Equal(t, []string{"execute:a", "count"}, rec.take())
}

// outerInner builds Outer{idle, busy(Inner{i1, i2})} where "next" is known only
// to Inner and "reset" only to Outer.
func outerInner(rec *recorder) (c *Chart, busy, idle, i1, i2 *State) {
	c = NewChart("outer", WithLogger(nil))
	outer := c.Root()
	inner := c.NewMachine("inner")
	i1 = inner.State("i1", rec.hooks("i1")...)
	i2 = inner.State("i2", rec.hooks("i2")...)
	inner.MustAdd(i1, c.Event("next"), i2)
	inner.MustAdd(i2, c.Event("next"), i1)
	if err := inner.SetStart(i1); err != nil {
		panic(err)
	}
	idle = outer.State("idle", rec.hooks("idle")...)
	busy = outer.MustNested("busy", inner, rec.hooks("busy")...)
	outer.MustAdd(idle, c.Event("work"), busy)
	outer.MustAdd(busy, c.Event("reset"), idle)
	if err := outer.SetStart(busy); err != nil {
		panic(err)
	}
	return c, busy, idle, i1, i2
}

func TestDispatch_NestedEntryAndExitOrder(t *testing.T) {
	rec := &recorder{}
	c, busy, idle, i1, _ := outerInner(rec)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"entry:busy", "entry:i1"}, rec.take())
	assert.Equal(t, i1.ID(), c.CurrentState())
	assert.Equal(t, []StateID{busy.ID(), i1.ID()}, c.Configuration())

	_, err := c.Dispatch(ctx, c.Event("reset"))
	require.NoError(t, err)
	assert.Equal(t, []string{"execute:busy", "exit:i1", "exit:busy", "entry:idle"}, rec.take())
	assert.Equal(t, idle.ID(), c.CurrentState())
	assert.Equal(t, StatusIdle, c.MachineAt(busy.Sub()).Status())
	assert.Equal(t, NoState, c.MachineAt(busy.Sub()).Active())
}

func TestDispatch_EscalationLeavesInnerUntouched(t *testing.T) {
	rec := &recorder{}
	c, busy, idle, i1, i2 := outerInner(rec)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	inner := c.MachineAt(busy.Sub())

	_, err := c.Dispatch(ctx, c.Event("next"))
	require.NoError(t, err)
	assert.Equal(t, i2.ID(), inner.Active())
	assert.Equal(t, busy.ID(), c.Root().Active())

	// "work" is only known to Outer and does not match busy: unhandled, inner kept
	res, err := c.Dispatch(ctx, c.Event("work"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnhandled, res.Outcome)
	assert.Equal(t, i2.ID(), inner.Active())

	rec.take()
	res, err = c.Dispatch(ctx, c.Event("reset"))
	require.NoError(t, err)
	assert.Equal(t, "outer", res.Machine)
	assert.Equal(t, i2.ID(), res.Leaf)
	assert.Equal(t, idle.ID(), c.CurrentState())
	assert.NotContains(t, rec.take(), "entry:i1")

	// forget is the default: re-entry replays the start state
	_, err = c.Dispatch(ctx, c.Event("work"))
	require.NoError(t, err)
	assert.Equal(t, i1.ID(), c.CurrentState())
	assert.True(t, c.IsActive(busy.ID()))
	assert.True(t, c.IsActive(i1.ID()))
	assert.False(t, c.IsActive(i2.ID()))
	assert.False(t, c.IsActive(idle.ID()))
}

// keyboard builds an orthogonal slot with a caps region and a numpad region
// whose vocabularies are disjoint.
func keyboard() (c *Chart, caps, num *Machine, capsOff, capsOn, numOff, numOn *State) {
	c = NewChart("keyboard", WithLogger(nil))
	caps = c.NewMachine("caps")
	capsOff = caps.State("caps_off")
	capsOn = caps.State("caps_on")
	caps.MustAdd(capsOff, c.Event("caps"), capsOn)
	caps.MustAdd(capsOn, c.Event("caps"), capsOff)
	_ = caps.SetStart(capsOff)

	num = c.NewMachine("num")
	numOff = num.State("num_off")
	numOn = num.State("num_on")
	num.MustAdd(numOff, c.Event("num"), numOn)
	num.MustAdd(numOn, c.Event("num"), numOff)
	_ = num.SetStart(numOff)

	root := c.Root()
	active := root.MustOrthogonal("active", []*Machine{caps, num})
	unplugged := root.State("unplugged")
	root.MustAdd(active, c.Event("unplug"), unplugged)
	root.MustAdd(unplugged, c.Event("plug"), active)
	_ = root.SetStart(active)
	return
}

func TestDispatch_OrthogonalFirstMatch(t *testing.T) {
	c, caps, num, capsOff, capsOn, numOff, numOn := keyboard()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, capsOff.ID(), caps.Active())
	assert.Equal(t, numOff.ID(), num.Active())

	for range 3 {
		before := caps.Active()
		res, err := c.Dispatch(ctx, c.Event("num"))
		require.NoError(t, err)
		assert.Equal(t, "num", res.Machine)
		assert.Equal(t, before, caps.Active(), "region B event must not touch region A")
	}
	assert.Equal(t, numOn.ID(), num.Active())

	_, err := c.Dispatch(ctx, c.Event("caps"))
	require.NoError(t, err)
	assert.Equal(t, capsOn.ID(), caps.Active())
	assert.Equal(t, numOn.ID(), num.Active())

	// orthogonal slots stop CurrentState; Configuration lists regions in order
	active := c.Find("active")
	assert.Equal(t, active.ID(), c.CurrentState())
	assert.Equal(t, []StateID{active.ID(), capsOn.ID(), numOn.ID()}, c.Configuration())
}

func TestDispatch_OrthogonalUnclaimedEscalates(t *testing.T) {
	c, caps, num, capsOff, _, numOff, _ := keyboard()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	_, _ = c.Dispatch(ctx, c.Event("caps"))

	res, err := c.Dispatch(ctx, c.Event("unplug"))
	require.NoError(t, err)
	assert.Equal(t, "keyboard", res.Machine)
	assert.Equal(t, c.Find("unplugged").ID(), c.CurrentState())
	assert.Equal(t, StatusIdle, caps.Status())
	assert.Equal(t, StatusIdle, num.Status())

	_, err = c.Dispatch(ctx, c.Event("plug"))
	require.NoError(t, err)
	assert.Equal(t, capsOff.ID(), caps.Active())
	assert.Equal(t, numOff.ID(), num.Active())
}

func TestDispatch_StopState(t *testing.T) {
	rec := &recorder{}
	c := NewChart("job", WithLogger(nil))
	root := c.Root()
	run := root.State("run", rec.hooks("run")...)
	end := root.State("end", rec.hooks("end")...)
	root.MustAdd(run, c.Event("finish"), end)
	require.NoError(t, root.SetStart(run))
	require.NoError(t, root.SetStop(end))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	rec.take()

	_, err := c.Dispatch(ctx, c.Event("finish"))
	require.NoError(t, err)
	assert.Equal(t, []string{"execute:run", "exit:run", "entry:end", "exit:end"}, rec.take())
	assert.Equal(t, StatusTerminated, c.Status())
	assert.Equal(t, NoState, c.CurrentState())

	res, err := c.Dispatch(ctx, c.Event("finish"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeTerminated, res.Outcome)
	assert.ErrorIs(t, c.Start(ctx), ErrTerminated)
}

func TestDispatch_NestedStopStateLeavesSlotAsLeaf(t *testing.T) {
	c := NewChart("outer", WithLogger(nil))
	root := c.Root()
	inner := c.NewMachine("inner")
	work := inner.State("work")
	fin := inner.State("fin")
	inner.MustAdd(work, c.Event("finish"), fin)
	require.NoError(t, inner.SetStart(work))
	require.NoError(t, inner.SetStop(fin))
	slot := root.MustNested("slot", inner)
	after := root.State("after")
	root.MustAdd(slot, c.Event("finish"), after)
	root.MustAdd(after, c.Event("again"), slot)
	require.NoError(t, root.SetStart(slot))
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	res, err := c.Dispatch(ctx, c.Event("finish"))
	require.NoError(t, err)
	assert.Equal(t, "inner", res.Machine)
	assert.Equal(t, StatusTerminated, inner.Status())
	assert.Equal(t, slot.ID(), c.CurrentState())

	// the slot now handles finish itself
	res, err = c.Dispatch(ctx, c.Event("finish"))
	require.NoError(t, err)
	assert.Equal(t, "outer", res.Machine)
	assert.Equal(t, after.ID(), c.CurrentState())

	// re-entering the slot restarts the terminated machine
	_, err = c.Dispatch(ctx, c.Event("again"))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, inner.Status())
	assert.Equal(t, work.ID(), c.CurrentState())
}

func TestDispatch_CallbackErrors(t *testing.T) {
	boom := errors.New("boom")
	fail := func(context.Context, Event) error { return boom }

	cases := []struct {
		name  string
		phase Phase
		setup func(c *Chart, a, b *State) []TransitionOption
	}{
		{"guard", PhaseGuard, func(*Chart, *State, *State) []TransitionOption {
			return []TransitionOption{WithGuard(func(context.Context, Event) (bool, error) { return false, boom })}
		}},
		{"action", PhaseAction, func(*Chart, *State, *State) []TransitionOption {
			return []TransitionOption{WithAction(fail)}
		}},
		{"exit", PhaseExit, func(_ *Chart, a, _ *State) []TransitionOption {
			OnExit(fail)(a)
			return nil
		}},
		{"entry", PhaseEntry, func(_ *Chart, _, b *State) []TransitionOption {
			OnEntry(fail)(b)
			return nil
		}},
		{"execute", PhaseExecute, func(_ *Chart, a, _ *State) []TransitionOption {
			OnExecute(fail)(a)
			return nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChart("c", WithLogger(nil))
			root := c.Root()
			a := root.State("a")
			b := root.State("b")
			root.MustAdd(a, c.Event("go"), b, tc.setup(c, a, b)...)
			require.NoError(t, root.SetStart(a))
			require.NoError(t, c.Start(context.Background()))

			_, err := c.Dispatch(context.Background(), c.Event("go"))
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.True(t, IsCallbackError(err))
			var cbErr *CallbackError
			require.True(t, errors.As(err, &cbErr))
			assert.Equal(t, tc.phase, cbErr.Phase)
			assert.Equal(t, "go", cbErr.Event.Name)
		})
	}
}

func TestDispatch_PayloadReachesCallbacks(t *testing.T) {
	c := NewChart("c", WithLogger(nil))
	root := c.Root()
	a := root.State("a")
	var got any
	root.MustAdd(a, c.Event("set"), a, WithAction(func(_ context.Context, e Event) error {
		got = e.Payload
		return nil
	}))
	require.NoError(t, root.SetStart(a))
	require.NoError(t, c.Start(context.Background()))

	_, err := c.Dispatch(context.Background(), c.Event("set").With(42))
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestChart_StartStopLifecycle(t *testing.T) {
	rec := &recorder{}
	c, _, _, _, _ := outerInner(rec)
	ctx := context.Background()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"entry:busy", "entry:i1"}, rec.take())

	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, []string{"exit:i1", "exit:busy"}, rec.take())
	assert.Equal(t, StatusTerminated, c.Status())
	assert.Empty(t, c.Configuration())
}
