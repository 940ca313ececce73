package hsmx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/hsmx"
)

func TestBuilderTrafficLight(t *testing.T) {
	b := NewBuilder("traffic", "green", WithLogger(nil))

	b.State("green").On("timer", "yellow")
	b.State("yellow").On("timer", "red")
	b.State("red").On("timer", "green")

	chart, err := b.Build()
	require.NoError(t, err)

	rt := NewSyncRuntime(chart)
	require.NoError(t, rt.Start(context.Background()))
	defer rt.Stop()

	assert.Equal(t, b.ID("green"), rt.CurrentState())

	for _, want := range []string{"yellow", "red", "green"} {
		require.NoError(t, rt.SendEvent(b.Event("timer")))
		_, err := rt.Drain()
		require.NoError(t, err)
		assert.Equal(t, b.ID(want), rt.CurrentState(), want)
	}
}

func TestBuilderCompoundStates(t *testing.T) {
	b := NewBuilder("app", "off", WithLogger(nil))

	b.State("off").On("power", "on")
	b.State("on").Compound("idle").On("power", "off")
	b.State("on.idle").On("work", "on.working")
	b.State("on.working").On("done", "on.idle")

	chart, err := b.Build()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, chart.Start(ctx))

	send := func(name string) {
		_, err := chart.Dispatch(ctx, b.Event(name))
		require.NoError(t, err)
	}

	send("power")
	assert.Equal(t, b.ID("on.idle"), chart.CurrentState())
	send("work")
	assert.Equal(t, b.ID("on.working"), chart.CurrentState())

	// escalates from on.working to on
	send("power")
	assert.Equal(t, b.ID("off"), chart.CurrentState())
	assert.Equal(t, KindNested, b.Lookup("on").Kind())
}

func TestBuilderParallelStates(t *testing.T) {
	b := NewBuilder("editor", "editing", WithLogger(nil))

	b.State("editing").Parallel()
	b.State("editing.bold").Compound("off")
	b.State("editing.bold.off").On("toggle_bold", "editing.bold.on")
	b.State("editing.bold.on").On("toggle_bold", "editing.bold.off")
	b.State("editing.italic").Compound("off")
	b.State("editing.italic.off").On("toggle_italic", "editing.italic.on")
	b.State("editing.italic.on").On("toggle_italic", "editing.italic.off")

	chart, err := b.Build()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, chart.Start(ctx))

	_, err = chart.Dispatch(ctx, b.Event("toggle_italic"))
	require.NoError(t, err)

	assert.True(t, chart.IsActive(b.ID("editing.bold.off")))
	assert.True(t, chart.IsActive(b.ID("editing.italic.on")))
	assert.Equal(t, KindOrthogonal, b.Lookup("editing").Kind())
	assert.Len(t, b.Lookup("editing").Regions(), 2)
}

func TestBuilderCallbacksAndInternal(t *testing.T) {
	var trace []string
	log := func(s string) Action {
		return func(context.Context, Event) error {
			trace = append(trace, s)
			return nil
		}
	}
	count := 0

	b := NewBuilder("counter", "idle", WithLogger(nil))
	b.State("idle").
		Entry(log("entry:idle")).
		Exit(log("exit:idle")).
		Execute(log("execute:idle")).
		OnInternal("inc", WithAction(func(context.Context, Event) error {
			count++
			return nil
		})).
		On("go", "busy", WithGuard(func(_ context.Context, e Event) (bool, error) {
			return count >= 2, nil
		}))
	b.State("busy").Entry(log("entry:busy"))

	chart, err := b.Build()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, chart.Start(ctx))

	res, err := chart.Dispatch(ctx, b.Event("go"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeGuardRejected, res.Outcome)

	for range 2 {
		res, err = chart.Dispatch(ctx, b.Event("inc"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeInternal, res.Outcome)
	}
	_, err = chart.Dispatch(ctx, b.Event("go"))
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Equal(t, b.ID("busy"), chart.CurrentState())
	assert.Equal(t, []string{
		"entry:idle",
		"execute:idle", "execute:idle",
		"execute:idle", "exit:idle", "entry:busy",
	}, trace)
}

func TestBuilderFinalAndHistory(t *testing.T) {
	b := NewBuilder("player", "stopped", WithLogger(nil))
	b.State("stopped").On("play", "playing")
	b.State("playing").Compound("t1").RetainHistory("pause", "resume").
		On("pause", "paused").
		On("eject", "ejected")
	b.State("playing.t1").On("next", "playing.t2")
	b.State("playing.t2").On("next", "playing.t1")
	b.State("paused").On("resume", "playing")
	b.State("ejected").Final()

	chart, err := b.Build()
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, chart.Start(ctx))

	for _, n := range []string{"play", "next", "pause", "resume"} {
		_, err := chart.Dispatch(ctx, b.Event(n))
		require.NoError(t, err)
	}
	assert.Equal(t, b.ID("playing.t2"), chart.CurrentState())

	_, err = chart.Dispatch(ctx, b.Event("eject"))
	require.NoError(t, err)
	assert.Equal(t, StatusTerminated, chart.Status())
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *Builder)
		want    string
	}{
		{
			name: "missing initial",
			declare: func(b *Builder) {
				b.State("a")
				b.State("b.x")
			},
			want: `compound state "b" must have an initial state`,
		},
		{
			name: "unknown initial",
			declare: func(b *Builder) {
				b.State("a").Compound("nope")
				b.State("a.x")
			},
			want: `invalid initial state "nope"`,
		},
		{
			name: "unknown target",
			declare: func(b *Builder) {
				b.State("a").On("go", "nowhere")
			},
			want: `unknown state "nowhere"`,
		},
		{
			name: "cross machine",
			declare: func(b *Builder) {
				b.State("a").On("go", "b.x")
				b.State("b").Compound("x")
				b.State("b.x")
			},
			want: "crosses machines",
		},
		{
			name: "duplicate",
			declare: func(b *Builder) {
				b.State("a").On("go", "a").On("go", "b")
				b.State("b")
			},
			want: "already registered",
		},
		{
			name: "leaf region",
			declare: func(b *Builder) {
				b.State("a").Parallel()
				b.State("a.r")
			},
			want: "has no states",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("root", "a", WithLogger(nil))
			tt.declare(b)
			_, err := b.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuilderBuildOnce(t *testing.T) {
	b := NewBuilder("root", "a", WithLogger(nil))
	b.State("a")
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.Error(t, err)
}
