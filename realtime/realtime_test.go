package realtime

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx"
)

func counterChart(t *testing.T) (*hsmx.Chart, *hsmx.State, *hsmx.State) {
	t.Helper()
	c := hsmx.NewChart("rt", hsmx.WithLogger(nil))
	root := c.Root()
	a := root.State("a")
	b := root.State("b")
	root.MustAdd(a, c.Event("go"), b)
	root.MustAdd(b, c.Event("go"), a)
	require.NoError(t, root.SetStart(a))
	return c, a, b
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRuntime_NoSchedulingRequested(t *testing.T) {
	c, _, _ := counterChart(t)
	rt := NewRuntime(c, Config{})
	require.NoError(t, rt.Start(testCtx(t)))

	applied, err := rt.Scheduling()
	assert.True(t, applied)
	assert.NoError(t, err)
	assert.Equal(t, hsmx.PolicyRealtime, rt.Policy())

	require.NoError(t, rt.SendEvent(c.Event("go")))
	require.NoError(t, rt.Stop())
	assert.Equal(t, hsmx.StatusTerminated, c.Status())
}

// Priority 99 needs CAP_SYS_NICE. Without it the runtime falls back to the
// default scheduler and still dispatches.
func TestRuntime_BestEffort(t *testing.T) {
	c, _, b := counterChart(t)
	rt := NewRuntime(c, Config{Priority: 99, CPUs: []int{0}})
	ctx := testCtx(t)
	require.NoError(t, rt.Start(ctx))
	defer rt.Stop()

	require.NoError(t, rt.SendEvent(c.Event("go")))
	require.Eventually(t, func() bool { return rt.CurrentState() == b.ID() }, 2*time.Second, time.Millisecond)

	applied, err := rt.Scheduling()
	if !applied {
		assert.Error(t, err)
	}
}

func TestRuntime_StrictFailure(t *testing.T) {
	// a priority outside 1-99 is rejected by every kernel
	c, _, _ := counterChart(t)
	rt := NewRuntime(c, Config{Priority: 500, Strict: true})

	err := rt.Start(context.Background())
	require.Error(t, err)
	if runtime.GOOS != "linux" {
		assert.ErrorIs(t, err, errors.ErrUnsupported)
	}
	assert.Equal(t, hsmx.StatusIdle, c.Status())
	assert.ErrorIs(t, rt.Start(context.Background()), hsmx.ErrRuntimeStopped)
}

func TestRuntime_PriorityEvents(t *testing.T) {
	c := hsmx.NewChart("prio", hsmx.WithLogger(nil))
	root := c.Root()
	a := root.State("a")
	var seen []string
	record := hsmx.WithAction(func(_ context.Context, e hsmx.Event) error {
		seen = append(seen, e.Name)
		return nil
	})
	block := make(chan struct{})
	root.MustAdd(a, c.Event("hold"), a, hsmx.WithAction(func(context.Context, hsmx.Event) error {
		<-block
		return nil
	}))
	root.MustAdd(a, c.Event("low"), a, record)
	root.MustAdd(a, c.Event("high"), a, record)
	require.NoError(t, root.SetStart(a))

	rt := NewRuntime(c, Config{})
	ctx := testCtx(t)
	require.NoError(t, rt.Start(ctx))

	require.NoError(t, rt.SendEvent(c.Event("hold")))
	require.Eventually(t, func() bool { return rt.Queue().Len() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, rt.SendEventWithPriority(c.Event("low"), 0))
	require.NoError(t, rt.SendEventWithPriority(c.Event("high"), 1))
	close(block)

	require.NoError(t, rt.Stop())
	assert.Equal(t, []string{"high", "low"}, seen)
}
