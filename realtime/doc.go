// Package realtime runs hsmx charts under real-time constraints.
//
// These pieces compose freely with the policies of the root package:
//
//   - Runtime is an asynchronous runtime whose worker locks its OS thread and
//     applies CPU affinity, SCHED_FIFO priority and a nice value before it
//     consumes the first event.
//   - Ticker delivers a tick event to any Sender at a fixed period. Deadlines
//     are computed from the start time, so a slow tick does not shift the
//     ones after it.
//   - Pump forwards events from a Go channel, e.g. one fed by a device
//     reader, to any Sender.
//
// # Example Usage
//
//	rt := realtime.NewRuntime(chart, realtime.Config{
//		CPUs:     []int{2},
//		Priority: 50,
//	})
//	if err := rt.Start(ctx); err != nil {
//		return err
//	}
//	defer rt.Stop()
//
//	tk := realtime.NewTicker(rt, chart.Event("tick"), 10*time.Millisecond)
//	if err := tk.Start(ctx); err != nil {
//		return err
//	}
//	defer tk.Stop()
//
// # Scheduling
//
// Scheduling changes are best effort. Without CAP_SYS_NICE, or outside Linux,
// they fail; the failure is logged and the runtime keeps running with the
// default scheduler unless Config.Strict is set, in which case Start returns
// the error.
//
// The worker never unlocks its thread. When the worker exits the thread is
// destroyed, so the changed scheduling attributes never leak to other
// goroutines.
//
// # Tick Ordering
//
// Ticks travel through the same queue as every other event and keep FIFO
// order relative to them. A tick that cannot be queued because the queue is
// full is dropped and counted in Ticker.Dropped.
package realtime
