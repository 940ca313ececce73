package config

import (
	"fmt"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/realtime"
)

// RuntimeOptions translates the queue settings into runtime options.
func (c Config) RuntimeOptions() []hsmx.RuntimeOption {
	var opts []hsmx.RuntimeOption
	if c.QueueCapacity > 0 {
		opts = append(opts, hsmx.WithQueueCapacity(c.QueueCapacity))
	}
	if c.DiscardOnStop {
		opts = append(opts, hsmx.WithDiscardOnStop())
	}
	return opts
}

// RealtimeConfig returns the worker settings for the realtime policy.
func (c Config) RealtimeConfig() realtime.Config {
	return realtime.Config{
		CPUs:     c.Realtime.CPUs,
		Priority: c.Realtime.Priority,
		Nice:     c.Realtime.Nice,
		Strict:   c.Realtime.Strict,
	}
}

// NewRuntime creates the runtime selected by c.Policy for chart. extra options
// are applied after the configured ones.
func NewRuntime(chart *hsmx.Chart, c Config, extra ...hsmx.RuntimeOption) (hsmx.Runtime, error) {
	opts := append(c.RuntimeOptions(), extra...)
	switch c.Policy {
	case hsmx.PolicySync:
		return hsmx.NewSyncRuntime(chart, opts...), nil
	case hsmx.PolicyAsync:
		return hsmx.NewAsyncRuntime(chart, opts...), nil
	case hsmx.PolicyObserved:
		return hsmx.NewObservedRuntime(chart, nil, opts...), nil
	case hsmx.PolicyRealtime:
		return realtime.NewRuntime(chart, c.RealtimeConfig(), opts...), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownPolicy, c.Policy)
	}
}
