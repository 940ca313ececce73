//go:build linux

package realtime

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// apply changes the scheduling attributes of the calling thread. Every setting
// is attempted; the failures are joined.
func apply(cfg Config) error {
	tid := unix.Gettid()
	var errs []error

	if len(cfg.CPUs) > 0 {
		var set unix.CPUSet
		set.Zero()
		for _, cpu := range cfg.CPUs {
			set.Set(cpu)
		}
		if err := unix.SchedSetaffinity(tid, &set); err != nil {
			errs = append(errs, fmt.Errorf("cpu affinity %v: %w", cfg.CPUs, err))
		}
	}

	if cfg.Priority != 0 {
		attr := unix.SchedAttr{
			Policy:   unix.SCHED_FIFO,
			Priority: uint32(cfg.Priority),
		}
		if err := unix.SchedSetAttr(tid, &attr, 0); err != nil {
			errs = append(errs, fmt.Errorf("SCHED_FIFO priority %d: %w", cfg.Priority, err))
		}
	}

	if cfg.Nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, cfg.Nice); err != nil {
			errs = append(errs, fmt.Errorf("nice %d: %w", cfg.Nice, err))
		}
	}

	return errors.Join(errs...)
}
