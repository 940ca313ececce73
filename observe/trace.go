package observe

import (
	"context"
	"log/slog"
	"time"

	"github.com/comalice/hsmx"
)

// TraceAction wraps a callback and logs its event, duration and error at
// debug level. A nil callback stays nil.
func TraceAction(logger *slog.Logger, name string, a hsmx.Action) hsmx.Action {
	if a == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, evt hsmx.Event) error {
		start := time.Now()
		err := a(ctx, evt)
		logger.LogAttrs(ctx, slog.LevelDebug, "action",
			slog.String("action", name),
			slog.String("event", evt.String()),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return err
	}
}

// TraceGuard wraps a guard and logs its verdict at debug level. A nil guard
// stays nil and keeps passing.
func TraceGuard(logger *slog.Logger, name string, g hsmx.Guard) hsmx.Guard {
	if g == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, evt hsmx.Event) (bool, error) {
		ok, err := g(ctx, evt)
		logger.LogAttrs(ctx, slog.LevelDebug, "guard",
			slog.String("guard", name),
			slog.String("event", evt.String()),
			slog.Bool("allowed", ok),
			slog.Any("error", err),
		)
		return ok, err
	}
}
