package observe

import (
	"context"
	"log/slog"

	"github.com/comalice/hsmx"
)

// Logging writes one log record per dispatch. Transitions are logged at level,
// unhandled and rejected events at debug and failures at error.
type Logging struct {
	chart  *hsmx.Chart
	logger *slog.Logger
	level  slog.Level
}

var _ hsmx.Observer = (*Logging)(nil)

// NewLogging creates a Logging observer for chart. A nil logger uses
// slog.Default.
func NewLogging(chart *hsmx.Chart, logger *slog.Logger, level slog.Level) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{chart: chart, logger: logger, level: level}
}

func (o *Logging) Observe(n hsmx.Notification) {
	attrs := []slog.Attr{
		slog.String("chart", n.Chart),
		slog.String("runtime_id", n.RuntimeID),
		slog.String("policy", n.Policy),
		slog.Uint64("seq", n.Seq),
		slog.String("event", n.Result.Event.String()),
		slog.String("outcome", n.Result.Outcome.String()),
		slog.Duration("elapsed", n.Elapsed),
	}
	if n.Result.Machine != "" {
		attrs = append(attrs, slog.String("machine", n.Result.Machine))
	}

	level := o.level
	switch {
	case n.Err != nil:
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", n.Err))
	case n.Result.Outcome == hsmx.OutcomeHandled:
		attrs = append(attrs,
			slog.String("from", o.chart.StateName(n.Result.From)),
			slog.String("to", o.chart.StateName(n.Result.To)),
		)
	case n.Result.Outcome != hsmx.OutcomeInternal:
		level = slog.LevelDebug
	}
	o.logger.LogAttrs(context.Background(), level, "dispatch", attrs...)
}
