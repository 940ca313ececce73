package realtime

import (
	"context"
	"errors"

	"github.com/comalice/hsmx"
)

// Pump forwards events from src to target until src is closed, ctx is done or
// target stops accepting events. It returns the number of forwarded events.
// Events refused for other reasons, such as a full queue, end the pump with
// that error.
func Pump(ctx context.Context, src <-chan hsmx.Event, target Sender) (int, error) {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case evt, ok := <-src:
			if !ok {
				return n, nil
			}
			if err := target.SendEvent(evt); err != nil {
				if errors.Is(err, hsmx.ErrQueueStopped) {
					return n, nil
				}
				return n, err
			}
			n++
		}
	}
}
