//go:build !linux

package realtime

import (
	"errors"
	"fmt"
)

func apply(cfg Config) error {
	return fmt.Errorf("real-time scheduling: %w", errors.ErrUnsupported)
}
