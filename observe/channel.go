package observe

import (
	"sync"
	"sync/atomic"

	"github.com/comalice/hsmx"
)

// Channel forwards notifications to a Go channel.
// Non-blocking publish with drop on backpressure.
type Channel struct {
	mu      sync.RWMutex
	ch      chan<- hsmx.Notification
	closed  bool
	dropped atomic.Uint64
}

var _ hsmx.Observer = (*Channel)(nil)

// NewChannel creates a Channel with the given output channel.
func NewChannel(ch chan<- hsmx.Notification) *Channel {
	return &Channel{ch: ch}
}

func (p *Channel) Observe(n hsmx.Notification) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- n:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns the number of notifications lost to a full channel.
func (p *Channel) Dropped() uint64 { return p.dropped.Load() }

// Close closes the output channel. Later notifications are discarded.
func (p *Channel) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
