package demo

import (
	"context"
	"sync/atomic"

	"github.com/comalice/hsmx"
)

// Switch toggles between off and on.
type Switch struct {
	Chart   *hsmx.Chart
	On, Off *hsmx.State
	Toggle  hsmx.Event

	toggles atomic.Int64
}

func NewSwitch(opts ...hsmx.ChartOption) *Switch {
	s := &Switch{Chart: hsmx.NewChart("switch", opts...)}
	count := hsmx.OnEntry(func(_ context.Context, evt hsmx.Event) error {
		if !evt.IsNull() {
			s.toggles.Add(1)
		}
		return nil
	})

	root := s.Chart.Root()
	s.Off = root.State("off", count)
	s.On = root.State("on", count)
	s.Toggle = s.Chart.Event("toggle")
	root.MustAdd(s.Off, s.Toggle, s.On)
	root.MustAdd(s.On, s.Toggle, s.Off)
	if err := root.SetStart(s.Off); err != nil {
		panic(err)
	}
	return s
}

// Toggles returns how many toggles were applied.
func (s *Switch) Toggles() int64 { return s.toggles.Load() }
