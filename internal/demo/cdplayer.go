package demo

import (
	"github.com/comalice/hsmx"
)

// CDPlayer is built with the path builder. The playing state holds a track
// deck that remembers its track across pause/resume but restarts from track1
// after stop.
type CDPlayer struct {
	Chart *hsmx.Chart
	paths *hsmx.Builder
}

func NewCDPlayer(opts ...hsmx.ChartOption) *CDPlayer {
	b := hsmx.NewBuilder("cd", "stopped", opts...)

	b.State("stopped").
		On("play", "playing").
		On("eject", "open")
	b.State("playing").Compound("track1").RetainHistory("pause", "resume").
		On("pause", "paused").
		On("stop", "stopped")
	b.State("playing.track1").On("next", "playing.track2")
	b.State("playing.track2").On("next", "playing.track3").On("prev", "playing.track1")
	b.State("playing.track3").On("prev", "playing.track2")
	b.State("paused").
		On("resume", "playing").
		On("stop", "stopped")
	b.State("open").On("close", "stopped")

	chart, err := b.Build()
	if err != nil {
		panic(err)
	}
	return &CDPlayer{Chart: chart, paths: b}
}

// ID returns the id of the state at path, e.g. "playing.track2".
func (p *CDPlayer) ID(path string) hsmx.StateID { return p.paths.ID(path) }
