// Package demo holds the reference charts used by the CLI, the cross-policy
// tests and the benchmarks.
package demo

import (
	"slices"

	"github.com/comalice/hsmx"
)

// Demo describes a runnable reference chart.
type Demo struct {
	Name        string
	Description string
	Build       func(opts ...hsmx.ChartOption) *hsmx.Chart
	// Script is the default event sequence sent by "hsmx run".
	Script []string
	// TickEvent names the periodic event of tick-driven charts.
	TickEvent string
	Ticks     int
}

var registry = map[string]Demo{
	"switch": {
		Name:        "switch",
		Description: "on/off switch toggled by a single event",
		Build:       func(opts ...hsmx.ChartOption) *hsmx.Chart { return NewSwitch(opts...).Chart },
		Script:      []string{"toggle", "toggle", "toggle"},
	},
	"door": {
		Name:        "door",
		Description: "garage door driven by sensors",
		Build:       func(opts ...hsmx.ChartOption) *hsmx.Chart { return NewDoor(opts...).Chart },
		Script:      []string{EventOpen, EventTopSensor, EventClose, EventBottomSensor},
	},
	"traffic": {
		Name:        "traffic",
		Description: "two-way traffic light timed by ticks",
		Build:       func(opts ...hsmx.ChartOption) *hsmx.Chart { return NewTrafficLight(opts...).Chart },
		TickEvent:   EventTick,
		Ticks:       CycleTicks,
	},
	"cd": {
		Name:        "cd",
		Description: "CD player with a track deck that resumes after pause",
		Build:       func(opts ...hsmx.ChartOption) *hsmx.Chart { return NewCDPlayer(opts...).Chart },
		Script:      []string{"play", "next", "next", "pause", "resume", "stop", "eject"},
	},
	"keyboard": {
		Name:        "keyboard",
		Description: "keyboard with independent caps lock and num lock regions",
		Build:       func(opts ...hsmx.ChartOption) *hsmx.Chart { return NewKeyboard(opts...).Chart },
		Script:      []string{"caps", "num", "unplug", "plug", "caps"},
	},
}

// Lookup returns the demo registered under name.
func Lookup(name string) (Demo, bool) {
	d, ok := registry[name]
	return d, ok
}

// Names returns the registered demo names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
