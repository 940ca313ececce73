package demo

import (
	"github.com/comalice/hsmx"
)

const (
	EventOpen         = "open"
	EventClose        = "close"
	EventTopSensor    = "topSensor"
	EventBottomSensor = "bottomSensor"
)

// Door is a garage door. The motor runs between the commands and the end-stop
// sensors.
type Door struct {
	Chart                          *hsmx.Chart
	Closed, Opening, Open, Closing *hsmx.State
}

func NewDoor(opts ...hsmx.ChartOption) *Door {
	d := &Door{Chart: hsmx.NewChart("door", opts...)}
	c := d.Chart
	root := c.Root()

	d.Closed = root.State("Closed")
	d.Opening = root.State("Opening")
	d.Open = root.State("Open")
	d.Closing = root.State("Closing")

	root.MustAdd(d.Closed, c.Event(EventOpen), d.Opening)
	root.MustAdd(d.Opening, c.Event(EventTopSensor), d.Open)
	root.MustAdd(d.Open, c.Event(EventClose), d.Closing)
	root.MustAdd(d.Closing, c.Event(EventBottomSensor), d.Closed)
	// reverse while moving
	root.MustAdd(d.Opening, c.Event(EventClose), d.Closing)
	root.MustAdd(d.Closing, c.Event(EventOpen), d.Opening)

	if err := root.SetStart(d.Closed); err != nil {
		panic(err)
	}
	return d
}
