package demo

import (
	"github.com/comalice/hsmx"
)

// Keyboard has two independent regions while plugged in. Caps and num events
// only ever reach their own region; unplug is handled by the owning machine.
type Keyboard struct {
	Chart             *hsmx.Chart
	Caps, Num         *hsmx.Machine
	Active, Unplugged *hsmx.State
	CapsOff, CapsOn   *hsmx.State
	NumOff, NumOn     *hsmx.State
}

func NewKeyboard(opts ...hsmx.ChartOption) *Keyboard {
	k := &Keyboard{Chart: hsmx.NewChart("keyboard", opts...)}
	c := k.Chart

	k.Caps = c.NewMachine("caps")
	k.CapsOff = k.Caps.State("caps_off")
	k.CapsOn = k.Caps.State("caps_on")
	k.Caps.MustAdd(k.CapsOff, c.Event("caps"), k.CapsOn)
	k.Caps.MustAdd(k.CapsOn, c.Event("caps"), k.CapsOff)
	must(k.Caps.SetStart(k.CapsOff))

	k.Num = c.NewMachine("num")
	k.NumOff = k.Num.State("num_off")
	k.NumOn = k.Num.State("num_on")
	k.Num.MustAdd(k.NumOff, c.Event("num"), k.NumOn)
	k.Num.MustAdd(k.NumOn, c.Event("num"), k.NumOff)
	must(k.Num.SetStart(k.NumOff))

	root := c.Root()
	k.Active = root.MustOrthogonal("active", []*hsmx.Machine{k.Caps, k.Num})
	k.Unplugged = root.State("unplugged")
	root.MustAdd(k.Active, c.Event("unplug"), k.Unplugged)
	root.MustAdd(k.Unplugged, c.Event("plug"), k.Active)
	must(root.SetStart(k.Active))
	return k
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
