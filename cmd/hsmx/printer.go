package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/comalice/hsmx"
)

// printer writes one styled line per dispatch. Only transitions and failures
// are shown unless verbose is set.
type printer struct {
	mu      sync.Mutex
	out     *termenv.Output
	chart   *hsmx.Chart
	verbose bool
}

func newPrinter(w io.Writer, chart *hsmx.Chart, verbose bool) *printer {
	return &printer{out: termenv.NewOutput(w), chart: chart, verbose: verbose}
}

func (p *printer) Observe(n hsmx.Notification) {
	res := n.Result
	p.mu.Lock()
	defer p.mu.Unlock()

	seq := p.out.String(fmt.Sprintf("%4d", n.Seq)).Faint()
	evt := p.out.String(res.Event.String()).Bold()
	switch {
	case n.Err != nil:
		msg := p.out.String("error: " + n.Err.Error()).Foreground(p.out.Color("#f87171"))
		fmt.Fprintf(p.out, "%s %s %s\n", seq, evt, msg)
	case res.Outcome == hsmx.OutcomeHandled:
		from := p.out.String(p.chart.StateName(res.From)).Foreground(p.out.Color("#a78bfa"))
		to := p.out.String(p.chart.StateName(res.To)).Foreground(p.out.Color("#4ade80"))
		fmt.Fprintf(p.out, "%s %s %s -> %s\n", seq, evt, from, to)
	case p.verbose:
		fmt.Fprintf(p.out, "%s %s %s\n", seq, evt, p.out.String(res.Outcome.String()).Faint())
	}
}

// state prints a labelled state line, e.g. the configuration after start.
func (p *printer) state(label string, ids []hsmx.StateID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = p.chart.StateName(id)
	}
	fmt.Fprintf(p.out, "%s %v\n", p.out.String(label).Bold().Underline(), names)
}
