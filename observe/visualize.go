package observe

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx"
)

// DOT generates Graphviz DOT source for the chart. States of the active
// configuration are filled; stop states are drawn with a double border.
func DOT(c *hsmx.Chart) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `digraph %q {
  rankdir=LR;
  compound=true;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`, c.Name())

	active := make(map[hsmx.StateID]bool)
	for _, id := range c.Configuration() {
		active[id] = true
	}

	renderMachine(&buf, c, c.Root(), active, "  ")

	for _, m := range c.Machines() {
		if m.StartState() != hsmx.NoState {
			fmt.Fprintf(&buf, "  \"init_%d\" [shape=point];\n", m.Ref())
			fmt.Fprintf(&buf, "  \"init_%d\" -> %s;\n", m.Ref(), nodeID(m.StartState()))
		}
		for _, t := range m.Transitions() {
			label := t.Event.String()
			if t.Guard != nil {
				label += " [guard]"
			}
			fmt.Fprintf(&buf, "  %s -> %s [label=%q];\n", nodeID(t.From), nodeID(t.To), label)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id hsmx.StateID) string {
	return fmt.Sprintf(`"s%d"`, id)
}

// renderMachine recursively renders the states of m, with clusters for slots.
func renderMachine(buf *bytes.Buffer, c *hsmx.Chart, m *hsmx.Machine, active map[hsmx.StateID]bool, indent string) {
	for _, s := range m.States() {
		style := ""
		if active[s.ID()] {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		if s.ID() == m.StopState() {
			style += ` peripheries=2`
		}

		switch s.Kind() {
		case hsmx.KindLeaf:
			fmt.Fprintf(buf, "%s%s [label=%q%s];\n", indent, nodeID(s.ID()), s.Name(), style)

		case hsmx.KindNested:
			fmt.Fprintf(buf, "%ssubgraph \"cluster_s%d\" {\n", indent, s.ID())
			fmt.Fprintf(buf, "%s  label=%q;\n", indent, s.Name()+" (nested)")
			if active[s.ID()] {
				fmt.Fprintf(buf, "%s  style=filled; fillcolor=orange;\n", indent)
			}
			fmt.Fprintf(buf, "%s  %s [label=%q shape=ellipse%s];\n", indent, nodeID(s.ID()), s.Name(), style)
			renderMachine(buf, c, c.MachineAt(s.Sub()), active, indent+"  ")
			fmt.Fprintf(buf, "%s}\n", indent)

		case hsmx.KindOrthogonal:
			fmt.Fprintf(buf, "%ssubgraph \"cluster_s%d\" {\n", indent, s.ID())
			fmt.Fprintf(buf, "%s  label=%q;\n", indent, s.Name()+" (orthogonal)")
			fmt.Fprintf(buf, "%s  style=filled; fillcolor=lightblue;\n", indent)
			fmt.Fprintf(buf, "%s  %s [label=%q shape=ellipse%s];\n", indent, nodeID(s.ID()), s.Name(), style)
			for _, ref := range s.Regions() {
				r := c.MachineAt(ref)
				fmt.Fprintf(buf, "%s  subgraph \"cluster_m%d\" {\n", indent, ref)
				fmt.Fprintf(buf, "%s    label=%q; style=dashed;\n", indent, r.Name())
				renderMachine(buf, c, r, active, indent+"    ")
				fmt.Fprintf(buf, "%s  }\n", indent)
			}
			fmt.Fprintf(buf, "%s}\n", indent)
		}
	}
}

// ChartInfo is the exported structure of a chart.
type ChartInfo struct {
	Name     string        `json:"name" yaml:"name"`
	Status   string        `json:"status" yaml:"status"`
	Active   []string      `json:"active,omitempty" yaml:"active,omitempty"`
	Machines []MachineInfo `json:"machines" yaml:"machines"`
}

type MachineInfo struct {
	Name        string           `json:"name" yaml:"name"`
	Parent      string           `json:"parent,omitempty" yaml:"parent,omitempty"`
	Host        string           `json:"host,omitempty" yaml:"host,omitempty"`
	Start       string           `json:"start,omitempty" yaml:"start,omitempty"`
	Stop        string           `json:"stop,omitempty" yaml:"stop,omitempty"`
	States      []StateInfo      `json:"states" yaml:"states"`
	Transitions []TransitionInfo `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

type StateInfo struct {
	ID      int      `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Kind    string   `json:"kind" yaml:"kind"`
	Sub     string   `json:"sub,omitempty" yaml:"sub,omitempty"`
	Regions []string `json:"regions,omitempty" yaml:"regions,omitempty"`
}

type TransitionInfo struct {
	From     string `json:"from" yaml:"from"`
	Event    string `json:"event" yaml:"event"`
	To       string `json:"to" yaml:"to"`
	Guarded  bool   `json:"guarded,omitempty" yaml:"guarded,omitempty"`
	Internal bool   `json:"internal,omitempty" yaml:"internal,omitempty"`
}

// Describe builds the serializable structure of c.
func Describe(c *hsmx.Chart) ChartInfo {
	out := ChartInfo{Name: c.Name(), Status: c.Status().String()}
	for _, id := range c.Configuration() {
		out.Active = append(out.Active, c.StateName(id))
	}
	for _, m := range c.Machines() {
		mj := MachineInfo{Name: m.Name()}
		if p := m.Parent(); p != nil {
			mj.Parent = p.Name()
			mj.Host = c.StateName(m.Host())
		}
		if m.StartState() != hsmx.NoState {
			mj.Start = c.StateName(m.StartState())
		}
		if m.StopState() != hsmx.NoState {
			mj.Stop = c.StateName(m.StopState())
		}
		for _, s := range m.States() {
			sj := StateInfo{ID: int(s.ID()), Name: s.Name(), Kind: s.Kind().String()}
			switch s.Kind() {
			case hsmx.KindNested:
				sj.Sub = c.MachineAt(s.Sub()).Name()
			case hsmx.KindOrthogonal:
				for _, ref := range s.Regions() {
					sj.Regions = append(sj.Regions, c.MachineAt(ref).Name())
				}
			}
			mj.States = append(mj.States, sj)
		}
		for _, t := range m.Transitions() {
			mj.Transitions = append(mj.Transitions, TransitionInfo{
				From:     c.StateName(t.From),
				Event:    t.Event.String(),
				To:       c.StateName(t.To),
				Guarded:  t.Guard != nil,
				Internal: t.Internal(),
			})
		}
		out.Machines = append(out.Machines, mj)
	}
	return out
}

// ExportJSON serializes the chart structure to indented JSON.
func ExportJSON(c *hsmx.Chart) ([]byte, error) {
	return json.MarshalIndent(Describe(c), "", "  ")
}

// ExportYAML serializes the chart structure to YAML.
func ExportYAML(c *hsmx.Chart) ([]byte, error) {
	data, err := yaml.Marshal(Describe(c))
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}
	return data, nil
}
