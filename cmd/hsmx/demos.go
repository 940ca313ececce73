package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/demo"
)

func newDemosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demos",
		Short: "List the bundled reference charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range demo.Names() {
				d, _ := demo.Lookup(name)
				script := strings.Join(d.Script, ",")
				if d.TickEvent != "" {
					script = fmt.Sprintf("%d x %s", d.Ticks, d.TickEvent)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Name, d.Description, script)
			}
			return tw.Flush()
		},
	}
}

func lookupDemo(name string) (demo.Demo, error) {
	d, ok := demo.Lookup(name)
	if !ok {
		return demo.Demo{}, fmt.Errorf("unknown demo %q (available: %s)", name, strings.Join(demo.Names(), ", "))
	}
	return d, nil
}
