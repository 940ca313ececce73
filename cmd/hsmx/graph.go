package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx"
	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/observe"
)

func newGraphCmd() *cobra.Command {
	var (
		format string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "graph <demo>",
		Short: "Export the structure of a reference chart",
		Long:  `Outputs a Graphviz DOT digraph (default), JSON or YAML description of the chart. With --active the chart is started and its script applied first, so the active configuration is highlighted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := lookupDemo(args[0])
			if err != nil {
				return err
			}
			chart := d.Build(hsmx.WithLogger(logging.NewNop()))
			if active {
				ctx := context.Background()
				if err := chart.Start(ctx); err != nil {
					return err
				}
				for _, name := range d.Script {
					if _, err := chart.Dispatch(ctx, chart.Event(name)); err != nil {
						return err
					}
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "dot":
				_, err = fmt.Fprint(out, observe.DOT(chart))
				return err
			case "json":
				data, err := observe.ExportJSON(chart)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			case "yaml":
				data, err := observe.ExportYAML(chart)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			default:
				return fmt.Errorf("unknown format %q (dot, json, yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, json or yaml")
	cmd.Flags().BoolVar(&active, "active", false, "start the chart and apply its script before exporting")
	return cmd
}
